package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WaybillItem is the frozen copy of a purchase line printed on a waybill.
type WaybillItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Waybill is the delivery document issued at most once per purchase.
type Waybill struct {
	ID                  uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID          uuid.UUID     `gorm:"column:purchase_id;type:uuid;not null;uniqueIndex:ux_waybills_purchase_id"`
	ShopID              uuid.UUID     `gorm:"column:shop_id;type:uuid;not null"`
	WaybillNumber       string        `gorm:"column:waybill_number;not null;uniqueIndex:ux_waybills_number"`
	RecipientName       string        `gorm:"column:recipient_name;not null"`
	RecipientPhone      string        `gorm:"column:recipient_phone;not null"`
	DeliveryAddress     string        `gorm:"column:delivery_address;not null"`
	DeliveryCity        *string       `gorm:"column:delivery_city"`
	DeliveryRegion      *string       `gorm:"column:delivery_region"`
	SpecialInstructions *string       `gorm:"column:special_instructions"`
	Items               []WaybillItem `gorm:"column:items;type:jsonb;serializer:json;not null"`
	IssuedByID          uuid.UUID     `gorm:"column:issued_by_id;type:uuid;not null"`
	IssuedAt            time.Time     `gorm:"column:issued_at;not null"`
	ReceivedBy          *string       `gorm:"column:received_by"`
	CreatedAt           time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (w *Waybill) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
