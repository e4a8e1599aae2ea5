package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// Purchase is the ledger row for one hire-purchase sale.
//
// TotalAmount always equals Subtotal + InterestAmount and never changes after
// creation. OutstandingBalance always equals TotalAmount - AmountPaid, and
// AmountPaid is recomputed from confirmed payment rows on every application.
type Purchase struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ShopID                uuid.UUID            `gorm:"column:shop_id;type:uuid;not null;index:idx_purchases_shop_status,priority:1"`
	CustomerID            uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_purchases_customer_number,priority:1"`
	PurchaseNumber        string               `gorm:"column:purchase_number;not null;uniqueIndex:ux_purchases_customer_number,priority:2"`
	PurchaseType          enums.PurchaseType   `gorm:"column:purchase_type;type:text;not null"`
	Status                enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:'ACTIVE';index:idx_purchases_shop_status,priority:2"`
	Subtotal              decimal.Decimal      `gorm:"column:subtotal;type:numeric(14,2);not null"`
	InterestAmount        decimal.Decimal      `gorm:"column:interest_amount;type:numeric(14,2);not null"`
	TotalAmount           decimal.Decimal      `gorm:"column:total_amount;type:numeric(14,2);not null"`
	DownPayment           decimal.Decimal      `gorm:"column:down_payment;type:numeric(14,2);not null"`
	AmountPaid            decimal.Decimal      `gorm:"column:amount_paid;type:numeric(14,2);not null"`
	OutstandingBalance    decimal.Decimal      `gorm:"column:outstanding_balance;type:numeric(14,2);not null"`
	Installments          int                  `gorm:"column:installments;not null;default:1"`
	TenorDays             int                  `gorm:"column:tenor_days;not null"`
	StartDate             time.Time            `gorm:"column:start_date;not null"`
	DueDate               time.Time            `gorm:"column:due_date;not null"`
	DeliveryStatus        enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'PENDING'"`
	DeliveryAddress       *string              `gorm:"column:delivery_address"`
	ScheduledDeliveryDate *time.Time           `gorm:"column:scheduled_delivery_date"`
	DeliveredAt           *time.Time           `gorm:"column:delivered_at"`
	DeliveredByID         *uuid.UUID           `gorm:"column:delivered_by_id;type:uuid"`
	CreatedByID           uuid.UUID            `gorm:"column:created_by_id;type:uuid;not null"`
	CompletedAt           *time.Time           `gorm:"column:completed_at"`
	Items                 []PurchaseItem       `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PurchaseItem is an immutable snapshot of a line at sale time.
type PurchaseItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID     uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index;uniqueIndex:ux_purchase_items_line"`
	LineNo         int             `gorm:"column:line_no;not null;uniqueIndex:ux_purchase_items_line"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string          `gorm:"column:product_name;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	InterestAmount decimal.Decimal `gorm:"column:interest_amount;type:numeric(14,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:numeric(14,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *PurchaseItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
