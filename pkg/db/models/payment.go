package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// Payment is an append-only record of money received against a purchase.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseID    uuid.UUID           `gorm:"column:purchase_id;type:uuid;not null;index:idx_payments_purchase"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Method        enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'CONFIRMED'"`
	CollectedByID *uuid.UUID          `gorm:"column:collected_by_id;type:uuid"`
	Reference     *string             `gorm:"column:reference"`
	ConfirmedAt   time.Time           `gorm:"column:confirmed_at;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
