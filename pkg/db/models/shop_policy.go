package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// ShopPolicy holds the interest terms a shop applies to financed sales.
type ShopPolicy struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ShopID       uuid.UUID          `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:ux_shop_policies_shop_id"`
	InterestType enums.InterestType `gorm:"column:interest_type;type:text;not null"`
	InterestRate decimal.Decimal    `gorm:"column:interest_rate;type:numeric(7,4);not null;default:0"`
	MaxTenorDays int                `gorm:"column:max_tenor_days;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *ShopPolicy) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
