package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a shop's sellable item with tiered prices and tracked stock.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ShopID        uuid.UUID       `gorm:"column:shop_id;type:uuid;not null;index:idx_products_shop"`
	Name          string          `gorm:"column:name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null;default:0"`
	CashPrice     decimal.Decimal `gorm:"column:cash_price;type:numeric(14,2);not null;default:0"`
	LayawayPrice  decimal.Decimal `gorm:"column:layaway_price;type:numeric(14,2);not null;default:0"`
	CreditPrice   decimal.Decimal `gorm:"column:credit_price;type:numeric(14,2);not null;default:0"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0"`
	Active        bool            `gorm:"column:active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
