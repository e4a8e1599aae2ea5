package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a buyer registered with a shop. AssignedCollectorID is a weak
// reference to a staff user owned by the identity collaborator.
type Customer struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ShopID              uuid.UUID  `gorm:"column:shop_id;type:uuid;not null;index:idx_customers_shop"`
	Name                string     `gorm:"column:name;not null"`
	Phone               string     `gorm:"column:phone;not null"`
	Address             *string    `gorm:"column:address"`
	City                *string    `gorm:"column:city"`
	Region              *string    `gorm:"column:region"`
	AssignedCollectorID *uuid.UUID `gorm:"column:assigned_collector_id;type:uuid;index:idx_customers_collector"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
