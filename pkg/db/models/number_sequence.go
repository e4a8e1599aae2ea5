package models

import "time"

// NumberSequence backs per-scope counters used for human readable numbers.
type NumberSequence struct {
	Scope     string    `gorm:"column:scope;primaryKey"`
	LastValue int64     `gorm:"column:last_value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
