// Package sequences hands out gap-tolerant, collision-free counters used for
// purchase and waybill numbers.
package sequences

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const nextValueSQL = `INSERT INTO number_sequences (scope, last_value, updated_at) VALUES (?, 1, ?)
ON CONFLICT (scope) DO UPDATE SET last_value = number_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// Next atomically increments the counter for scope and returns the new value.
// It must run on the transaction that persists the numbered row so a rollback
// never leaves a value reserved by a row that does not exist.
func Next(ctx context.Context, tx *gorm.DB, scope string) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("sequence %q: transaction required", scope)
	}
	if scope == "" {
		return 0, fmt.Errorf("sequence scope required")
	}

	var value int64
	if err := tx.WithContext(ctx).Raw(nextValueSQL, scope, time.Now().UTC()).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("next value for %q: %w", scope, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("sequence %q returned %d", scope, value)
	}
	return value, nil
}

// PurchaseScope is the per-customer purchase counter.
func PurchaseScope(customerID uuid.UUID) string {
	return "purchase:" + customerID.String()
}

// WaybillScope is the global per-year waybill counter.
func WaybillScope(year int) string {
	return fmt.Sprintf("waybill:%d", year)
}

// FormatPurchaseNumber renders HP-0001 style numbers.
func FormatPurchaseNumber(value int64) string {
	return fmt.Sprintf("HP-%04d", value)
}

// FormatWaybillNumber renders WB-2026-000001 style numbers.
func FormatWaybillNumber(year int, value int64) string {
	return fmt.Sprintf("WB-%d-%06d", year, value)
}

// NextPurchaseNumber reserves the customer's next purchase number.
func NextPurchaseNumber(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (string, error) {
	value, err := Next(ctx, tx, PurchaseScope(customerID))
	if err != nil {
		return "", err
	}
	return FormatPurchaseNumber(value), nil
}

// NextWaybillNumber reserves the next waybill number for the year of at.
func NextWaybillNumber(ctx context.Context, tx *gorm.DB, at time.Time) (string, error) {
	year := at.UTC().Year()
	value, err := Next(ctx, tx, WaybillScope(year))
	if err != nil {
		return "", err
	}
	return FormatWaybillNumber(year, value), nil
}
