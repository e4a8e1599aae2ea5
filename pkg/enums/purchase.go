package enums

import (
	"fmt"
	"strings"
)

// PurchaseType selects the payment plan and therefore the price tier of a sale.
type PurchaseType string

const (
	PurchaseTypeCash    PurchaseType = "CASH"
	PurchaseTypeLayaway PurchaseType = "LAYAWAY"
	PurchaseTypeCredit  PurchaseType = "CREDIT"
)

var validPurchaseTypes = []PurchaseType{
	PurchaseTypeCash,
	PurchaseTypeLayaway,
	PurchaseTypeCredit,
}

// String implements fmt.Stringer.
func (p PurchaseType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseType.
func (p PurchaseType) IsValid() bool {
	for _, candidate := range validPurchaseTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchaseType converts raw input (case-insensitive) into a PurchaseType.
func ParsePurchaseType(value string) (PurchaseType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPurchaseTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase type %q", value)
}

// PurchaseStatus is the financial lifecycle state of a purchase.
type PurchaseStatus string

const (
	PurchaseStatusActive    PurchaseStatus = "ACTIVE"
	PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
	PurchaseStatusOverdue   PurchaseStatus = "OVERDUE"
)

var validPurchaseStatuses = []PurchaseStatus{
	PurchaseStatusActive,
	PurchaseStatusCompleted,
	PurchaseStatusOverdue,
}

// String implements fmt.Stringer.
func (p PurchaseStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PurchaseStatus.
func (p PurchaseStatus) IsValid() bool {
	for _, candidate := range validPurchaseStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsOpen reports whether the purchase still carries a balance to collect.
func (p PurchaseStatus) IsOpen() bool {
	return p == PurchaseStatusActive || p == PurchaseStatusOverdue
}

// ParsePurchaseStatus converts raw input (case-insensitive) into a PurchaseStatus.
func ParsePurchaseStatus(value string) (PurchaseStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPurchaseStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase status %q", value)
}
