package enums

import (
	"fmt"
	"strings"
)

// InterestType selects how a shop policy charges interest on financed sales.
type InterestType string

const (
	InterestTypeFlat    InterestType = "FLAT"
	InterestTypeMonthly InterestType = "MONTHLY"
)

var validInterestTypes = []InterestType{
	InterestTypeFlat,
	InterestTypeMonthly,
}

// String implements fmt.Stringer.
func (i InterestType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InterestType.
func (i InterestType) IsValid() bool {
	for _, candidate := range validInterestTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInterestType converts raw input (case-insensitive) into an InterestType.
func ParseInterestType(value string) (InterestType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validInterestTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid interest type %q", value)
}
