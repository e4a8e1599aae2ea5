package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod describes how an installment was collected.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodMobileMoney,
	PaymentMethodBankTransfer,
	PaymentMethodCard,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input (case-insensitive) into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentStatus is the confirmation state of a payment row. Only confirmed
// payments count toward amount_paid.
type PaymentStatus string

const (
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
)

// OverpaymentPolicy is the caller's explicit choice for amounts above the
// outstanding balance.
type OverpaymentPolicy string

const (
	OverpaymentReject OverpaymentPolicy = "REJECT"
	OverpaymentCap    OverpaymentPolicy = "CAP"
)

var validOverpaymentPolicies = []OverpaymentPolicy{
	OverpaymentReject,
	OverpaymentCap,
}

// IsValid reports whether the value is a known OverpaymentPolicy.
func (o OverpaymentPolicy) IsValid() bool {
	for _, candidate := range validOverpaymentPolicies {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOverpaymentPolicy converts raw input into an OverpaymentPolicy; empty
// input resolves to OverpaymentReject.
func ParseOverpaymentPolicy(value string) (OverpaymentPolicy, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return OverpaymentReject, nil
	}
	for _, candidate := range validOverpaymentPolicies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid overpayment policy %q", value)
}
