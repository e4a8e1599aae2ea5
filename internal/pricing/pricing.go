// Package pricing selects tier prices and computes the financed terms of a sale.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

const (
	ReasonPolicyMissing   = "policy_missing"
	ReasonTenorExceedsMax = "tenor_exceeds_max"

	moneyPlaces    = 2
	daysPerMonth   = 30
	percentDivisor = 100
)

var (
	hundred = decimal.NewFromInt(percentDivisor)
	month   = decimal.NewFromInt(daysPerMonth)
)

// Policy is the subset of a shop policy needed to price a sale.
type Policy struct {
	InterestType enums.InterestType
	InterestRate decimal.Decimal
	MaxTenorDays int
}

// PolicyFromModel adapts the persisted shop policy.
func PolicyFromModel(m *models.ShopPolicy) *Policy {
	if m == nil {
		return nil
	}
	return &Policy{
		InterestType: m.InterestType,
		InterestRate: m.InterestRate,
		MaxTenorDays: m.MaxTenorDays,
	}
}

// Terms are the amounts owed for one priced line or a whole purchase.
type Terms struct {
	Subtotal decimal.Decimal
	Interest decimal.Decimal
	Total    decimal.Decimal
}

// Add sums two sets of terms.
func (t Terms) Add(other Terms) Terms {
	return Terms{
		Subtotal: t.Subtotal.Add(other.Subtotal),
		Interest: t.Interest.Add(other.Interest),
		Total:    t.Total.Add(other.Total),
	}
}

// ResolvePrice picks the tier price for purchaseType. A tier price of exactly
// zero is treated as unset and falls back to the legacy price.
func ResolvePrice(product models.Product, purchaseType enums.PurchaseType) (decimal.Decimal, error) {
	var tier decimal.Decimal
	switch purchaseType {
	case enums.PurchaseTypeCash:
		tier = product.CashPrice
	case enums.PurchaseTypeLayaway:
		tier = product.LayawayPrice
	case enums.PurchaseTypeCredit:
		tier = product.CreditPrice
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase type").
			WithDetails(map[string]any{"purchase_type": string(purchaseType)})
	}
	if tier.IsZero() {
		return product.Price, nil
	}
	return tier, nil
}

// CheckPolicy validates tenorDays against policy without computing anything.
func CheckPolicy(policy *Policy, tenorDays int) error {
	if policy == nil {
		return pkgerrors.New(pkgerrors.CodePrecondition, "shop has no sales policy configured").
			WithDetails(map[string]any{"reason": ReasonPolicyMissing})
	}
	if tenorDays > policy.MaxTenorDays {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenor exceeds the shop maximum").
			WithDetails(map[string]any{
				"reason":         ReasonTenorExceedsMax,
				"tenor_days":     tenorDays,
				"max_tenor_days": policy.MaxTenorDays,
			})
	}
	return nil
}

// ComputeTerms prices quantity units at unitPrice under purchaseType and the
// shop policy. Interest is rounded half away from zero to cents.
func ComputeTerms(unitPrice decimal.Decimal, quantity int, purchaseType enums.PurchaseType, policy *Policy, tenorDays int) (Terms, error) {
	if err := CheckPolicy(policy, tenorDays); err != nil {
		return Terms{}, err
	}

	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(moneyPlaces)

	interest, err := interestFor(subtotal, purchaseType, policy, tenorDays)
	if err != nil {
		return Terms{}, err
	}
	interest = interest.Round(moneyPlaces)

	return Terms{
		Subtotal: subtotal,
		Interest: interest,
		Total:    subtotal.Add(interest),
	}, nil
}

func interestFor(subtotal decimal.Decimal, purchaseType enums.PurchaseType, policy *Policy, tenorDays int) (decimal.Decimal, error) {
	switch purchaseType {
	case enums.PurchaseTypeCash:
		return decimal.Zero, nil
	case enums.PurchaseTypeLayaway, enums.PurchaseTypeCredit:
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unknown purchase type").
			WithDetails(map[string]any{"purchase_type": string(purchaseType)})
	}

	rate := policy.InterestRate.Div(hundred)
	switch policy.InterestType {
	case enums.InterestTypeFlat:
		return subtotal.Mul(rate), nil
	case enums.InterestTypeMonthly:
		return subtotal.Mul(rate).Mul(decimal.NewFromInt(int64(tenorDays))).Div(month), nil
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodePrecondition, "shop policy has an unknown interest type").
			WithDetails(map[string]any{"interest_type": string(policy.InterestType)})
	}
}

// IsCents reports whether amount has at most two decimal places.
func IsCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(moneyPlaces))
}
