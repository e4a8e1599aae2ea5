package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return d
}

func TestResolvePrice(t *testing.T) {
	product := models.Product{
		Price:        decimal.NewFromInt(120),
		CashPrice:    decimal.NewFromInt(100),
		LayawayPrice: decimal.Zero,
		CreditPrice:  decimal.NewFromInt(150),
	}

	tests := []struct {
		name         string
		purchaseType enums.PurchaseType
		want         string
	}{
		{name: "cash tier", purchaseType: enums.PurchaseTypeCash, want: "100"},
		{name: "zero tier falls back", purchaseType: enums.PurchaseTypeLayaway, want: "120"},
		{name: "credit tier", purchaseType: enums.PurchaseTypeCredit, want: "150"},
	}
	for _, tt := range tests {
		got, err := ResolvePrice(product, tt.purchaseType)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if !got.Equal(dec(t, tt.want)) {
			t.Fatalf("%s: expected %s got %s", tt.name, tt.want, got)
		}
	}

	if _, err := ResolvePrice(product, enums.PurchaseType("BARTER")); err == nil {
		t.Fatal("expected unknown purchase type to fail")
	}
}

func TestComputeTerms(t *testing.T) {
	flat := &Policy{InterestType: enums.InterestTypeFlat, InterestRate: decimal.NewFromInt(10), MaxTenorDays: 180}
	monthly := &Policy{InterestType: enums.InterestTypeMonthly, InterestRate: decimal.NewFromInt(5), MaxTenorDays: 180}

	tests := []struct {
		name         string
		unitPrice    string
		quantity     int
		purchaseType enums.PurchaseType
		policy       *Policy
		tenor        int
		subtotal     string
		interest     string
		total        string
	}{
		{name: "cash has no interest", unitPrice: "100", quantity: 2, purchaseType: enums.PurchaseTypeCash, policy: flat, tenor: 30, subtotal: "200", interest: "0", total: "200"},
		{name: "flat credit", unitPrice: "100", quantity: 2, purchaseType: enums.PurchaseTypeCredit, policy: flat, tenor: 90, subtotal: "200", interest: "20", total: "220"},
		{name: "monthly whole months", unitPrice: "1000", quantity: 1, purchaseType: enums.PurchaseTypeCredit, policy: monthly, tenor: 90, subtotal: "1000", interest: "150", total: "1150"},
		{name: "monthly fractional month", unitPrice: "1000", quantity: 1, purchaseType: enums.PurchaseTypeLayaway, policy: monthly, tenor: 45, subtotal: "1000", interest: "75", total: "1075"},
		{name: "monthly rounds half away from zero", unitPrice: "33.33", quantity: 1, purchaseType: enums.PurchaseTypeCredit, policy: monthly, tenor: 10, subtotal: "33.33", interest: "0.56", total: "33.89"},
	}
	for _, tt := range tests {
		terms, err := ComputeTerms(dec(t, tt.unitPrice), tt.quantity, tt.purchaseType, tt.policy, tt.tenor)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if !terms.Subtotal.Equal(dec(t, tt.subtotal)) || !terms.Interest.Equal(dec(t, tt.interest)) || !terms.Total.Equal(dec(t, tt.total)) {
			t.Fatalf("%s: unexpected terms %+v", tt.name, terms)
		}
		if !terms.Total.Equal(terms.Subtotal.Add(terms.Interest)) {
			t.Fatalf("%s: total must equal subtotal + interest", tt.name)
		}
	}
}

func TestComputeTermsPolicyErrors(t *testing.T) {
	_, err := ComputeTerms(decimal.NewFromInt(10), 1, enums.PurchaseTypeCredit, nil, 30)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePrecondition || typed.Reason() != ReasonPolicyMissing {
		t.Fatalf("expected policy_missing precondition, got %v", err)
	}

	// missing policy blocks cash sales too
	_, err = ComputeTerms(decimal.NewFromInt(10), 1, enums.PurchaseTypeCash, nil, 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("expected precondition for cash without policy, got %v", err)
	}

	policy := &Policy{InterestType: enums.InterestTypeFlat, InterestRate: decimal.NewFromInt(10), MaxTenorDays: 90}
	_, err = ComputeTerms(decimal.NewFromInt(10), 1, enums.PurchaseTypeCredit, policy, 91)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation || typed.Reason() != ReasonTenorExceedsMax {
		t.Fatalf("expected tenor_exceeds_max validation, got %v", err)
	}

	bad := &Policy{InterestType: enums.InterestType("DAILY"), InterestRate: decimal.NewFromInt(1), MaxTenorDays: 90}
	if _, err := ComputeTerms(decimal.NewFromInt(10), 1, enums.PurchaseTypeCredit, bad, 30); err == nil {
		t.Fatal("expected unknown interest type to fail")
	}
}

func TestSchedule(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	plan := Schedule(decimal.NewFromInt(100), 3, start, 90)
	if len(plan) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(plan))
	}

	sum := decimal.Zero
	for _, inst := range plan {
		sum = sum.Add(inst.Amount)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("installments must sum to financed amount, got %s", sum)
	}
	if !plan[0].Amount.Equal(dec(t, "33.33")) || !plan[2].Amount.Equal(dec(t, "33.34")) {
		t.Fatalf("unexpected split %+v", plan)
	}
	if !plan[0].DueDate.Equal(start.AddDate(0, 0, 30)) || !plan[2].DueDate.Equal(start.AddDate(0, 0, 90)) {
		t.Fatalf("unexpected due dates %+v", plan)
	}

	if got := Schedule(decimal.Zero, 3, start, 90); len(got) != 0 {
		t.Fatalf("settled purchases have no schedule, got %d", len(got))
	}
}

func TestScheduleClampsCount(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	plan := Schedule(decimal.NewFromInt(110), 2000000000, start, 30)
	if len(plan) != 30 {
		t.Fatalf("expected one installment per tenor day, got %d", len(plan))
	}
	if !plan[29].DueDate.Equal(start.AddDate(0, 0, 30)) {
		t.Fatalf("last installment must fall on the due date, got %s", plan[29].DueDate)
	}

	plan = Schedule(dec(t, "0.05"), 30, start, 30)
	if len(plan) != 5 {
		t.Fatalf("expected one installment per financed cent, got %d", len(plan))
	}
	for _, inst := range plan {
		if !inst.Amount.Equal(dec(t, "0.01")) {
			t.Fatalf("unexpected installment %+v", inst)
		}
	}

	if got := MaxInstallments(0); got != 1 {
		t.Fatalf("expected a floor of 1, got %d", got)
	}
}

func TestDefaultInstallments(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 30: 1, 31: 2, 90: 3, 365: 13}
	for tenor, want := range cases {
		if got := DefaultInstallments(tenor); got != want {
			t.Fatalf("tenor %d: expected %d got %d", tenor, want, got)
		}
	}
}

func TestIsCents(t *testing.T) {
	for _, ok := range []string{"0", "10", "10.5", "10.50", "0.01", "10.500"} {
		if !IsCents(dec(t, ok)) {
			t.Fatalf("%s should be a cent amount", ok)
		}
	}
	for _, bad := range []string{"0.001", "10.505"} {
		if IsCents(dec(t, bad)) {
			t.Fatalf("%s should not be a cent amount", bad)
		}
	}
}
