package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one expected repayment of the financed amount.
type Installment struct {
	Sequence int             `json:"sequence"`
	DueDate  time.Time       `json:"due_date"`
	Amount   decimal.Decimal `json:"amount"`
}

// DefaultInstallments returns one installment per started 30 day month of the tenor.
func DefaultInstallments(tenorDays int) int {
	if tenorDays <= 0 {
		return 1
	}
	count := (tenorDays + daysPerMonth - 1) / daysPerMonth
	if count < 1 {
		return 1
	}
	return count
}

// MaxInstallments is the largest installment count a tenor accepts: one per day.
func MaxInstallments(tenorDays int) int {
	if tenorDays < 1 {
		return 1
	}
	return tenorDays
}

// Schedule splits financed into count equal cent-rounded parts with due dates
// evenly spaced over the tenor. The last installment absorbs the rounding
// remainder and always falls on start + tenorDays. count is clamped to
// MaxInstallments and to the number of cents financed, so no installment is
// ever zero.
func Schedule(financed decimal.Decimal, count int, start time.Time, tenorDays int) []Installment {
	if financed.Sign() <= 0 {
		return []Installment{}
	}
	if limit := MaxInstallments(tenorDays); count > limit {
		count = limit
	}
	if cents := financed.Shift(moneyPlaces).IntPart(); int64(count) > cents {
		count = int(cents)
	}
	if count < 1 {
		count = 1
	}

	per := financed.Div(decimal.NewFromInt(int64(count))).RoundDown(moneyPlaces)
	out := make([]Installment, 0, count)
	allocated := decimal.Zero
	for i := 1; i <= count; i++ {
		amount := per
		if i == count {
			amount = financed.Sub(allocated)
		}
		allocated = allocated.Add(amount)

		offset := tenorDays * i / count
		out = append(out, Installment{
			Sequence: i,
			DueDate:  start.AddDate(0, 0, offset),
			Amount:   amount,
		})
	}
	return out
}
