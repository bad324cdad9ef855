package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// NormalizeDate truncates a timestamp to a calendar date at midnight UTC.
// All due dates and as-of cutoffs go through this so comparisons never
// depend on the wall clock's time-of-day or zone.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InstallmentDueDate returns the due date of the n-th installment (1-based),
// one calendar month apart starting one month after the start date.
func InstallmentDueDate(startDate time.Time, installmentNo int) time.Time {
	return NormalizeDate(startDate).AddDate(0, installmentNo, 0)
}

// ElapsedFraction returns elapsed/total term as a decimal in [0, 1].
func ElapsedFraction(startDate time.Time, termMonths int, asOf time.Time) decimal.Decimal {
	if termMonths <= 0 {
		return decimal.Zero
	}
	start := NormalizeDate(startDate)
	end := InstallmentDueDate(startDate, termMonths)
	at := NormalizeDate(asOf)

	if !at.After(start) {
		return decimal.Zero
	}
	if !at.Before(end) {
		return decimal.NewFromInt(1)
	}

	elapsed := decimal.NewFromInt(int64(at.Sub(start) / (24 * time.Hour)))
	total := decimal.NewFromInt(int64(end.Sub(start) / (24 * time.Hour)))
	return elapsed.Div(total).Round(6)
}

// TotalPayable computes the flat total owed over the term:
// base + base * rate, where base is the principal for loans and FD, and the
// periodic contribution times the term for RD.
func TotalPayable(base decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return base.Add(base.Mul(rate)).Round(2)
}

// SplitInstallments divides total into n installments rounded to 2 decimal
// places, absorbing the rounding remainder into the final installment so the
// parts always sum back to total exactly.
func SplitInstallments(total decimal.Decimal, n int) []decimal.Decimal {
	per := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	amounts := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		amounts[i] = per
	}
	amounts[n-1] = total.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))
	return amounts
}
