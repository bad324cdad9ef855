package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

func loanProduct() *domain.Product {
	return &domain.Product{
		ID:         uuid.New(),
		HolderID:   uuid.New(),
		Category:   domain.CategoryLoan,
		Principal:  decimal.NewFromInt(5000000),
		Rate:       decimal.RequireFromString("0.10"),
		TermMonths: 50,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerate_Loan(t *testing.T) {
	plan, err := Generate(loanProduct())

	assert.NoError(t, err)
	assert.True(t, plan.TotalPayable.Equal(decimal.NewFromInt(5500000)))
	assert.Len(t, plan.Dues, 50)

	sum := decimal.Zero
	for i, due := range plan.Dues {
		assert.Equal(t, i+1, due.InstallmentNo)
		assert.Equal(t, domain.DueStatusDue, due.Status)
		assert.True(t, due.ExpectedAmount.Equal(decimal.NewFromInt(110000)))
		sum = sum.Add(due.ExpectedAmount)
	}
	assert.True(t, sum.Equal(plan.TotalPayable))

	// installments land one calendar month apart starting a month in
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), plan.Dues[0].DueDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), plan.Dues[1].DueDate)
}

func TestGenerate_Loan_RoundingRemainderInFinalInstallment(t *testing.T) {
	product := loanProduct()
	product.Principal = decimal.NewFromInt(100)
	product.Rate = decimal.Zero
	product.TermMonths = 3

	plan, err := Generate(product)

	assert.NoError(t, err)
	assert.True(t, plan.Dues[0].ExpectedAmount.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, plan.Dues[2].ExpectedAmount.Equal(decimal.RequireFromString("33.34")))

	sum := decimal.Zero
	for _, due := range plan.Dues {
		sum = sum.Add(due.ExpectedAmount)
	}
	assert.True(t, sum.Equal(plan.TotalPayable))
}

func TestGenerate_RD(t *testing.T) {
	product := &domain.Product{
		ID:         uuid.New(),
		Category:   domain.CategoryRD,
		Principal:  decimal.NewFromInt(500),
		Rate:       decimal.RequireFromString("0.06"),
		TermMonths: 12,
		StartDate:  time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	plan, err := Generate(product)

	assert.NoError(t, err)
	assert.True(t, plan.TotalPayable.Equal(decimal.NewFromInt(6000)))
	assert.Len(t, plan.Dues, 12)
	for _, due := range plan.Dues {
		assert.True(t, due.ExpectedAmount.Equal(decimal.NewFromInt(500)))
	}
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), plan.Dues[0].DueDate)
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), plan.Dues[11].DueDate)
}

func TestGenerate_FD_SingleDueAtStart(t *testing.T) {
	start := time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)
	product := &domain.Product{
		ID:         uuid.New(),
		Category:   domain.CategoryFD,
		Principal:  decimal.NewFromInt(25000),
		Rate:       decimal.RequireFromString("0.07"),
		TermMonths: 24,
		StartDate:  start,
	}

	plan, err := Generate(product)

	assert.NoError(t, err)
	assert.Len(t, plan.Dues, 1)
	assert.True(t, plan.TotalPayable.Equal(decimal.NewFromInt(25000)))
	assert.True(t, plan.Dues[0].ExpectedAmount.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), plan.Dues[0].DueDate)
}

func TestGenerate_Deterministic(t *testing.T) {
	product := loanProduct()

	first, err := Generate(product)
	assert.NoError(t, err)
	second, err := Generate(product)
	assert.NoError(t, err)

	assert.True(t, first.TotalPayable.Equal(second.TotalPayable))
	assert.Equal(t, len(first.Dues), len(second.Dues))
	for i := range first.Dues {
		assert.True(t, first.Dues[i].ExpectedAmount.Equal(second.Dues[i].ExpectedAmount))
		assert.Equal(t, first.Dues[i].DueDate, second.Dues[i].DueDate)
		assert.Equal(t, first.Dues[i].InstallmentNo, second.Dues[i].InstallmentNo)
	}
}

func TestGenerate_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.Product)
	}{
		{"zero term", func(p *domain.Product) { p.TermMonths = 0 }},
		{"negative term", func(p *domain.Product) { p.TermMonths = -3 }},
		{"zero principal", func(p *domain.Product) { p.Principal = decimal.Zero }},
		{"negative rate", func(p *domain.Product) { p.Rate = decimal.RequireFromString("-0.01") }},
		{"unknown category", func(p *domain.Product) { p.Category = "Bond" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := loanProduct()
			tt.mutate(product)

			plan, err := Generate(product)

			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, apperr.ErrInvalidSchedule))
		})
	}
}

func TestMaturityValue(t *testing.T) {
	deposit := &domain.Product{
		Category:     domain.CategoryRD,
		Rate:         decimal.RequireFromString("0.05"),
		TotalPaid:    decimal.NewFromInt(6000),
		TotalPayable: decimal.NewFromInt(6000),
	}
	assert.True(t, MaturityValue(deposit).Equal(decimal.NewFromInt(6300)))

	loan := &domain.Product{
		Category:     domain.CategoryLoan,
		Rate:         decimal.RequireFromString("0.10"),
		TotalPaid:    decimal.NewFromInt(5500000),
		TotalPayable: decimal.NewFromInt(5500000),
	}
	assert.True(t, MaturityValue(loan).IsZero())
}
