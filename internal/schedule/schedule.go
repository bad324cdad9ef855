// Package schedule generates the due obligations for a product instance.
// Generation is deterministic: the same product parameters always yield the
// same schedule, so an audit can regenerate and compare.
package schedule

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
	"github.com/finlend/ledger-engine/pkg/utils"
)

// Plan is a generated schedule plus the flat total the holder owes over the
// full term. The sum of the due amounts equals TotalPayable exactly; any
// rounding remainder is absorbed into the final installment.
type Plan struct {
	TotalPayable decimal.Decimal
	Dues         []*domain.DueRecord
}

// Generate produces the due schedule for a product.
//
// Loan: flat EMI, (principal + principal*rate) split over term_months.
// RD: one contribution of principal per month; interest accrues to the
// maturity payout, not to the obligations.
// FD: a single due for the principal at the start date.
func Generate(product *domain.Product) (*Plan, error) {
	if product.TermMonths <= 0 {
		return nil, apperr.WrapInvalidSchedule("term must be at least one month")
	}
	if !product.Principal.IsPositive() {
		return nil, apperr.WrapInvalidSchedule("principal must be positive")
	}
	if product.Rate.IsNegative() {
		return nil, apperr.WrapInvalidSchedule("rate must not be negative")
	}

	switch product.Category {
	case domain.CategoryLoan:
		total := utils.TotalPayable(product.Principal, product.Rate)
		return installmentPlan(product, total, product.TermMonths), nil

	case domain.CategoryRD:
		total := product.Principal.Mul(decimal.NewFromInt(int64(product.TermMonths))).Round(2)
		return installmentPlan(product, total, product.TermMonths), nil

	case domain.CategoryFD:
		due := &domain.DueRecord{
			ID:             uuid.New(),
			ProductID:      product.ID,
			InstallmentNo:  1,
			ExpectedAmount: product.Principal.Round(2),
			DueDate:        utils.NormalizeDate(product.StartDate),
			Status:         domain.DueStatusDue,
		}
		return &Plan{
			TotalPayable: product.Principal.Round(2),
			Dues:         []*domain.DueRecord{due},
		}, nil
	}

	return nil, apperr.WrapInvalidSchedule("unknown product category")
}

// MaturityValue is what the holder receives on mature closure of a deposit:
// everything actually paid in plus flat interest on it. For loans it is
// zero, the operation does not pay holders on loan closure.
func MaturityValue(product *domain.Product) decimal.Decimal {
	if !product.Category.IsDeposit() {
		return decimal.Zero
	}
	return utils.TotalPayable(product.TotalPaid, product.Rate)
}

func installmentPlan(product *domain.Product, total decimal.Decimal, n int) *Plan {
	amounts := utils.SplitInstallments(total, n)

	dues := make([]*domain.DueRecord, 0, n)
	for i, amount := range amounts {
		dues = append(dues, &domain.DueRecord{
			ID:             uuid.New(),
			ProductID:      product.ID,
			InstallmentNo:  i + 1,
			ExpectedAmount: amount,
			DueDate:        utils.InstallmentDueDate(product.StartDate, i+1),
			Status:         domain.DueStatusDue,
		})
	}

	return &Plan{TotalPayable: total, Dues: dues}
}
