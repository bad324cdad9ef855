package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/finlend/ledger-engine/internal/config"
	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/pkg/apperr"
	"github.com/finlend/ledger-engine/tests/mocks"
)

func newProductService(
	productRepo *mocks.MockProductRepository,
	dueRepo *mocks.MockDueRepository,
	ledgerRepo *mocks.MockLedgerRepository,
	assignRepo *mocks.MockAssignmentRepository,
	cfg *config.Config,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		dueRepo:     dueRepo,
		assignRepo:  assignRepo,
		wallet:      NewWalletService(ledgerRepo, nil),
		config:      cfg,
	}
}

func TestApply_CreatesPendingProduct(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder, AccountActive: true, KYCVerified: true}

	productRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.HolderID == caller.ID &&
			p.Status == domain.ProductStatusPending &&
			p.TotalPayable.IsZero() &&
			p.StartDate.Hour() == 0
	})).Return(nil)

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	product, err := service.Apply(context.Background(), caller, &domain.ApplyRequest{
		Category:   domain.CategoryRD,
		Principal:  decimal.NewFromInt(500),
		Rate:       decimal.RequireFromString("0.05"),
		TermMonths: 12,
		StartDate:  time.Date(2026, 1, 15, 11, 45, 0, 0, time.UTC),
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.ProductStatusPending, product.Status)
	productRepo.AssertExpectations(t)
}

func TestApply_UnverifiedKYCRejected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder, AccountActive: true, KYCVerified: false}

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	_, err := service.Apply(context.Background(), caller, &domain.ApplyRequest{
		Category:   domain.CategoryFD,
		Principal:  decimal.NewFromInt(25000),
		TermMonths: 24,
	})

	assert.Error(t, err)
	productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApply_InvalidParametersRejected(t *testing.T) {
	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder, AccountActive: true, KYCVerified: true}
	service := newProductService(&mocks.MockProductRepository{}, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	tests := []struct {
		name    string
		request *domain.ApplyRequest
	}{
		{"bad category", &domain.ApplyRequest{Category: "Bond", Principal: decimal.NewFromInt(100), TermMonths: 12}},
		{"zero term", &domain.ApplyRequest{Category: domain.CategoryRD, Principal: decimal.NewFromInt(100), TermMonths: 0}},
		{"zero principal", &domain.ApplyRequest{Category: domain.CategoryRD, Principal: decimal.Zero, TermMonths: 12}},
		{"negative rate", &domain.ApplyRequest{Category: domain.CategoryRD, Principal: decimal.NewFromInt(100), Rate: decimal.RequireFromString("-0.1"), TermMonths: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Apply(context.Background(), caller, tt.request)
			assert.Error(t, err)
		})
	}
}

func TestApprove_LoanGeneratesScheduleAndDisburses(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	holderID := uuid.New()
	product := &domain.Product{
		ID:         uuid.New(),
		HolderID:   holderID,
		Category:   domain.CategoryLoan,
		Principal:  decimal.NewFromInt(12000),
		Rate:       decimal.Zero,
		TermMonths: 12,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     domain.ProductStatusPending,
	}
	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleManager}
	operatingID := uuid.MustParse(testOperatingAccount)

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	productRepo.On("ActivateWithSchedule", mock.Anything, product,
		mock.MatchedBy(func(dues []*domain.DueRecord) bool {
			if len(dues) != 12 {
				return false
			}
			sum := decimal.Zero
			for _, due := range dues {
				if !due.ExpectedAmount.Equal(decimal.NewFromInt(1000)) {
					return false
				}
				sum = sum.Add(due.ExpectedAmount)
			}
			return sum.Equal(decimal.NewFromInt(12000))
		}),
		mock.MatchedBy(func(disbursal *domain.Transaction) bool {
			return disbursal != nil &&
				disbursal.AccountID == operatingID &&
				disbursal.Amount.Equal(decimal.NewFromInt(-12000)) &&
				disbursal.TxnType == domain.TxnDisbursed
		})).Return(nil)

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	response, err := service.Approve(context.Background(), caller, product.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.ProductStatusActive, response.Product.Status)
	assert.True(t, response.Product.TotalPayable.Equal(decimal.NewFromInt(12000)))
	assert.Len(t, response.Schedule, 12)

	productRepo.AssertExpectations(t)
}

func TestApprove_DepositHasNoDisbursal(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	product := &domain.Product{
		ID:         uuid.New(),
		HolderID:   uuid.New(),
		Category:   domain.CategoryRD,
		Principal:  decimal.NewFromInt(500),
		Rate:       decimal.RequireFromString("0.05"),
		TermMonths: 12,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     domain.ProductStatusPending,
	}
	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleAdmin}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	productRepo.On("ActivateWithSchedule", mock.Anything, product, mock.Anything,
		(*domain.Transaction)(nil)).Return(nil)

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	response, err := service.Approve(context.Background(), caller, product.ID)

	assert.NoError(t, err)
	assert.True(t, response.Product.TotalPayable.Equal(decimal.NewFromInt(6000)))
	productRepo.AssertExpectations(t)
}

func TestApprove_NonPendingRejected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	product := activeLoan(uuid.New())
	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleManager}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	_, err := service.Approve(context.Background(), caller, product.ID)

	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	productRepo.AssertNotCalled(t, "ActivateWithSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReapply_OnlyHolderMayReapply(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	existing := &domain.Product{
		ID:       uuid.New(),
		HolderID: uuid.New(),
		Category: domain.CategoryFD,
		Status:   domain.ProductStatusRejected,
	}
	stranger := domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder, AccountActive: true, KYCVerified: true}

	productRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	_, err := service.Reapply(context.Background(), stranger, existing.ID, &domain.ApplyRequest{
		Category:   domain.CategoryFD,
		Principal:  decimal.NewFromInt(30000),
		TermMonths: 24,
	})

	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	productRepo.AssertNotCalled(t, "UpdateApplication", mock.Anything, mock.Anything)
}

func TestList_AllScopeRequiresStaff(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	holder := domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder}

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	_, err := service.List(context.Background(), holder, "all", "", "", 10, 0)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	productRepo.On("ListByHolder", mock.Anything, holder.ID, domain.Category(""), "", 10, 0).
		Return([]*domain.Product{}, nil)

	_, err = service.List(context.Background(), holder, "", "", "", 0, 0)
	assert.NoError(t, err)
}

func TestReferrals_AggregatesByCategory(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}

	referrer := domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder}

	referred := []*domain.Product{
		{ID: uuid.New(), Category: domain.CategoryRD, TotalPaid: decimal.NewFromInt(3000)},
		{ID: uuid.New(), Category: domain.CategoryFD, TotalPaid: decimal.NewFromInt(25000)},
		{ID: uuid.New(), Category: domain.CategoryLoan, TotalPaid: decimal.NewFromInt(4000), TotalPayable: decimal.NewFromInt(12000)},
	}
	productRepo.On("ListByReferrer", mock.Anything, referrer.ID).Return(referred, nil)

	service := newProductService(productRepo, &mocks.MockDueRepository{}, &mocks.MockLedgerRepository{}, &mocks.MockAssignmentRepository{}, testConfig())

	summary, err := service.Referrals(context.Background(), referrer)

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.DepositCount)
	assert.True(t, summary.DepositAmount.Equal(decimal.NewFromInt(28000)))
	assert.Equal(t, 1, summary.LoanCount)
	assert.True(t, summary.LoanAmount.Equal(decimal.NewFromInt(8000)))
	assert.Len(t, summary.Referrals, 3)
}
