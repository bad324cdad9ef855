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
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/pkg/apperr"
	"github.com/finlend/ledger-engine/tests/mocks"
)

const testOperatingAccount = "b6f1c6a0-9b1e-4f4e-8d5a-2f0c3a7e9d11"

type nopSink struct{}

func (nopSink) Publish(context.Context, domain.Event) {}

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			OperatingAccountID:     testOperatingAccount,
			PrematurePenaltyRate:   "0.02",
			EarlyClosureRebateRate: "0",
			ReferrerCommissionRate: "0",
		},
	}
}

func activeLoan(holderID uuid.UUID) *domain.Product {
	return &domain.Product{
		ID:           uuid.New(),
		HolderID:     holderID,
		Category:     domain.CategoryLoan,
		Principal:    decimal.NewFromInt(10000),
		Rate:         decimal.RequireFromString("0.20"),
		TermMonths:   12,
		StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:       domain.ProductStatusActive,
		TotalPaid:    decimal.NewFromInt(11000),
		TotalPayable: decimal.NewFromInt(12000),
	}
}

func newCollectionService(
	productRepo *mocks.MockProductRepository,
	dueRepo *mocks.MockDueRepository,
	ledgerRepo *mocks.MockLedgerRepository,
	assignRepo *mocks.MockAssignmentRepository,
	cfg *config.Config,
) *CollectionService {
	return &CollectionService{
		productRepo: productRepo,
		dueRepo:     dueRepo,
		ledgerRepo:  ledgerRepo,
		assignRepo:  assignRepo,
		wallet:      NewWalletService(ledgerRepo, nil),
		sink:        nopSink{},
		config:      cfg,
	}
}

func TestCollect_HolderPaysFinalInstallment(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		InstallmentNo:  12,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)
	ledgerRepo.On("ApplyCollection", mock.Anything, mock.MatchedBy(func(unit *repository.CollectionUnit) bool {
		return unit.DueID == due.ID &&
			unit.DueStatus == domain.DueStatusPaid &&
			unit.CloseProduct &&
			unit.Amount.Equal(decimal.NewFromInt(1000)) &&
			len(unit.Transactions) == 1 &&
			unit.Transactions[0].TxnType == domain.TxnCollection &&
			unit.Transactions[0].Amount.Equal(decimal.NewFromInt(1000))
	})).Return(nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	result, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusPaid, result.Entry.Status)
	assert.Equal(t, domain.DueStatusPaid, result.Due.Status)
	assert.True(t, result.TotalPaid.Equal(decimal.NewFromInt(12000)))
	assert.True(t, result.FullyPaid)

	productRepo.AssertExpectations(t)
	dueRepo.AssertExpectations(t)
	ledgerRepo.AssertExpectations(t)
}

func TestCollect_AgentWithAssignmentMarksCollected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	product := activeLoan(uuid.New())
	product.TotalPaid = decimal.NewFromInt(2000)
	agentID := uuid.New()
	caller := domain.CallerContext{ID: agentID, Role: domain.RoleAgent}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		InstallmentNo:  3,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusOverdue,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	assignRepo.On("ActiveForProduct", mock.Anything, product.ID).Return(
		&domain.Assignment{ProductID: product.ID, AgentID: agentID, Active: true}, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)
	ledgerRepo.On("ApplyCollection", mock.Anything, mock.MatchedBy(func(unit *repository.CollectionUnit) bool {
		return unit.DueStatus == domain.DueStatusCollected && unit.Entry.CollectedBy == agentID
	})).Return(nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	result, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusCollected, result.Entry.Status)
	assert.False(t, result.FullyPaid)

	assignRepo.AssertExpectations(t)
	ledgerRepo.AssertExpectations(t)
}

func TestCollect_AgentWithoutAssignmentIsRejected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	product := activeLoan(uuid.New())
	caller := domain.CallerContext{ID: uuid.New(), Role: domain.RoleAgent}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	assignRepo.On("ActiveForProduct", mock.Anything, product.ID).Return(nil, nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	_, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
	})

	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	ledgerRepo.AssertNotCalled(t, "ApplyCollection", mock.Anything, mock.Anything)
}

func TestCollect_AmountMismatchRejected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	_, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(500),
	})

	assert.True(t, errors.Is(err, apperr.ErrAmountMismatch))
	ledgerRepo.AssertNotCalled(t, "ApplyCollection", mock.Anything, mock.Anything)
}

func TestCollect_PartialAllowedWhenConfigured(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	product.TotalPaid = decimal.NewFromInt(2000)
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	cfg := testConfig()
	cfg.Business.AllowPartialLoan = true

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)
	ledgerRepo.On("ApplyCollection", mock.Anything, mock.Anything).Return(nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, cfg)

	result, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(400),
	})

	assert.NoError(t, err)
	assert.True(t, result.TotalPaid.Equal(decimal.NewFromInt(2400)))
}

func TestCollect_ExplicitDueAlreadySettled(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	dueID := uuid.New()
	settled := &domain.DueRecord{
		ID:             dueID,
		ProductID:      product.ID,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusPaid,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("GetByID", mock.Anything, dueID).Return(settled, nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	_, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
		DueID:  &dueID,
	})

	assert.True(t, errors.Is(err, apperr.ErrAlreadySettled))
	ledgerRepo.AssertNotCalled(t, "ApplyCollection", mock.Anything, mock.Anything)
}

func TestCollect_ConcurrentLoserGetsAlreadySettled(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)
	// the storage guard reports the race; it surfaces unchanged
	ledgerRepo.On("ApplyCollection", mock.Anything, mock.Anything).
		Return(apperr.WrapAlreadySettled(due.ID.String()))

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	result, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
	})

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, apperr.ErrAlreadySettled))
	assert.True(t, apperr.IsConflict(err))
}

func TestCollect_DueFromAnotherProductRejected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	dueID := uuid.New()
	foreign := &domain.DueRecord{
		ID:             dueID,
		ProductID:      uuid.New(),
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("GetByID", mock.Anything, dueID).Return(foreign, nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	_, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
		DueID:  &dueID,
	})

	assert.Error(t, err)
	ledgerRepo.AssertNotCalled(t, "ApplyCollection", mock.Anything, mock.Anything)
}

func TestCollect_InactiveProductRejected(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	product := activeLoan(holderID)
	product.Status = domain.ProductStatusClosed
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	_, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
	})

	assert.True(t, errors.Is(err, apperr.ErrProductNotActive))
}

func TestCollect_HoldNeverClosesProduct(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	product := activeLoan(uuid.New())
	agentID := uuid.New()
	caller := domain.CallerContext{ID: agentID, Role: domain.RoleAgent}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		InstallmentNo:  12,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	assignRepo.On("ActiveForProduct", mock.Anything, product.ID).Return(
		&domain.Assignment{ProductID: product.ID, AgentID: agentID, Active: true}, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)
	ledgerRepo.On("ApplyCollection", mock.Anything, mock.MatchedBy(func(unit *repository.CollectionUnit) bool {
		return unit.DueStatus == domain.DueStatusHold && !unit.CloseProduct
	})).Return(nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	// the final installment on hold still must not close the product
	result, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
		Hold:   true,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusHold, result.Entry.Status)
	assert.False(t, result.FullyPaid)
	ledgerRepo.AssertExpectations(t)
}

func TestCollect_ReferrerCommissionPosted(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	holderID := uuid.New()
	referrerID := uuid.New()
	product := activeLoan(holderID)
	product.TotalPaid = decimal.NewFromInt(2000)
	product.ReferrerID = &referrerID
	caller := domain.CallerContext{ID: holderID, Role: domain.RoleHolder}

	due := &domain.DueRecord{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ExpectedAmount: decimal.NewFromInt(1000),
		Status:         domain.DueStatusDue,
	}

	cfg := testConfig()
	cfg.Business.ReferrerCommissionRate = "0.05"

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	dueRepo.On("FirstCollectable", mock.Anything, product.ID).Return(due, nil)
	ledgerRepo.On("ApplyCollection", mock.Anything, mock.MatchedBy(func(unit *repository.CollectionUnit) bool {
		if len(unit.Transactions) != 2 {
			return false
		}
		commission := unit.Transactions[1]
		return commission.TxnType == domain.TxnCommission &&
			commission.AccountID == referrerID &&
			commission.Amount.Equal(decimal.NewFromInt(50))
	})).Return(nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, cfg)

	_, err := service.Collect(context.Background(), caller, product.ID, &domain.CollectRequest{
		Amount: decimal.NewFromInt(1000),
	})

	assert.NoError(t, err)
	ledgerRepo.AssertExpectations(t)
}

func TestAuditProduct_ReportsDivergence(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	product := activeLoan(uuid.New())
	product.TotalPaid = decimal.NewFromInt(3000)
	manager := domain.CallerContext{ID: uuid.New(), Role: domain.RoleManager}

	productRepo.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	ledgerRepo.On("SumCollections", mock.Anything, product.ID).Return(decimal.NewFromInt(2000), nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	audit, err := service.AuditProduct(context.Background(), manager, product.ID)

	assert.NoError(t, err)
	assert.False(t, audit.Consistent)
	assert.True(t, audit.TotalPaid.Equal(decimal.NewFromInt(3000)))
	assert.True(t, audit.EntrySum.Equal(decimal.NewFromInt(2000)))

	_, err = service.AuditProduct(context.Background(), domain.CallerContext{ID: uuid.New(), Role: domain.RoleHolder}, product.ID)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestConfirmCollection_StaffOnly(t *testing.T) {
	productRepo := &mocks.MockProductRepository{}
	dueRepo := &mocks.MockDueRepository{}
	ledgerRepo := &mocks.MockLedgerRepository{}
	assignRepo := &mocks.MockAssignmentRepository{}

	entryID := uuid.New()
	confirmed := &domain.CollectionEntry{ID: entryID, Status: domain.CollectionStatusCollected}

	ledgerRepo.On("ConfirmHold", mock.Anything, entryID).Return(confirmed, nil)

	service := newCollectionService(productRepo, dueRepo, ledgerRepo, assignRepo, testConfig())

	_, err := service.ConfirmCollection(context.Background(), domain.CallerContext{ID: uuid.New(), Role: domain.RoleAgent}, entryID)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	entry, err := service.ConfirmCollection(context.Background(), domain.CallerContext{ID: uuid.New(), Role: domain.RoleManager}, entryID)
	assert.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusCollected, entry.Status)
}
