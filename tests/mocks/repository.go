package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/repository"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) UpdateApplication(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) ActivateWithSchedule(ctx context.Context, product *domain.Product, dues []*domain.DueRecord, disbursal *domain.Transaction) error {
	args := m.Called(ctx, product, dues, disbursal)
	return args.Error(0)
}

func (m *MockProductRepository) Reject(ctx context.Context, id uuid.UUID, remark string) error {
	args := m.Called(ctx, id, remark)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateReferrer(ctx context.Context, id uuid.UUID, referrerID uuid.UUID) error {
	args := m.Called(ctx, id, referrerID)
	return args.Error(0)
}

func (m *MockProductRepository) ListByHolder(ctx context.Context, holderID uuid.UUID, category domain.Category, status string, limit, skip int) ([]*domain.Product, error) {
	args := m.Called(ctx, holderID, category, status, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) ListAll(ctx context.Context, category domain.Category, status string, limit, skip int) ([]*domain.Product, error) {
	args := m.Called(ctx, category, status, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]*domain.Product, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

type MockDueRepository struct {
	mock.Mock
}

func (m *MockDueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DueRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DueRecord), args.Error(1)
}

func (m *MockDueRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.DueRecord, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DueRecord), args.Error(1)
}

func (m *MockDueRepository) ListDue(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]*domain.DueRecord, error) {
	args := m.Called(ctx, productID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DueRecord), args.Error(1)
}

func (m *MockDueRepository) FirstCollectable(ctx context.Context, productID uuid.UUID) (*domain.DueRecord, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DueRecord), args.Error(1)
}

func (m *MockDueRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDueRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.DueRecord, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DueRecord), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ApplyCollection(ctx context.Context, unit *repository.CollectionUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockLedgerRepository) ConfirmHold(ctx context.Context, entryID uuid.UUID) (*domain.CollectionEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CollectionEntry), args.Error(1)
}

func (m *MockLedgerRepository) ApplySettlement(ctx context.Context, unit *repository.SettlementUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListCollections(ctx context.Context, productID uuid.UUID, limit, skip int) ([]*domain.CollectionEntry, error) {
	args := m.Called(ctx, productID, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CollectionEntry), args.Error(1)
}

func (m *MockLedgerRepository) SumCollections(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) Post(ctx context.Context, txn *domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) SumTransactions(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) ActiveForProduct(ctx context.Context, productID uuid.UUID) (*domain.Assignment, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) Swap(ctx context.Context, productID, agentID uuid.UUID) (*domain.Assignment, error) {
	args := m.Called(ctx, productID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) Deactivate(ctx context.Context, productID, agentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, productID, agentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssignmentRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, category domain.Category, limit, skip int) ([]*domain.Assignment, error) {
	args := m.Called(ctx, agentID, category, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]*domain.Assignment, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Assignment), args.Error(1)
}
