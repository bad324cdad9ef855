package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/config"
	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/notify"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

// CollectionService applies payments against due obligations. Every collect
// is one atomic unit: due settle, collection entry, ledger postings and
// product totals move together or not at all.
type CollectionService struct {
	productRepo repository.ProductRepository
	dueRepo     repository.DueRepository
	ledgerRepo  repository.LedgerRepository
	assignRepo  repository.AssignmentRepository
	wallet      *WalletService
	sink        notify.Sink
	config      *config.Config
}

func NewCollectionService(
	productRepo repository.ProductRepository,
	dueRepo repository.DueRepository,
	ledgerRepo repository.LedgerRepository,
	assignRepo repository.AssignmentRepository,
	wallet *WalletService,
	sink notify.Sink,
	cfg *config.Config,
) *CollectionService {
	return &CollectionService{
		productRepo: productRepo,
		dueRepo:     dueRepo,
		ledgerRepo:  ledgerRepo,
		assignRepo:  assignRepo,
		wallet:      wallet,
		sink:        sink,
		config:      cfg,
	}
}

// Collect applies a payment to a due record of the product. The collector
// must be the holder, an agent with an active assignment, or staff. Two
// concurrent calls against the same due record resolve to one winner; the
// loser gets AlreadySettled from the storage guard.
func (s *CollectionService) Collect(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, request *domain.CollectRequest) (*domain.CollectionResult, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.Status != domain.ProductStatusActive {
		return nil, apperr.WrapStateConflict("product is not active", apperr.ErrProductNotActive)
	}

	hasAssignment, err := s.callerHasAssignment(ctx, caller, productID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(caller, domain.OpCollect, product, hasAssignment); err != nil {
		return nil, err
	}

	due, err := s.resolveDue(ctx, productID, request)
	if err != nil {
		return nil, err
	}

	if err := s.checkAmount(product, due, request.Amount); err != nil {
		return nil, err
	}

	entryStatus, dueStatus := collectionStatus(caller, request.Hold)

	entry := &domain.CollectionEntry{
		ID:          uuid.New(),
		ProductID:   productID,
		DueID:       due.ID,
		Amount:      request.Amount,
		CollectedBy: caller.ID,
		Status:      entryStatus,
		CreatedAt:   time.Now(),
	}

	operatingID, err := uuid.Parse(s.config.Business.OperatingAccountID)
	if err != nil {
		return nil, apperr.WrapValidation("operating account is not configured")
	}

	// I4: the collection entry and its ledger posting are born in the same
	// unit; one cannot exist without the other.
	ledgerTxn := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: operatingID,
		Amount:    request.Amount,
		TxnType:   domain.TxnCollection,
		ProductID: &productID,
	}
	transactions := []*domain.Transaction{ledgerTxn}
	touched := []uuid.UUID{operatingID}

	if commission := s.commissionFor(product, request.Amount); commission != nil {
		transactions = append(transactions, commission)
		touched = append(touched, commission.AccountID)
	}

	fullyPaid := product.TotalPaid.Add(request.Amount).GreaterThanOrEqual(product.TotalPayable)

	unit := &repository.CollectionUnit{
		DueID:        due.ID,
		DueStatus:    dueStatus,
		Entry:        entry,
		Transactions: transactions,
		ProductID:    productID,
		Amount:       request.Amount,
		// a held collection is provisional, it never closes the product
		CloseProduct: dueStatus != domain.DueStatusHold,
	}

	if err := s.ledgerRepo.ApplyCollection(ctx, unit); err != nil {
		return nil, err
	}

	s.wallet.Invalidate(ctx, touched...)

	s.sink.Publish(ctx, domain.Event{
		Kind:       domain.EventCollected,
		ProductID:  productID,
		HolderID:   product.HolderID,
		Amount:     request.Amount,
		OccurredAt: time.Now(),
	})

	due.Status = dueStatus
	return &domain.CollectionResult{
		Entry:       entry,
		Due:         due,
		Transaction: ledgerTxn,
		TotalPaid:   product.TotalPaid.Add(request.Amount),
		FullyPaid:   fullyPaid && dueStatus != domain.DueStatusHold,
	}, nil
}

// ConfirmCollection reconciles a held collection: the entry and its due
// record move to collected. Hold never auto-resolves.
func (s *CollectionService) ConfirmCollection(ctx context.Context, caller domain.CallerContext, entryID uuid.UUID) (*domain.CollectionEntry, error) {
	if !caller.IsStaff() {
		return nil, apperr.WrapUnauthorized("manager or admin role required")
	}

	return s.ledgerRepo.ConfirmHold(ctx, entryID)
}

// AuditProduct recomputes the paid total from the collection entries and
// compares it with the product counter. Only meaningful while the product is
// active; a closing settlement moves the counter without an entry.
func (s *CollectionService) AuditProduct(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) (*domain.LedgerAudit, error) {
	if !caller.IsStaff() {
		return nil, apperr.WrapUnauthorized("manager or admin role required")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductStatusActive {
		return nil, apperr.WrapStateConflict("only an active product can be audited", apperr.ErrProductNotActive)
	}

	sum, err := s.ledgerRepo.SumCollections(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &domain.LedgerAudit{
		ProductID:  productID,
		TotalPaid:  product.TotalPaid,
		EntrySum:   sum,
		Consistent: sum.Equal(product.TotalPaid),
	}, nil
}

// ListRepayments pages the collection entries recorded against a product.
func (s *CollectionService) ListRepayments(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, limit, skip int) ([]*domain.CollectionEntry, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	hasAssignment, err := s.callerHasAssignment(ctx, caller, productID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(caller, domain.OpView, product, hasAssignment); err != nil {
		return nil, err
	}

	return s.ledgerRepo.ListCollections(ctx, productID, limit, skip)
}

func (s *CollectionService) resolveDue(ctx context.Context, productID uuid.UUID, request *domain.CollectRequest) (*domain.DueRecord, error) {
	if request.DueID == nil {
		return s.dueRepo.FirstCollectable(ctx, productID)
	}

	due, err := s.dueRepo.GetByID(ctx, *request.DueID)
	if err != nil {
		return nil, err
	}
	if due.ProductID != productID {
		return nil, apperr.WrapValidation("due record does not belong to this product")
	}
	if !due.Collectable() {
		return nil, apperr.WrapAlreadySettled(due.ID.String())
	}

	return due, nil
}

func (s *CollectionService) checkAmount(product *domain.Product, due *domain.DueRecord, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.WrapValidation("amount must be positive")
	}

	if s.config.AllowPartial(string(product.Category)) {
		if amount.GreaterThan(due.ExpectedAmount) {
			return apperr.WrapAmountMismatch(due.ExpectedAmount.String(), amount.String())
		}
		return nil
	}

	if !amount.Equal(due.ExpectedAmount) {
		return apperr.WrapAmountMismatch(due.ExpectedAmount.String(), amount.String())
	}

	return nil
}

func (s *CollectionService) commissionFor(product *domain.Product, amount decimal.Decimal) *domain.Transaction {
	rate := s.config.GetReferrerCommissionRate()
	if product.ReferrerID == nil || !rate.IsPositive() {
		return nil
	}

	commission := amount.Mul(rate).Round(2)
	if !commission.IsPositive() {
		return nil
	}

	productID := product.ID
	return &domain.Transaction{
		ID:        uuid.New(),
		AccountID: *product.ReferrerID,
		Amount:    commission,
		TxnType:   domain.TxnCommission,
		ProductID: &productID,
	}
}

func (s *CollectionService) callerHasAssignment(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) (bool, error) {
	if caller.Role != domain.RoleAgent {
		return false, nil
	}
	active, err := s.assignRepo.ActiveForProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return active != nil && active.AgentID == caller.ID, nil
}

// collectionStatus maps who collected, and how, onto the entry and due
// statuses: self payments are paid, agent collections are collected, and a
// flagged cash-in-transit collection is held until confirmed.
func collectionStatus(caller domain.CallerContext, hold bool) (entryStatus, dueStatus string) {
	if hold {
		return domain.CollectionStatusHold, domain.DueStatusHold
	}
	if caller.Role == domain.RoleAgent || caller.IsStaff() {
		return domain.CollectionStatusCollected, domain.DueStatusCollected
	}
	return domain.CollectionStatusPaid, domain.DueStatusPaid
}
