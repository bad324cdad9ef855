package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finlend/ledger-engine/internal/config"
	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/internal/schedule"
	"github.com/finlend/ledger-engine/pkg/apperr"
	"github.com/finlend/ledger-engine/pkg/utils"
)

// ProductService owns the product application lifecycle: apply, reapply,
// approve, reject. Approval is the moment the schedule is generated and the
// obligations become real.
type ProductService struct {
	productRepo repository.ProductRepository
	dueRepo     repository.DueRepository
	assignRepo  repository.AssignmentRepository
	wallet      *WalletService
	config      *config.Config
}

func NewProductService(
	productRepo repository.ProductRepository,
	dueRepo repository.DueRepository,
	assignRepo repository.AssignmentRepository,
	wallet *WalletService,
	cfg *config.Config,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		dueRepo:     dueRepo,
		assignRepo:  assignRepo,
		wallet:      wallet,
		config:      cfg,
	}
}

// Apply registers a pending application. Nothing is owed until approval.
func (s *ProductService) Apply(ctx context.Context, caller domain.CallerContext, request *domain.ApplyRequest) (*domain.Product, error) {
	if err := domain.Authorize(caller, domain.OpApply, nil, false); err != nil {
		return nil, err
	}

	product, err := s.buildProduct(caller.ID, request)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// Reapply replaces a pending or rejected application's parameters and
// returns it to pending.
func (s *ProductService) Reapply(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, request *domain.ApplyRequest) (*domain.Product, error) {
	existing, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(caller, domain.OpReapply, existing, false); err != nil {
		return nil, err
	}

	product, err := s.buildProduct(existing.HolderID, request)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID

	if err := s.productRepo.UpdateApplication(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// Approve activates a pending application: the schedule is generated and
// persisted with the status flip as one unit, and a loan disburses the
// principal out of the operating wallet.
func (s *ProductService) Approve(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) (*domain.ApproveResponse, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(caller, domain.OpApprove, product, false); err != nil {
		return nil, err
	}

	if product.Status != domain.ProductStatusPending {
		return nil, apperr.WrapStateConflict("product is not pending approval", apperr.ErrInvalidTransition)
	}

	plan, err := schedule.Generate(product)
	if err != nil {
		return nil, err
	}
	product.TotalPayable = plan.TotalPayable

	var disbursal *domain.Transaction
	if product.Category == domain.CategoryLoan {
		operatingID, perr := uuid.Parse(s.config.Business.OperatingAccountID)
		if perr != nil {
			return nil, apperr.WrapValidation("operating account is not configured")
		}
		disbursal = &domain.Transaction{
			ID:        uuid.New(),
			AccountID: operatingID,
			Amount:    product.Principal.Neg(),
			TxnType:   domain.TxnDisbursed,
			ProductID: &product.ID,
		}
	}

	if err := s.productRepo.ActivateWithSchedule(ctx, product, plan.Dues, disbursal); err != nil {
		return nil, err
	}

	if disbursal != nil {
		s.wallet.Invalidate(ctx, disbursal.AccountID)
	}

	product.Status = domain.ProductStatusActive
	return &domain.ApproveResponse{Product: product, Schedule: plan.Dues}, nil
}

// Reject declines a pending application with a remark.
func (s *ProductService) Reject(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, remark string) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := domain.Authorize(caller, domain.OpReject, product, false); err != nil {
		return err
	}

	return s.productRepo.Reject(ctx, productID, remark)
}

// Get returns one product, holder- or assignment-scoped.
func (s *ProductService) Get(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) (*domain.Product, error) {
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

	return product, nil
}

// List pages products. Holders see their own; scope "all" requires staff.
func (s *ProductService) List(ctx context.Context, caller domain.CallerContext, scope string, category domain.Category, status string, limit, skip int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = 10
	}

	if scope == "all" {
		if err := domain.Authorize(caller, domain.OpListAll, nil, false); err != nil {
			return nil, err
		}
		return s.productRepo.ListAll(ctx, category, status, limit, skip)
	}

	return s.productRepo.ListByHolder(ctx, caller.ID, category, status, limit, skip)
}

// UpdateReferrer rewrites the referral attribution of a product.
func (s *ProductService) UpdateReferrer(ctx context.Context, caller domain.CallerContext, productID, referrerID uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := domain.Authorize(caller, domain.OpUpdateReferrer, product, false); err != nil {
		return err
	}

	return s.productRepo.UpdateReferrer(ctx, productID, referrerID)
}

// Referrals aggregates the caller's active referred products: counts,
// amounts, and one line per referral.
func (s *ProductService) Referrals(ctx context.Context, caller domain.CallerContext) (*domain.ReferralSummary, error) {
	products, err := s.productRepo.ListByReferrer(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	summary := &domain.ReferralSummary{
		DepositAmount: decimal.Zero,
		LoanAmount:    decimal.Zero,
		Referrals:     make([]domain.ReferralLine, 0, len(products)),
	}

	for _, product := range products {
		line := domain.ReferralLine{ProductID: product.ID, Category: product.Category}
		if product.Category.IsDeposit() {
			line.Amount = product.TotalPaid
			summary.DepositCount++
			summary.DepositAmount = summary.DepositAmount.Add(product.TotalPaid)
		} else {
			line.Amount = product.Remaining()
			summary.LoanCount++
			summary.LoanAmount = summary.LoanAmount.Add(product.Remaining())
		}
		summary.Referrals = append(summary.Referrals, line)
	}

	return summary, nil
}

func (s *ProductService) buildProduct(holderID uuid.UUID, request *domain.ApplyRequest) (*domain.Product, error) {
	if !request.Category.Valid() {
		return nil, apperr.WrapValidation("category must be one of RD, FD, Loan")
	}
	if request.TermMonths <= 0 {
		return nil, apperr.WrapInvalidSchedule("term must be at least one month")
	}
	if !request.Principal.IsPositive() {
		return nil, apperr.WrapValidation("principal must be positive")
	}
	if request.Rate.IsNegative() {
		return nil, apperr.WrapValidation("rate must not be negative")
	}

	startDate := request.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}

	return &domain.Product{
		ID:           uuid.New(),
		HolderID:     holderID,
		Category:     request.Category,
		Principal:    request.Principal,
		Rate:         request.Rate,
		TermMonths:   request.TermMonths,
		StartDate:    utils.NormalizeDate(startDate),
		Status:       domain.ProductStatusPending,
		TotalPaid:    decimal.Zero,
		TotalPayable: decimal.Zero,
		ReferrerID:   request.ReferrerID,
		DocumentURLs: domain.DocumentRefs(request.DocumentURLs),
	}, nil
}

func (s *ProductService) callerHasAssignment(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) (bool, error) {
	if caller.Role != domain.RoleAgent {
		return false, nil
	}
	active, err := s.assignRepo.ActiveForProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return active != nil && active.AgentID == caller.ID, nil
}
