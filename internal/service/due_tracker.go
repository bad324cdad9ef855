package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/notify"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/pkg/utils"
)

// DueTrackerService owns the read side of the due lifecycle and the
// time-driven sweeps. Settling a due record goes through the collection
// processor, never through here.
type DueTrackerService struct {
	productRepo repository.ProductRepository
	dueRepo     repository.DueRepository
	assignRepo  repository.AssignmentRepository
	sink        notify.Sink
}

func NewDueTrackerService(
	productRepo repository.ProductRepository,
	dueRepo repository.DueRepository,
	assignRepo repository.AssignmentRepository,
	sink notify.Sink,
) *DueTrackerService {
	return &DueTrackerService{
		productRepo: productRepo,
		dueRepo:     dueRepo,
		assignRepo:  assignRepo,
		sink:        sink,
	}
}

// ListDue returns the collectable obligations of a product due on or before
// asOf, earliest installment first.
func (s *DueTrackerService) ListDue(ctx context.Context, caller domain.CallerContext, productID uuid.UUID, asOf time.Time) ([]*domain.DueRecord, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeView(ctx, caller, product); err != nil {
		return nil, err
	}

	return s.dueRepo.ListDue(ctx, productID, utils.NormalizeDate(asOf))
}

// Schedule returns the full due schedule of a product.
func (s *DueTrackerService) Schedule(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) ([]*domain.DueRecord, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeView(ctx, caller, product); err != nil {
		return nil, err
	}

	return s.dueRepo.ListByProduct(ctx, productID)
}

// MarkOverdue flips every record still due with a due date before asOf to
// overdue. Run from the scheduler; safe to rerun, already-flipped rows do
// not match again.
func (s *DueTrackerService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	flipped, err := s.dueRepo.MarkOverdue(ctx, utils.NormalizeDate(asOf))
	if err != nil {
		return 0, err
	}

	if flipped > 0 {
		slog.Info("overdue sweep", "flipped", flipped, "as_of", utils.NormalizeDate(asOf))
	}

	return flipped, nil
}

// NotifyDueSoon emits a due_soon event for every obligation falling due
// within the window. Event delivery is fire-and-forget.
func (s *DueTrackerService) NotifyDueSoon(ctx context.Context, asOf time.Time, withinDays int) (int, error) {
	from := utils.NormalizeDate(asOf)
	to := from.AddDate(0, 0, withinDays)

	dues, err := s.dueRepo.ListDueBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}

	for _, due := range dues {
		product, err := s.productRepo.GetByID(ctx, due.ProductID)
		if err != nil {
			slog.Error("due soon lookup failed", "product_id", due.ProductID, "error", err)
			continue
		}

		s.sink.Publish(ctx, domain.Event{
			Kind:       domain.EventDueSoon,
			ProductID:  due.ProductID,
			HolderID:   product.HolderID,
			Amount:     due.ExpectedAmount,
			OccurredAt: time.Now(),
		})
	}

	return len(dues), nil
}

func (s *DueTrackerService) authorizeView(ctx context.Context, caller domain.CallerContext, product *domain.Product) error {
	hasAssignment, err := s.callerHasAssignment(ctx, caller, product.ID)
	if err != nil {
		return err
	}
	return domain.Authorize(caller, domain.OpView, product, hasAssignment)
}

func (s *DueTrackerService) callerHasAssignment(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) (bool, error) {
	if caller.Role != domain.RoleAgent {
		return false, nil
	}
	active, err := s.assignRepo.ActiveForProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return active != nil && active.AgentID == caller.ID, nil
}
