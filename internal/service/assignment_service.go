package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/repository"
	"github.com/finlend/ledger-engine/pkg/apperr"
)

// AssignmentService maps field agents to product instances for collection
// duty. At most one agent is active per product; history is kept so past
// collections stay attributed.
type AssignmentService struct {
	productRepo repository.ProductRepository
	assignRepo  repository.AssignmentRepository
}

func NewAssignmentService(productRepo repository.ProductRepository, assignRepo repository.AssignmentRepository) *AssignmentService {
	return &AssignmentService{
		productRepo: productRepo,
		assignRepo:  assignRepo,
	}
}

// Assign puts the agent on collection duty for the product, replacing any
// current assignment in the same atomic swap.
func (s *AssignmentService) Assign(ctx context.Context, caller domain.CallerContext, productID, agentID uuid.UUID) (*domain.Assignment, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(caller, domain.OpAssignAgent, product, false); err != nil {
		return nil, err
	}

	current, err := s.assignRepo.ActiveForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.AgentID == agentID {
		return nil, apperr.WrapIdempotentNoop("agent is already assigned to this product")
	}

	return s.assignRepo.Swap(ctx, productID, agentID)
}

// Unassign takes the agent off duty. Unassigning an inactive pair reports
// IdempotentNoop rather than failing hard.
func (s *AssignmentService) Unassign(ctx context.Context, caller domain.CallerContext, productID, agentID uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := domain.Authorize(caller, domain.OpAssignAgent, product, false); err != nil {
		return err
	}

	changed, err := s.assignRepo.Deactivate(ctx, productID, agentID)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.WrapIdempotentNoop("agent has no active assignment on this product")
	}

	return nil
}

// ListAssignments pages an agent's active workload, optionally filtered by
// category. Agents see their own; staff may inspect any agent's.
func (s *AssignmentService) ListAssignments(ctx context.Context, caller domain.CallerContext, agentID uuid.UUID, category domain.Category, limit, skip int) ([]*domain.Assignment, error) {
	if !caller.IsStaff() && caller.ID != agentID {
		return nil, apperr.WrapUnauthorized("agents may only list their own assignments")
	}

	if limit <= 0 {
		limit = 10
	}

	return s.assignRepo.ListByAgent(ctx, agentID, category, limit, skip)
}

// AgentsForProduct returns a product's assignment history, newest first.
func (s *AssignmentService) AgentsForProduct(ctx context.Context, caller domain.CallerContext, productID uuid.UUID) ([]*domain.Assignment, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := domain.Authorize(caller, domain.OpView, product, false); err != nil {
		return nil, err
	}

	return s.assignRepo.ListForProduct(ctx, productID)
}
