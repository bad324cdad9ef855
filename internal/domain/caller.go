package domain

import (
	"github.com/google/uuid"

	"github.com/finlend/ledger-engine/pkg/apperr"
)

// Caller roles, supplied by the identity collaborator.
const (
	RoleHolder  = "holder"
	RoleAgent   = "agent"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// CallerContext is the immutable identity of the caller, passed explicitly
// into every engine operation.
type CallerContext struct {
	ID            uuid.UUID
	Role          string
	AccountActive bool
	KYCVerified   bool
}

func (c CallerContext) IsStaff() bool {
	return c.Role == RoleManager || c.Role == RoleAdmin
}

// Operation identifies an engine operation for authorization purposes.
type Operation string

const (
	OpApply          Operation = "apply"
	OpReapply        Operation = "reapply"
	OpApprove        Operation = "approve"
	OpReject         Operation = "reject"
	OpView           Operation = "view"
	OpCollect        Operation = "collect"
	OpSettle         Operation = "settle"
	OpAssignAgent    Operation = "assign_agent"
	OpUpdateReferrer Operation = "update_referrer"
	OpListAll        Operation = "list_all"
)

// Authorize is the single policy decision point for every engine operation.
// hasActiveAssignment is resolved by the caller against the assignment
// registry for operations where agents may act; pass false otherwise.
func Authorize(caller CallerContext, op Operation, target *Product, hasActiveAssignment bool) error {
	switch op {
	case OpApply, OpReapply:
		if !caller.AccountActive {
			return apperr.WrapValidation("your account is not active")
		}
		if !caller.KYCVerified {
			return apperr.WrapValidation("please get your KYC verified")
		}
		if op == OpReapply && target != nil && target.HolderID != caller.ID {
			return apperr.WrapUnauthorized("only the account holder may reapply")
		}
		return nil

	case OpApprove, OpReject, OpAssignAgent, OpUpdateReferrer, OpListAll:
		if !caller.IsStaff() {
			return apperr.WrapUnauthorized("manager or admin role required")
		}
		return nil

	case OpView:
		if caller.IsStaff() {
			return nil
		}
		if target != nil && target.HolderID == caller.ID {
			return nil
		}
		if caller.Role == RoleAgent && hasActiveAssignment {
			return nil
		}
		return apperr.WrapUnauthorized("not your product")

	case OpCollect:
		if target != nil && target.HolderID == caller.ID {
			return nil
		}
		if caller.Role == RoleAgent && hasActiveAssignment {
			return nil
		}
		if caller.IsStaff() {
			return nil
		}
		return apperr.WrapUnauthorizedCollection(caller.ID.String())

	case OpSettle:
		if caller.IsStaff() {
			return nil
		}
		if target != nil && target.HolderID == caller.ID {
			return nil
		}
		return apperr.WrapUnauthorizedSettlement(caller.ID.String())
	}

	return apperr.WrapUnauthorized("unknown operation")
}
