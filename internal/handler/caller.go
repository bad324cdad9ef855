package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/finlend/ledger-engine/internal/domain"
)

// The identity collaborator authenticates upstream and forwards the caller
// on trusted headers. The engine consumes them as preconditions; it never
// re-verifies credentials.
const (
	headerCallerID      = "X-Caller-Id"
	headerCallerRole    = "X-Caller-Role"
	headerAccountActive = "X-Account-Active"
	headerKYCVerified   = "X-Kyc-Verified"
)

func callerFromRequest(r *http.Request) (domain.CallerContext, bool) {
	id, err := uuid.Parse(r.Header.Get(headerCallerID))
	if err != nil {
		return domain.CallerContext{}, false
	}

	role := r.Header.Get(headerCallerRole)
	switch role {
	case domain.RoleHolder, domain.RoleAgent, domain.RoleManager, domain.RoleAdmin:
	default:
		return domain.CallerContext{}, false
	}

	return domain.CallerContext{
		ID:            id,
		Role:          role,
		AccountActive: r.Header.Get(headerAccountActive) == "true",
		KYCVerified:   r.Header.Get(headerKYCVerified) == "true",
	}, true
}
