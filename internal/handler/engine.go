package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/finlend/ledger-engine/internal/domain"
	"github.com/finlend/ledger-engine/internal/service"
	"github.com/finlend/ledger-engine/internal/storage"
	"github.com/finlend/ledger-engine/pkg/response"
)

// EngineHandler exposes the ledger engine over HTTP. Request validation and
// caller extraction happen here; everything monetary happens in the
// services.
type EngineHandler struct {
	products    *service.ProductService
	dues        *service.DueTrackerService
	collections *service.CollectionService
	settlements *service.SettlementService
	assignments *service.AssignmentService
	wallets     *service.WalletService
	documents   storage.Store
	validator   *validator.Validate
}

func NewEngineHandler(
	products *service.ProductService,
	dues *service.DueTrackerService,
	collections *service.CollectionService,
	settlements *service.SettlementService,
	assignments *service.AssignmentService,
	wallets *service.WalletService,
	documents storage.Store,
) *EngineHandler {
	return &EngineHandler{
		products:    products,
		dues:        dues,
		collections: collections,
		settlements: settlements,
		assignments: assignments,
		wallets:     wallets,
		documents:   documents,
		validator:   validator.New(),
	}
}

// RegisterRoutes attaches the engine's boundary to the router.
func (h *EngineHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/products", h.ListProducts).Methods("GET")
	api.HandleFunc("/products/apply", h.Apply).Methods("POST")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	api.HandleFunc("/products/{id}/reapply", h.Reapply).Methods("POST")
	api.HandleFunc("/products/{id}/approve", h.Approve).Methods("POST")
	api.HandleFunc("/products/{id}/reject", h.Reject).Methods("POST")
	api.HandleFunc("/products/{id}/due", h.ListDue).Methods("GET")
	api.HandleFunc("/products/{id}/schedule", h.GetSchedule).Methods("GET")
	api.HandleFunc("/products/{id}/collect", h.Collect).Methods("POST")
	api.HandleFunc("/products/{id}/repayments", h.ListRepayments).Methods("GET")
	api.HandleFunc("/products/{id}/audit", h.AuditProduct).Methods("GET")
	api.HandleFunc("/products/{id}/settlement-quote", h.SettlementQuote).Methods("GET")
	api.HandleFunc("/products/{id}/settle", h.Settle).Methods("POST")
	api.HandleFunc("/products/{id}/assign-agent", h.AssignAgent).Methods("POST")
	api.HandleFunc("/products/{id}/unassign-agent", h.UnassignAgent).Methods("POST")
	api.HandleFunc("/products/{id}/agents", h.ListAgents).Methods("GET")
	api.HandleFunc("/products/{id}/update-referrer", h.UpdateReferrer).Methods("POST")
	api.HandleFunc("/collections/{entryId}/confirm", h.ConfirmCollection).Methods("POST")
	api.HandleFunc("/assignments", h.ListAssignments).Methods("GET")
	api.HandleFunc("/referrals", h.Referrals).Methods("GET")
	api.HandleFunc("/wallet/balance", h.WalletBalance).Methods("GET")
	api.HandleFunc("/wallet/transactions", h.WalletTransactions).Methods("GET")
}

type applyPayload struct {
	domain.ApplyRequest
	Documents []documentPayload `json:"documents,omitempty"`
}

type documentPayload struct {
	Name string `json:"name" validate:"required"`
	Data string `json:"data" validate:"required"`
}

func (h *EngineHandler) Apply(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	var payload applyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload.ApplyRequest); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	urls, err := h.uploadDocuments(r, payload.Documents)
	if err != nil {
		response.BadRequest(w, "failed to store documents")
		return
	}
	payload.DocumentURLs = append(payload.DocumentURLs, urls...)

	product, err := h.products.Apply(r.Context(), caller, &payload.ApplyRequest)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Created(w, product)
}

func (h *EngineHandler) Reapply(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload applyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload.ApplyRequest); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	urls, err := h.uploadDocuments(r, payload.Documents)
	if err != nil {
		response.BadRequest(w, "failed to store documents")
		return
	}
	payload.DocumentURLs = append(payload.DocumentURLs, urls...)

	product, err := h.products.Reapply(r.Context(), caller, productID, &payload.ApplyRequest)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, product)
}

func (h *EngineHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(r.Context(), caller, productID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, product)
}

func (h *EngineHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	query := r.URL.Query()
	limit, skip := pagination(query.Get("limit"), query.Get("skip"))

	products, err := h.products.List(
		r.Context(), caller,
		query.Get("scope"),
		domain.Category(query.Get("category")),
		query.Get("status"),
		limit, skip,
	)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, products)
}

func (h *EngineHandler) Approve(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.products.Approve(r.Context(), caller, productID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *EngineHandler) Reject(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload domain.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.products.Reject(r.Context(), caller, productID, payload.Remark); err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, map[string]string{"status": domain.ProductStatusRejected})
}

func (h *EngineHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(w, "as_of must be a date in YYYY-MM-DD form")
			return
		}
		asOf = parsed
	}

	dues, err := h.dues.ListDue(r.Context(), caller, productID, asOf)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, domain.DueListResponse{ProductID: productID, Dues: dues})
}

func (h *EngineHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	dues, err := h.dues.Schedule(r.Context(), caller, productID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, domain.DueListResponse{ProductID: productID, Dues: dues})
}

func (h *EngineHandler) Collect(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload domain.CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.collections.Collect(r.Context(), caller, productID, &payload)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *EngineHandler) ConfirmCollection(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	entryID, ok := pathID(w, r, "entryId")
	if !ok {
		return
	}

	entry, err := h.collections.ConfirmCollection(r.Context(), caller, entryID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, entry)
}

func (h *EngineHandler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	limit, skip := pagination(r.URL.Query().Get("limit"), r.URL.Query().Get("skip"))

	entries, err := h.collections.ListRepayments(r.Context(), caller, productID, limit, skip)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, entries)
}

func (h *EngineHandler) AuditProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	audit, err := h.collections.AuditProduct(r.Context(), caller, productID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, audit)
}

func (h *EngineHandler) SettlementQuote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	quote, err := h.settlements.ComputeSettlement(r.Context(), caller, productID, time.Now())
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, quote)
}

func (h *EngineHandler) Settle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	confirmation, err := h.settlements.ConfirmSettlement(r.Context(), caller, productID, time.Now())
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, confirmation)
}

func (h *EngineHandler) AssignAgent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload domain.AssignAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	assignment, err := h.assignments.Assign(r.Context(), caller, productID, payload.AgentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, assignment)
}

func (h *EngineHandler) UnassignAgent(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload domain.AssignAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.assignments.Unassign(r.Context(), caller, productID, payload.AgentID); err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, map[string]bool{"unassigned": true})
}

func (h *EngineHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	assignments, err := h.assignments.AgentsForProduct(r.Context(), caller, productID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, assignments)
}

func (h *EngineHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	query := r.URL.Query()
	agentID := caller.ID
	if raw := query.Get("agent_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "agent_id must be a uuid")
			return
		}
		agentID = parsed
	}

	limit, skip := pagination(query.Get("limit"), query.Get("skip"))

	assignments, err := h.assignments.ListAssignments(
		r.Context(), caller, agentID,
		domain.Category(query.Get("category")),
		limit, skip,
	)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, assignments)
}

func (h *EngineHandler) UpdateReferrer(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload domain.UpdateReferrerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&payload); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.products.UpdateReferrer(r.Context(), caller, productID, payload.ReferrerID); err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, map[string]bool{"updated": true})
}

func (h *EngineHandler) Referrals(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	summary, err := h.products.Referrals(r.Context(), caller)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, summary)
}

func (h *EngineHandler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	live := r.URL.Query().Get("live") == "true"

	balance, err := h.wallets.BalanceOf(r.Context(), caller.ID, live)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, balance)
}

func (h *EngineHandler) WalletTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		response.Unauthorized(w, "caller identity missing")
		return
	}

	txns, err := h.wallets.Transactions(r.Context(), caller.ID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	response.Success(w, txns)
}

func (h *EngineHandler) uploadDocuments(r *http.Request, documents []documentPayload) ([]string, error) {
	urls := make([]string, 0, len(documents))
	for _, doc := range documents {
		data, err := base64.StdEncoding.DecodeString(doc.Data)
		if err != nil {
			return nil, err
		}
		url, err := h.documents.Upload(r.Context(), doc.Name, data)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(rawLimit, rawSkip string) (limit, skip int) {
	limit = 10
	if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 {
		limit = parsed
	}
	if parsed, err := strconv.Atoi(rawSkip); err == nil && parsed > 0 {
		skip = parsed
	}
	return limit, skip
}
