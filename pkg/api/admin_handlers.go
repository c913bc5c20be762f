package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/billing"
	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
	"github.com/platinummonkey/patentdesk/pkg/observability"
	"github.com/platinummonkey/patentdesk/pkg/plans"
)

// AdminHandlers handles platform administration requests
type AdminHandlers struct {
	users          UserDirectory
	billingService BillingService
	planService    PlanService
}

// NewAdminHandlers creates a new AdminHandlers
func NewAdminHandlers(users UserDirectory, billingService BillingService, planService PlanService) *AdminHandlers {
	return &AdminHandlers{
		users:          users,
		billingService: billingService,
		planService:    planService,
	}
}

// RegisterRoutes registers admin routes behind authn and RequireAdmin
func (h *AdminHandlers) RegisterRoutes(router *mux.Router, authn func(http.Handler) http.Handler) {
	sub := router.PathPrefix("/admin").Subrouter()
	sub.Use(mux.MiddlewareFunc(authn), middleware.RequireAdmin)

	sub.HandleFunc("/users", h.ListUsers).Methods("GET")
	sub.HandleFunc("/users/{id}", h.GetUser).Methods("GET")
	sub.HandleFunc("/users/{id}/subscription", h.ActivateManual).Methods("POST")
	sub.HandleFunc("/orders/{orderRef}/approve", h.ApproveOrder).Methods("POST")
	sub.HandleFunc("/orders/{orderRef}/reject", h.RejectOrder).Methods("POST")
	sub.HandleFunc("/plans/{id}", h.UpsertPlan).Methods("PUT")
}

type userPage struct {
	Users  []*auth.User `json:"users"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListUsers pages through accounts
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := httputil.ParsePagination(r, 20, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	users, total, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	httputil.WriteSuccess(w, "Users fetched", userPage{Users: users, Total: total, Limit: limit, Offset: offset})
}

type userDetail struct {
	User         *auth.User              `json:"user"`
	Subscription *billing.Aggregate      `json:"subscription"`
	History      []*billing.Subscription `json:"history"`
}

// GetUser returns an account with its subscription ledger
func (h *AdminHandlers) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	agg, err := h.billingService.Aggregate(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	history, err := h.billingService.History(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	httputil.WriteSuccess(w, "User fetched", userDetail{User: user, Subscription: agg, History: history})
}

// ActivateManual grants a subscription window without payment
func (h *AdminHandlers) ActivateManual(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}
	var req billing.ManualActivation
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		httputil.WriteBadRequest(w, "startDate and endDate are required")
		return
	}
	req.UserID = userID

	sub, err := h.billingService.ActivateManual(r.Context(), req)
	if err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"target_user":     userID,
		"subscription_id": sub.ID,
	}).Info("manual subscription activated")
	httputil.WriteCreated(w, "Subscription activated", sub)
}

// ApproveOrder activates a UPI order after the payment was checked out of band
func (h *AdminHandlers) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	orderRef, ok := httputil.ParsePathStringOrError(w, r, "orderRef")
	if !ok {
		return
	}
	sub, err := h.billingService.ApprovePayment(r.Context(), orderRef)
	if err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	httputil.WriteSuccess(w, "Payment approved", sub)
}

// RejectOrder rejects a pending order
func (h *AdminHandlers) RejectOrder(w http.ResponseWriter, r *http.Request) {
	orderRef, ok := httputil.ParsePathStringOrError(w, r, "orderRef")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 && !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.billingService.Reject(r.Context(), orderRef, req.Reason); err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	httputil.WriteSuccess(w, "Payment rejected", nil)
}

// UpsertPlan creates or updates a plan
func (h *AdminHandlers) UpsertPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var plan plans.Plan
	if !httputil.ParseJSONOrError(w, r, &plan) {
		return
	}
	plan.ID = planID

	if err := h.planService.Upsert(r.Context(), &plan); err != nil {
		httputil.WriteServiceError(w, r, err, adminErrors)
		return
	}
	httputil.WriteSuccess(w, "Plan saved", &plan)
}
