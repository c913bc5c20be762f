package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
	"github.com/platinummonkey/patentdesk/pkg/plans"
)

const maxWebhookBytes = 64 << 10

// SubscriptionHandlers handles plan, order and entitlement requests
type SubscriptionHandlers struct {
	billingService BillingService
	planService    PlanService
}

// NewSubscriptionHandlers creates a new SubscriptionHandlers
func NewSubscriptionHandlers(billingService BillingService, planService PlanService) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		billingService: billingService,
		planService:    planService,
	}
}

// RegisterRoutes registers subscription routes. Routes that spend money are closed to
// organization members.
func (h *SubscriptionHandlers) RegisterRoutes(router *mux.Router, authn func(http.Handler) http.Handler) {
	billingOwner := func(fn http.HandlerFunc) http.Handler {
		return authn(middleware.RequireOrgAdmin(fn))
	}

	router.HandleFunc("/subscriptions/plans", h.ListPlans).Methods("GET")
	router.HandleFunc("/subscriptions/webhook", h.StripeWebhook).Methods("POST")

	router.Handle("/subscriptions/trial", billingOwner(h.StartTrial)).Methods("POST")
	router.Handle("/subscriptions/order", billingOwner(h.CreateOrder)).Methods("POST")
	router.Handle("/subscriptions/activate", billingOwner(h.VerifyPayment)).Methods("POST")
	router.Handle("/subscriptions/utr", billingOwner(h.SubmitPaymentReference)).Methods("POST")
	router.Handle("/subscriptions/cancel", billingOwner(h.Cancel)).Methods("POST")
	router.Handle("/subscriptions/change", billingOwner(h.RequestPlanChange)).Methods("POST")

	router.Handle("/subscriptions/status/{orderRef}", authn(http.HandlerFunc(h.PaymentStatus))).Methods("GET")
	router.Handle("/subscriptions/user", authn(http.HandlerFunc(h.Aggregate))).Methods("GET")
	router.Handle("/subscriptions/history", authn(http.HandlerFunc(h.History))).Methods("GET")
}

// ListPlans lists plans, optionally filtered by category
func (h *SubscriptionHandlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	category := plans.Category(httputil.ParseQueryString(r, "category", ""))
	switch category {
	case "", plans.CategoryIndividual, plans.CategoryOrganization:
	default:
		httputil.WriteBadRequest(w, "category must be individual or organization")
		return
	}

	list, err := h.planService.List(r.Context(), category)
	if err != nil {
		httputil.WriteServiceError(w, r, err, planErrors)
		return
	}
	httputil.WriteSuccess(w, "Plans fetched", list)
}

// StartTrial starts the free trial
func (h *SubscriptionHandlers) StartTrial(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	sub, err := h.billingService.StartTrial(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteCreated(w, "Trial started", sub)
}

type planRequest struct {
	PlanID string `json:"planId"`
}

// CreateOrder opens a payment order for a plan
func (h *SubscriptionHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("planId", req.PlanID)) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	order, err := h.billingService.CreateOrder(r.Context(), authCtx.UserID, req.PlanID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteCreated(w, "Order created", order)
}

type verifyPaymentRequest struct {
	OrderRef  string `json:"orderRef"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// VerifyPayment checks a gateway signature and activates the order
func (h *SubscriptionHandlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("orderRef", req.OrderRef),
		httputil.Required("paymentId", req.PaymentID),
		httputil.Required("signature", req.Signature),
	) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	sub, err := h.billingService.VerifyPayment(r.Context(), authCtx.UserID, req.OrderRef, req.PaymentID, req.Signature)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Payment verified", sub)
}

type paymentReferenceRequest struct {
	OrderRef string `json:"orderRef"`
	UTR      string `json:"utr"`
}

// SubmitPaymentReference records a UPI UTR against a pending order
func (h *SubscriptionHandlers) SubmitPaymentReference(w http.ResponseWriter, r *http.Request) {
	var req paymentReferenceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("orderRef", req.OrderRef),
		httputil.Required("utr", req.UTR),
	) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	sub, err := h.billingService.SubmitPaymentReference(r.Context(), authCtx.UserID, req.OrderRef, req.UTR)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Payment reference submitted", sub)
}

// PaymentStatus reports the state of an order for client polling
func (h *SubscriptionHandlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderRef, ok := httputil.ParsePathStringOrError(w, r, "orderRef")
	if !ok {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	status, err := h.billingService.PaymentStatus(r.Context(), authCtx.UserID, orderRef)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Payment status fetched", status)
}

// Cancel marks the main subscription cancelled; access runs to its end date
func (h *SubscriptionHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	sub, err := h.billingService.Cancel(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Subscription cancelled", sub)
}

// RequestPlanChange opens an order for an upgrade or downgrade
func (h *SubscriptionHandlers) RequestPlanChange(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("planId", req.PlanID)) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	order, err := h.billingService.RequestPlanChange(r.Context(), authCtx.UserID, req.PlanID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteCreated(w, "Plan change order created", order)
}

// Aggregate returns the user's entitlement summary
func (h *SubscriptionHandlers) Aggregate(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	agg, err := h.billingService.Aggregate(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Subscription fetched", agg)
}

// History lists every subscription row of the user
func (h *SubscriptionHandlers) History(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	subs, err := h.billingService.History(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Subscription history fetched", subs)
}

// StripeWebhook receives card-rail payment events
func (h *SubscriptionHandlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}
	if err := h.billingService.HandleStripeEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		httputil.WriteServiceError(w, r, err, billingErrors)
		return
	}
	httputil.WriteSuccess(w, "Event received", nil)
}
