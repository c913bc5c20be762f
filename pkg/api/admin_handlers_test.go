package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/billing"
	"github.com/platinummonkey/patentdesk/pkg/plans"
)

func TestAdminHandlers_RequireAdmin(t *testing.T) {
	ts := newTestServer()
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/admin/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/admin/users", "user-token", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, "/api/admin/users", "orgadmin-token", nil).Code)
}

func TestAdminHandlers_ListUsers(t *testing.T) {
	ts := newTestServer()
	var gotLimit, gotOffset int
	ts.users.listFunc = func(ctx context.Context, limit, offset int) ([]*auth.User, int, error) {
		gotLimit, gotOffset = limit, offset
		return []*auth.User{{ID: "user-1", Email: "user@example.com"}}, 41, nil
	}

	rec := ts.do(http.MethodGet, "/api/admin/users?limit=500&offset=20", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, 20, gotOffset)

	var page userPage
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &page))
	assert.Equal(t, 41, page.Total)
	assert.Len(t, page.Users, 1)

	rec = ts.do(http.MethodGet, "/api/admin/users?limit=abc", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandlers_GetUser(t *testing.T) {
	ts := newTestServer()
	ts.users.getByIDFunc = func(ctx context.Context, id string) (*auth.User, error) {
		if id != memberUserID {
			return nil, auth.ErrUserNotFound
		}
		return &auth.User{ID: id}, nil
	}
	ts.billing.aggregateFunc = func(ctx context.Context, userID string) (*billing.Aggregate, error) {
		return &billing.Aggregate{Status: billing.StatusTrial, TrialDaysRemaining: 9, Additional: []*billing.Subscription{}}, nil
	}
	ts.billing.historyFunc = func(ctx context.Context, userID string) ([]*billing.Subscription, error) {
		return []*billing.Subscription{{ID: "sub-1", Status: billing.StatusTrial}}, nil
	}

	rec := ts.do(http.MethodGet, "/api/admin/users/"+memberUserID, "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail userDetail
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &detail))
	assert.Equal(t, memberUserID, detail.User.ID)
	assert.Equal(t, 9, detail.Subscription.TrialDaysRemaining)
	assert.Len(t, detail.History, 1)

	rec = ts.do(http.MethodGet, "/api/admin/users/"+ghostUserID, "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/admin/users/ghost", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandlers_ActivateManual(t *testing.T) {
	ts := newTestServer()
	var got billing.ManualActivation
	ts.billing.activateManualFunc = func(ctx context.Context, req billing.ManualActivation) (*billing.Subscription, error) {
		got = req
		if !req.EndDate.After(req.StartDate) {
			return nil, billing.ErrInvalidDates
		}
		return &billing.Subscription{ID: "sub-9", UserID: req.UserID, Status: billing.StatusActive}, nil
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	body := map[string]interface{}{
		"userId":    "someone-else",
		"planName":  "Enterprise custom",
		"amount":    500000,
		"startDate": start,
		"endDate":   start.AddDate(1, 0, 0),
	}
	rec := ts.do(http.MethodPost, "/api/admin/users/"+memberUserID+"/subscription", "admin-token", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, memberUserID, got.UserID)
	assert.Equal(t, int64(500000), got.Amount)

	body["endDate"] = start.AddDate(0, 0, -1)
	rec = ts.do(http.MethodPost, "/api/admin/users/"+memberUserID+"/subscription", "admin-token", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/users/"+memberUserID+"/subscription", "admin-token", map[string]interface{}{"amount": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "startDate and endDate are required", decodeEnvelope(t, rec).Message)

	rec = ts.do(http.MethodPost, "/api/admin/users/user-7/subscription", "admin-token", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeEnvelope(t, rec).Message)
}

func TestAdminHandlers_ApproveAndReject(t *testing.T) {
	ts := newTestServer()
	ts.billing.approvePaymentFunc = func(ctx context.Context, orderRef string) (*billing.Subscription, error) {
		if orderRef == "raced" {
			return nil, billing.ErrConcurrentActivation
		}
		return &billing.Subscription{ID: "sub-1", Status: billing.StatusActive}, nil
	}
	var rejectedReason string
	ts.billing.rejectFunc = func(ctx context.Context, orderRef, reason string) error {
		rejectedReason = reason
		if orderRef == "missing" {
			return billing.ErrOrderNotFound
		}
		return nil
	}

	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/admin/orders/order_1/approve", "admin-token", nil).Code)
	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/admin/orders/raced/approve", "admin-token", nil).Code)

	rec := ts.do(http.MethodPost, "/api/admin/orders/order_1/reject", "admin-token", map[string]string{"reason": "UTR not found"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UTR not found", rejectedReason)

	rec = ts.do(http.MethodPost, "/api/admin/orders/missing/reject", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rejectedReason)
}

func TestAdminHandlers_UpsertPlan(t *testing.T) {
	ts := newTestServer()
	ts.plans.upsertFunc = func(ctx context.Context, plan *plans.Plan) error {
		if plan.Price != 99900 {
			return plans.ErrPlanReferenced
		}
		return nil
	}

	body := map[string]interface{}{
		"id":            "ignored",
		"name":          "Pro",
		"billingPeriod": "monthly",
		"price":         99900,
		"category":      "individual",
	}
	rec := ts.do(http.MethodPut, "/api/admin/plans/pro-monthly", "admin-token", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved plans.Plan
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &saved))
	assert.Equal(t, "pro-monthly", saved.ID)

	body["price"] = 129900
	rec = ts.do(http.MethodPut, "/api/admin/plans/pro-monthly", "admin-token", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
