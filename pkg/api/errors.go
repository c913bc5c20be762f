package api

import (
	"net/http"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/billing"
	"github.com/platinummonkey/patentdesk/pkg/folders"
	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/orgs"
	"github.com/platinummonkey/patentdesk/pkg/plans"
)

var authErrors = httputil.ErrorMap{
	auth.ErrInvalidSignup:         http.StatusBadRequest,
	auth.ErrInviteRequired:        http.StatusBadRequest,
	auth.ErrInvalidCredentials:    http.StatusUnauthorized,
	auth.ErrInvalidToken:          http.StatusUnauthorized,
	auth.ErrSessionSuperseded:     http.StatusUnauthorized,
	auth.ErrOTPInvalid:            http.StatusBadRequest,
	auth.ErrOTPExpired:            http.StatusBadRequest,
	auth.ErrPendingSignupNotFound: http.StatusBadRequest,
	auth.ErrOTPAttemptsExceeded:   http.StatusTooManyRequests,
	auth.ErrOTPRateLimited:        http.StatusTooManyRequests,
	auth.ErrEmailTaken:            http.StatusConflict,
	auth.ErrUserNotFound:          http.StatusNotFound,
	orgs.ErrInvalidInvite:         http.StatusNotFound,
	orgs.ErrAlreadyInOrganization: http.StatusConflict,
}

var billingErrors = httputil.ErrorMap{
	billing.ErrPlanNotFound:                  http.StatusBadRequest,
	billing.ErrUserNotFound:                  http.StatusNotFound,
	billing.ErrOrderNotFound:                 http.StatusNotFound,
	billing.ErrNoActiveSubscription:          http.StatusNotFound,
	billing.ErrInvalidSignature:              http.StatusBadRequest,
	billing.ErrInvalidReference:              http.StatusBadRequest,
	billing.ErrInvalidDates:                  http.StatusBadRequest,
	billing.ErrAlreadySubscribed:             http.StatusBadRequest,
	billing.ErrInvalidTransition:             http.StatusConflict,
	billing.ErrConcurrentActivation:          http.StatusConflict,
	billing.ErrMemberBillingBlocked:          http.StatusForbidden,
	billing.ErrOrganizationPlanRequiresAdmin: http.StatusForbidden,
}

var planErrors = httputil.ErrorMap{
	plans.ErrPlanNotFound:   http.StatusBadRequest,
	plans.ErrInvalidPlan:    http.StatusBadRequest,
	plans.ErrPlanReferenced: http.StatusConflict,
}

var orgErrors = httputil.ErrorMap{
	orgs.ErrOrganizationNotFound:  http.StatusNotFound,
	orgs.ErrMemberNotFound:        http.StatusNotFound,
	orgs.ErrUserNotFound:          http.StatusNotFound,
	orgs.ErrInvalidInvite:         http.StatusNotFound,
	orgs.ErrCannotRemoveSelf:      http.StatusBadRequest,
	orgs.ErrInvalidOrganization:   http.StatusBadRequest,
	orgs.ErrNotOrganizationAdmin:  http.StatusForbidden,
	orgs.ErrNotOrganizationOwner:  http.StatusForbidden,
	orgs.ErrAlreadyInOrganization: http.StatusConflict,
}

var folderErrors = httputil.ErrorMap{
	folders.ErrFolderNotFound:      http.StatusNotFound,
	folders.ErrWorkfileNotFound:    http.StatusNotFound,
	folders.ErrInvalidPatentNumber: http.StatusBadRequest,
	folders.ErrInvalidMerge:        http.StatusBadRequest,
	folders.ErrInvalidFolder:       http.StatusBadRequest,
	folders.ErrNoPatents:           http.StatusBadRequest,
	folders.ErrUnsupportedFormat:   http.StatusUnsupportedMediaType,
}

// adminErrors covers the admin routes, which reach into several services
var adminErrors = merge(billingErrors, planErrors, httputil.ErrorMap{
	auth.ErrUserNotFound: http.StatusNotFound,
})

func merge(maps ...httputil.ErrorMap) httputil.ErrorMap {
	out := httputil.ErrorMap{}
	for _, m := range maps {
		for err, status := range m {
			out[err] = status
		}
	}
	return out
}
