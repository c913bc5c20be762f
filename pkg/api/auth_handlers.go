package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
)

// AuthHandlers handles signup, OTP and session requests
type AuthHandlers struct {
	authService AuthService
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(authService AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// RegisterRoutes registers auth routes. The OTP-issuing routes are wrapped with limit, the
// session routes with authn.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, authn, limit func(http.Handler) http.Handler) {
	router.Handle("/auth/signup", limit(http.HandlerFunc(h.Signup))).Methods("POST")
	router.Handle("/auth/signup-with-invite", limit(http.HandlerFunc(h.SignupWithInvite))).Methods("POST")
	router.Handle("/auth/login", limit(http.HandlerFunc(h.Login))).Methods("POST")
	router.Handle("/auth/verify-otp", limit(http.HandlerFunc(h.VerifyOTP))).Methods("POST")
	router.Handle("/auth/resend-otp", limit(http.HandlerFunc(h.ResendOTP))).Methods("POST")

	router.Handle("/auth/logout", authn(http.HandlerFunc(h.Logout))).Methods("POST")
	router.Handle("/auth/me", authn(http.HandlerFunc(h.Me))).Methods("GET")
}

// Signup starts a signup and emails an OTP
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.authService.Signup(r.Context(), req); err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "OTP sent to email", nil)
}

// SignupWithInvite starts a signup that joins an organization once verified
func (h *AuthHandlers) SignupWithInvite(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("inviteToken", req.InviteToken)) {
		return
	}
	if err := h.authService.SignupWithInvite(r.Context(), req); err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "OTP sent to email", nil)
}

// Login checks the password and emails an OTP
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("email", req.Email),
		httputil.Required("password", req.Password),
	) {
		return
	}
	if err := h.authService.Login(r.Context(), req.Email, req.Password); err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "OTP sent to email", nil)
}

// VerifyOTP completes a signup or login and returns the session
func (h *AuthHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("email", req.Email),
		httputil.Required("otp", req.OTP),
	) {
		return
	}
	session, err := h.authService.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "OTP verified", session)
}

// ResendOTP sends a fresh OTP
func (h *AuthHandlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("email", req.Email)) {
		return
	}
	if err := h.authService.ResendOTP(r.Context(), req.Email); err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "OTP resent", nil)
}

// Logout invalidates the current session
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if err := h.authService.Logout(r.Context(), authCtx.UserID); err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "Logged out", nil)
}

// Me returns the current user
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	user, err := h.authService.Me(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, authErrors)
		return
	}
	httputil.WriteSuccess(w, "User fetched", user)
}
