package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/patentdesk/pkg/httputil"
	"github.com/platinummonkey/patentdesk/pkg/middleware"
	"github.com/platinummonkey/patentdesk/pkg/orgs"
)

// OrgHandlers handles organization-related HTTP requests
type OrgHandlers struct {
	orgService OrgService
}

// NewOrgHandlers creates a new OrgHandlers
func NewOrgHandlers(orgService OrgService) *OrgHandlers {
	return &OrgHandlers{orgService: orgService}
}

// RegisterRoutes registers organization routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router, authn func(http.Handler) http.Handler) {
	router.HandleFunc("/organization/invite/{token}", h.ValidateInvite).Methods("GET")

	router.Handle("/organization", authn(http.HandlerFunc(h.CreateOrganization))).Methods("POST")
	router.Handle("/organization", authn(http.HandlerFunc(h.GetOrganization))).Methods("GET")
	router.Handle("/organization/invite", authn(http.HandlerFunc(h.GenerateInvite))).Methods("POST")
	router.Handle("/organization/join/{token}", authn(http.HandlerFunc(h.JoinOrganization))).Methods("POST")
	router.Handle("/organization/members", authn(http.HandlerFunc(h.ListMembers))).Methods("GET")
	router.Handle("/organization/members/{id}", authn(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")
}

// CreateOrganization creates an organization administered by the caller
func (h *OrgHandlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req orgs.CreateOrganizationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("name", req.Name)) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	org, err := h.orgService.CreateOrganization(r.Context(), authCtx.UserID, req)
	if err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteCreated(w, "Organization created", org)
}

// GetOrganization returns the caller's organization
func (h *OrgHandlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	org, err := h.orgService.GetOrganization(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteSuccess(w, "Organization fetched", org)
}

// GenerateInvite creates an invite link
func (h *OrgHandlers) GenerateInvite(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	invite, err := h.orgService.GenerateInvite(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteCreated(w, "Invite created", invite)
}

// ValidateInvite reports whether an invite can still be redeemed
func (h *OrgHandlers) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}
	if err := h.orgService.ValidateInvite(r.Context(), token); err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteSuccess(w, "Invite is valid", nil)
}

// JoinOrganization redeems an invite for the caller
func (h *OrgHandlers) JoinOrganization(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if err := h.orgService.JoinOrganization(r.Context(), token, authCtx.UserID); err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteSuccess(w, "Joined organization", nil)
}

// ListMembers lists the members of the caller's organization
func (h *OrgHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	members, err := h.orgService.ListMembers(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteSuccess(w, "Members fetched", members)
}

// RemoveMember removes a member from the caller's organization
func (h *OrgHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := httputil.ParsePathUUIDOrError(w, r, "id")
	if !ok {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if err := h.orgService.RemoveMember(r.Context(), authCtx.UserID, memberID); err != nil {
		httputil.WriteServiceError(w, r, err, orgErrors)
		return
	}
	httputil.WriteSuccess(w, "Member removed", nil)
}
