package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patentdesk/pkg/orgs"
)

func TestOrgHandlers_CreateOrganization(t *testing.T) {
	ts := newTestServer()
	ts.orgs.createOrganizationFunc = func(ctx context.Context, adminUserID string, req orgs.CreateOrganizationRequest) (*orgs.Organization, error) {
		return &orgs.Organization{ID: "org-1", Name: req.Name, AdminID: adminUserID}, nil
	}

	rec := ts.do(http.MethodPost, "/api/organization", "user-token", map[string]string{"name": "Acme IP"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var org orgs.Organization
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &org))
	assert.Equal(t, "user-1", org.AdminID)

	rec = ts.do(http.MethodPost, "/api/organization", "user-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrgHandlers_GenerateInvite(t *testing.T) {
	ts := newTestServer()
	ts.orgs.generateInviteFunc = func(ctx context.Context, adminUserID string) (*orgs.Invite, error) {
		if adminUserID != orgAdminUserID {
			return nil, orgs.ErrNotOrganizationAdmin
		}
		return &orgs.Invite{Token: "tok", URL: "https://app.example.com/organization/join/tok"}, nil
	}

	rec := ts.do(http.MethodPost, "/api/organization/invite", "orgadmin-token", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/api/organization/invite", "member-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrgHandlers_JoinOrganization(t *testing.T) {
	ts := newTestServer()
	redeemed := map[string]bool{}
	ts.orgs.joinOrganizationFunc = func(ctx context.Context, token, userID string) error {
		if redeemed[token] {
			return orgs.ErrInvalidInvite
		}
		redeemed[token] = true
		return nil
	}

	rec := ts.do(http.MethodPost, "/api/organization/join/tok", "user-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/organization/join/tok", "user-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, orgs.ErrInvalidInvite.Error(), decodeEnvelope(t, rec).Message)
}

func TestOrgHandlers_ValidateInviteIsPublic(t *testing.T) {
	ts := newTestServer()
	ts.orgs.validateInviteFunc = func(ctx context.Context, token string) error {
		if token == "expired" {
			return orgs.ErrInvalidInvite
		}
		return nil
	}

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/organization/invite/tok", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/organization/invite/expired", "", nil).Code)
}

func TestOrgHandlers_Members(t *testing.T) {
	ts := newTestServer()
	ts.orgs.listMembersFunc = func(ctx context.Context, adminUserID string) ([]*orgs.Member, error) {
		return []*orgs.Member{{UserID: "member-1", Role: orgs.RoleMember}}, nil
	}
	ts.orgs.removeMemberFunc = func(ctx context.Context, adminUserID, memberID string) error {
		if adminUserID == memberID {
			return orgs.ErrCannotRemoveSelf
		}
		if memberID == ghostUserID {
			return orgs.ErrMemberNotFound
		}
		return nil
	}

	rec := ts.do(http.MethodGet, "/api/organization/members", "orgadmin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []*orgs.Member
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &members))
	assert.Len(t, members, 1)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodDelete, "/api/organization/members/"+memberUserID, "orgadmin-token", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/api/organization/members/"+ghostUserID, "orgadmin-token", nil).Code)

	rec = ts.do(http.MethodDelete, "/api/organization/members/"+orgAdminUserID, "orgadmin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, orgs.ErrCannotRemoveSelf.Error(), decodeEnvelope(t, rec).Message)

	rec = ts.do(http.MethodDelete, "/api/organization/members/ghost", "orgadmin-token", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeEnvelope(t, rec).Message)
}
