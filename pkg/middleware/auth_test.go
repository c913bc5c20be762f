package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patentdesk/pkg/auth"
	"github.com/platinummonkey/patentdesk/pkg/contextkeys"
)

type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, token string) (*auth.AuthContext, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*auth.AuthContext, error) {
	return m.authenticateFunc(ctx, token)
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, w.Code, body.StatusCode)
	return body.Message
}

func TestAuthMiddleware_Handler(t *testing.T) {
	authenticator := &mockAuthenticator{
		authenticateFunc: func(ctx context.Context, token string) (*auth.AuthContext, error) {
			switch token {
			case "good":
				return &auth.AuthContext{UserID: "user-1", Email: "a@example.com"}, nil
			case "old":
				return nil, auth.ErrSessionSuperseded
			case "broken":
				return nil, errors.New("db down")
			default:
				return nil, auth.ErrInvalidToken
			}
		},
	}
	m := NewAuthMiddleware(authenticator)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "invalid authorization header format"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, auth.ErrInvalidToken.Error()},
		{"superseded session", "Bearer old", http.StatusUnauthorized, auth.ErrSessionSuperseded.Error()},
		{"store failure", "Bearer broken", http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, decodeMessage(t, w))
		})
	}

	t.Run("valid token sets auth context", func(t *testing.T) {
		var got *auth.AuthContext
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetAuthContext(r)
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, "user-1", got.UserID)
	})
}

func TestGetAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetAuthContext(req))

	req = req.WithContext(contextkeys.WithAuth(req.Context(), "not an auth context"))
	assert.Nil(t, GetAuthContext(req))
}

func serveWithAuth(handler http.Handler, authCtx *auth.AuthContext) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if authCtx != nil {
		req = req.WithContext(contextkeys.WithAuth(req.Context(), authCtx))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusUnauthorized, serveWithAuth(handler, nil).Code)
	assert.Equal(t, http.StatusForbidden, serveWithAuth(handler, &auth.AuthContext{UserID: "u"}).Code)
	assert.Equal(t, http.StatusOK, serveWithAuth(handler, &auth.AuthContext{UserID: "u", IsAdmin: true}).Code)
}

func TestRequireOrgAdmin(t *testing.T) {
	handler := RequireOrgAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		authCtx *auth.AuthContext
		want    int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"organization member", &auth.AuthContext{UserID: "u", OrganizationRole: auth.OrgRoleMember}, http.StatusForbidden},
		{"organization admin", &auth.AuthContext{UserID: "u", OrganizationRole: auth.OrgRoleAdmin}, http.StatusOK},
		{"individual", &auth.AuthContext{UserID: "u"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serveWithAuth(handler, tt.authCtx).Code)
		})
	}
}
