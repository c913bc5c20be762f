package orgs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

var testNow = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func newMockService(t *testing.T) (*PostgresService, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	svc := NewPostgresService(db, "https://app.example.com/", observability.NewNopMetrics())
	svc.now = func() time.Time { return testNow }
	return svc, mock, db
}

func membershipRows(userType string, orgID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_type", "organization_id"}).AddRow(userType, orgID)
}

const membershipQuery = "SELECT user_type, organization_id FROM users WHERE id = \\$1"

func TestPostgresService_CreateOrganization(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		trialEnd := testNow.AddDate(0, 0, TrialDays)

		mock.ExpectBegin()
		mock.ExpectQuery(membershipQuery + " FOR UPDATE").WithArgs("admin-1").
			WillReturnRows(membershipRows("individual", nil))
		mock.ExpectQuery("INSERT INTO organizations").
			WithArgs(sqlmock.AnyArg(), "Acme IP", "10-50", "law firm", "admin-1", "trial", testNow, trialEnd, "trial").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(testNow, testNow))
		mock.ExpectExec("INSERT INTO organization_members").
			WithArgs(sqlmock.AnyArg(), "admin-1", RoleAdmin, testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET is_organization = TRUE").
			WithArgs("admin-1", sqlmock.AnyArg(), testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		org, err := svc.CreateOrganization(context.Background(), "admin-1", CreateOrganizationRequest{
			Name: " Acme IP ", Size: "10-50", Type: "law firm",
		})
		require.NoError(t, err)
		assert.Equal(t, "Acme IP", org.Name)
		assert.Equal(t, "admin-1", org.AdminID)
		assert.Equal(t, "trial", org.Subscription.Status)
		assert.Equal(t, trialEnd, org.Subscription.EndDate)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already in organization", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(membershipQuery).WithArgs("member-1").
			WillReturnRows(membershipRows("organization_member", "org-1"))
		mock.ExpectRollback()

		_, err := svc.CreateOrganization(context.Background(), "member-1", CreateOrganizationRequest{Name: "Other"})
		assert.ErrorIs(t, err, ErrAlreadyInOrganization)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing name", func(t *testing.T) {
		svc, _, db := newMockService(t)
		defer db.Close()

		_, err := svc.CreateOrganization(context.Background(), "admin-1", CreateOrganizationRequest{Name: "  "})
		assert.ErrorIs(t, err, ErrInvalidOrganization)
	})
}

func TestPostgresService_GenerateInvite(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(membershipQuery).WithArgs("admin-1").
			WillReturnRows(membershipRows("organization_admin", "org-1"))
		mock.ExpectQuery("INSERT INTO organization_invites").
			WithArgs(sqlmock.AnyArg(), "org-1", sqlmock.AnyArg(), "admin-1", testNow.Add(7*24*time.Hour)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow))

		invite, err := svc.GenerateInvite(context.Background(), "admin-1")
		require.NoError(t, err)
		assert.Len(t, invite.Token, 64)
		assert.Equal(t, "https://app.example.com/organization/join/"+invite.Token, invite.URL)
		assert.Equal(t, testNow.Add(InviteTTL), invite.ExpiresAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member is refused", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(membershipQuery).WithArgs("member-1").
			WillReturnRows(membershipRows("organization_member", "org-1"))

		_, err := svc.GenerateInvite(context.Background(), "member-1")
		assert.ErrorIs(t, err, ErrNotOrganizationAdmin)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("individual is refused", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectQuery(membershipQuery).WithArgs("user-1").
			WillReturnRows(membershipRows("individual", nil))

		_, err := svc.GenerateInvite(context.Background(), "user-1")
		assert.ErrorIs(t, err, ErrNotOrganizationAdmin)
	})
}

func TestGenerateToken(t *testing.T) {
	a, err := generateToken()
	require.NoError(t, err)
	b, err := generateToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestPostgresService_JoinOrganization(t *testing.T) {
	inviteQuery := "SELECT id, organization_id FROM organization_invites WHERE token = \\$1 AND used = FALSE AND expires_at > \\$2 FOR UPDATE"

	t.Run("redeems invite once", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(inviteQuery).WithArgs("tok", testNow).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id"}).AddRow("inv-1", "org-1"))
		mock.ExpectQuery(membershipQuery).WithArgs("user-2").WillReturnRows(membershipRows("individual", nil))
		mock.ExpectExec("UPDATE organization_invites SET used = TRUE").WithArgs("inv-1", "user-2", testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO organization_members (.+) ON CONFLICT \\(organization_id, user_id\\) DO NOTHING").
			WithArgs("org-1", "user-2", RoleMember, testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET is_organization = TRUE").WithArgs("user-2", "org-1", testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.JoinOrganization(context.Background(), "tok", "user-2"))
		require.NoError(t, mock.ExpectationsWereMet())

		// The invite is now used, so the locking select finds nothing.
		mock.ExpectBegin()
		mock.ExpectQuery(inviteQuery).WithArgs("tok", testNow).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id"}))
		mock.ExpectRollback()

		err := svc.JoinOrganization(context.Background(), "tok", "user-3")
		assert.ErrorIs(t, err, ErrInvalidInvite)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("user already in an organization", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(inviteQuery).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id"}).AddRow("inv-1", "org-1"))
		mock.ExpectQuery(membershipQuery).WithArgs("user-2").
			WillReturnRows(membershipRows("organization_member", "org-9"))
		mock.ExpectRollback()

		err := svc.JoinOrganization(context.Background(), "tok", "user-2")
		assert.ErrorIs(t, err, ErrAlreadyInOrganization)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresService_ValidateInvite(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	mock.ExpectQuery("SELECT organization_id FROM organization_invites").WithArgs("good", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectQuery("SELECT organization_id FROM organization_invites").WithArgs("expired", testNow).
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))

	assert.NoError(t, svc.ValidateInvite(context.Background(), "good"))
	assert.ErrorIs(t, svc.ValidateInvite(context.Background(), "expired"), ErrInvalidInvite)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresService_ListMembers(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	mock.ExpectQuery(membershipQuery).WithArgs("admin-1").
		WillReturnRows(membershipRows("organization_admin", "org-1"))
	mock.ExpectQuery("SELECT m.user_id, u.email, u.name, m.role, m.joined_at FROM organization_members m").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "email", "name", "role", "joined_at"}).
			AddRow("admin-1", "admin@acme.test", "Admin", "admin", testNow).
			AddRow("user-2", "ravi@acme.test", "Ravi", "member", testNow))

	members, err := svc.ListMembers(context.Background(), "admin-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, RoleAdmin, members[0].Role)
	assert.Equal(t, "ravi@acme.test", members[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresService_MemberCount(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	mock.ExpectQuery(membershipQuery).WithArgs("admin-1").
		WillReturnRows(membershipRows("organization_admin", "org-1"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM organization_members WHERE organization_id = \\$1 AND role = 'member'").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := svc.MemberCount(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresService_RemoveMember(t *testing.T) {
	ownerQuery := "SELECT id FROM organizations WHERE admin_id = \\$1 FOR UPDATE"

	t.Run("owner removes member", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(ownerQuery).WithArgs("admin-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("org-1"))
		mock.ExpectExec("DELETE FROM organization_members").WithArgs("org-1", "user-2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET is_organization = FALSE, organization_id = NULL").WithArgs("user-2", testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, svc.RemoveMember(context.Background(), "admin-1", "user-2"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non owner", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(ownerQuery).WithArgs("user-2").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := svc.RemoveMember(context.Background(), "user-2", "user-3")
		assert.ErrorIs(t, err, ErrNotOrganizationOwner)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self removal", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		err := svc.RemoveMember(context.Background(), "admin-1", "admin-1")
		assert.ErrorIs(t, err, ErrCannotRemoveSelf)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not a member", func(t *testing.T) {
		svc, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(ownerQuery).WithArgs("admin-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("org-1"))
		mock.ExpectExec("DELETE FROM organization_members").WithArgs("org-1", "stranger").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := svc.RemoveMember(context.Background(), "admin-1", "stranger")
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

func TestPostgresService_GetOrganization(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	mock.ExpectQuery("SELECT o.id, o.name").WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "size", "type", "admin_id", "sub_plan", "sub_start_date", "sub_end_date", "sub_status",
			"sub_base_price", "sub_member_price", "created_at", "updated_at", "count",
		}).AddRow("org-1", "Acme IP", "10-50", "law firm", "admin-1", "organization-monthly", testNow,
			testNow.AddDate(0, 0, 30), "active", int64(499900), int64(49900), testNow, testNow, 4))
	mock.ExpectQuery("SELECT o.id, o.name").WithArgs("loner").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	org, err := svc.GetOrganization(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Equal(t, 4, org.MemberCount)
	assert.Equal(t, "organization-monthly", org.Subscription.Plan)

	_, err = svc.GetOrganization(context.Background(), "loner")
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresService_UpdateSubscriptionSnapshot(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	snap := SubscriptionSnapshot{
		Plan: "organization-monthly", StartDate: testNow, EndDate: testNow.AddDate(0, 0, 30),
		Status: "active", BasePrice: 499900, MemberPrice: 49900,
	}
	mock.ExpectExec("UPDATE organizations SET sub_plan = \\$2").
		WithArgs("admin-1", snap.Plan, snap.StartDate, snap.EndDate, snap.Status, snap.BasePrice, snap.MemberPrice, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE organizations SET sub_plan").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.UpdateSubscriptionSnapshot(context.Background(), "admin-1", snap))
	assert.ErrorIs(t, svc.UpdateSubscriptionSnapshot(context.Background(), "user-2", snap), ErrNotOrganizationAdmin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresService_CleanupExpiredInvites(t *testing.T) {
	svc, mock, db := newMockService(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM organization_invites WHERE used = FALSE AND expires_at < \\$1").
		WithArgs(testNow).
		WillReturnResult(sqlmock.NewResult(0, 5))

	count, err := svc.CleanupExpiredInvites(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	require.NoError(t, mock.ExpectationsWereMet())
}
