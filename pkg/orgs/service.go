package orgs

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// PostgresService manages organizations on Postgres
type PostgresService struct {
	db      *sql.DB
	baseURL string
	metrics *observability.Metrics
	now     func() time.Time
}

// NewPostgresService creates a new PostgresService. baseURL prefixes invite links.
func NewPostgresService(db *sql.DB, baseURL string, metrics *observability.Metrics) *PostgresService {
	return &PostgresService{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		now:     time.Now,
	}
}

// membership is the organization state stored on a user row
type membership struct {
	userType       string
	organizationID *string
}

// queryRower is satisfied by both *sql.DB and *sql.Tx
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *PostgresService) loadMembership(ctx context.Context, q queryRower, userID string, lock bool) (*membership, error) {
	query := `SELECT user_type, organization_id FROM users WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var m membership
	err := q.QueryRowContext(ctx, query, userID).Scan(&m.userType, &m.organizationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user membership: %w", err)
	}
	return &m, nil
}

// adminOrganizationID returns the organization the caller administers
func (s *PostgresService) adminOrganizationID(ctx context.Context, userID string) (string, error) {
	m, err := s.loadMembership(ctx, s.db, userID, false)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrNotOrganizationAdmin
	}
	if err != nil {
		return "", err
	}
	if m.userType != "organization_admin" || m.organizationID == nil {
		return "", ErrNotOrganizationAdmin
	}
	return *m.organizationID, nil
}

// CreateOrganization creates an organization administered by adminUserID. It starts on a trial snapshot.
func (s *PostgresService) CreateOrganization(ctx context.Context, adminUserID string, req CreateOrganizationRequest) (*Organization, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrInvalidOrganization
	}

	now := s.now()
	org := &Organization{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Size:    req.Size,
		Type:    req.Type,
		AdminID: adminUserID,
		Subscription: SubscriptionSnapshot{
			Plan:      "trial",
			StartDate: now,
			EndDate:   now.AddDate(0, 0, TrialDays),
			Status:    "trial",
		},
		MemberCount: 1,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := s.loadMembership(ctx, tx, adminUserID, true)
	if err != nil {
		return nil, err
	}
	if m.organizationID != nil {
		return nil, ErrAlreadyInOrganization
	}

	query := `
		INSERT INTO organizations (id, name, size, type, admin_id, sub_plan, sub_start_date, sub_end_date, sub_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, org.ID, org.Name, org.Size, org.Type, org.AdminID,
		org.Subscription.Plan, org.Subscription.StartDate, org.Subscription.EndDate, org.Subscription.Status).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	query = `INSERT INTO organization_members (organization_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, query, org.ID, adminUserID, RoleAdmin, now); err != nil {
		return nil, fmt.Errorf("failed to add admin member: %w", err)
	}

	query = `
		UPDATE users
		SET is_organization = TRUE, organization_id = $2, organization_role = 'admin',
			user_type = 'organization_admin', updated_at = $3
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, adminUserID, org.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update admin user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.FromContext(ctx).WithField("organization_id", org.ID).Info("organization created")
	return org, nil
}

// GetOrganization returns the organization the user belongs to
func (s *PostgresService) GetOrganization(ctx context.Context, userID string) (*Organization, error) {
	query := `
		SELECT o.id, o.name, o.size, o.type, o.admin_id, o.sub_plan, o.sub_start_date, o.sub_end_date,
			o.sub_status, o.sub_base_price, o.sub_member_price, o.created_at, o.updated_at,
			(SELECT COUNT(*) FROM organization_members m WHERE m.organization_id = o.id)
		FROM organizations o
		JOIN users u ON u.organization_id = o.id
		WHERE u.id = $1
	`
	org := &Organization{}
	sub := &org.Subscription
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&org.ID, &org.Name, &org.Size, &org.Type, &org.AdminID, &sub.Plan, &sub.StartDate, &sub.EndDate,
		&sub.Status, &sub.BasePrice, &sub.MemberPrice, &org.CreatedAt, &org.UpdatedAt, &org.MemberCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GenerateInvite creates a seven day single use invite for the admin's organization
func (s *PostgresService) GenerateInvite(ctx context.Context, adminUserID string) (*Invite, error) {
	orgID, err := s.adminOrganizationID(ctx, adminUserID)
	if err != nil {
		return nil, err
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	invite := &Invite{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Token:          token,
		URL:            fmt.Sprintf("%s/organization/join/%s", s.baseURL, token),
		CreatedBy:      adminUserID,
		ExpiresAt:      s.now().Add(InviteTTL),
	}
	query := `
		INSERT INTO organization_invites (id, organization_id, token, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = s.db.QueryRowContext(ctx, query, invite.ID, orgID, token, adminUserID, invite.ExpiresAt).
		Scan(&invite.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.metrics.RecordInvite("created")
	observability.FromContext(ctx).WithField("organization_id", orgID).Info("invite created")
	return invite, nil
}

// ValidateInvite reports whether token can still be redeemed
func (s *PostgresService) ValidateInvite(ctx context.Context, token string) error {
	query := `SELECT organization_id FROM organization_invites WHERE token = $1 AND used = FALSE AND expires_at > $2`
	var orgID string
	err := s.db.QueryRowContext(ctx, query, token, s.now()).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidInvite
	}
	if err != nil {
		return fmt.Errorf("failed to validate invite: %w", err)
	}
	return nil
}

// JoinOrganization redeems token for userID. The invite row is locked so a token is used once.
func (s *PostgresService) JoinOrganization(ctx context.Context, token, userID string) error {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, organization_id FROM organization_invites
		WHERE token = $1 AND used = FALSE AND expires_at > $2
		FOR UPDATE
	`
	var inviteID, orgID string
	err = tx.QueryRowContext(ctx, query, token, now).Scan(&inviteID, &orgID)
	if errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordInvite("rejected")
		return ErrInvalidInvite
	}
	if err != nil {
		return fmt.Errorf("failed to get invite: %w", err)
	}

	m, err := s.loadMembership(ctx, tx, userID, true)
	if err != nil {
		return err
	}
	if m.organizationID != nil {
		return ErrAlreadyInOrganization
	}

	query = `UPDATE organization_invites SET used = TRUE, used_by = $2, used_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, inviteID, userID, now); err != nil {
		return fmt.Errorf("failed to mark invite used: %w", err)
	}

	query = `
		INSERT INTO organization_members (organization_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, orgID, userID, RoleMember, now); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	query = `
		UPDATE users
		SET is_organization = TRUE, organization_id = $2, organization_role = 'member',
			user_type = 'organization_member', updated_at = $3
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, userID, orgID, now); err != nil {
		return fmt.Errorf("failed to update member user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.RecordInvite("joined")
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"organization_id": orgID,
		"member_id":       userID,
	}).Info("member joined organization")
	return nil
}

// ListMembers returns the admin's organization members, oldest first
func (s *PostgresService) ListMembers(ctx context.Context, adminUserID string) ([]*Member, error) {
	orgID, err := s.adminOrganizationID(ctx, adminUserID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT m.user_id, u.email, u.name, m.role, m.joined_at
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(&member.UserID, &member.Email, &member.Name, &member.Role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// MemberCount returns the number of non-admin members in the admin's organization
func (s *PostgresService) MemberCount(ctx context.Context, adminUserID string) (int, error) {
	orgID, err := s.adminOrganizationID(ctx, adminUserID)
	if err != nil {
		return 0, err
	}
	var count int
	query := `SELECT COUNT(*) FROM organization_members WHERE organization_id = $1 AND role = 'member'`
	if err := s.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// RemoveMember removes memberID from the organization owned by adminUserID and resets the user
// to an individual account
func (s *PostgresService) RemoveMember(ctx context.Context, adminUserID, memberID string) error {
	if adminUserID == memberID {
		return ErrCannotRemoveSelf
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var orgID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM organizations WHERE admin_id = $1 FOR UPDATE`, adminUserID).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotOrganizationOwner
	}
	if err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`, orgID, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	query := `
		UPDATE users
		SET is_organization = FALSE, organization_id = NULL, organization_role = NULL,
			user_type = 'individual', updated_at = $2
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, memberID, s.now()); err != nil {
		return fmt.Errorf("failed to reset member user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.RecordInvite("removed")
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"organization_id": orgID,
		"member_id":       memberID,
	}).Info("member removed from organization")
	return nil
}

// UpdateSubscriptionSnapshot stores the admin's current organization plan on the organization
func (s *PostgresService) UpdateSubscriptionSnapshot(ctx context.Context, adminUserID string, snap SubscriptionSnapshot) error {
	query := `
		UPDATE organizations
		SET sub_plan = $2, sub_start_date = $3, sub_end_date = $4, sub_status = $5,
			sub_base_price = $6, sub_member_price = $7, updated_at = $8
		WHERE admin_id = $1
	`
	result, err := s.db.ExecContext(ctx, query, adminUserID, snap.Plan, snap.StartDate, snap.EndDate, snap.Status,
		snap.BasePrice, snap.MemberPrice, s.now())
	if err != nil {
		return fmt.Errorf("failed to update subscription snapshot: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotOrganizationAdmin
	}
	return nil
}

// CleanupExpiredInvites deletes unused invites that expired before now
func (s *PostgresService) CleanupExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM organization_invites WHERE used = FALSE AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invites: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

// generateToken returns 32 random bytes, hex encoded
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
