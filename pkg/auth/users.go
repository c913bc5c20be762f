package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrUserNotFound is returned when no user matches
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when an email is already registered
	ErrEmailTaken = errors.New("email already registered")
)

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetActiveToken(ctx context.Context, userID, tokenID string) error
	ClearActiveToken(ctx context.Context, userID string) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}

const userColumns = `id, email, name, password_hash, user_type, is_admin, is_verified, active_token,
	trial_end_date, is_organization, organization_id, organization_role, created_at, updated_at`

// PostgresUserStore implements UserStore on Postgres
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUserStore creates a PostgresUserStore
func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var role sql.NullString
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.UserType, &u.IsAdmin, &u.IsVerified, &u.ActiveToken,
		&u.TrialEndDate, &u.IsOrganization, &u.OrganizationID, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if role.Valid {
		r := OrgRole(role.String)
		u.OrganizationRole = &r
	}
	return &u, nil
}

// Create inserts user, assigning an id when empty
func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.UserType == "" {
		user.UserType = UserTypeIndividual
	}
	user.Email = normalizeEmail(user.Email)

	query := `
		INSERT INTO users (id, email, name, password_hash, user_type, is_admin, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.UserType, user.IsAdmin, user.IsVerified,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID loads a user by id
func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail loads a user by email, case-insensitively
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// SetActiveToken replaces the user's only valid token id
func (s *PostgresUserStore) SetActiveToken(ctx context.Context, userID, tokenID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET active_token = $1, updated_at = NOW() WHERE id = $2`, tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to set active token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearActiveToken ends the user's session
func (s *PostgresUserStore) ClearActiveToken(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET active_token = NULL, updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear active token: %w", err)
	}
	return nil
}

// List returns a page of users ordered by creation time and the total count
func (s *PostgresUserStore) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, total, nil
}

// maskEmail hides most of the local part for logs
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return "***"
	}
	if at <= 1 {
		return "***" + email[at:]
	}
	return email[:1] + "***" + email[at:]
}
