package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, plan_type, amount, start_date, end_date, status,
	parent_subscription_id, trial_ends_at, cancelled_at, order_ref, transaction_id, signature, payment_method,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.PlanType, &s.Amount, &s.StartDate, &s.EndDate, &s.Status,
		&s.ParentSubscriptionID, &s.TrialEndsAt, &s.CancelledAt, &s.OrderRef, &s.TransactionID, &s.Signature,
		&s.PaymentMethod, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func forUpdate(query string, lock bool) string {
	if lock {
		return query + ` FOR UPDATE`
	}
	return query
}

func insertSubscription(ctx context.Context, q querier, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_id, plan_name, plan_type, amount, start_date, end_date,
			status, parent_subscription_id, trial_ends_at, order_ref, transaction_id, signature, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	return q.QueryRowContext(ctx, query,
		sub.ID, sub.UserID, sub.PlanID, sub.PlanName, sub.PlanType, sub.Amount, sub.StartDate, sub.EndDate,
		sub.Status, sub.ParentSubscriptionID, sub.TrialEndsAt, sub.OrderRef, sub.TransactionID, sub.Signature,
		sub.PaymentMethod,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
}

// querySubscription returns the first row or nil when there is none
func querySubscription(ctx context.Context, q querier, query string, args ...interface{}) (*Subscription, error) {
	sub, err := scanSubscription(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func latestSubscription(ctx context.Context, q querier, userID string) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	sub, err := querySubscription(ctx, q, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest subscription: %w", err)
	}
	return sub, nil
}

func subscriptionByOrderRef(ctx context.Context, q querier, orderRef string, lock bool) (*Subscription, error) {
	query := forUpdate(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE order_ref = $1`, lock)
	sub, err := querySubscription(ctx, q, query, orderRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if sub == nil {
		return nil, ErrOrderNotFound
	}
	return sub, nil
}

// mainSubscription returns the user's main row whose status is in the given SQL set
func mainSubscription(ctx context.Context, q querier, userID, statuses string, lock bool) (*Subscription, error) {
	query := forUpdate(`SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1 AND parent_subscription_id IS NULL AND status IN `+statuses+`
		ORDER BY created_at DESC LIMIT 1`, lock)
	sub, err := querySubscription(ctx, q, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get main subscription: %w", err)
	}
	return sub, nil
}

func pendingOrder(ctx context.Context, q querier, userID string) (*Subscription, error) {
	return mainSubscription(ctx, q, userID, `('payment_pending')`, true)
}

func listSubscriptions(ctx context.Context, q querier, userID string) ([]*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

// lockUser locks the user row and returns its user_type
func lockUser(ctx context.Context, q querier, userID string) (string, error) {
	var userType string
	err := q.QueryRowContext(ctx, `SELECT user_type FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&userType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock user: %w", err)
	}
	return userType, nil
}

func execOne(ctx context.Context, q querier, query string, args ...interface{}) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
