package plans

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Store persists plans
type Store interface {
	List(ctx context.Context, category Category) ([]*Plan, error)
	Get(ctx context.Context, id string) (*Plan, error)
	Upsert(ctx context.Context, plan *Plan) error
}

const planColumns = `id, name, billing_period, price, discount_percent, features, category,
	org_base_price, per_member_price, popular, created_at`

// PostgresStore implements Store on the pricing_plans table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*Plan, error) {
	var p Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.BillingPeriod, &p.Price, &p.DiscountPercent, pq.Array(&p.Features), &p.Category,
		&p.OrgBasePrice, &p.PerMemberPrice, &p.Popular, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns plans ordered by price, optionally filtered by category
func (s *PostgresStore) List(ctx context.Context, category Category) ([]*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY price ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return plans, nil
}

// Get returns the plan or ErrPlanNotFound
func (s *PostgresStore) Get(ctx context.Context, id string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM pricing_plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

// Upsert inserts or updates plan. Price changes on a plan that subscriptions reference
// are refused with ErrPlanReferenced; descriptive fields may still change.
func (s *PostgresStore) Upsert(ctx context.Context, plan *Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanPlan(tx.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM pricing_plans WHERE id = $1 FOR UPDATE`, plan.ID))
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to load plan: %w", err)
	}

	if existing != nil && !existing.priceFieldsEqual(plan) {
		var referenced bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE plan_id = $1)`, plan.ID).Scan(&referenced)
		if err != nil {
			return fmt.Errorf("failed to check plan references: %w", err)
		}
		if referenced {
			return ErrPlanReferenced
		}
	}

	features := plan.Features
	if features == nil {
		features = []string{}
	}

	query := `
		INSERT INTO pricing_plans (id, name, billing_period, price, discount_percent, features, category,
			org_base_price, per_member_price, popular)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			billing_period = EXCLUDED.billing_period,
			price = EXCLUDED.price,
			discount_percent = EXCLUDED.discount_percent,
			features = EXCLUDED.features,
			category = EXCLUDED.category,
			org_base_price = EXCLUDED.org_base_price,
			per_member_price = EXCLUDED.per_member_price,
			popular = EXCLUDED.popular
		RETURNING created_at
	`
	err = tx.QueryRowContext(ctx, query,
		plan.ID, plan.Name, plan.BillingPeriod, plan.Price, plan.DiscountPercent, pq.Array(features),
		plan.Category, plan.OrgBasePrice, plan.PerMemberPrice, plan.Popular,
	).Scan(&plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
