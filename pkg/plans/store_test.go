package plans

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStore(db), mock, db
}

var planRowColumns = []string{
	"id", "name", "billing_period", "price", "discount_percent", "features", "category",
	"org_base_price", "per_member_price", "popular", "created_at",
}

func TestPostgresStore_List(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM pricing_plans WHERE category = \\$1 ORDER BY price ASC").
		WithArgs(CategoryIndividual).
		WillReturnRows(sqlmock.NewRows(planRowColumns).
			AddRow("individual-monthly", "Monthly", "monthly", int64(99900), "0", "{Search,Folders}", "individual", 0, 0, false, now).
			AddRow("individual-yearly", "Yearly", "yearly", int64(1198800), "25.00", "{}", "individual", 0, 0, true, now))

	plans, err := store.List(context.Background(), CategoryIndividual)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, []string{"Search", "Folders"}, plans[0].Features)
	assert.True(t, plans[1].DiscountPercent.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(899100), plans[1].EffectivePrice())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM pricing_plans WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})
}

func TestPostgresStore_Upsert(t *testing.T) {
	now := time.Now()

	t.Run("inserts new plan", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM pricing_plans WHERE id = \\$1 FOR UPDATE").
			WithArgs("individual-monthly").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("INSERT INTO pricing_plans").
			WithArgs("individual-monthly", "Individual Monthly", PeriodMonthly, int64(99900), sqlmock.AnyArg(),
				sqlmock.AnyArg(), CategoryIndividual, int64(0), int64(0), false).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		plan := validPlan()
		require.NoError(t, store.Upsert(context.Background(), plan))
		assert.Equal(t, now, plan.CreatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses repricing a referenced plan", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("individual-monthly").
			WillReturnRows(sqlmock.NewRows(planRowColumns).
				AddRow("individual-monthly", "Individual Monthly", "monthly", int64(89900), "0", "{}", "individual", 0, 0, false, now))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("individual-monthly").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := store.Upsert(context.Background(), validPlan())
		assert.ErrorIs(t, err, ErrPlanReferenced)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("allows renaming a referenced plan", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("individual-monthly").
			WillReturnRows(sqlmock.NewRows(planRowColumns).
				AddRow("individual-monthly", "Old Name", "monthly", int64(99900), "0", "{}", "individual", 0, 0, false, now))
		mock.ExpectQuery("INSERT INTO pricing_plans").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		require.NoError(t, store.Upsert(context.Background(), validPlan()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid plan before touching the database", func(t *testing.T) {
		store, mock, db := newMockStore(t)
		defer db.Close()

		plan := validPlan()
		plan.BillingPeriod = "weekly"
		assert.ErrorIs(t, store.Upsert(context.Background(), plan), ErrInvalidPlan)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
