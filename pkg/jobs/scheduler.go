// Package jobs runs the periodic maintenance work: expiring subscriptions, removing stale invites
// and refreshing gauges.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/patentdesk/pkg/async"
	"github.com/platinummonkey/patentdesk/pkg/observability"
	"github.com/platinummonkey/patentdesk/pkg/storage/postgres"
)

const (
	ExpirySchedule        = "@every 1h"
	InviteCleanupSchedule = "@daily"
	GaugeSchedule         = "@every 5m"

	jobTimeout = 2 * time.Minute
)

// SubscriptionExpirer is the billing side of the jobs
type SubscriptionExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// InviteCleaner removes invites that can no longer be redeemed
type InviteCleaner interface {
	CleanupExpiredInvites(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler wraps a cron runner with the application jobs
type Scheduler struct {
	cron    *cron.Cron
	billing SubscriptionExpirer
	invites InviteCleaner
	db      *sql.DB
	metrics *observability.Metrics
	logger  *observability.Logger
	now     func() time.Time
}

// NewScheduler creates a scheduler. db may be nil, in which case pool stats are not recorded.
func NewScheduler(billing SubscriptionExpirer, invites InviteCleaner, db *sql.DB, metrics *observability.Metrics, logger *observability.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		billing: billing,
		invites: invites,
		db:      db,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Register adds every job to the cron runner
func (s *Scheduler) Register() error {
	jobs := []struct {
		name     string
		schedule string
		fn       func(context.Context) error
	}{
		{"expire subscriptions", ExpirySchedule, s.ExpireSubscriptions},
		{"cleanup invites", InviteCleanupSchedule, s.CleanupInvites},
		{"refresh gauges", GaugeSchedule, s.RefreshGauges},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.schedule, func() { s.run(job.name, job.fn) }); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}
	return nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("job scheduler started")
}

// Stop stops scheduling and waits for running jobs or ctx, whichever comes first
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs still running: %w", ctx.Err())
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx := observability.WithLogger(context.Background(), s.logger.WithField("job", name))
	start := time.Now()
	if err := async.Wait(ctx, jobTimeout, name, fn); err != nil {
		s.logger.WithError(err).WithField("job", name).Error("job failed")
		return
	}
	s.logger.WithField("job", name).WithField("duration_ms", time.Since(start).Milliseconds()).Debug("job finished")
}

// ExpireSubscriptions moves subscriptions past their end date to inactive
func (s *Scheduler) ExpireSubscriptions(ctx context.Context) error {
	n, err := s.billing.ExpireDue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	if n > 0 {
		observability.FromContext(ctx).WithField("expired", n).Info("subscriptions expired")
	}
	return nil
}

// CleanupInvites deletes expired invites that were never used
func (s *Scheduler) CleanupInvites(ctx context.Context) error {
	n, err := s.invites.CleanupExpiredInvites(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to clean up invites: %w", err)
	}
	if n > 0 {
		observability.FromContext(ctx).WithField("deleted", n).Info("expired invites removed")
	}
	return nil
}

// RefreshGauges updates the active subscription and connection pool gauges
func (s *Scheduler) RefreshGauges(ctx context.Context) error {
	if s.db != nil {
		postgres.RecordPoolStats(s.db, s.metrics)
	}
	n, err := s.billing.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ActiveSubscriptions.Set(float64(n))
	}
	return nil
}
