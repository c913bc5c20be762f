package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/patentdesk/pkg/observability"
	"github.com/platinummonkey/patentdesk/pkg/orgs"
	"github.com/platinummonkey/patentdesk/pkg/plans"
	"github.com/platinummonkey/patentdesk/pkg/storage/postgres"
)

const (
	singleMainIndex = "subscriptions_single_main_idx"
	msPerDay        = 86400000
)

// PlanProvider resolves plans by id
type PlanProvider interface {
	Get(ctx context.Context, id string) (*plans.Plan, error)
}

// OrganizationSync keeps the organization subscription snapshot in step with the admin's purchases
type OrganizationSync interface {
	MemberCount(ctx context.Context, adminUserID string) (int, error)
	UpdateSubscriptionSnapshot(ctx context.Context, adminUserID string, snap orgs.SubscriptionSnapshot) error
}

// Config carries the payment settings the service needs
type Config struct {
	Currency            string
	StripeWebhookSecret string
}

// Service implements the subscription state machine on Postgres
type Service struct {
	db           *sql.DB
	plans        PlanProvider
	gateway      *Gateway
	orgs         OrganizationSync
	metrics      *observability.Metrics
	currency     string
	stripeSecret string
	now          func() time.Time
}

// NewService creates a billing Service
func NewService(db *sql.DB, planProvider PlanProvider, gateway *Gateway, cfg Config, metrics *observability.Metrics) *Service {
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		db:           db,
		plans:        planProvider,
		gateway:      gateway,
		metrics:      metrics,
		currency:     currency,
		stripeSecret: cfg.StripeWebhookSecret,
		now:          time.Now,
	}
}

// SetOrganizationSync enables organization pricing and snapshot updates
func (s *Service) SetOrganizationSync(o OrganizationSync) {
	s.orgs = o
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// StartTrial grants the 14 day trial to a user with no subscription or only a lapsed one
func (s *Service) StartTrial(ctx context.Context, userID string) (*Subscription, error) {
	now := s.now()
	end := now.AddDate(0, 0, TrialDays)
	sub := &Subscription{
		ID:            uuid.NewString(),
		UserID:        userID,
		PlanID:        trialPlanID,
		PlanName:      "Free Trial",
		PlanType:      trialPlanID,
		StartDate:     now,
		EndDate:       end,
		Status:        StatusTrial,
		TrialEndsAt:   &end,
		PaymentMethod: MethodTrial,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		latest, err := latestSubscription(ctx, tx, userID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Status != StatusInactive {
			return ErrAlreadySubscribed
		}
		if err := insertSubscription(ctx, tx, sub); err != nil {
			return fmt.Errorf("failed to insert trial: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET trial_end_date = $2, updated_at = $3 WHERE id = $1`,
			userID, end, now)
		if err != nil {
			return fmt.Errorf("failed to mirror trial end date: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition("", string(StatusTrial))
	observability.FromContext(ctx).WithField("subscription_id", sub.ID).Info("trial started")
	return sub, nil
}

// orderAmount prices a plan for the buyer. Organization plans are priced per member.
func (s *Service) orderAmount(ctx context.Context, userID string, plan *plans.Plan) (int64, error) {
	if plan.Category != plans.CategoryOrganization || s.orgs == nil {
		return plan.EffectivePrice(), nil
	}
	members, err := s.orgs.MemberCount(ctx, userID)
	if errors.Is(err, orgs.ErrNotOrganizationAdmin) {
		return 0, ErrOrganizationPlanRequiresAdmin
	}
	if err != nil {
		return 0, err
	}
	return plan.OrganizationPrice(members), nil
}

// CreateOrder opens a payment_pending order for plan. An existing pending order is reused.
func (s *Service) CreateOrder(ctx context.Context, userID, planID string) (*Order, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	amount, err := s.orderAmount(ctx, userID, plan)
	if err != nil {
		return nil, err
	}

	var order *Order
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		userType, err := lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if userType == "organization_member" {
			return ErrMemberBillingBlocked
		}
		order, err = s.openOrder(ctx, tx, userID, plan, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"order_ref": order.OrderRef,
		"plan_id":   plan.ID,
		"amount":    amount,
	}).Info("order created")
	return order, nil
}

func (s *Service) openOrder(ctx context.Context, tx *sql.Tx, userID string, plan *plans.Plan, amount int64) (*Order, error) {
	now := s.now()
	orderRef := "order_" + uuid.NewString()

	pending, err := pendingOrder(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		query := `
			UPDATE subscriptions
			SET plan_id = $2, plan_name = $3, plan_type = $4, amount = $5, order_ref = $6,
				transaction_id = NULL, signature = NULL, updated_at = $7
			WHERE id = $1
		`
		_, err := tx.ExecContext(ctx, query, pending.ID, plan.ID, plan.Name, string(plan.BillingPeriod), amount, orderRef, now)
		if err != nil {
			return nil, fmt.Errorf("failed to update pending order: %w", err)
		}
	} else {
		sub := &Subscription{
			ID:            uuid.NewString(),
			UserID:        userID,
			PlanID:        plan.ID,
			PlanName:      plan.Name,
			PlanType:      string(plan.BillingPeriod),
			Amount:        amount,
			StartDate:     now,
			EndDate:       now,
			Status:        StatusPaymentPending,
			OrderRef:      &orderRef,
			PaymentMethod: MethodRazorpay,
		}
		if err := insertSubscription(ctx, tx, sub); err != nil {
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}
		s.metrics.RecordTransition("", string(StatusPaymentPending))
	}

	return &Order{
		OrderRef: orderRef,
		Amount:   amount,
		Currency: s.currency,
		PlanID:   plan.ID,
		PlanName: plan.Name,
		KeyID:    s.gateway.KeyID(),
	}, nil
}

// VerifyPayment checks the checkout signature and activates the order. A bad signature never
// touches the database.
func (s *Service) VerifyPayment(ctx context.Context, userID, orderRef, paymentID, signature string) (*Subscription, error) {
	if !s.gateway.Verify(orderRef, paymentID, signature) {
		s.metrics.RecordPayment(string(MethodRazorpay), "invalid_signature")
		observability.FromContext(ctx).WithField("order_ref", orderRef).Warn("payment signature mismatch")
		return nil, ErrInvalidSignature
	}
	return s.activateOrder(ctx, activation{
		userID:        userID,
		orderRef:      orderRef,
		transactionID: paymentID,
		signature:     signature,
		method:        MethodRazorpay,
	})
}

// activation describes how an order is being paid
type activation struct {
	userID           string // empty for admin and webhook activations
	orderRef         string
	transactionID    string // empty keeps the stored reference
	signature        string
	method           PaymentMethod
	requireReference bool
}

// activateOrder moves an order to active and retires every other current main row in one
// transaction. Activating an already active order returns it unchanged.
func (s *Service) activateOrder(ctx context.Context, a activation) (sub *Subscription, err error) {
	ctx, span := observability.StartSpan(ctx, "billing.activateOrder",
		attribute.String("order.ref", a.orderRef),
		attribute.String("payment.method", string(a.method)),
	)
	defer func() { observability.EndSpan(span, err) }()
	return s.activate(ctx, a)
}

func (s *Service) activate(ctx context.Context, a activation) (*Subscription, error) {
	var (
		sub     *Subscription
		from    Status
		retired []Status
		changed bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		sub, err = subscriptionByOrderRef(ctx, tx, a.orderRef, true)
		if err != nil {
			return err
		}
		if a.userID != "" && sub.UserID != a.userID {
			return ErrOrderNotFound
		}
		if sub.Status == StatusActive {
			return nil
		}
		if !canActivate(sub.Status, a.method) {
			return ErrInvalidTransition
		}
		days := plans.PeriodDays(plans.BillingPeriod(sub.PlanType))
		if days == 0 {
			return fmt.Errorf("unknown billing period %q: %w", sub.PlanType, plans.ErrInvalidPlan)
		}

		transactionID := a.transactionID
		if transactionID == "" && sub.TransactionID != nil {
			transactionID = *sub.TransactionID
		}
		if a.requireReference && transactionID == "" {
			return ErrInvalidReference
		}

		retired, err = retireMains(ctx, tx, sub.UserID, sub.ID, s.now())
		if err != nil {
			return err
		}

		now := s.now()
		end := now.AddDate(0, 0, days)
		var signature *string
		if a.signature != "" {
			signature = &a.signature
		}
		query := `
			UPDATE subscriptions
			SET status = 'active', start_date = $2, end_date = $3, transaction_id = $4, signature = $5,
				payment_method = $6, updated_at = $2
			WHERE id = $1
		`
		_, err = tx.ExecContext(ctx, query, sub.ID, now, end, transactionID, signature, a.method)
		if postgres.IsUniqueViolation(err, singleMainIndex) {
			return ErrConcurrentActivation
		}
		if err != nil {
			return fmt.Errorf("failed to activate order: %w", err)
		}

		from = sub.Status
		sub.Status = StatusActive
		sub.StartDate = now
		sub.EndDate = end
		sub.TransactionID = &transactionID
		sub.Signature = signature
		sub.PaymentMethod = a.method
		sub.UpdatedAt = now
		changed = true
		return nil
	})
	if err != nil {
		s.metrics.RecordPayment(string(a.method), "error")
		return nil, err
	}
	if !changed {
		return sub, nil
	}

	for _, status := range retired {
		s.metrics.RecordTransition(string(status), string(StatusInactive))
	}
	s.metrics.RecordTransition(string(from), string(StatusActive))
	s.metrics.RecordPayment(string(a.method), "success")
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"order_ref":       a.orderRef,
		"subscription_id": sub.ID,
		"method":          a.method,
		"end_date":        sub.EndDate,
	}).Info("subscription activated")

	s.syncOrganization(ctx, sub)
	return sub, nil
}

// retireMains sets every other current main row of the user inactive and returns their prior statuses
func retireMains(ctx context.Context, tx *sql.Tx, userID, keepID string, now time.Time) ([]Status, error) {
	query := `
		UPDATE subscriptions SET status = 'inactive', updated_at = $3
		WHERE user_id = $1 AND id <> $2 AND parent_subscription_id IS NULL AND status IN ` + currentStatusesSQL + `
		RETURNING status
	`
	rows, err := tx.QueryContext(ctx, query, userID, keepID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to retire previous subscriptions: %w", err)
	}
	defer rows.Close()

	var retired []Status
	for rows.Next() {
		var status Status
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("failed to scan retired status: %w", err)
		}
		retired = append(retired, status)
	}
	return retired, rows.Err()
}

// syncOrganization copies an organization plan activation onto the organization row
func (s *Service) syncOrganization(ctx context.Context, sub *Subscription) {
	if s.orgs == nil {
		return
	}
	plan, err := s.plans.Get(ctx, sub.PlanID)
	if err != nil || plan.Category != plans.CategoryOrganization {
		return
	}
	snap := orgs.SubscriptionSnapshot{
		Plan:        plan.ID,
		StartDate:   sub.StartDate,
		EndDate:     sub.EndDate,
		Status:      string(sub.Status),
		BasePrice:   plan.OrgBasePrice,
		MemberPrice: plan.PerMemberPrice,
	}
	if err := s.orgs.UpdateSubscriptionSnapshot(ctx, sub.UserID, snap); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("subscription_id", sub.ID).
			Error("failed to update organization subscription snapshot")
	}
}

// SubmitPaymentReference records the UPI UTR on a pending order. The order stays pending until approved.
func (s *Service) SubmitPaymentReference(ctx context.Context, userID, orderRef, utr string) (*Subscription, error) {
	if err := ValidateUTR(utr); err != nil {
		return nil, err
	}
	utr = strings.TrimSpace(utr)
	query := `
		UPDATE subscriptions SET transaction_id = $3, payment_method = 'upi', updated_at = $4
		WHERE order_ref = $1 AND user_id = $2 AND status = 'payment_pending'
		RETURNING ` + subscriptionColumns
	sub, err := querySubscription(ctx, s.db, query, orderRef, userID, utr, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record payment reference: %w", err)
	}
	if sub == nil {
		return nil, ErrOrderNotFound
	}
	s.metrics.RecordPayment(string(MethodUPI), "submitted")
	observability.FromContext(ctx).WithField("order_ref", orderRef).Info("payment reference submitted")
	return sub, nil
}

// PaymentStatus returns the state of the caller's order
func (s *Service) PaymentStatus(ctx context.Context, userID, orderRef string) (*PaymentStatus, error) {
	sub, err := subscriptionByOrderRef(ctx, s.db, orderRef, false)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrOrderNotFound
	}
	status := &PaymentStatus{
		OrderRef: orderRef,
		Status:   sub.Status,
		PlanID:   sub.PlanID,
		Amount:   sub.Amount,
	}
	if sub.TransactionID != nil {
		status.TransactionID = *sub.TransactionID
	}
	if IsEntitled(sub.Status) {
		end := sub.EndDate
		status.EndDate = &end
	}
	return status, nil
}

// ApprovePayment activates a UPI order once an admin has confirmed the transfer
func (s *Service) ApprovePayment(ctx context.Context, orderRef string) (*Subscription, error) {
	return s.activateOrder(ctx, activation{
		orderRef:         orderRef,
		method:           MethodUPI,
		requireReference: true,
	})
}

// ActivateManual grants a window chosen by an admin. When the user already has a main plan the
// grant is stacked on it and the main row is left untouched.
func (s *Service) ActivateManual(ctx context.Context, req ManualActivation) (*Subscription, error) {
	if !req.EndDate.After(req.StartDate) {
		return nil, ErrInvalidDates
	}
	if req.Status == "" {
		req.Status = StatusActive
	}
	if req.Status != StatusActive {
		return nil, ErrInvalidTransition
	}
	if req.PlanID == "" {
		req.PlanID = customPlanID
	}
	if req.PlanName == "" {
		req.PlanName = "Custom Plan"
	}

	sub := &Subscription{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		PlanID:        req.PlanID,
		PlanName:      req.PlanName,
		PlanType:      customPlanID,
		Amount:        req.Amount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        req.Status,
		PaymentMethod: MethodManual,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		main, err := mainSubscription(ctx, tx, req.UserID, entitledStatusesSQL, true)
		if err != nil {
			return err
		}
		if main != nil {
			sub.ParentSubscriptionID = &main.ID
		}
		err = insertSubscription(ctx, tx, sub)
		if postgres.IsUniqueViolation(err, singleMainIndex) {
			return ErrConcurrentActivation
		}
		if err != nil {
			return fmt.Errorf("failed to insert manual subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition("", string(sub.Status))
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"subscription_id": sub.ID,
		"target_user_id":  req.UserID,
		"stacked":         !sub.IsMain(),
	}).Info("manual subscription granted")
	return sub, nil
}

// Cancel marks the current main row cancelled. Access continues until the end date.
func (s *Service) Cancel(ctx context.Context, userID string) (*Subscription, error) {
	var sub *Subscription
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		sub, err = mainSubscription(ctx, tx, userID, currentStatusesSQL, true)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrNoActiveSubscription
		}
		if sub.CancelledAt != nil {
			return nil
		}
		now := s.now()
		_, err = tx.ExecContext(ctx, `UPDATE subscriptions SET cancelled_at = $2, updated_at = $2 WHERE id = $1`,
			sub.ID, now)
		if err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		sub.CancelledAt = &now
		sub.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithField("subscription_id", sub.ID).Info("subscription cancelled")
	return sub, nil
}

// Reject fails a pending order. A main row waiting on the order for a plan change goes back to active.
func (s *Service) Reject(ctx context.Context, orderRef, reason string) error {
	var from Status
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sub, err := subscriptionByOrderRef(ctx, tx, orderRef, true)
		if err != nil {
			return err
		}
		if sub.Status == StatusRejected {
			return nil
		}
		if !CanTransition(sub.Status, StatusRejected) {
			return ErrInvalidTransition
		}
		now := s.now()
		if err := execOne(ctx, tx, `UPDATE subscriptions SET status = 'rejected', updated_at = $2 WHERE id = $1`,
			sub.ID, now); err != nil {
			return fmt.Errorf("failed to reject order: %w", err)
		}
		query := `
			UPDATE subscriptions SET status = 'active', updated_at = $2
			WHERE user_id = $1 AND parent_subscription_id IS NULL AND status IN ('upgrade_pending', 'downgrade_pending')
		`
		if _, err := tx.ExecContext(ctx, query, sub.UserID, now); err != nil {
			return fmt.Errorf("failed to restore main subscription: %w", err)
		}
		from = sub.Status
		return nil
	})
	if err != nil {
		return err
	}
	if from == "" {
		return nil
	}

	s.metrics.RecordTransition(string(from), string(StatusRejected))
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"order_ref": orderRef,
		"reason":    reason,
	}).Info("order rejected")
	return nil
}

// RequestPlanChange flags the active main row as changing plan and opens an order for the new plan.
// Verifying that order retires the old row.
func (s *Service) RequestPlanChange(ctx context.Context, userID, planID string) (*Order, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	amount, err := s.orderAmount(ctx, userID, plan)
	if err != nil {
		return nil, err
	}

	var (
		order  *Order
		target Status
	)
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		userType, err := lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if userType == "organization_member" {
			return ErrMemberBillingBlocked
		}
		main, err := mainSubscription(ctx, tx, userID, `('active')`, true)
		if err != nil {
			return err
		}
		if main == nil {
			return ErrNoActiveSubscription
		}
		if main.PlanID == plan.ID {
			return ErrInvalidTransition
		}
		target = StatusDowngradePending
		if amount > main.Amount {
			target = StatusUpgradePending
		}
		if _, err := tx.ExecContext(ctx, `UPDATE subscriptions SET status = $2, updated_at = $3 WHERE id = $1`,
			main.ID, target, s.now()); err != nil {
			return fmt.Errorf("failed to mark plan change: %w", err)
		}
		order, err = s.openOrder(ctx, tx, userID, plan, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(StatusActive), string(target))
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"order_ref": order.OrderRef,
		"plan_id":   plan.ID,
		"change":    target,
	}).Info("plan change requested")
	return order, nil
}

// Aggregate summarizes the user's ledger
func (s *Service) Aggregate(ctx context.Context, userID string) (*Aggregate, error) {
	subs, err := listSubscriptions(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return aggregate(subs, s.now()), nil
}

// History returns every ledger row of the user, oldest first
func (s *Service) History(ctx context.Context, userID string) ([]*Subscription, error) {
	return listSubscriptions(ctx, s.db, userID)
}

// spanDays is the window length in whole days, rounded up
func spanDays(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int(math.Ceil(float64(ms) / msPerDay))
}

// aggregate sums entitled rows. Overlapping windows are counted once per row.
func aggregate(subs []*Subscription, now time.Time) *Aggregate {
	agg := &Aggregate{Status: StatusInactive, Additional: []*Subscription{}}
	var trial *Subscription

	for _, sub := range subs {
		if sub.Status == StatusTrial {
			trial = sub
			continue
		}
		if !IsEntitled(sub.Status) {
			continue
		}
		agg.TotalDays += spanDays(sub.StartDate, sub.EndDate)
		agg.TotalAmount += sub.Amount
		if agg.LatestEndDate == nil || sub.EndDate.After(*agg.LatestEndDate) {
			end := sub.EndDate
			agg.LatestEndDate = &end
		}
		if sub.IsMain() {
			agg.Main = sub
		} else {
			agg.Additional = append(agg.Additional, sub)
		}
	}
	agg.IsCustomPlan = len(agg.Additional) > 0

	switch {
	case agg.Main != nil:
		agg.Status = agg.Main.Status
	case len(agg.Additional) > 0:
		agg.Status = StatusActive
	case trial != nil && trial.EndDate.After(now):
		agg.Status = StatusTrial
	}
	if trial != nil && trial.EndDate.After(now) {
		agg.TrialDaysRemaining = spanDays(now, trial.EndDate)
	}
	return agg
}

// ExpireDue retires current rows whose window has passed
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE subscriptions SET status = 'inactive', updated_at = $1
		WHERE status IN ` + currentStatusesSQL + ` AND end_date < $1
		RETURNING status
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var status Status
		if err := rows.Scan(&status); err != nil {
			return count, fmt.Errorf("failed to scan expired status: %w", err)
		}
		s.metrics.RecordTransition(string(status), string(StatusInactive))
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to iterate expired subscriptions: %w", err)
	}

	observability.FromContext(ctx).WithField("count", count).Info("expired due subscriptions")
	return count, nil
}

// CountActive returns the number of users with an entitled row covering now
func (s *Service) CountActive(ctx context.Context) (int, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM subscriptions WHERE status IN ` + entitledStatusesSQL + ` AND end_date > $1`
	var count int
	if err := s.db.QueryRowContext(ctx, query, s.now()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrPlanNotFound)
}
