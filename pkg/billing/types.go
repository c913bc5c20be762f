package billing

import (
	"errors"
	"time"

	"github.com/platinummonkey/patentdesk/pkg/plans"
)

var (
	// ErrPlanNotFound is returned when an order names an unknown plan
	ErrPlanNotFound = plans.ErrPlanNotFound
	// ErrUserNotFound is returned when the subscriber does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidSignature is returned when a payment signature does not verify
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrAlreadySubscribed is returned when a trial is requested by a user with a live subscription
	ErrAlreadySubscribed = errors.New("user already has a subscription")
	// ErrNoActiveSubscription is returned when an operation needs an active or trial subscription
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrOrderNotFound is returned when no order matches the reference for the caller
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when the status change is not allowed
	ErrInvalidTransition = errors.New("invalid subscription status transition")
	// ErrConcurrentActivation is returned when another activation won the race for the main slot
	ErrConcurrentActivation = errors.New("subscription was activated concurrently")
	// ErrMemberBillingBlocked is returned when an organization member tries to purchase
	ErrMemberBillingBlocked = errors.New("organization members cannot manage billing")
	// ErrOrganizationPlanRequiresAdmin is returned when someone other than an organization admin
	// orders an organization plan
	ErrOrganizationPlanRequiresAdmin = errors.New("organization plans can only be bought by an organization admin")
	// ErrInvalidReference is returned for malformed or missing UPI references
	ErrInvalidReference = errors.New("invalid payment reference")
	// ErrInvalidDates is returned when a manual activation window is empty
	ErrInvalidDates = errors.New("end date must be after start date")
)

// Status is the lifecycle state of a subscription row
type Status string

const (
	StatusTrial            Status = "trial"
	StatusPaymentPending   Status = "payment_pending"
	StatusActive           Status = "active"
	StatusUpgradePending   Status = "upgrade_pending"
	StatusDowngradePending Status = "downgrade_pending"
	StatusCancelled        Status = "cancelled"
	StatusRejected         Status = "rejected"
	StatusInactive         Status = "inactive"
	StatusPaid             Status = "paid"
)

// PaymentMethod is the rail that paid for a row
type PaymentMethod string

const (
	MethodUPI      PaymentMethod = "upi"
	MethodRazorpay PaymentMethod = "razorpay"
	MethodStripe   PaymentMethod = "stripe"
	MethodManual   PaymentMethod = "manual"
	MethodTrial    PaymentMethod = "trial"
)

// TrialDays is the length of the free trial
const TrialDays = 14

const (
	trialPlanID  = "trial"
	customPlanID = "custom"
)

// Subscription is one row of the ledger. Plan fields and amount are snapshots taken at order time.
type Subscription struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"userId"`
	PlanID               string        `json:"planId"`
	PlanName             string        `json:"planName"`
	PlanType             string        `json:"planType"`
	Amount               int64         `json:"amount"`
	StartDate            time.Time     `json:"startDate"`
	EndDate              time.Time     `json:"endDate"`
	Status               Status        `json:"status"`
	ParentSubscriptionID *string       `json:"parentSubscriptionId,omitempty"`
	TrialEndsAt          *time.Time    `json:"trialEndsAt,omitempty"`
	CancelledAt          *time.Time    `json:"cancelledAt,omitempty"`
	OrderRef             *string       `json:"orderRef,omitempty"`
	TransactionID        *string       `json:"transactionId,omitempty"`
	Signature            *string       `json:"-"`
	PaymentMethod        PaymentMethod `json:"paymentMethod"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// IsMain reports whether the row is a main plan rather than a stacked one
func (s *Subscription) IsMain() bool {
	return s.ParentSubscriptionID == nil
}

// Order is returned to the client to start a checkout
type Order struct {
	OrderRef string `json:"orderRef"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	PlanID   string `json:"planId"`
	PlanName string `json:"planName"`
	KeyID    string `json:"keyId,omitempty"`
}

// PaymentStatus is the polling view of an order
type PaymentStatus struct {
	OrderRef      string     `json:"orderRef"`
	Status        Status     `json:"status"`
	PlanID        string     `json:"planId"`
	Amount        int64      `json:"amount"`
	TransactionID string     `json:"transactionId,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
}

// ManualActivation is an admin grant of a subscription window
type ManualActivation struct {
	UserID    string    `json:"userId"`
	PlanID    string    `json:"planId,omitempty"`
	PlanName  string    `json:"planName,omitempty"`
	Amount    int64     `json:"amount"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    Status    `json:"status,omitempty"`
}

// Aggregate summarizes a user's entitlement across the main and stacked rows
type Aggregate struct {
	Status             Status          `json:"status"`
	TotalDays          int             `json:"totalDays"`
	LatestEndDate      *time.Time      `json:"latestEndDate,omitempty"`
	TotalAmount        int64           `json:"totalAmount"`
	IsCustomPlan       bool            `json:"isCustomPlan"`
	TrialDaysRemaining int             `json:"trialDaysRemaining"`
	Main               *Subscription   `json:"main,omitempty"`
	Additional         []*Subscription `json:"additional"`
}
