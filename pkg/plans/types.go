package plans

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrPlanNotFound is returned when no plan matches the id
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanReferenced is returned when changing the price of a plan that subscriptions reference
	ErrPlanReferenced = errors.New("plan is referenced by subscriptions and cannot be repriced")
	// ErrInvalidPlan is returned for plans failing validation
	ErrInvalidPlan = errors.New("invalid plan")
)

// BillingPeriod is the length of one paid term
type BillingPeriod string

const (
	PeriodMonthly    BillingPeriod = "monthly"
	PeriodQuarterly  BillingPeriod = "quarterly"
	PeriodHalfYearly BillingPeriod = "half-yearly"
	PeriodYearly     BillingPeriod = "yearly"
)

// Category separates individual and organization plans
type Category string

const (
	CategoryIndividual   Category = "individual"
	CategoryOrganization Category = "organization"
)

// PeriodDays returns the number of calendar days a period grants, or 0 if unknown
func PeriodDays(period BillingPeriod) int {
	switch period {
	case PeriodMonthly:
		return 30
	case PeriodQuarterly:
		return 90
	case PeriodHalfYearly:
		return 180
	case PeriodYearly:
		return 365
	default:
		return 0
	}
}

// Plan is a purchasable plan. Prices are in minor currency units (paise).
type Plan struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	BillingPeriod   BillingPeriod   `json:"billingPeriod"`
	Price           int64           `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Features        []string        `json:"features"`
	Category        Category        `json:"category"`
	OrgBasePrice    int64           `json:"orgBasePrice,omitempty"`
	PerMemberPrice  int64           `json:"perMemberPrice,omitempty"`
	Popular         bool            `json:"popular"`
	CreatedAt       time.Time       `json:"createdAt"`
}

var hundred = decimal.NewFromInt(100)

// EffectivePrice applies the discount and rounds half-up to whole minor units
func (p *Plan) EffectivePrice() int64 {
	if p.DiscountPercent.IsZero() {
		return p.Price
	}
	factor := hundred.Sub(p.DiscountPercent).Div(hundred)
	return decimal.NewFromInt(p.Price).Mul(factor).Round(0).IntPart()
}

// OrganizationPrice returns the base price plus the per-member price for members seats
func (p *Plan) OrganizationPrice(members int) int64 {
	if members < 0 {
		members = 0
	}
	return p.OrgBasePrice + p.PerMemberPrice*int64(members)
}

// Days returns the calendar days granted by the plan's period
func (p *Plan) Days() int {
	return PeriodDays(p.BillingPeriod)
}

// Validate checks the plan fields
func (p *Plan) Validate() error {
	switch {
	case p.ID == "" || p.Name == "":
		return fmt.Errorf("%w: id and name are required", ErrInvalidPlan)
	case PeriodDays(p.BillingPeriod) == 0:
		return fmt.Errorf("%w: unknown billing period %q", ErrInvalidPlan, p.BillingPeriod)
	case p.Category != CategoryIndividual && p.Category != CategoryOrganization:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidPlan, p.Category)
	case p.Price < 0 || p.OrgBasePrice < 0 || p.PerMemberPrice < 0:
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidPlan)
	case p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(hundred):
		return fmt.Errorf("%w: discount must be between 0 and 100", ErrInvalidPlan)
	}
	return nil
}

func (p *Plan) priceFieldsEqual(other *Plan) bool {
	return p.Price == other.Price &&
		p.DiscountPercent.Equal(other.DiscountPercent) &&
		p.BillingPeriod == other.BillingPeriod &&
		p.OrgBasePrice == other.OrgBasePrice &&
		p.PerMemberPrice == other.PerMemberPrice
}
