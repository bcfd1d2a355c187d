// Package rates resolves the price of a tutoring session from an owner's
// rate policy.
package rates

import (
	"time"

	"github.com/corebox-crm/corebox/internal/money"
)

// Plan selects which tier column applies to a session.
type Plan string

const (
	PlanRegular  Plan = "regular"
	PlanDiscount Plan = "discount"
)

// RatePolicy holds an owner's pricing configuration: a flat hourly and
// half-hour rate plus a (plan x duration) tier grid.
type RatePolicy struct {
	ID      int64
	OwnerID int64

	HourlyRate   money.Money
	HalfHourRate money.Money

	RegularRate60 money.Money
	RegularRate45 money.Money
	RegularRate30 money.Money

	DiscountRate60 money.Money
	DiscountRate45 money.Money
	DiscountRate30 money.Money

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default rates applied when a policy is lazily created on first access.
var (
	DefaultHourlyRate   = money.MustParse("60.00")
	DefaultHalfHourRate = money.MustParse("40.00")
	DefaultRate60       = money.MustParse("60.00")
	DefaultRate45       = money.MustParse("45.00")
	DefaultRate30       = money.MustParse("30.00")
)

// DefaultPolicy returns a policy populated with the stock rates.
func DefaultPolicy(ownerID int64) RatePolicy {
	return RatePolicy{
		OwnerID:        ownerID,
		HourlyRate:     DefaultHourlyRate,
		HalfHourRate:   DefaultHalfHourRate,
		RegularRate60:  DefaultRate60,
		RegularRate45:  DefaultRate45,
		RegularRate30:  DefaultRate30,
		DiscountRate60: DefaultRate60,
		DiscountRate45: DefaultRate45,
		DiscountRate30: DefaultRate30,
	}
}

// Tier returns the configured amount for the given plan and duration. The
// second result is false when the combination is outside the grid.
func (p RatePolicy) Tier(plan Plan, durationMinutes int) (money.Money, bool) {
	switch plan {
	case PlanRegular:
		switch durationMinutes {
		case 60:
			return p.RegularRate60, true
		case 45:
			return p.RegularRate45, true
		case 30:
			return p.RegularRate30, true
		}
	case PlanDiscount:
		switch durationMinutes {
		case 60:
			return p.DiscountRate60, true
		case 45:
			return p.DiscountRate45, true
		case 30:
			return p.DiscountRate30, true
		}
	}
	return money.Money{}, false
}

// UpdatePolicyInput carries partial rate updates; nil fields are untouched.
type UpdatePolicyInput struct {
	HourlyRate   *money.Money
	HalfHourRate *money.Money

	RegularRate60 *money.Money
	RegularRate45 *money.Money
	RegularRate30 *money.Money

	DiscountRate60 *money.Money
	DiscountRate45 *money.Money
	DiscountRate30 *money.Money
}
