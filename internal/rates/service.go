package rates

import (
	"context"
	"fmt"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
)

// RepositoryPort defines data access methods for rate policies.
type RepositoryPort interface {
	GetOrCreatePolicy(ctx context.Context, ownerID int64) (*RatePolicy, error)
	UpdatePolicy(ctx context.Context, ownerID int64, input UpdatePolicyInput) (*RatePolicy, error)
}

// Service handles rate policy access and price resolution.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Policy returns the owner's rate policy, creating it with defaults on
// first access.
func (s *Service) Policy(ctx context.Context, ownerID int64) (*RatePolicy, error) {
	return s.repo.GetOrCreatePolicy(ctx, ownerID)
}

// UpdatePolicy applies partial rate updates for the owner.
func (s *Service) UpdatePolicy(ctx context.Context, ownerID int64, input UpdatePolicyInput) (*RatePolicy, error) {
	for _, rate := range []*money.Money{
		input.HourlyRate, input.HalfHourRate,
		input.RegularRate60, input.RegularRate45, input.RegularRate30,
		input.DiscountRate60, input.DiscountRate45, input.DiscountRate30,
	} {
		if rate != nil && rate.IsNegative() {
			return nil, fmt.Errorf("%w: rates must not be negative", shared.ErrValidation)
		}
	}
	return s.repo.UpdatePolicy(ctx, ownerID, input)
}

// Resolve returns the tiered price for the requested plan and duration. The
// tier value is the session cost itself; it is not scaled by minutes.
func Resolve(policy *RatePolicy, plan Plan, durationMinutes int) (money.Money, error) {
	if plan == "" {
		plan = PlanRegular
	}
	if plan != PlanRegular && plan != PlanDiscount {
		return money.Money{}, fmt.Errorf("%w: unknown billing plan %q", shared.ErrValidation, plan)
	}
	switch durationMinutes {
	case 30, 45, 60:
	default:
		return money.Money{}, fmt.Errorf("%w: %d minutes", shared.ErrUnsupportedDuration, durationMinutes)
	}
	tier, ok := policy.Tier(plan, durationMinutes)
	if !ok || !tier.IsPositive() {
		return money.Money{}, fmt.Errorf("%w: %s/%d", shared.ErrRateNotConfigured, plan, durationMinutes)
	}
	return tier, nil
}

// LegacyCost computes (duration/60) x hourly rate, rounded to cents. The
// second result is false when either input is not positive, in which case
// the session has no computable cost.
func LegacyCost(durationMinutes int, hourlyRate money.Money) (money.Money, bool) {
	if durationMinutes <= 0 || !hourlyRate.IsPositive() {
		return money.Money{}, false
	}
	hours := money.FromInt(int64(durationMinutes)).Div(money.FromInt(60))
	return hours.Mul(hourlyRate).Round(), true
}
