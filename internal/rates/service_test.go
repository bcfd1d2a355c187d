package rates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/shared"
)

func TestResolveTierGrid(t *testing.T) {
	policy := DefaultPolicy(1)

	cost, err := Resolve(&policy, PlanRegular, 60)
	require.NoError(t, err)
	require.Equal(t, "60.00", cost.String())

	cost, err = Resolve(&policy, PlanDiscount, 45)
	require.NoError(t, err)
	require.Equal(t, "45.00", cost.String())

	// An empty plan defaults to regular.
	cost, err = Resolve(&policy, "", 30)
	require.NoError(t, err)
	require.Equal(t, "30.00", cost.String())
}

func TestResolveUnknownPlan(t *testing.T) {
	policy := DefaultPolicy(1)
	_, err := Resolve(&policy, "premium", 60)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestResolveUnsupportedDuration(t *testing.T) {
	policy := DefaultPolicy(1)
	for _, minutes := range []int{0, 15, 50, 90} {
		_, err := Resolve(&policy, PlanRegular, minutes)
		require.ErrorIs(t, err, shared.ErrUnsupportedDuration, "duration %d", minutes)
	}
}

func TestResolveUnconfiguredTier(t *testing.T) {
	policy := DefaultPolicy(1)
	policy.DiscountRate30 = money.Zero()
	_, err := Resolve(&policy, PlanDiscount, 30)
	require.ErrorIs(t, err, shared.ErrRateNotConfigured)
}

func TestLegacyCost(t *testing.T) {
	rate := money.MustParse("60.00")

	cost, ok := LegacyCost(90, rate)
	require.True(t, ok)
	require.Equal(t, "90.00", cost.String())

	cost, ok = LegacyCost(45, money.MustParse("80.00"))
	require.True(t, ok)
	require.Equal(t, "60.00", cost.String())

	_, ok = LegacyCost(0, rate)
	require.False(t, ok)
	_, ok = LegacyCost(60, money.Zero())
	require.False(t, ok)
}

type stubPolicyRepo struct {
	policy  RatePolicy
	updated *UpdatePolicyInput
}

func (s *stubPolicyRepo) GetOrCreatePolicy(context.Context, int64) (*RatePolicy, error) {
	p := s.policy
	return &p, nil
}

func (s *stubPolicyRepo) UpdatePolicy(_ context.Context, _ int64, input UpdatePolicyInput) (*RatePolicy, error) {
	s.updated = &input
	p := s.policy
	return &p, nil
}

func TestUpdatePolicyRejectsNegativeRates(t *testing.T) {
	repo := &stubPolicyRepo{policy: DefaultPolicy(1)}
	svc := NewService(repo)

	bad := money.MustParse("-1.00")
	_, err := svc.UpdatePolicy(context.Background(), 1, UpdatePolicyInput{HourlyRate: &bad})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Nil(t, repo.updated)

	good := money.MustParse("75.00")
	_, err = svc.UpdatePolicy(context.Background(), 1, UpdatePolicyInput{HourlyRate: &good})
	require.NoError(t, err)
	require.NotNil(t, repo.updated)
}
