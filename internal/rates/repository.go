package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebox-crm/corebox/internal/money"
)

// Repository provides PostgreSQL backed persistence for rate policies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const policyColumns = `id, owner_id, hourly_rate, half_hour_rate,
	regular_rate_60, regular_rate_45, regular_rate_30,
	discount_rate_60, discount_rate_45, discount_rate_30,
	created_at, updated_at`

// GetOrCreatePolicy loads the owner's policy, inserting the defaults when
// none exists yet.
func (r *Repository) GetOrCreatePolicy(ctx context.Context, ownerID int64) (*RatePolicy, error) {
	policy, err := r.getPolicy(ctx, ownerID)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	defaults := DefaultPolicy(ownerID)
	query := `
		INSERT INTO rate_policies (
			owner_id, hourly_rate, half_hour_rate,
			regular_rate_60, regular_rate_45, regular_rate_30,
			discount_rate_60, discount_rate_45, discount_rate_30,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (owner_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query,
		ownerID,
		defaults.HourlyRate,
		defaults.HalfHourRate,
		defaults.RegularRate60,
		defaults.RegularRate45,
		defaults.RegularRate30,
		defaults.DiscountRate60,
		defaults.DiscountRate45,
		defaults.DiscountRate30,
	); err != nil {
		return nil, fmt.Errorf("rates: create policy: %w", err)
	}

	// Re-read so a concurrent insert still yields the stored row.
	return r.getPolicy(ctx, ownerID)
}

// UpdatePolicy applies the non-nil fields of input.
func (r *Repository) UpdatePolicy(ctx context.Context, ownerID int64, input UpdatePolicyInput) (*RatePolicy, error) {
	if _, err := r.GetOrCreatePolicy(ctx, ownerID); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{ownerID}
	argNum := 2

	appendSet := func(column string, value *money.Money) {
		if value == nil {
			return
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, *value)
		argNum++
	}
	appendSet("hourly_rate", input.HourlyRate)
	appendSet("half_hour_rate", input.HalfHourRate)
	appendSet("regular_rate_60", input.RegularRate60)
	appendSet("regular_rate_45", input.RegularRate45)
	appendSet("regular_rate_30", input.RegularRate30)
	appendSet("discount_rate_60", input.DiscountRate60)
	appendSet("discount_rate_45", input.DiscountRate45)
	appendSet("discount_rate_30", input.DiscountRate30)

	query := fmt.Sprintf("UPDATE rate_policies SET %s WHERE owner_id = $1", strings.Join(sets, ", "))
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("rates: update policy: %w", err)
	}

	return r.getPolicy(ctx, ownerID)
}

func (r *Repository) getPolicy(ctx context.Context, ownerID int64) (*RatePolicy, error) {
	query := fmt.Sprintf("SELECT %s FROM rate_policies WHERE owner_id = $1", policyColumns)

	var p RatePolicy
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(
		&p.ID, &p.OwnerID, &p.HourlyRate, &p.HalfHourRate,
		&p.RegularRate60, &p.RegularRate45, &p.RegularRate30,
		&p.DiscountRate60, &p.DiscountRate45, &p.DiscountRate30,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
