package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/corebox-crm/corebox/internal/billing"
	"github.com/corebox-crm/corebox/internal/students"
)

// Repository exposes the ledger reads the reports are computed from.
// Reports load an owner's rows and aggregate in memory; owners are single
// tutors, so row counts stay small.
type Repository interface {
	InvoicesByOwner(ctx context.Context, ownerID int64) ([]billing.Invoice, error)
	PaymentsByOwner(ctx context.Context, ownerID int64) ([]billing.Payment, error)
	SessionsByOwner(ctx context.Context, ownerID int64) ([]billing.Session, error)
	StudentsByOwner(ctx context.Context, ownerID int64) ([]students.Student, error)
}

// Service coordinates report computation with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// asOfDate normalises the reporting date to a UTC day boundary.
func (s *Service) asOfDate(asOf time.Time) time.Time {
	if asOf.IsZero() {
		asOf = s.now()
	}
	return asOf.UTC().Truncate(24 * time.Hour)
}

// cached loads a report through the version-keyed cache, or directly when
// no cache is configured.
func cached[T any](ctx context.Context, c *Cache, keyBase string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return loader(ctx)
	}
	key, err := c.BuildKey(ctx, keyBase)
	if err != nil {
		return zero, err
	}
	var out T
	err = c.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return zero, err
	}
	return out, nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
