package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebox-crm/corebox/internal/analytics"
	jobmetrics "github.com/corebox-crm/corebox/internal/jobs"
)

// AnalyticsWarmupJob pre-populates the report caches for tutor accounts.
type AnalyticsWarmupJob struct {
	Analytics *analytics.Service
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc *analytics.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: analyticsSvc,
		Pool:      pool,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Scope == "" {
		payload.Scope = "active"
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("run_id", payload.RunID), slog.String("scope", payload.Scope))
	logger.Info("starting analytics warmup")

	owners, err := j.fetchOwners(ctx, payload.Scope)
	if err != nil {
		resultErr = err
		logger.Error("load warmup owners", slog.Any("error", err))
		return resultErr
	}
	if len(owners) == 0 {
		logger.Info("no owners discovered for warmup")
		return resultErr
	}

	now := j.now()
	warmed := 0
	for _, ownerID := range owners {
		if err := j.warmOwner(ctx, ownerID, now); err != nil {
			resultErr = err
			logger.Error("warm owner", slog.Int64("owner_id", ownerID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed analytics warmup", slog.Int("owners", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *AnalyticsWarmupJob) warmOwner(ctx context.Context, ownerID int64, now time.Time) error {
	if j.Analytics == nil {
		return nil
	}
	// Cap each owner so a slow account cannot stall the whole run.
	ownerCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := j.Analytics.GetAgingSummary(ownerCtx, ownerID, now); err != nil {
		return err
	}
	if _, err := j.Analytics.GetPipelineSummary(ownerCtx, ownerID, now); err != nil {
		return err
	}
	if _, err := j.Analytics.GetPaymentAnalytics(ownerCtx, ownerID, now); err != nil {
		return err
	}
	if _, err := j.Analytics.GetStudentAnalytics(ownerCtx, ownerID, now); err != nil {
		return err
	}
	return nil
}

func (j *AnalyticsWarmupJob) fetchOwners(ctx context.Context, scope string) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("analytics warmup: pool not configured")
	}
	query := `SELECT DISTINCT owner_id FROM students ORDER BY owner_id`
	if scope == "active" {
		query = `SELECT DISTINCT owner_id FROM students WHERE is_active ORDER BY owner_id`
	}
	rows, err := j.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]int64, 0)
	for rows.Next() {
		var ownerID int64
		if err := rows.Scan(&ownerID); err != nil {
			return nil, err
		}
		owners = append(owners, ownerID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return owners, nil
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
