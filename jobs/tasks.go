// Package jobs hosts the asynchronous task definitions and the worker
// runtime. The scheduler enqueues a nightly overdue sweep and a report
// cache warmup.
package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillingOverdueSweep flips past-due open invoices to overdue.
	TaskBillingOverdueSweep = "billing:overdue_sweep"
	// TaskAnalyticsWarmup pre-populates the report caches per owner.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// OverdueSweepPayload parameterises an overdue sweep run. RunID correlates
// log lines across retries of the same scheduled run.
type OverdueSweepPayload struct {
	RunID string `json:"run_id"`
}

// NewOverdueSweepTask constructs an overdue sweep task.
func NewOverdueSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(OverdueSweepPayload{RunID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingOverdueSweep, data), nil
}

// AnalyticsWarmupPayload parameterises a warmup run. Scope "active" warms
// owners with active students only.
type AnalyticsWarmupPayload struct {
	RunID string `json:"run_id"`
	Scope string `json:"scope"`
}

// NewAnalyticsWarmupTask constructs a cache warmup task.
func NewAnalyticsWarmupTask(scope string) (*asynq.Task, error) {
	if scope == "" {
		scope = "active"
	}
	data, err := json.Marshal(AnalyticsWarmupPayload{RunID: uuid.NewString(), Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}
