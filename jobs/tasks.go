// Package jobs holds the background task definitions and the Asynq worker
// wiring.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrityScan re-checks stock and journal invariants.
	TaskIntegrityScan = "integrity:scan"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskPricingWarmup precomputes channel quotes for active variants.
	TaskPricingWarmup = "pricing:warmup"
)

// IntegrityScanPayload bounds the scan window. A zero window scans
// everything.
type IntegrityScanPayload struct {
	Since time.Time `json:"since"`
}

// NewIntegrityScanTask constructs an integrity scan task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityScan, data), nil
}

// IdempotencyCleanupPayload carries the retention window.
type IdempotencyCleanupPayload struct {
	RetainHours int `json:"retain_hours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// PricingWarmupPayload lists warehouses to warm. Empty means all.
type PricingWarmupPayload struct {
	WarehouseIDs []int64 `json:"warehouse_ids"`
}

// NewPricingWarmupTask constructs a warmup task.
func NewPricingWarmupTask(payload PricingWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPricingWarmup, data), nil
}
