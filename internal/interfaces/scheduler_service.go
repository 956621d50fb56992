package interfaces

import (
	"context"
	"time"
)

// HealthStatus classifies a trigger's operational state
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown" // Never run since process start
)

// TriggerStatus is the externally observable state of one recurring trigger.
// Counters are process-scoped and reset on restart.
type TriggerStatus struct {
	Name           string       `json:"name"`
	Schedule       string       `json:"schedule"`
	Enabled        bool         `json:"enabled"`
	Running        bool         `json:"running"`
	LastRunTime    time.Time    `json:"last_run_time"`
	LastRunSuccess bool         `json:"last_run_success"`
	LastError      string       `json:"last_error,omitempty"`
	NextRunTime    time.Time    `json:"next_run_time"`
	RunCount       int          `json:"run_count"`
	ErrorCount     int          `json:"error_count"`
	SkippedCount   int          `json:"skipped_count"`
	Health         HealthStatus `json:"health"`
}

// TriggerFunc is a recurring trigger callback. A returned error marks the
// run as failed; it never stops future ticks.
type TriggerFunc func(ctx context.Context) error

// SchedulerService manages cron-style recurring triggers with overlap
// protection and health monitoring.
type SchedulerService interface {
	// RegisterTrigger adds a named trigger. cadence is the expected interval
	// between runs and drives the staleness health check (unhealthy beyond
	// 2x cadence). Must be called before Start.
	RegisterTrigger(name, schedule string, cadence time.Duration, fn TriggerFunc) error

	Start(ctx context.Context) error
	Stop()

	// TriggerNow runs a trigger out of schedule, honoring its overlap guard.
	TriggerNow(name string) error

	// GetStatus reports every registered trigger's current state.
	GetStatus() []TriggerStatus
}
