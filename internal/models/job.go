// -----------------------------------------------------------------------
// Analysis Job - Durable unit of work for the per-ticker analysis queue
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an analysis job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled" // Superseded by a forced re-enqueue
)

// JobPriority orders jobs in the queue
type JobPriority string

const (
	JobPriorityHigh   JobPriority = "high"
	JobPriorityNormal JobPriority = "normal"
	JobPriorityLow    JobPriority = "low"
)

// DefaultMaxRetries is the retry budget applied to new jobs unless
// overridden by queue configuration.
const DefaultMaxRetries = 3

// Rank returns the dequeue sort rank for the priority (lower dequeues first).
func (p JobPriority) Rank() int {
	switch p {
	case JobPriorityHigh:
		return 1
	case JobPriorityLow:
		return 3
	default:
		return 2
	}
}

// Valid reports whether the priority is one of the known values.
func (p JobPriority) Valid() bool {
	switch p {
	case JobPriorityHigh, JobPriorityNormal, JobPriorityLow:
		return true
	}
	return false
}

// StepDetails carries per-phase progress for observability
type StepDetails struct {
	Phase    string `json:"phase"`              // Pipeline phase, e.g. "fetching_data"
	Substep  string `json:"substep,omitempty"`  // e.g. "fundamentals"
	Progress string `json:"progress,omitempty"` // Free-form marker, e.g. "3/5"
}

// AnalysisJob is a durable analysis request for one ticker.
//
// Lifecycle: created pending -> claimed processing -> completed, or back to
// pending with an incremented retry count and a pushed-out ScheduledAt, or
// failed once the retry budget is exhausted. A forced re-enqueue moves any
// non-terminal job to cancelled.
//
// At most one job per ticker may be pending or processing at a time.
type AnalysisJob struct {
	ID       string      `json:"id" badgerhold:"key"`
	Ticker   string      `json:"ticker"`
	Source   string      `json:"source"` // Provenance tag: "manual", "background", "reconciliation"
	Priority JobPriority `json:"priority"`

	// PriorityRank mirrors Priority as a sortable integer so the store can
	// order a dequeue scan without mapping strings.
	PriorityRank int `json:"priority_rank"`

	Status     JobStatus `json:"status"`
	RetryCount int       `json:"retry_count"`
	MaxRetries int       `json:"max_retries"`

	ScheduledAt time.Time  `json:"scheduled_at"` // Not eligible for dequeue before this time
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CurrentStep  string      `json:"current_step,omitempty"`
	StepDetails  StepDetails `json:"step_details,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// NewAnalysisJob creates a pending job for the given ticker, eligible for
// dequeue immediately.
func NewAnalysisJob(ticker, source string, priority JobPriority) *AnalysisJob {
	if !priority.Valid() {
		priority = JobPriorityNormal
	}
	now := time.Now().UTC()
	return &AnalysisJob{
		ID:           uuid.New().String(),
		Ticker:       ticker,
		Source:       source,
		Priority:     priority,
		PriorityRank: priority.Rank(),
		Status:       JobStatusPending,
		RetryCount:   0,
		MaxRetries:   DefaultMaxRetries,
		ScheduledAt:  now,
		CreatedAt:    now,
	}
}

// Validate checks the job is structurally sound before persistence
func (j *AnalysisJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.Ticker == "" {
		return fmt.Errorf("job ticker is required")
	}
	if !j.Priority.Valid() {
		return fmt.Errorf("invalid job priority: %s", j.Priority)
	}
	if j.RetryCount < 0 {
		return fmt.Errorf("retry count cannot be negative")
	}
	return nil
}

// IsTerminal reports whether the job has reached a final state
func (j *AnalysisJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the job counts against the single-flight guarantee
func (j *AnalysisJob) IsActive() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}

// MarkStarted transitions the job to processing
func (j *AnalysisJob) MarkStarted() {
	now := time.Now().UTC()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
}

// MarkCompleted transitions the job to its terminal success state
func (j *AnalysisJob) MarkCompleted() {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.ErrorMessage = ""
}

// MarkFailed transitions the job to its terminal failure state
func (j *AnalysisJob) MarkFailed(errorMessage string) {
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.ErrorMessage = errorMessage
}

// MarkCancelled records that the job was superseded by a forced re-enqueue
func (j *AnalysisJob) MarkCancelled() {
	now := time.Now().UTC()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
}

// MarkRetry increments the retry count and reschedules the job after the
// given delay, or fails it terminally once the budget is exhausted.
func (j *AnalysisJob) MarkRetry(errorMessage string, delay time.Duration) {
	j.RetryCount++
	j.ErrorMessage = errorMessage
	if j.RetryCount >= j.MaxRetries {
		now := time.Now().UTC()
		j.Status = JobStatusFailed
		j.CompletedAt = &now
		return
	}
	j.Status = JobStatusPending
	j.ScheduledAt = time.Now().UTC().Add(delay)
	j.StartedAt = nil
}

// SetStep records the current pipeline phase for observability
func (j *AnalysisJob) SetStep(phase, substep, progress string) {
	j.CurrentStep = phase
	j.StepDetails = StepDetails{
		Phase:    phase,
		Substep:  substep,
		Progress: progress,
	}
}

// ToJSON serializes the job for logging and diagnostics
func (j *AnalysisJob) ToJSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}
	return string(data), nil
}

// JobFromJSON deserializes a job from its JSON form
func JobFromJSON(data string) (*AnalysisJob, error) {
	var job AnalysisJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
