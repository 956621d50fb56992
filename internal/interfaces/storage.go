package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/aestimo/internal/models"
)

// ErrNoJob is returned by DequeueNext when no job is eligible.
var ErrNoJob = errors.New("no eligible job")

// ErrNotFound is returned by lookups that found no row.
var ErrNotFound = errors.New("not found")

// JobListOptions filters job listings
type JobListOptions struct {
	Ticker string
	Status models.JobStatus
	Limit  int
	Offset int
}

// JobStorage persists analysis jobs and implements the queue contract.
//
// Enqueue and DequeueNext are the concurrency-sensitive operations: Enqueue
// must check for an existing active job and insert atomically (single-flight),
// and DequeueNext must claim atomically so two workers can never take the
// same job.
type JobStorage interface {
	// Enqueue inserts the job unless an active job for the ticker already
	// exists. Returns false (skipped) in that case unless force is set, in
	// which case existing active jobs are cancelled first.
	Enqueue(ctx context.Context, job *models.AnalysisJob, force bool) (bool, error)

	// DequeueNext atomically claims the oldest eligible pending job,
	// ordered by priority, then scheduled time, then creation time.
	// Returns ErrNoJob when nothing is eligible.
	DequeueNext(ctx context.Context) (*models.AnalysisJob, error)

	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, errorMessage string) error
	// MarkRetry reschedules the job after delay, or fails it terminally once
	// its retry budget is exhausted.
	MarkRetry(ctx context.Context, jobID string, errorMessage string, delay time.Duration) error

	UpdateStep(ctx context.Context, jobID string, phase, substep, progress string) error

	GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error)
	// GetActiveJob returns the pending or processing job for a ticker,
	// or ErrNotFound.
	GetActiveJob(ctx context.Context, ticker string) (*models.AnalysisJob, error)
	// GetLatestJob returns the most recently created job for a ticker in any
	// state, or ErrNotFound.
	GetLatestJob(ctx context.Context, ticker string) (*models.AnalysisJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.AnalysisJob, error)

	// CancelActiveJobs cancels all pending/processing jobs for a ticker and
	// returns how many were cancelled.
	CancelActiveJobs(ctx context.Context, ticker string) (int, error)
}

// StockStorage persists tracked stocks and their completion flags
type StockStorage interface {
	Upsert(ctx context.Context, stock *models.Stock) error
	Get(ctx context.Context, ticker string) (*models.Stock, error)
	List(ctx context.Context) ([]*models.Stock, error)
	// ListIncomplete returns stocks with at least one completion flag unset.
	ListIncomplete(ctx context.Context) ([]*models.Stock, error)
	SetCompletionFlags(ctx context.Context, ticker string, micro, macro, combined bool) error
	UpdatePrice(ctx context.Context, ticker string, price, previousClose float64) error
}

// AnalysisStorage persists the combined per-ticker analysis snapshot
type AnalysisStorage interface {
	Upsert(ctx context.Context, analysis *models.StockAnalysis) error
	Get(ctx context.Context, ticker string) (*models.StockAnalysis, error)
	// ListCompleted returns completed snapshots ordered by integrated score
	// descending, up to limit (0 = no limit).
	ListCompleted(ctx context.Context, limit int) ([]*models.StockAnalysis, error)
}

// MacroStorage persists shared sector assessments
type MacroStorage interface {
	Save(ctx context.Context, macro *models.MacroAnalysis) error
	GetByID(ctx context.Context, id string) (*models.MacroAnalysis, error)
	// GetCurrent returns the newest snapshot for the sector no older than
	// maxAge, or ErrNotFound. An empty sector means general market.
	GetCurrent(ctx context.Context, sector string, maxAge time.Duration) (*models.MacroAnalysis, error)
}

// BriefStorage persists daily brief digests
type BriefStorage interface {
	Save(ctx context.Context, brief *models.DailyBrief) error
	GetByDate(ctx context.Context, date string) (*models.DailyBrief, error)
}

// StorageManager provides access to all storage backends
type StorageManager interface {
	JobStorage() JobStorage
	StockStorage() StockStorage
	AnalysisStorage() AnalysisStorage
	MacroStorage() MacroStorage
	BriefStorage() BriefStorage
	Close() error
}
