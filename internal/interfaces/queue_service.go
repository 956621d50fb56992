package interfaces

import (
	"context"

	"github.com/ternarybob/aestimo/internal/models"
)

// QueueService is the enqueue-side contract exposed to triggers and any
// future API layer.
type QueueService interface {
	// Enqueue requests analysis for a ticker. Returns the job and true when
	// a new job was created, or the existing active job and false when the
	// call was skipped by the single-flight guarantee. force supersedes any
	// active job instead of skipping.
	Enqueue(ctx context.Context, ticker, source string, priority models.JobPriority, force bool) (*models.AnalysisJob, bool, error)

	// GetJobStatus returns the most recent job for a ticker, or ErrNotFound.
	GetJobStatus(ctx context.Context, ticker string) (*models.AnalysisJob, error)

	GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error)

	// CancelJobs cancels any active jobs for the ticker.
	CancelJobs(ctx context.Context, ticker string) (int, error)
}

// AnalysisReader is the read-side contract for analysis results
type AnalysisReader interface {
	GetLatestAnalysis(ctx context.Context, ticker string) (*models.StockAnalysis, error)
	GetMacroAnalysis(ctx context.Context, sector string) (*models.MacroAnalysis, error)
}
