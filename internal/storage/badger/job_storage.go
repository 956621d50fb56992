// -----------------------------------------------------------------------
// Job queue storage - single-flight enqueue and atomic dequeue claim
// -----------------------------------------------------------------------

package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger.
//
// Badgerhold has no conditional update, so the check-then-write sections of
// Enqueue and DequeueNext run under a storage-level mutex. Badger is a
// single-process store, so an in-process lock is the full correctness
// envelope here: with it held, two workers can never claim the same job and
// two enqueues can never both insert for one ticker.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// Enqueue inserts the job unless an active job for the ticker exists.
func (s *JobStorage) Enqueue(ctx context.Context, job *models.AnalysisJob, force bool) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, fmt.Errorf("invalid job: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.findActiveJobs(job.Ticker)
	if err != nil {
		return false, err
	}

	if len(active) > 0 {
		if !force {
			s.logger.Debug().
				Str("ticker", job.Ticker).
				Str("existing_job", active[0].ID).
				Msg("Enqueue skipped, active job exists")
			return false, nil
		}

		// Force supersedes: cancel every active job before inserting
		for i := range active {
			active[i].MarkCancelled()
			if err := s.db.Store().Update(active[i].ID, &active[i]); err != nil {
				return false, fmt.Errorf("failed to cancel superseded job %s: %w", active[i].ID, err)
			}
		}
		s.logger.Info().
			Str("ticker", job.Ticker).
			Int("cancelled", len(active)).
			Msg("Superseded active jobs for forced enqueue")
	}

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return false, fmt.Errorf("failed to insert job: %w", err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("ticker", job.Ticker).
		Str("priority", string(job.Priority)).
		Str("source", job.Source).
		Msg("Job enqueued")

	return true, nil
}

// DequeueNext atomically claims the oldest eligible pending job.
func (s *JobStorage) DequeueNext(ctx context.Context) (*models.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	var jobs []models.AnalysisJob
	query := badgerhold.Where("Status").Eq(models.JobStatusPending).
		And("ScheduledAt").Le(now).
		SortBy("PriorityRank", "ScheduledAt", "CreatedAt").
		Limit(1)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, interfaces.ErrNoJob
	}

	job := jobs[0]
	job.MarkStarted()
	if err := s.db.Store().Update(job.ID, &job); err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("ticker", job.Ticker).
		Str("priority", string(job.Priority)).
		Int("retry_count", job.RetryCount).
		Msg("Job dequeued")

	return &job, nil
}

// MarkCompleted records terminal success for a job
func (s *JobStorage) MarkCompleted(ctx context.Context, jobID string) error {
	return s.mutate(jobID, func(job *models.AnalysisJob) {
		job.MarkCompleted()
	})
}

// MarkFailed records terminal failure for a job
func (s *JobStorage) MarkFailed(ctx context.Context, jobID string, errorMessage string) error {
	return s.mutate(jobID, func(job *models.AnalysisJob) {
		job.MarkFailed(errorMessage)
	})
}

// MarkRetry reschedules the job after delay, or fails it terminally once
// the retry budget is exhausted.
func (s *JobStorage) MarkRetry(ctx context.Context, jobID string, errorMessage string, delay time.Duration) error {
	var terminal bool
	err := s.mutate(jobID, func(job *models.AnalysisJob) {
		job.MarkRetry(errorMessage, delay)
		terminal = job.Status == models.JobStatusFailed
	})
	if err != nil {
		return err
	}
	if terminal {
		s.logger.Warn().
			Str("job_id", jobID).
			Str("error", errorMessage).
			Msg("Job retries exhausted, marked failed")
	}
	return nil
}

// UpdateStep records the current pipeline phase on the job row
func (s *JobStorage) UpdateStep(ctx context.Context, jobID string, phase, substep, progress string) error {
	return s.mutate(jobID, func(job *models.AnalysisJob) {
		job.SetStep(phase, substep, progress)
	})
}

// GetJob fetches a job by ID
func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &job, nil
}

// GetActiveJob returns the pending or processing job for a ticker
func (s *JobStorage) GetActiveJob(ctx context.Context, ticker string) (*models.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.findActiveJobs(ticker)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &active[0], nil
}

// GetLatestJob returns the most recently created job for a ticker
func (s *JobStorage) GetLatestJob(ctx context.Context, ticker string) (*models.AnalysisJob, error) {
	var jobs []models.AnalysisJob
	query := badgerhold.Where("Ticker").Eq(ticker).SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query jobs for %s: %w", ticker, err)
	}
	if len(jobs) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &jobs[0], nil
}

// ListJobs returns jobs matching the options, newest first
func (s *JobStorage) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.AnalysisJob, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Ticker != "" {
			query = query.And("Ticker").Eq(opts.Ticker)
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()
	if opts != nil {
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	var jobs []models.AnalysisJob
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.AnalysisJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// CancelActiveJobs cancels all pending/processing jobs for a ticker
func (s *JobStorage) CancelActiveJobs(ctx context.Context, ticker string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.findActiveJobs(ticker)
	if err != nil {
		return 0, err
	}

	for i := range active {
		active[i].MarkCancelled()
		if err := s.db.Store().Update(active[i].ID, &active[i]); err != nil {
			return i, fmt.Errorf("failed to cancel job %s: %w", active[i].ID, err)
		}
	}

	if len(active) > 0 {
		s.logger.Info().
			Str("ticker", ticker).
			Int("cancelled", len(active)).
			Msg("Cancelled active jobs")
	}

	return len(active), nil
}

// findActiveJobs returns pending/processing jobs for a ticker.
// Caller must hold s.mu.
func (s *JobStorage) findActiveJobs(ticker string) ([]models.AnalysisJob, error) {
	var jobs []models.AnalysisJob
	query := badgerhold.Where("Ticker").Eq(ticker).
		And("Status").In(models.JobStatusPending, models.JobStatusProcessing)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query active jobs for %s: %w", ticker, err)
	}
	return jobs, nil
}

// mutate applies fn to the stored job and writes it back. A job that has
// already reached a terminal status is left untouched: a forced enqueue can
// cancel a job while its worker is still running, and the worker's
// completion or retry write must not revive the cancelled row alongside
// the superseding pending job.
func (s *JobStorage) mutate(jobID string, fn func(*models.AnalysisJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var job models.AnalysisJob
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get job %s: %w", jobID, err)
	}

	if job.IsTerminal() {
		s.logger.Warn().
			Str("job_id", jobID).
			Str("ticker", job.Ticker).
			Str("status", string(job.Status)).
			Msg("Ignoring update to terminal job")
		return nil
	}

	fn(&job)

	if err := s.db.Store().Update(jobID, &job); err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}
