// -----------------------------------------------------------------------
// Queue service - enqueue-side API over the persisted job queue
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

// Service exposes the job queue to triggers and any future API layer.
// Ticker normalization happens here so every caller shares one key space.
type Service struct {
	storage     interfaces.StorageManager
	maxRetries  int
	macroMaxAge time.Duration
	logger      arbor.ILogger
}

var (
	_ interfaces.QueueService   = (*Service)(nil)
	_ interfaces.AnalysisReader = (*Service)(nil)
)

// NewService creates the queue service.
func NewService(storage interfaces.StorageManager, maxRetries int, macroMaxAge time.Duration, logger arbor.ILogger) *Service {
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &Service{
		storage:     storage,
		maxRetries:  maxRetries,
		macroMaxAge: macroMaxAge,
		logger:      logger,
	}
}

// Enqueue requests analysis for a ticker. The single-flight guarantee lives
// in storage; this layer normalizes the ticker, fills in queue defaults,
// and resets the tracking rows when a job is actually created.
func (s *Service) Enqueue(ctx context.Context, ticker, source string, priority models.JobPriority, force bool) (*models.AnalysisJob, bool, error) {
	key := common.ParseTicker(ticker).Key()
	if key == "" {
		return nil, false, fmt.Errorf("ticker is required")
	}
	if !priority.Valid() {
		priority = models.JobPriorityNormal
	}

	job := models.NewAnalysisJob(key, source, priority)
	job.MaxRetries = s.maxRetries

	inserted, err := s.storage.JobStorage().Enqueue(ctx, job, force)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		existing, err := s.storage.JobStorage().GetActiveJob(ctx, key)
		if err != nil {
			return nil, false, err
		}
		s.logger.Debug().
			Str("ticker", key).
			Str("source", source).
			Str("active_job_id", existing.ID).
			Msg("Enqueue skipped, analysis already in flight")
		return existing, false, nil
	}

	if err := s.resetTracking(ctx, key); err != nil {
		s.logger.Warn().Str("ticker", key).Err(err).Msg("Failed to reset tracking rows for new job")
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("ticker", key).
		Str("source", source).
		Str("priority", string(priority)).
		Bool("force", force).
		Msg("Analysis job enqueued")

	return job, true, nil
}

// resetTracking marks the ticker as analyzing and clears its completion
// flags so reconciliation sees the re-run in progress.
func (s *Service) resetTracking(ctx context.Context, ticker string) error {
	now := time.Now().UTC()

	snapshot, err := s.storage.AnalysisStorage().Get(ctx, ticker)
	if errors.Is(err, interfaces.ErrNotFound) {
		snapshot = &models.StockAnalysis{Ticker: ticker}
	} else if err != nil {
		return err
	}
	snapshot.Status = models.AnalysisStatusAnalyzing
	snapshot.ErrorMessage = ""
	snapshot.UpdatedAt = now
	if err := s.storage.AnalysisStorage().Upsert(ctx, snapshot); err != nil {
		return err
	}

	stock, err := s.storage.StockStorage().Get(ctx, ticker)
	if errors.Is(err, interfaces.ErrNotFound) {
		stock = &models.Stock{Ticker: ticker}
	} else if err != nil {
		return err
	}
	stock.ClearCompletionFlags()
	stock.UpdatedAt = now
	return s.storage.StockStorage().Upsert(ctx, stock)
}

// GetJobStatus returns the most recent job for a ticker in any state.
func (s *Service) GetJobStatus(ctx context.Context, ticker string) (*models.AnalysisJob, error) {
	return s.storage.JobStorage().GetLatestJob(ctx, common.ParseTicker(ticker).Key())
}

// GetJob returns a job by ID.
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error) {
	return s.storage.JobStorage().GetJob(ctx, jobID)
}

// CancelJobs cancels any active jobs for the ticker.
func (s *Service) CancelJobs(ctx context.Context, ticker string) (int, error) {
	key := common.ParseTicker(ticker).Key()
	cancelled, err := s.storage.JobStorage().CancelActiveJobs(ctx, key)
	if err != nil {
		return 0, err
	}
	if cancelled > 0 {
		s.logger.Info().Str("ticker", key).Int("cancelled", cancelled).Msg("Cancelled active jobs")
	}
	return cancelled, nil
}

// GetLatestAnalysis returns the persisted snapshot for a ticker.
func (s *Service) GetLatestAnalysis(ctx context.Context, ticker string) (*models.StockAnalysis, error) {
	return s.storage.AnalysisStorage().Get(ctx, common.ParseTicker(ticker).Key())
}

// GetMacroAnalysis returns the current macro snapshot for a sector.
func (s *Service) GetMacroAnalysis(ctx context.Context, sector string) (*models.MacroAnalysis, error) {
	return s.storage.MacroStorage().GetCurrent(ctx, sector, s.macroMaxAge)
}
