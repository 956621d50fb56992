// -----------------------------------------------------------------------
// Queue worker - polls the persisted queue and runs the pipeline
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/analysis"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

// JobRunner executes one claimed job end to end.
type JobRunner interface {
	Run(ctx context.Context, job *models.AnalysisJob) error
}

// Worker drains the job queue with a fixed pool of goroutines. Polling
// backs off when the queue is empty.
type Worker struct {
	storage     interfaces.StorageManager
	runner      JobRunner
	concurrency int
	activePoll  time.Duration
	idlePoll    time.Duration
	logger      arbor.ILogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorker creates a worker pool over the given runner.
func NewWorker(storage interfaces.StorageManager, runner JobRunner, concurrency int, activePoll, idlePoll time.Duration, logger arbor.ILogger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if activePoll <= 0 {
		activePoll = 2 * time.Second
	}
	if idlePoll <= 0 {
		idlePoll = 10 * time.Second
	}
	return &Worker{
		storage:     storage,
		runner:      runner,
		concurrency: concurrency,
		activePoll:  activePoll,
		idlePoll:    idlePoll,
		logger:      logger,
	}
}

// Start launches the worker goroutines. They run until Stop or until the
// parent context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info().
		Int("concurrency", w.concurrency).
		Str("active_poll", w.activePoll.String()).
		Str("idle_poll", w.idlePoll.String()).
		Msg("Starting queue workers")

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info().Msg("Queue workers stopped")
}

func (w *Worker) run(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		job, err := w.storage.JobStorage().DequeueNext(ctx)
		switch {
		case errors.Is(err, interfaces.ErrNoJob):
			if !w.sleep(ctx, w.idlePoll) {
				return
			}
			continue
		case err != nil:
			w.logger.Error().Int("worker", id).Err(err).Msg("Dequeue failed")
			if !w.sleep(ctx, w.idlePoll) {
				return
			}
			continue
		}

		w.process(ctx, id, job)

		if !w.sleep(ctx, w.activePoll) {
			return
		}
	}
}

// process runs one job and settles its final state. A panic in the
// pipeline is contained to the job and handled like any other failure.
func (w *Worker) process(ctx context.Context, id int, job *models.AnalysisJob) {
	err := w.runJob(ctx, job)

	switch {
	case err == nil:
		if err := w.storage.JobStorage().MarkCompleted(ctx, job.ID); err != nil {
			w.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to mark job completed")
		}

	case errors.Is(err, analysis.ErrSuperseded):
		// The job was cancelled mid-run; the superseding job owns the
		// ticker now, so leave the cancelled row alone.
		w.logger.Info().
			Int("worker", id).
			Str("job_id", job.ID).
			Str("ticker", job.Ticker).
			Msg("Job superseded, result dropped")

	default:
		delay := Backoff(job.RetryCount)
		w.logger.Warn().
			Int("worker", id).
			Str("job_id", job.ID).
			Str("ticker", job.Ticker).
			Int("retry_count", job.RetryCount).
			Str("retry_delay", delay.String()).
			Err(err).
			Msg("Job failed")
		if err := w.storage.JobStorage().MarkRetry(ctx, job.ID, err.Error(), delay); err != nil {
			w.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to mark job for retry")
		}
	}
}

func (w *Worker) runJob(ctx context.Context, job *models.AnalysisJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return w.runner.Run(ctx, job)
}

// sleep waits for d or context cancellation, reporting whether to continue.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
