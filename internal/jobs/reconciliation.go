// -----------------------------------------------------------------------
// Reconciliation - audits completion flags against the analysis store
// and the job queue, repairing or re-queuing as needed
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

// Reconciliation finds tracked stocks whose completion flags disagree with
// reality. A stock can be left incomplete by a crash between pipeline
// persistence steps, or by a job that exhausted its retries.
type Reconciliation struct {
	storage interfaces.StorageManager
	queue   interfaces.QueueService
	logger  arbor.ILogger
}

// NewReconciliation creates the reconciliation job.
func NewReconciliation(storage interfaces.StorageManager, queue interfaces.QueueService, logger arbor.ILogger) *Reconciliation {
	return &Reconciliation{
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

// Run audits every incomplete stock. Three outcomes per stock:
//   - an active job exists: the queue is already on it, leave it alone
//   - a completed analysis exists: the flags are wrong, repair them in
//     place without burning an analysis run
//   - otherwise: queue a low-priority re-run
func (r *Reconciliation) Run(ctx context.Context) error {
	incomplete, err := r.storage.StockStorage().ListIncomplete(ctx)
	if err != nil {
		return fmt.Errorf("listing incomplete stocks: %w", err)
	}

	repaired, queued, inFlight := 0, 0, 0
	for _, stock := range incomplete {
		switch outcome, err := r.reconcile(ctx, stock); {
		case err != nil:
			r.logger.Warn().Str("ticker", stock.Ticker).Err(err).Msg("Reconciliation failed for stock")
		case outcome == outcomeRepaired:
			repaired++
		case outcome == outcomeQueued:
			queued++
		case outcome == outcomeInFlight:
			inFlight++
		}
	}

	r.logger.Info().
		Int("incomplete", len(incomplete)).
		Int("repaired", repaired).
		Int("queued", queued).
		Int("in_flight", inFlight).
		Msg("Reconciliation completed")
	return nil
}

type reconcileOutcome int

const (
	outcomeInFlight reconcileOutcome = iota
	outcomeRepaired
	outcomeQueued
)

func (r *Reconciliation) reconcile(ctx context.Context, stock *models.Stock) (reconcileOutcome, error) {
	if _, err := r.storage.JobStorage().GetActiveJob(ctx, stock.Ticker); err == nil {
		return outcomeInFlight, nil
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return 0, err
	}

	snapshot, err := r.storage.AnalysisStorage().Get(ctx, stock.Ticker)
	if err == nil && snapshot.IsCompleted() {
		if err := r.storage.StockStorage().SetCompletionFlags(ctx, stock.Ticker, true, true, true); err != nil {
			return 0, err
		}
		r.logger.Info().Str("ticker", stock.Ticker).Msg("Repaired completion flags from existing analysis")
		return outcomeRepaired, nil
	}
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return 0, err
	}

	if _, created, err := r.queue.Enqueue(ctx, stock.Ticker, "reconciliation", models.JobPriorityLow, false); err != nil {
		return 0, err
	} else if !created {
		return outcomeInFlight, nil
	}

	r.logger.Info().Str("ticker", stock.Ticker).Msg("Queued re-analysis for incomplete stock")
	return outcomeQueued, nil
}
