// -----------------------------------------------------------------------
// Candidate refresh - screens the market for stocks worth tracking and
// feeds new or stale ones into the analysis queue
// -----------------------------------------------------------------------

package jobs

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

const (
	// Screener floors keep penny stocks and illiquid names out
	screenerMinMarketCap = 500_000_000
	screenerMinVolume    = 200_000

	hourlyScreenLimit = 25
	dailyScreenLimit  = 100

	// Tracked stocks with no analysis newer than this get re-queued by
	// the daily sweep
	staleAnalysisAge = 24 * time.Hour
)

// CandidateRefresh keeps the tracked universe current.
type CandidateRefresh struct {
	market   interfaces.MarketDataProvider
	storage  interfaces.StorageManager
	queue    interfaces.QueueService
	exchange string
	logger   arbor.ILogger
}

// NewCandidateRefresh creates the refresh job for one exchange.
func NewCandidateRefresh(market interfaces.MarketDataProvider, storage interfaces.StorageManager, queue interfaces.QueueService, exchange string, logger arbor.ILogger) *CandidateRefresh {
	if exchange == "" {
		exchange = common.DefaultExchange
	}
	return &CandidateRefresh{
		market:   market,
		storage:  storage,
		queue:    queue,
		exchange: exchange,
		logger:   logger,
	}
}

// RunHourly screens the top of the market and queues tickers we have never
// seen. Known tickers are left alone; the daily sweep handles staleness.
func (c *CandidateRefresh) RunHourly(ctx context.Context) error {
	added, err := c.screenAndTrack(ctx, hourlyScreenLimit)
	if err != nil {
		return err
	}
	c.logger.Info().Int("new_candidates", added).Msg("Hourly candidate refresh completed")
	return nil
}

// RunDaily does the wide sweep: a larger screen for new names plus a
// re-queue of every tracked stock whose analysis has gone stale.
func (c *CandidateRefresh) RunDaily(ctx context.Context) error {
	added, err := c.screenAndTrack(ctx, dailyScreenLimit)
	if err != nil {
		return err
	}

	stocks, err := c.storage.StockStorage().List(ctx)
	if err != nil {
		return fmt.Errorf("listing tracked stocks: %w", err)
	}

	requeued := 0
	for _, stock := range stocks {
		stale, err := c.isStale(ctx, stock)
		if err != nil {
			c.logger.Warn().Str("ticker", stock.Ticker).Err(err).Msg("Staleness check failed")
			continue
		}
		if !stale {
			continue
		}
		if _, created, err := c.queue.Enqueue(ctx, stock.Ticker, "background", models.JobPriorityLow, false); err != nil {
			c.logger.Warn().Str("ticker", stock.Ticker).Err(err).Msg("Failed to queue stale stock")
		} else if created {
			requeued++
		}
	}

	c.logger.Info().
		Int("new_candidates", added).
		Int("requeued_stale", requeued).
		Int("tracked", len(stocks)).
		Msg("Daily candidate refresh completed")
	return nil
}

// screenAndTrack runs the screener and starts tracking hits we do not
// know yet. Each new stock is queued at normal priority.
func (c *CandidateRefresh) screenAndTrack(ctx context.Context, limit int) (int, error) {
	candidates, err := c.market.Screen(ctx, interfaces.ScreenerFilter{
		Exchange:     c.exchange,
		MinMarketCap: screenerMinMarketCap,
		MinVolume:    screenerMinVolume,
		Limit:        limit,
	})
	if err != nil {
		return 0, fmt.Errorf("screening candidates: %w", err)
	}

	added := 0
	for _, candidate := range candidates {
		key := common.ParseTicker(candidate.Ticker).Key()
		if key == "" {
			continue
		}

		if _, err := c.storage.StockStorage().Get(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, interfaces.ErrNotFound) {
			return added, err
		}

		stock := &models.Stock{
			Ticker:       key,
			CompanyName:  candidate.CompanyName,
			Sector:       models.NormalizeSector(candidate.Sector),
			Exchange:     candidate.Exchange,
			CurrentPrice: candidate.Price,
		}
		if err := c.storage.StockStorage().Upsert(ctx, stock); err != nil {
			return added, fmt.Errorf("tracking candidate %s: %w", key, err)
		}

		if _, _, err := c.queue.Enqueue(ctx, key, "background", models.JobPriorityNormal, false); err != nil {
			c.logger.Warn().Str("ticker", key).Err(err).Msg("Failed to queue new candidate")
			continue
		}
		added++

		c.logger.Info().
			Str("ticker", key).
			Str("company", candidate.CompanyName).
			Float64("market_cap", candidate.MarketCap).
			Msg("New candidate tracked")
	}

	return added, nil
}

// isStale reports whether a tracked stock needs a re-run.
func (c *CandidateRefresh) isStale(ctx context.Context, stock *models.Stock) (bool, error) {
	snapshot, err := c.storage.AnalysisStorage().Get(ctx, stock.Ticker)
	if errors.Is(err, interfaces.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !snapshot.IsCompleted() {
		// Analyzing or failed rows are the queue's problem, not ours
		return false, nil
	}
	return time.Since(snapshot.UpdatedAt) > staleAnalysisAge, nil
}
