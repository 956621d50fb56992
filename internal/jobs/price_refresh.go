// -----------------------------------------------------------------------
// Price refresh - keeps tracked stock prices current between analyses
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

// PriceRefresh updates current and previous-close prices for every
// tracked stock without touching analysis state.
type PriceRefresh struct {
	market  interfaces.MarketDataProvider
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewPriceRefresh creates the price refresh job.
func NewPriceRefresh(market interfaces.MarketDataProvider, storage interfaces.StorageManager, logger arbor.ILogger) *PriceRefresh {
	return &PriceRefresh{
		market:  market,
		storage: storage,
		logger:  logger,
	}
}

// Run fetches a quote for each tracked stock. Per-ticker failures are
// logged and skipped; the run fails only when nothing could be updated.
func (p *PriceRefresh) Run(ctx context.Context) error {
	stocks, err := p.storage.StockStorage().List(ctx)
	if err != nil {
		return fmt.Errorf("listing tracked stocks: %w", err)
	}
	if len(stocks) == 0 {
		return nil
	}

	updated := 0
	for _, stock := range stocks {
		quote, err := p.market.FetchQuote(ctx, stock.Ticker)
		if err != nil {
			p.logger.Warn().Str("ticker", stock.Ticker).Err(err).Msg("Quote refresh failed")
			continue
		}
		if err := p.storage.StockStorage().UpdatePrice(ctx, stock.Ticker, quote.Price, quote.PreviousClose); err != nil {
			p.logger.Warn().Str("ticker", stock.Ticker).Err(err).Msg("Price update failed")
			continue
		}
		updated++
	}

	p.logger.Info().Int("updated", updated).Int("tracked", len(stocks)).Msg("Price refresh completed")

	if updated == 0 {
		return fmt.Errorf("price refresh updated none of %d stocks", len(stocks))
	}
	return nil
}
