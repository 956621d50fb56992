package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/aestimo/internal/models"
)

// ErrSourceUnavailable marks a provider failure on an optional source.
// The pipeline logs it, omits the field, and continues; failures on
// required sources are returned unwrapped and propagate to retry handling.
var ErrSourceUnavailable = errors.New("source unavailable")

// ScreenerFilter narrows a candidate screen
type ScreenerFilter struct {
	Exchange     string
	MinMarketCap float64
	MinVolume    int64
	Limit        int
}

// MarketDataProvider supplies the required analysis inputs for a ticker
type MarketDataProvider interface {
	FetchQuote(ctx context.Context, ticker string) (*models.Quote, error)
	FetchFundamentals(ctx context.Context, ticker string) (*models.FundamentalsSnapshot, error)
	FetchTechnicals(ctx context.Context, ticker string) (*models.TechnicalIndicators, error)
	FetchNewsSentiment(ctx context.Context, ticker string) (*models.NewsSentimentSummary, error)
	// FetchExtendedFundamentals is an optional source; callers tolerate
	// ErrSourceUnavailable.
	FetchExtendedFundamentals(ctx context.Context, ticker string) (*models.ExtendedFundamentals, error)
	// Screen returns candidate stocks matching the filter.
	Screen(ctx context.Context, filter ScreenerFilter) ([]*models.CandidateStock, error)
}

// FilingProvider supplies regulatory filing excerpts (optional source)
type FilingProvider interface {
	FetchFilingExcerpt(ctx context.Context, ticker string) (*models.FilingExcerpt, error)
}
