package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/queue"
	"github.com/ternarybob/aestimo/internal/storage/badger"
)

// Shared fixtures: a real badger store and queue service so the jobs
// exercise the same single-flight semantics production does.

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path:       t.TempDir(),
		GCInterval: "10m",
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func newTestQueue(storage interfaces.StorageManager) *queue.Service {
	return queue.NewService(storage, 3, 24*time.Hour, arbor.NewLogger())
}

// fakeScreener is a MarketDataProvider serving canned screener hits and
// quotes.
type fakeScreener struct {
	hits       []*models.CandidateStock
	screenErr  error
	quoteErr   map[string]error
	lastFilter interfaces.ScreenerFilter
}

func (f *fakeScreener) Screen(_ context.Context, filter interfaces.ScreenerFilter) ([]*models.CandidateStock, error) {
	f.lastFilter = filter
	if f.screenErr != nil {
		return nil, f.screenErr
	}
	return f.hits, nil
}

func (f *fakeScreener) FetchQuote(_ context.Context, ticker string) (*models.Quote, error) {
	if err, ok := f.quoteErr[ticker]; ok {
		return nil, err
	}
	return &models.Quote{Ticker: ticker, Price: 101, PreviousClose: 100}, nil
}

func (f *fakeScreener) FetchFundamentals(_ context.Context, _ string) (*models.FundamentalsSnapshot, error) {
	return &models.FundamentalsSnapshot{}, nil
}

func (f *fakeScreener) FetchTechnicals(_ context.Context, _ string) (*models.TechnicalIndicators, error) {
	return &models.TechnicalIndicators{}, nil
}

func (f *fakeScreener) FetchNewsSentiment(_ context.Context, _ string) (*models.NewsSentimentSummary, error) {
	return &models.NewsSentimentSummary{}, nil
}

func (f *fakeScreener) FetchExtendedFundamentals(_ context.Context, _ string) (*models.ExtendedFundamentals, error) {
	return nil, interfaces.ErrSourceUnavailable
}
