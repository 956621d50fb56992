package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/storage/badger"
)

// ---------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------

type fakeMarket struct {
	quoteErr    error
	extendedErr error
	sector      string
}

func (f *fakeMarket) FetchQuote(_ context.Context, ticker string) (*models.Quote, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &models.Quote{Ticker: ticker, Price: 150, PreviousClose: 148}, nil
}

func (f *fakeMarket) FetchFundamentals(_ context.Context, ticker string) (*models.FundamentalsSnapshot, error) {
	return &models.FundamentalsSnapshot{CompanyName: ticker + " Inc", Sector: f.sector}, nil
}

func (f *fakeMarket) FetchTechnicals(_ context.Context, _ string) (*models.TechnicalIndicators, error) {
	return &models.TechnicalIndicators{RSI14: 55, High52Week: 200, Low52Week: 100}, nil
}

func (f *fakeMarket) FetchNewsSentiment(_ context.Context, _ string) (*models.NewsSentimentSummary, error) {
	return &models.NewsSentimentSummary{ArticleCount: 5, AveragePolarity: 0.2}, nil
}

func (f *fakeMarket) FetchExtendedFundamentals(_ context.Context, _ string) (*models.ExtendedFundamentals, error) {
	if f.extendedErr != nil {
		return nil, f.extendedErr
	}
	return &models.ExtendedFundamentals{TotalCash: 1e9}, nil
}

func (f *fakeMarket) Screen(_ context.Context, _ interfaces.ScreenerFilter) ([]*models.CandidateStock, error) {
	return nil, nil
}

type fakeFilings struct {
	err error
}

func (f *fakeFilings) FetchFilingExcerpt(_ context.Context, _ string) (*models.FilingExcerpt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.FilingExcerpt{FilingType: "10-Q", Markdown: "## Item 2\nResults."}, nil
}

type fakeMicro struct {
	confidence int
	calls      int
	lastBundle *models.AnalysisBundle
	onScore    func()
}

func (f *fakeMicro) ScoreMicro(_ context.Context, _ string, bundle *models.AnalysisBundle) (*models.MicroAnalysisResult, error) {
	f.calls++
	f.lastBundle = bundle
	if f.onScore != nil {
		f.onScore()
	}
	return &models.MicroAnalysisResult{
		OverallRating:   models.RatingBuy,
		ConfidenceScore: f.confidence,
		Recommendation:  "Buy on dips.",
		AnalyzedAt:      time.Now().UTC(),
	}, nil
}

type fakeMacro struct {
	factor float64
	calls  int
}

func (f *fakeMacro) ScoreMacro(_ context.Context, sector string) (*models.MacroAnalysis, error) {
	f.calls++
	return &models.MacroAnalysis{
		ID:              "macro-" + sector,
		Sector:          sector,
		MacroScore:      60,
		MacroFactor:     f.factor,
		MarketCondition: models.MarketBull,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// ---------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------

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

func claimJob(t *testing.T, storage interfaces.StorageManager, ticker string) *models.AnalysisJob {
	t.Helper()
	ctx := context.Background()

	job := models.NewAnalysisJob(ticker, "manual", models.JobPriorityNormal)
	inserted, err := storage.JobStorage().Enqueue(ctx, job, false)
	require.NoError(t, err)
	require.True(t, inserted)

	claimed, err := storage.JobStorage().DequeueNext(ctx)
	require.NoError(t, err)
	require.Equal(t, ticker, claimed.Ticker)
	return claimed
}

// ---------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	micro := &fakeMicro{confidence: 78}
	macro := &fakeMacro{factor: 1.2}
	pipeline := NewPipeline(&fakeMarket{sector: "Technology"}, &fakeFilings{}, micro, macro, storage, 24*time.Hour, arbor.NewLogger())

	job := claimJob(t, storage, "AAPL")
	require.NoError(t, pipeline.Run(ctx, job))

	snapshot, err := storage.AnalysisStorage().Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, snapshot.Status)
	assert.Equal(t, models.RatingBuy, snapshot.Micro.OverallRating)
	assert.Equal(t, 94, snapshot.IntegratedScore) // round(78 * 1.2)
	assert.Equal(t, "macro-Technology", snapshot.MacroAnalysisID)
	require.NotNil(t, snapshot.Filing)
	assert.Equal(t, "10-Q", snapshot.Filing.FilingType)

	stock, err := storage.StockStorage().Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, stock.AnalysisComplete())
	assert.Equal(t, "Technology", stock.Sector)
	assert.Equal(t, 150.0, stock.CurrentPrice)

	// Price sits at 150 in a 100-200 52-week range
	require.NotNil(t, micro.lastBundle)
	assert.InDelta(t, 50.0, micro.lastBundle.Technicals.PriceVs52WkPct, 0.001)
}

func TestPipelineReusesCachedMacro(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	macro := &fakeMacro{factor: 1.0}
	pipeline := NewPipeline(&fakeMarket{sector: "Technology"}, nil, &fakeMicro{confidence: 70}, macro, storage, 24*time.Hour, arbor.NewLogger())

	require.NoError(t, pipeline.Run(ctx, claimJob(t, storage, "AAPL")))
	require.NoError(t, pipeline.Run(ctx, claimJob(t, storage, "MSFT")))

	assert.Equal(t, 1, macro.calls, "second ticker in the same sector should reuse the cached macro analysis")
}

func TestPipelineToleratesOptionalSourceFailures(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	market := &fakeMarket{sector: "Technology", extendedErr: interfaces.ErrSourceUnavailable}
	filings := &fakeFilings{err: errors.New("edgar timeout")}
	micro := &fakeMicro{confidence: 70}
	pipeline := NewPipeline(market, filings, micro, &fakeMacro{factor: 1.0}, storage, 24*time.Hour, arbor.NewLogger())

	require.NoError(t, pipeline.Run(ctx, claimJob(t, storage, "AAPL")))

	snapshot, err := storage.AnalysisStorage().Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, snapshot.Filing)
	require.NotNil(t, micro.lastBundle)
	assert.Nil(t, micro.lastBundle.Extended)
}

func TestPipelineRequiredSourceFailurePropagates(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	market := &fakeMarket{quoteErr: errors.New("eodhd 500")}
	pipeline := NewPipeline(market, nil, &fakeMicro{confidence: 70}, &fakeMacro{factor: 1.0}, storage, 24*time.Hour, arbor.NewLogger())

	err := pipeline.Run(ctx, claimJob(t, storage, "AAPL"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eodhd 500")

	_, err = storage.AnalysisStorage().Get(ctx, "AAPL")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestPipelineSupersededJobDropsResult(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	job := claimJob(t, storage, "AAPL")

	// Cancel the claimed job mid-run, as a forced re-enqueue would
	micro := &fakeMicro{confidence: 70}
	micro.onScore = func() {
		_, err := storage.JobStorage().CancelActiveJobs(ctx, "AAPL")
		require.NoError(t, err)
	}
	pipeline := NewPipeline(&fakeMarket{sector: "Technology"}, nil, micro, &fakeMacro{factor: 1.0}, storage, 24*time.Hour, arbor.NewLogger())

	err := pipeline.Run(ctx, job)
	assert.ErrorIs(t, err, ErrSuperseded)

	_, err = storage.AnalysisStorage().Get(ctx, "AAPL")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	pipeline := NewPipeline(&fakeMarket{sector: "Technology"}, &fakeFilings{}, &fakeMicro{confidence: 78}, &fakeMacro{factor: 1.2}, storage, 24*time.Hour, arbor.NewLogger())

	job := claimJob(t, storage, "AAPL")
	require.NoError(t, pipeline.Run(ctx, job))
	require.NoError(t, storage.JobStorage().MarkCompleted(ctx, job.ID))

	first, err := storage.AnalysisStorage().Get(ctx, "AAPL")
	require.NoError(t, err)

	// Same ticker, identical provider responses
	require.NoError(t, pipeline.Run(ctx, claimJob(t, storage, "AAPL")))

	second, err := storage.AnalysisStorage().Get(ctx, "AAPL")
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))

	// Everything except timestamps must come out identical
	normalize := func(a *models.StockAnalysis) models.StockAnalysis {
		snap := *a
		snap.Micro.AnalyzedAt = time.Time{}
		snap.CreatedAt = time.Time{}
		snap.UpdatedAt = time.Time{}
		return snap
	}
	assert.Equal(t, normalize(first), normalize(second))
}
