package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/models"
)

// fakeGenerator returns a canned response and records the last request.
type fakeGenerator struct {
	text    string
	err     error
	lastReq *ContentRequest
}

func (f *fakeGenerator) GenerateContent(_ context.Context, request *ContentRequest) (*ContentResponse, error) {
	f.lastReq = request
	if f.err != nil {
		return nil, f.err
	}
	return &ContentResponse{Text: f.text, Provider: ProviderGemini, Model: "test"}, nil
}

const microResponse = "```json\n" + `{
  "overall_rating": "buy",
  "confidence_score": 78,
  "financial_health": {"score": 72, "strengths": ["strong margins"], "weaknesses": ["rising debt"]},
  "technical": {"score": 65, "trend": "uptrend", "momentum": "moderate", "signals": ["above SMA200"]},
  "sentiment": {"score": 80, "trend": "improving", "news_volume": 14, "key_themes": ["product launch"]},
  "risks": ["valuation"],
  "opportunities": ["services growth"],
  "recommendation": "Accumulate on weakness."
}` + "\n```"

func testBundle() *models.AnalysisBundle {
	return &models.AnalysisBundle{
		Ticker: "AAPL",
		Quote:  &models.Quote{Ticker: "AAPL", Price: 231.5, PreviousClose: 229.1},
		Fundamentals: &models.FundamentalsSnapshot{
			CompanyName: "Apple Inc",
			Sector:      "Technology",
		},
	}
}

func TestScoreMicro(t *testing.T) {
	gen := &fakeGenerator{text: microResponse}
	scorer := NewMicroScorer(gen, arbor.NewLogger())

	result, err := scorer.ScoreMicro(context.Background(), "AAPL", testBundle())
	require.NoError(t, err)

	assert.Equal(t, models.RatingBuy, result.OverallRating)
	assert.Equal(t, 78, result.ConfidenceScore)
	assert.Equal(t, 72, result.FinancialHealth.Score)
	assert.Equal(t, "uptrend", result.Technical.Trend)
	assert.Equal(t, 14, result.Sentiment.NewsVolume)
	assert.False(t, result.AnalyzedAt.IsZero())

	require.NotNil(t, gen.lastReq)
	assert.Contains(t, gen.lastReq.Messages[0].Content, "AAPL")
	assert.Contains(t, gen.lastReq.Messages[0].Content, "```yaml")
}

func TestScoreMicroRejectsInvalidRating(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"overall_rating\": \"maybe\", \"confidence_score\": 50}\n```"}
	scorer := NewMicroScorer(gen, arbor.NewLogger())

	_, err := scorer.ScoreMicro(context.Background(), "AAPL", testBundle())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestScoreMicroRejectsOutOfRangeScore(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"overall_rating\": \"buy\", \"confidence_score\": 140}\n```"}
	scorer := NewMicroScorer(gen, arbor.NewLogger())

	_, err := scorer.ScoreMicro(context.Background(), "AAPL", testBundle())
	assert.Error(t, err)
}

func TestScoreMicroPropagatesProviderError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	scorer := NewMicroScorer(gen, arbor.NewLogger())

	_, err := scorer.ScoreMicro(context.Background(), "AAPL", testBundle())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestScoreMicroRequiresBundle(t *testing.T) {
	scorer := NewMicroScorer(&fakeGenerator{text: microResponse}, arbor.NewLogger())
	_, err := scorer.ScoreMicro(context.Background(), "AAPL", nil)
	assert.Error(t, err)
}

const macroResponse = "```json\n" + `{
  "macro_score": 62,
  "macro_factor": 1.1,
  "market_condition": "bull",
  "recommendation": "Stay invested with a tilt toward quality.",
  "key_themes": ["rate cuts"],
  "opportunities": ["semis"],
  "risks": ["valuation"]
}` + "\n```"

func TestScoreMacro(t *testing.T) {
	gen := &fakeGenerator{text: macroResponse}
	scorer := NewMacroScorer(gen, arbor.NewLogger())

	macro, err := scorer.ScoreMacro(context.Background(), "Technology")
	require.NoError(t, err)

	assert.NotEmpty(t, macro.ID)
	assert.Equal(t, "Technology", macro.Sector)
	assert.Equal(t, 62, macro.MacroScore)
	assert.InDelta(t, 1.1, macro.MacroFactor, 0.001)
	assert.Equal(t, models.MarketBull, macro.MarketCondition)
	assert.False(t, macro.CreatedAt.IsZero())

	require.NotNil(t, gen.lastReq)
	assert.Contains(t, gen.lastReq.Messages[0].Content, "Technology sector")
}

func TestScoreMacroGeneralMarket(t *testing.T) {
	gen := &fakeGenerator{text: macroResponse}
	scorer := NewMacroScorer(gen, arbor.NewLogger())

	macro, err := scorer.ScoreMacro(context.Background(), "N/A")
	require.NoError(t, err)

	assert.Empty(t, macro.Sector)
	assert.Contains(t, gen.lastReq.Messages[0].Content, "overall equity market")
}

func TestScoreMacroClampsFactor(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n" + `{
  "macro_score": 90,
  "macro_factor": 2.4,
  "market_condition": "bull",
  "recommendation": "All in."
}` + "\n```"}
	scorer := NewMacroScorer(gen, arbor.NewLogger())

	macro, err := scorer.ScoreMacro(context.Background(), "Technology")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, macro.MacroFactor, 0.001)
}

func TestScoreMacroRejectsBadCondition(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"macro_score\": 50, \"macro_factor\": 1.0, \"market_condition\": \"crab\"}\n```"}
	scorer := NewMacroScorer(gen, arbor.NewLogger())

	_, err := scorer.ScoreMacro(context.Background(), "Technology")
	assert.Error(t, err)
}
