// -----------------------------------------------------------------------
// Analysis snapshots - per-ticker micro results and the combined row
// -----------------------------------------------------------------------

package models

import "time"

// OverallRating is the qualitative micro verdict
type OverallRating string

const (
	RatingStrongBuy   OverallRating = "strong_buy"
	RatingBuy         OverallRating = "buy"
	RatingHold        OverallRating = "hold"
	RatingAvoid       OverallRating = "avoid"
	RatingStrongAvoid OverallRating = "strong_avoid"
)

// AnalysisStatus tracks the persisted snapshot's lifecycle
type AnalysisStatus string

const (
	AnalysisStatusAnalyzing AnalysisStatus = "analyzing"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// FinancialHealth summarizes balance-sheet and profitability findings
type FinancialHealth struct {
	Score      int      `json:"score" validate:"min=0,max=100"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
	RedFlags   []string `json:"red_flags,omitempty"`
}

// TechnicalAssessment summarizes price-action findings
type TechnicalAssessment struct {
	Score    int      `json:"score" validate:"min=0,max=100"`
	Trend    string   `json:"trend"`    // "uptrend", "downtrend", "sideways"
	Momentum string   `json:"momentum"` // "strong", "moderate", "weak"
	Signals  []string `json:"signals,omitempty"`
}

// SentimentAssessment summarizes news-flow findings
type SentimentAssessment struct {
	Score      int      `json:"score" validate:"min=0,max=100"`
	Trend      string   `json:"trend"` // "improving", "stable", "deteriorating"
	NewsVolume int      `json:"news_volume"`
	KeyThemes  []string `json:"key_themes,omitempty"`
}

// MicroAnalysisResult is the ticker-specific scoring output.
// One logical result per ticker, overwritten on each successful run.
type MicroAnalysisResult struct {
	OverallRating   OverallRating `json:"overall_rating" validate:"required,oneof=strong_buy buy hold avoid strong_avoid"`
	ConfidenceScore int           `json:"confidence_score" validate:"min=0,max=100"`

	FinancialHealth FinancialHealth     `json:"financial_health"`
	Technical       TechnicalAssessment `json:"technical"`
	Sentiment       SentimentAssessment `json:"sentiment"`

	Risks          []string  `json:"risks,omitempty"`
	Opportunities  []string  `json:"opportunities,omitempty"`
	Recommendation string    `json:"recommendation"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// FilingExcerpt is an optional enrichment extracted from a regulatory filing
type FilingExcerpt struct {
	FilingType string    `json:"filing_type"` // "10-K", "10-Q", "8-K"
	FiledAt    time.Time `json:"filed_at"`
	URL        string    `json:"url"`
	Markdown   string    `json:"markdown"` // Extracted sections, converted to markdown
}

// StockAnalysis is the combined persisted snapshot for a ticker: micro
// fields, the macro reference, and the integrated score. Keyed by ticker
// and upserted, never appended.
type StockAnalysis struct {
	Ticker string `json:"ticker" badgerhold:"key"`

	Micro        MicroAnalysisResult   `json:"micro"`
	Filing       *FilingExcerpt        `json:"filing,omitempty"`
	Fundamentals *FundamentalsSnapshot `json:"fundamentals,omitempty"`

	MacroAnalysisID string `json:"macro_analysis_id,omitempty"`
	IntegratedScore int    `json:"integrated_score"`

	Status       AnalysisStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCompleted reports whether the snapshot holds a finished analysis
func (a *StockAnalysis) IsCompleted() bool {
	return a.Status == AnalysisStatusCompleted
}
