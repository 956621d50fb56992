// -----------------------------------------------------------------------
// Market data payloads - provider-neutral structures the pipeline consumes
// -----------------------------------------------------------------------

package models

import "time"

// Quote is a real-time (delayed) price snapshot
type Quote struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// FundamentalsSnapshot is the subset of fundamentals the scorers consume
type FundamentalsSnapshot struct {
	CompanyName      string  `json:"company_name"`
	Sector           string  `json:"sector"`
	Industry         string  `json:"industry"`
	MarketCap        float64 `json:"market_cap"`
	PERatio          float64 `json:"pe_ratio"`
	ForwardPE        float64 `json:"forward_pe"`
	EPS              float64 `json:"eps"`
	DividendYield    float64 `json:"dividend_yield"`
	ProfitMargin     float64 `json:"profit_margin"`
	OperatingMargin  float64 `json:"operating_margin"`
	ReturnOnEquity   float64 `json:"return_on_equity"`
	DebtToEquity     float64 `json:"debt_to_equity"`
	RevenueGrowthYoY float64 `json:"revenue_growth_yoy"`
	Beta             float64 `json:"beta"`
	WallStreetTarget float64 `json:"wall_street_target"`
}

// ExtendedFundamentals carries the optional deeper statement data
type ExtendedFundamentals struct {
	QuarterlyRevenue    []float64 `json:"quarterly_revenue,omitempty"`
	QuarterlyNetIncome  []float64 `json:"quarterly_net_income,omitempty"`
	TotalCash           float64   `json:"total_cash"`
	TotalDebt           float64   `json:"total_debt"`
	FreeCashflow        float64   `json:"free_cashflow"`
	SharesOutstanding   float64   `json:"shares_outstanding"`
	InsiderOwnership    float64   `json:"insider_ownership"`
	InstitutionPercent  float64   `json:"institution_percent"`
	AnalystRatingsCount int       `json:"analyst_ratings_count"`
}

// TechnicalIndicators is the price-action input to micro scoring
type TechnicalIndicators struct {
	RSI14          float64 `json:"rsi_14"`
	SMA50          float64 `json:"sma_50"`
	SMA200         float64 `json:"sma_200"`
	EMA20          float64 `json:"ema_20"`
	AverageVolume  int64   `json:"average_volume"`
	High52Week     float64 `json:"high_52_week"`
	Low52Week      float64 `json:"low_52_week"`
	PriceVs52WkPct float64 `json:"price_vs_52wk_pct"`
}

// NewsSentimentSummary aggregates recent news flow for a ticker
type NewsSentimentSummary struct {
	ArticleCount    int       `json:"article_count"`
	AveragePolarity float64   `json:"average_polarity"` // -1..1
	PositiveCount   int       `json:"positive_count"`
	NegativeCount   int       `json:"negative_count"`
	NeutralCount    int       `json:"neutral_count"`
	Headlines       []string  `json:"headlines,omitempty"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
}

// CandidateStock is a screener hit considered for tracking
type CandidateStock struct {
	Ticker      string  `json:"ticker"`
	CompanyName string  `json:"company_name"`
	Sector      string  `json:"sector"`
	Exchange    string  `json:"exchange"`
	MarketCap   float64 `json:"market_cap"`
	Price       float64 `json:"price"`
}

// AnalysisBundle is everything gathered for one micro scoring call.
// Optional sources that were unavailable are simply nil.
type AnalysisBundle struct {
	Ticker       string                `yaml:"ticker" json:"ticker"`
	Quote        *Quote                `yaml:"quote" json:"quote"`
	Fundamentals *FundamentalsSnapshot `yaml:"fundamentals" json:"fundamentals"`
	Technicals   *TechnicalIndicators  `yaml:"technicals" json:"technicals"`
	Sentiment    *NewsSentimentSummary `yaml:"sentiment" json:"sentiment"`
	Filing       *FilingExcerpt        `yaml:"filing,omitempty" json:"filing,omitempty"`
	Extended     *ExtendedFundamentals `yaml:"extended,omitempty" json:"extended,omitempty"`
}
