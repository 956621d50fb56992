package eodhd

import "time"

// RealTimeQuote is the /real-time endpoint response.
type RealTimeQuote struct {
	Code          string  `json:"code"`
	Timestamp     int64   `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_p"`
}

// FundamentalsResponse is the subset of the /fundamentals response the
// application consumes. The full payload is far larger.
type FundamentalsResponse struct {
	General struct {
		Code     string `json:"Code"`
		Name     string `json:"Name"`
		Exchange string `json:"Exchange"`
		Sector   string `json:"Sector"`
		Industry string `json:"Industry"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization      float64 `json:"MarketCapitalization"`
		PERatio                   float64 `json:"PERatio"`
		EarningsShare             float64 `json:"EarningsShare"`
		DividendYield             float64 `json:"DividendYield"`
		ProfitMargin              float64 `json:"ProfitMargin"`
		OperatingMarginTTM        float64 `json:"OperatingMarginTTM"`
		ReturnOnEquityTTM         float64 `json:"ReturnOnEquityTTM"`
		QuarterlyRevenueGrowthYOY float64 `json:"QuarterlyRevenueGrowthYOY"`
		WallStreetTargetPrice     float64 `json:"WallStreetTargetPrice"`
	} `json:"Highlights"`
	Valuation struct {
		ForwardPE float64 `json:"ForwardPE"`
	} `json:"Valuation"`
	Technicals struct {
		Beta         float64 `json:"Beta"`
		High52Week   float64 `json:"52WeekHigh"`
		Low52Week    float64 `json:"52WeekLow"`
		SMA50        float64 `json:"50DayMA"`
		SMA200       float64 `json:"200DayMA"`
		ShortPercent float64 `json:"ShortPercent"`
	} `json:"Technicals"`
	SharesStats struct {
		SharesOutstanding   float64 `json:"SharesOutstanding"`
		PercentInsiders     float64 `json:"PercentInsiders"`
		PercentInstitutions float64 `json:"PercentInstitutions"`
	} `json:"SharesStats"`
	Financials struct {
		BalanceSheet struct {
			Quarterly map[string]struct {
				TotalCash string `json:"cashAndEquivalents"`
				TotalDebt string `json:"totalDebt"`
			} `json:"quarterly"`
		} `json:"Balance_Sheet"`
		IncomeStatement struct {
			Quarterly map[string]struct {
				TotalRevenue string `json:"totalRevenue"`
				NetIncome    string `json:"netIncome"`
			} `json:"quarterly"`
		} `json:"Income_Statement"`
	} `json:"Financials"`
	AnalystRatings struct {
		Rating      float64 `json:"Rating"`
		TargetPrice float64 `json:"TargetPrice"`
		StrongBuy   int     `json:"StrongBuy"`
		Buy         int     `json:"Buy"`
		Hold        int     `json:"Hold"`
		Sell        int     `json:"Sell"`
		StrongSell  int     `json:"StrongSell"`
	} `json:"AnalystRatings"`
}

// TechnicalPoint is one row of a /technical indicator series. Only one of
// the value fields is set depending on the requested function.
type TechnicalPoint struct {
	Date   string  `json:"date"`
	RSI    float64 `json:"rsi,omitempty"`
	SMA    float64 `json:"sma,omitempty"`
	EMA    float64 `json:"ema,omitempty"`
	AvgVol float64 `json:"avgvol,omitempty"`
}

// TechnicalResponse is a slice of indicator points, oldest first.
type TechnicalResponse []TechnicalPoint

// NewsItem represents a single news article.
type NewsItem struct {
	Date      time.Time      `json:"-"`
	DateStr   string         `json:"date"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Link      string         `json:"link"`
	Symbols   []string       `json:"symbols"`
	Tags      []string       `json:"tags"`
	Sentiment *NewsSentiment `json:"sentiment,omitempty"`
}

// NewsSentiment represents sentiment analysis data for news.
type NewsSentiment struct {
	Polarity float64 `json:"polarity"`
	Neg      float64 `json:"neg"`
	Neu      float64 `json:"neu"`
	Pos      float64 `json:"pos"`
}

// NewsResponse is a slice of NewsItem.
type NewsResponse []NewsItem

// ScreenerHit is one row of the /screener response.
type ScreenerHit struct {
	Code                 string  `json:"code"`
	Name                 string  `json:"name"`
	Exchange             string  `json:"exchange"`
	Sector               string  `json:"sector"`
	Industry             string  `json:"industry"`
	MarketCapitalization float64 `json:"market_capitalization"`
	AdjustedClose        float64 `json:"adjusted_close"`
	AvgVol200d           float64 `json:"avgvol_200d"`
}

// ScreenerResponse is the /screener response envelope.
type ScreenerResponse struct {
	Data []ScreenerHit `json:"data"`
}
