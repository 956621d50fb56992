// -----------------------------------------------------------------------
// Market data provider - adapts the EODHD client to the pipeline's inputs
// -----------------------------------------------------------------------

package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

// Provider implements interfaces.MarketDataProvider on the EODHD client.
type Provider struct {
	client *Client
	logger arbor.ILogger
}

var _ interfaces.MarketDataProvider = (*Provider)(nil)

// NewProvider creates a market data provider backed by EODHD.
func NewProvider(client *Client, logger arbor.ILogger) *Provider {
	return &Provider{
		client: client,
		logger: logger,
	}
}

func symbolFor(ticker string) string {
	return common.ParseTicker(ticker).EODHDSymbol()
}

// FetchQuote returns the current delayed quote for a ticker.
func (p *Provider) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	quote, err := p.client.GetRealTimeQuote(ctx, symbolFor(ticker))
	if err != nil {
		return nil, fmt.Errorf("quote fetch for %s: %w", ticker, err)
	}

	return &models.Quote{
		Ticker:        ticker,
		Price:         quote.Close,
		PreviousClose: quote.PreviousClose,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		Volume:        quote.Volume,
		Timestamp:     time.Unix(quote.Timestamp, 0).UTC(),
	}, nil
}

// FetchFundamentals returns the fundamentals snapshot the scorers consume.
func (p *Provider) FetchFundamentals(ctx context.Context, ticker string) (*models.FundamentalsSnapshot, error) {
	resp, err := p.client.GetFundamentals(ctx, symbolFor(ticker))
	if err != nil {
		return nil, fmt.Errorf("fundamentals fetch for %s: %w", ticker, err)
	}

	return &models.FundamentalsSnapshot{
		CompanyName:      resp.General.Name,
		Sector:           models.NormalizeSector(resp.General.Sector),
		Industry:         resp.General.Industry,
		MarketCap:        resp.Highlights.MarketCapitalization,
		PERatio:          resp.Highlights.PERatio,
		ForwardPE:        resp.Valuation.ForwardPE,
		EPS:              resp.Highlights.EarningsShare,
		DividendYield:    resp.Highlights.DividendYield,
		ProfitMargin:     resp.Highlights.ProfitMargin,
		OperatingMargin:  resp.Highlights.OperatingMarginTTM,
		ReturnOnEquity:   resp.Highlights.ReturnOnEquityTTM,
		RevenueGrowthYoY: resp.Highlights.QuarterlyRevenueGrowthYOY,
		Beta:             resp.Technicals.Beta,
		WallStreetTarget: resp.Highlights.WallStreetTargetPrice,
	}, nil
}

// FetchTechnicals returns the price-action indicators for a ticker.
// Moving averages and 52-week range come from the fundamentals technicals
// block; RSI and average volume come from the indicator endpoint.
func (p *Provider) FetchTechnicals(ctx context.Context, ticker string) (*models.TechnicalIndicators, error) {
	symbol := symbolFor(ticker)

	fund, err := p.client.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("technicals fetch for %s: %w", ticker, err)
	}

	indicators := &models.TechnicalIndicators{
		SMA50:      fund.Technicals.SMA50,
		SMA200:     fund.Technicals.SMA200,
		High52Week: fund.Technicals.High52Week,
		Low52Week:  fund.Technicals.Low52Week,
	}

	from := time.Now().UTC().AddDate(0, -3, 0)

	rsi, err := p.client.GetTechnicalIndicator(ctx, symbol, "rsi", WithPeriod(14), WithDateRange(from, time.Time{}))
	if err != nil {
		return nil, fmt.Errorf("rsi fetch for %s: %w", ticker, err)
	}
	if len(rsi) > 0 {
		indicators.RSI14 = rsi[0].RSI
	}

	ema, err := p.client.GetTechnicalIndicator(ctx, symbol, "ema", WithPeriod(20), WithDateRange(from, time.Time{}))
	if err != nil {
		return nil, fmt.Errorf("ema fetch for %s: %w", ticker, err)
	}
	if len(ema) > 0 {
		indicators.EMA20 = ema[0].EMA
	}

	avgvol, err := p.client.GetTechnicalIndicator(ctx, symbol, "avgvol", WithPeriod(50), WithDateRange(from, time.Time{}))
	if err != nil {
		return nil, fmt.Errorf("avgvol fetch for %s: %w", ticker, err)
	}
	if len(avgvol) > 0 {
		indicators.AverageVolume = int64(avgvol[0].AvgVol)
	}

	return indicators, nil
}

// FetchNewsSentiment aggregates the last two weeks of news for a ticker.
func (p *Provider) FetchNewsSentiment(ctx context.Context, ticker string) (*models.NewsSentimentSummary, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -14)

	news, err := p.client.GetNews(ctx, symbolFor(ticker), WithLimit(50), WithDateRange(from, to))
	if err != nil {
		return nil, fmt.Errorf("news fetch for %s: %w", ticker, err)
	}

	summary := &models.NewsSentimentSummary{
		ArticleCount: len(news),
		From:         from,
		To:           to,
	}

	var polaritySum float64
	for _, item := range news {
		if len(summary.Headlines) < 10 && item.Title != "" {
			summary.Headlines = append(summary.Headlines, item.Title)
		}
		if item.Sentiment == nil {
			summary.NeutralCount++
			continue
		}
		polaritySum += item.Sentiment.Polarity
		switch {
		case item.Sentiment.Polarity > 0.1:
			summary.PositiveCount++
		case item.Sentiment.Polarity < -0.1:
			summary.NegativeCount++
		default:
			summary.NeutralCount++
		}
	}
	if len(news) > 0 {
		summary.AveragePolarity = polaritySum / float64(len(news))
	}

	return summary, nil
}

// FetchExtendedFundamentals returns the deeper statement data. This is an
// optional analysis source; callers tolerate failure.
func (p *Provider) FetchExtendedFundamentals(ctx context.Context, ticker string) (*models.ExtendedFundamentals, error) {
	resp, err := p.client.GetFundamentals(ctx, symbolFor(ticker))
	if err != nil {
		return nil, fmt.Errorf("extended fundamentals fetch for %s: %w", ticker, err)
	}

	extended := &models.ExtendedFundamentals{
		SharesOutstanding:  resp.SharesStats.SharesOutstanding,
		InsiderOwnership:   resp.SharesStats.PercentInsiders,
		InstitutionPercent: resp.SharesStats.PercentInstitutions,
		AnalystRatingsCount: resp.AnalystRatings.StrongBuy + resp.AnalystRatings.Buy +
			resp.AnalystRatings.Hold + resp.AnalystRatings.Sell + resp.AnalystRatings.StrongSell,
	}

	// Latest four quarters, newest first
	incomeDates := make([]string, 0, len(resp.Financials.IncomeStatement.Quarterly))
	for date := range resp.Financials.IncomeStatement.Quarterly {
		incomeDates = append(incomeDates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(incomeDates)))
	for i, date := range incomeDates {
		if i >= 4 {
			break
		}
		quarter := resp.Financials.IncomeStatement.Quarterly[date]
		extended.QuarterlyRevenue = append(extended.QuarterlyRevenue, parseFinancial(quarter.TotalRevenue))
		extended.QuarterlyNetIncome = append(extended.QuarterlyNetIncome, parseFinancial(quarter.NetIncome))
	}

	balanceDates := make([]string, 0, len(resp.Financials.BalanceSheet.Quarterly))
	for date := range resp.Financials.BalanceSheet.Quarterly {
		balanceDates = append(balanceDates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(balanceDates)))
	if len(balanceDates) > 0 {
		latest := resp.Financials.BalanceSheet.Quarterly[balanceDates[0]]
		extended.TotalCash = parseFinancial(latest.TotalCash)
		extended.TotalDebt = parseFinancial(latest.TotalDebt)
	}

	return extended, nil
}

// Screen returns candidate stocks matching the filter.
func (p *Provider) Screen(ctx context.Context, filter interfaces.ScreenerFilter) ([]*models.CandidateStock, error) {
	filters := [][]interface{}{}
	if filter.Exchange != "" {
		filters = append(filters, []interface{}{"exchange", "=", strings.ToLower(filter.Exchange)})
	}
	if filter.MinMarketCap > 0 {
		filters = append(filters, []interface{}{"market_capitalization", ">", filter.MinMarketCap})
	}
	if filter.MinVolume > 0 {
		filters = append(filters, []interface{}{"avgvol_200d", ">", filter.MinVolume})
	}

	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode screener filters: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	resp, err := p.client.Screen(ctx, string(filterJSON), limit)
	if err != nil {
		return nil, fmt.Errorf("screener fetch: %w", err)
	}

	candidates := make([]*models.CandidateStock, 0, len(resp.Data))
	for _, hit := range resp.Data {
		if hit.Code == "" {
			continue
		}
		candidates = append(candidates, &models.CandidateStock{
			Ticker:      strings.ToUpper(hit.Code),
			CompanyName: hit.Name,
			Sector:      models.NormalizeSector(hit.Sector),
			Exchange:    hit.Exchange,
			MarketCap:   hit.MarketCapitalization,
			Price:       hit.AdjustedClose,
		})
	}

	return candidates, nil
}

func parseFinancial(value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
