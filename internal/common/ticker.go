package common

import (
	"strings"
)

// DefaultExchange is used when a ticker carries no exchange prefix.
const DefaultExchange = "US"

// Ticker is an exchange-qualified equity symbol.
type Ticker struct {
	Exchange string // Exchange code, e.g. "US", "ASX", "LSE"
	Code     string // Ticker code, e.g. "AAPL"
	Raw      string // Original input string
}

// ExchangeToSuffix maps exchange codes to EODHD API symbol suffixes.
var ExchangeToSuffix = map[string]string{
	"US":     ".US",
	"NYSE":   ".US",
	"NASDAQ": ".US",
	"ASX":    ".AU",
	"AU":     ".AU",
	"LSE":    ".LSE",
	"TSX":    ".TO",
	"TO":     ".TO",
	"HK":     ".HK",
	"SG":     ".SG",
	"TYO":    ".TYO",
}

// ParseTicker parses a ticker string into an exchange-qualified Ticker.
// Accepted forms: "AAPL", "US:AAPL", "ASX:GNP", "ASX.GNP".
// Bare codes default to DefaultExchange.
func ParseTicker(ticker string) Ticker {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Ticker{}
	}

	// Exchange prefix with colon separator (EXCHANGE:CODE)
	if idx := strings.Index(ticker, ":"); idx > 0 {
		exchange := strings.ToUpper(ticker[:idx])
		code := strings.ToUpper(ticker[idx+1:])
		return Ticker{
			Exchange: exchange,
			Code:     code,
			Raw:      ticker,
		}
	}

	// Exchange prefix with dot separator (EXCHANGE.CODE).
	// Only match if the prefix is a known exchange to avoid conflicts with
	// codes containing dots (e.g. "BRK.B").
	if idx := strings.Index(ticker, "."); idx > 0 {
		possibleExchange := strings.ToUpper(ticker[:idx])
		if _, ok := ExchangeToSuffix[possibleExchange]; ok {
			code := strings.ToUpper(ticker[idx+1:])
			return Ticker{
				Exchange: possibleExchange,
				Code:     code,
				Raw:      ticker,
			}
		}
	}

	return Ticker{
		Exchange: DefaultExchange,
		Code:     strings.ToUpper(ticker),
		Raw:      ticker,
	}
}

// String returns the full exchange-qualified ticker string.
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// Key returns the normalized ticker key used for storage lookups.
// Bare US tickers keep their plain form ("AAPL"); everything else is
// exchange-qualified ("ASX:GNP").
func (t Ticker) Key() string {
	if t.Code == "" {
		return ""
	}
	if t.Exchange == "" || t.Exchange == DefaultExchange {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// EODHDSymbol returns the EODHD API symbol format.
// Example: "AAPL" -> "AAPL.US", "ASX:GNP" -> "GNP.AU"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := ExchangeToSuffix[t.Exchange]
	if !ok {
		suffix = ".US"
	}
	return t.Code + suffix
}

// ParseTickers parses a list of ticker strings, dropping empties.
func ParseTickers(tickers []string) []Ticker {
	result := make([]Ticker, 0, len(tickers))
	for _, t := range tickers {
		if parsed := ParseTicker(t); parsed.Code != "" {
			result = append(result, parsed)
		}
	}
	return result
}
