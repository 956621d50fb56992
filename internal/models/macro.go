package models

import "time"

// MarketCondition is the qualitative macro regime
type MarketCondition string

const (
	MarketBull     MarketCondition = "bull"
	MarketBear     MarketCondition = "bear"
	MarketSideways MarketCondition = "sideways"
	MarketVolatile MarketCondition = "volatile"
)

// MacroAnalysis is a sector-level (or market-wide when Sector is empty)
// assessment shared by every ticker in that sector. Created lazily the
// first time a ticker in the sector needs one and reused until it ages out.
type MacroAnalysis struct {
	ID     string `json:"id" badgerhold:"key"`
	Sector string `json:"sector"` // Empty = general market

	MacroScore  int     `json:"macro_score" validate:"min=0,max=100"`
	MacroFactor float64 `json:"macro_factor" validate:"min=0"` // Multiplier on micro confidence, nominally 0.5-1.5

	MarketCondition MarketCondition `json:"market_condition" validate:"required,oneof=bull bear sideways volatile"`
	Recommendation  string          `json:"recommendation"`
	KeyThemes       []string        `json:"key_themes,omitempty"`
	Opportunities   []string        `json:"opportunities,omitempty"`
	Risks           []string        `json:"risks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NormalizeSector collapses the sector placeholders the upstream providers
// emit ("N/A", "-") into the empty string, which means general market.
func NormalizeSector(sector string) string {
	switch sector {
	case "N/A", "n/a", "-", "none", "Unknown", "unknown":
		return ""
	}
	return sector
}

// IsFresh reports whether the snapshot is still within the freshness window
func (m *MacroAnalysis) IsFresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return now.Sub(m.CreatedAt) <= maxAge
}
