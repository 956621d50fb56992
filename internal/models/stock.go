package models

import "time"

// Stock is a tracked equity with its per-phase completion bookkeeping.
//
// The three completion flags record which analysis phases have finished for
// the ticker. Reconciliation audits them against the analysis snapshot and
// the job queue rather than re-deriving state from either alone.
type Stock struct {
	Ticker        string  `json:"ticker" badgerhold:"key"` // Normalized, uppercase
	CompanyName   string  `json:"company_name"`
	Sector        string  `json:"sector"` // Empty = unknown, scored against the general market
	Exchange      string  `json:"exchange"`
	CurrentPrice  float64 `json:"current_price"`
	PreviousClose float64 `json:"previous_close"`

	MicroDone    bool `json:"micro_done"`
	MacroDone    bool `json:"macro_done"`
	CombinedDone bool `json:"combined_done"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalysisComplete reports whether every analysis phase has finished
func (s *Stock) AnalysisComplete() bool {
	return s.MicroDone && s.MacroDone && s.CombinedDone
}

// ClearCompletionFlags resets the per-phase bookkeeping before a re-run
func (s *Stock) ClearCompletionFlags() {
	s.MicroDone = false
	s.MacroDone = false
	s.CombinedDone = false
}
