package models

import "time"

// DailyBrief is the once-a-day digest composed from the latest analysis
// snapshots. Keyed by date so a re-run overwrites the same row.
type DailyBrief struct {
	Date        string    `json:"date" badgerhold:"key"` // "2006-01-02"
	Markdown    string    `json:"markdown"`
	HTML        string    `json:"html"`
	TickerCount int       `json:"ticker_count"`
	CreatedAt   time.Time `json:"created_at"`
}
