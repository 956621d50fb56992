package interfaces

import (
	"context"

	"github.com/ternarybob/aestimo/internal/models"
)

// Message represents a single turn in an LLM conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// MicroScorer rates one ticker from its gathered data bundle
type MicroScorer interface {
	ScoreMicro(ctx context.Context, ticker string, bundle *models.AnalysisBundle) (*models.MicroAnalysisResult, error)
}

// MacroScorer rates a sector (empty = general market)
type MacroScorer interface {
	ScoreMacro(ctx context.Context, sector string) (*models.MacroAnalysis, error)
}
