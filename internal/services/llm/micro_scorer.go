// -----------------------------------------------------------------------
// Micro scorer - per-ticker rating from the gathered data bundle
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"gopkg.in/yaml.v3"
)

const microSystemPrompt = `You are an equity research analyst. You receive a structured data bundle
for one publicly traded company: current quote, fundamentals, technical
indicators, aggregated news sentiment, and optionally a regulatory filing
excerpt and extended financials. Missing optional sections simply were not
available; never penalize a company for absent data.

Respond with a single JSON object inside a json code fence, no prose:
{
  "overall_rating": "strong_buy|buy|hold|avoid|strong_avoid",
  "confidence_score": 0-100,
  "financial_health": {"score": 0-100, "strengths": [], "weaknesses": [], "red_flags": []},
  "technical": {"score": 0-100, "trend": "uptrend|downtrend|sideways", "momentum": "strong|moderate|weak", "signals": []},
  "sentiment": {"score": 0-100, "trend": "improving|stable|deteriorating", "news_volume": 0, "key_themes": []},
  "risks": [],
  "opportunities": [],
  "recommendation": "one paragraph"
}`

// MicroScorer rates a single ticker from its analysis bundle.
type MicroScorer struct {
	generator ContentGenerator
	validate  *validator.Validate
	logger    arbor.ILogger
}

var _ interfaces.MicroScorer = (*MicroScorer)(nil)

// NewMicroScorer creates a micro scorer on the given content generator.
func NewMicroScorer(generator ContentGenerator, logger arbor.ILogger) *MicroScorer {
	return &MicroScorer{
		generator: generator,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ScoreMicro builds the scoring prompt from the bundle, invokes the
// provider, and parses and validates the structured result.
func (s *MicroScorer) ScoreMicro(ctx context.Context, ticker string, bundle *models.AnalysisBundle) (*models.MicroAnalysisResult, error) {
	if bundle == nil {
		return nil, fmt.Errorf("analysis bundle is required")
	}

	payload, err := yaml.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis bundle: %w", err)
	}

	prompt := fmt.Sprintf("Analyze %s using this data bundle:\n\n```yaml\n%s```", ticker, string(payload))

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		SystemInstruction: microSystemPrompt,
		Messages: []interfaces.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("micro scoring call for %s: %w", ticker, err)
	}

	result, err := s.parseResult(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("micro scoring response for %s: %w", ticker, err)
	}
	result.AnalyzedAt = time.Now().UTC()

	s.logger.Info().
		Str("ticker", ticker).
		Str("rating", string(result.OverallRating)).
		Int("confidence", result.ConfidenceScore).
		Str("provider", string(resp.Provider)).
		Msg("Micro analysis scored")

	return result, nil
}

// parseResult extracts and validates the structured rating
func (s *MicroScorer) parseResult(text string) (*models.MicroAnalysisResult, error) {
	block, err := ExtractJSONBlock(text)
	if err != nil {
		return nil, err
	}

	var result models.MicroAnalysisResult
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		return nil, fmt.Errorf("failed to parse result JSON: %w", err)
	}

	if err := s.validate.Struct(&result); err != nil {
		return nil, fmt.Errorf("result failed validation: %w", err)
	}

	return &result, nil
}
