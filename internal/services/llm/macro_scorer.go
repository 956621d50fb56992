// -----------------------------------------------------------------------
// Macro scorer - sector or general market assessment
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

const macroSystemPrompt = `You are a macro strategist. Assess the current investment environment for
the requested sector (or the overall market when no sector is given):
monetary conditions, cycle position, sector rotation, and headline risks.

Respond with a single JSON object inside a json code fence, no prose:
{
  "macro_score": 0-100,
  "macro_factor": 0.5-1.5,
  "market_condition": "bull|bear|sideways|volatile",
  "recommendation": "one paragraph",
  "key_themes": [],
  "opportunities": [],
  "risks": []
}
macro_factor is a multiplier applied to individual stock scores: 1.0 is
neutral, below 1.0 is a headwind, above 1.0 is a tailwind.`

// MacroScorer produces shared sector assessments.
type MacroScorer struct {
	generator ContentGenerator
	validate  *validator.Validate
	logger    arbor.ILogger
}

var _ interfaces.MacroScorer = (*MacroScorer)(nil)

// NewMacroScorer creates a macro scorer on the given content generator.
func NewMacroScorer(generator ContentGenerator, logger arbor.ILogger) *MacroScorer {
	return &MacroScorer{
		generator: generator,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ScoreMacro rates a sector. An empty sector means the general market.
func (s *MacroScorer) ScoreMacro(ctx context.Context, sector string) (*models.MacroAnalysis, error) {
	sector = models.NormalizeSector(sector)

	subject := "the overall equity market"
	if sector != "" {
		subject = fmt.Sprintf("the %s sector", sector)
	}

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		SystemInstruction: macroSystemPrompt,
		Messages: []interfaces.Message{
			{Role: "user", Content: fmt.Sprintf("Assess %s as of %s.", subject, time.Now().UTC().Format("January 2, 2006"))},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("macro scoring call for sector %q: %w", sector, err)
	}

	macro, err := s.parseResult(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("macro scoring response for sector %q: %w", sector, err)
	}

	macro.ID = uuid.New().String()
	macro.Sector = sector
	macro.CreatedAt = time.Now().UTC()

	s.logger.Info().
		Str("sector", sector).
		Int("macro_score", macro.MacroScore).
		Float64("macro_factor", macro.MacroFactor).
		Str("condition", string(macro.MarketCondition)).
		Msg("Macro analysis scored")

	return macro, nil
}

// parseResult extracts and validates the structured assessment
func (s *MacroScorer) parseResult(text string) (*models.MacroAnalysis, error) {
	block, err := ExtractJSONBlock(text)
	if err != nil {
		return nil, err
	}

	var macro models.MacroAnalysis
	if err := json.Unmarshal([]byte(block), &macro); err != nil {
		return nil, fmt.Errorf("failed to parse result JSON: %w", err)
	}

	// Nominal factor range is 0.5-1.5; clamp drift instead of rejecting
	if macro.MacroFactor > 0 {
		if macro.MacroFactor < 0.5 {
			macro.MacroFactor = 0.5
		}
		if macro.MacroFactor > 1.5 {
			macro.MacroFactor = 1.5
		}
	}

	if err := s.validate.Struct(&macro); err != nil {
		return nil, fmt.Errorf("result failed validation: %w", err)
	}

	return &macro, nil
}
