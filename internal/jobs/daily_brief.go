// -----------------------------------------------------------------------
// Daily brief - renders a morning digest of the best-scoring analyses
// -----------------------------------------------------------------------

package jobs

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const briefMaxEntries = 20

// DailyBrief composes the morning digest from completed analyses and
// stores it as both markdown and rendered HTML.
type DailyBrief struct {
	storage  interfaces.StorageManager
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewDailyBrief creates the daily brief job.
func NewDailyBrief(storage interfaces.StorageManager, logger arbor.ILogger) *DailyBrief {
	return &DailyBrief{
		storage: storage,
		// GFM for the scores table
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:   logger,
	}
}

// Run builds and saves today's brief. Re-running on the same day
// overwrites the earlier edition.
func (d *DailyBrief) Run(ctx context.Context) error {
	analyses, err := d.storage.AnalysisStorage().ListCompleted(ctx, briefMaxEntries)
	if err != nil {
		return fmt.Errorf("listing completed analyses: %w", err)
	}

	now := time.Now().UTC()
	content := d.compose(now, analyses)

	var rendered bytes.Buffer
	if err := d.markdown.Convert([]byte(content), &rendered); err != nil {
		return fmt.Errorf("rendering brief: %w", err)
	}

	brief := &models.DailyBrief{
		Date:        now.Format("2006-01-02"),
		Markdown:    content,
		HTML:        rendered.String(),
		TickerCount: len(analyses),
		CreatedAt:   now,
	}
	if err := d.storage.BriefStorage().Save(ctx, brief); err != nil {
		return fmt.Errorf("saving brief: %w", err)
	}

	d.logger.Info().Str("date", brief.Date).Int("tickers", brief.TickerCount).Msg("Daily brief published")
	return nil
}

// compose renders the markdown source: a ranked table followed by the
// per-ticker recommendations.
func (d *DailyBrief) compose(now time.Time, analyses []*models.StockAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Daily Brief: %s\n\n", now.Format("Monday, January 2, 2006"))

	if len(analyses) == 0 {
		b.WriteString("No completed analyses yet. The queue is still warming up.\n")
		return b.String()
	}

	b.WriteString("| # | Ticker | Rating | Score |\n")
	b.WriteString("|---|--------|--------|-------|\n")
	for i, a := range analyses {
		fmt.Fprintf(&b, "| %d | %s | %s | %d |\n", i+1, a.Ticker, ratingLabel(a.Micro.OverallRating), a.IntegratedScore)
	}

	b.WriteString("\n## Highlights\n")
	for _, a := range analyses {
		if a.Micro.Recommendation == "" {
			continue
		}
		fmt.Fprintf(&b, "\n### %s (%d)\n\n%s\n", a.Ticker, a.IntegratedScore, a.Micro.Recommendation)
	}

	return b.String()
}

func ratingLabel(rating models.OverallRating) string {
	return strings.ReplaceAll(string(rating), "_", " ")
}
