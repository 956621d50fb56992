// -----------------------------------------------------------------------
// Analysis pipeline - gathers data, runs macro and micro scoring,
// integrates the final score, and persists the snapshot
// -----------------------------------------------------------------------

package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/scoring"
)

// ErrSuperseded is returned when the job was cancelled while the pipeline
// was running, usually by a forced re-enqueue. The worker drops the result
// without retrying.
var ErrSuperseded = errors.New("job superseded")

// Step phases written to the job row as the pipeline advances
const (
	StepFetchingData     = "fetching_data"
	StepMacroAnalysis    = "macro_analysis"
	StepMicroAnalysis    = "micro_analysis"
	StepCalculatingScore = "calculating_score"
	StepPersisting       = "persisting"
)

// Pipeline runs the full two-stage analysis for one job.
type Pipeline struct {
	market      interfaces.MarketDataProvider
	filings     interfaces.FilingProvider // nil when filings are disabled
	micro       interfaces.MicroScorer
	macro       interfaces.MacroScorer
	storage     interfaces.StorageManager
	macroMaxAge time.Duration
	logger      arbor.ILogger
}

// NewPipeline wires the pipeline. filings may be nil.
func NewPipeline(
	market interfaces.MarketDataProvider,
	filings interfaces.FilingProvider,
	micro interfaces.MicroScorer,
	macro interfaces.MacroScorer,
	storage interfaces.StorageManager,
	macroMaxAge time.Duration,
	logger arbor.ILogger,
) *Pipeline {
	return &Pipeline{
		market:      market,
		filings:     filings,
		micro:       micro,
		macro:       macro,
		storage:     storage,
		macroMaxAge: macroMaxAge,
		logger:      logger,
	}
}

// Run executes the pipeline for a claimed job. Errors from required data
// sources and from scoring propagate to the caller for retry handling;
// optional source failures are logged and the field omitted.
func (p *Pipeline) Run(ctx context.Context, job *models.AnalysisJob) error {
	ticker := job.Ticker
	started := time.Now()

	p.logger.Info().
		Str("job_id", job.ID).
		Str("ticker", ticker).
		Str("source", job.Source).
		Msg("Starting analysis pipeline")

	p.setStep(ctx, job.ID, StepFetchingData, "quote", "")
	bundle, err := p.gatherBundle(ctx, job, ticker)
	if err != nil {
		return err
	}

	sector := models.NormalizeSector(bundle.Fundamentals.Sector)

	p.setStep(ctx, job.ID, StepMacroAnalysis, sectorLabel(sector), "")
	macro, err := p.currentMacro(ctx, sector)
	if err != nil {
		return fmt.Errorf("macro analysis for %s: %w", ticker, err)
	}

	p.setStep(ctx, job.ID, StepMicroAnalysis, "scoring", "")
	micro, err := p.micro.ScoreMicro(ctx, ticker, bundle)
	if err != nil {
		return fmt.Errorf("micro analysis for %s: %w", ticker, err)
	}

	p.setStep(ctx, job.ID, StepCalculatingScore, "", "")
	integrated := scoring.Integrate(micro.ConfidenceScore, macro.MacroFactor)

	// A forced re-enqueue cancels this job while we run; its result belongs
	// to the newer job, so check before writing anything.
	if err := p.checkSuperseded(ctx, job.ID); err != nil {
		return err
	}

	p.setStep(ctx, job.ID, StepPersisting, "", "")
	if err := p.persist(ctx, ticker, bundle, micro, macro, integrated); err != nil {
		return fmt.Errorf("persisting analysis for %s: %w", ticker, err)
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("ticker", ticker).
		Str("rating", string(micro.OverallRating)).
		Int("integrated_score", integrated).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Analysis pipeline completed")

	return nil
}

// gatherBundle fetches all data sources. Quote, fundamentals, technicals,
// and news sentiment are required; filing excerpts and extended
// fundamentals are optional.
func (p *Pipeline) gatherBundle(ctx context.Context, job *models.AnalysisJob, ticker string) (*models.AnalysisBundle, error) {
	bundle := &models.AnalysisBundle{Ticker: ticker}

	quote, err := p.market.FetchQuote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", ticker, err)
	}
	bundle.Quote = quote

	p.setStep(ctx, job.ID, StepFetchingData, "fundamentals", "")
	fundamentals, err := p.market.FetchFundamentals(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching fundamentals for %s: %w", ticker, err)
	}
	bundle.Fundamentals = fundamentals

	p.setStep(ctx, job.ID, StepFetchingData, "technicals", "")
	technicals, err := p.market.FetchTechnicals(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching technicals for %s: %w", ticker, err)
	}
	if technicals.High52Week > technicals.Low52Week {
		technicals.PriceVs52WkPct = (quote.Price - technicals.Low52Week) /
			(technicals.High52Week - technicals.Low52Week) * 100
	}
	bundle.Technicals = technicals

	p.setStep(ctx, job.ID, StepFetchingData, "news", "")
	sentiment, err := p.market.FetchNewsSentiment(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching news sentiment for %s: %w", ticker, err)
	}
	bundle.Sentiment = sentiment

	if p.filings != nil {
		p.setStep(ctx, job.ID, StepFetchingData, "filing", "")
		filing, err := p.filings.FetchFilingExcerpt(ctx, ticker)
		if err != nil {
			p.logger.Warn().
				Str("ticker", ticker).
				Err(err).
				Msg("Filing excerpt unavailable, continuing without it")
		} else {
			bundle.Filing = filing
		}
	}

	p.setStep(ctx, job.ID, StepFetchingData, "extended", "")
	extended, err := p.market.FetchExtendedFundamentals(ctx, ticker)
	if err != nil {
		p.logger.Warn().
			Str("ticker", ticker).
			Err(err).
			Msg("Extended fundamentals unavailable, continuing without them")
	} else {
		bundle.Extended = extended
	}

	return bundle, nil
}

// currentMacro returns a fresh macro snapshot for the sector, producing
// and caching a new one when none is fresh enough.
func (p *Pipeline) currentMacro(ctx context.Context, sector string) (*models.MacroAnalysis, error) {
	macro, err := p.storage.MacroStorage().GetCurrent(ctx, sector, p.macroMaxAge)
	if err == nil {
		p.logger.Debug().
			Str("sector", sectorLabel(sector)).
			Str("macro_id", macro.ID).
			Msg("Reusing cached macro analysis")
		return macro, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	macro, err = p.macro.ScoreMacro(ctx, sector)
	if err != nil {
		return nil, err
	}
	if err := p.storage.MacroStorage().Save(ctx, macro); err != nil {
		return nil, fmt.Errorf("saving macro analysis: %w", err)
	}
	return macro, nil
}

// checkSuperseded re-reads the job and reports ErrSuperseded if it was
// cancelled mid-flight.
func (p *Pipeline) checkSuperseded(ctx context.Context, jobID string) error {
	current, err := p.storage.JobStorage().GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("re-reading job %s: %w", jobID, err)
	}
	if current.Status == models.JobStatusCancelled {
		return ErrSuperseded
	}
	return nil
}

// persist writes the combined snapshot and the stock row atomically enough
// for a single process: analysis first, then stock flags.
func (p *Pipeline) persist(
	ctx context.Context,
	ticker string,
	bundle *models.AnalysisBundle,
	micro *models.MicroAnalysisResult,
	macro *models.MacroAnalysis,
	integrated int,
) error {
	now := time.Now().UTC()

	snapshot := &models.StockAnalysis{
		Ticker:          ticker,
		Micro:           *micro,
		Filing:          bundle.Filing,
		Fundamentals:    bundle.Fundamentals,
		MacroAnalysisID: macro.ID,
		IntegratedScore: integrated,
		Status:          models.AnalysisStatusCompleted,
		UpdatedAt:       now,
	}
	if err := p.storage.AnalysisStorage().Upsert(ctx, snapshot); err != nil {
		return err
	}

	stock := &models.Stock{
		Ticker:        ticker,
		CompanyName:   bundle.Fundamentals.CompanyName,
		Sector:        models.NormalizeSector(bundle.Fundamentals.Sector),
		CurrentPrice:  bundle.Quote.Price,
		PreviousClose: bundle.Quote.PreviousClose,
		MicroDone:     true,
		MacroDone:     true,
		CombinedDone:  true,
		UpdatedAt:     now,
	}
	if existing, err := p.storage.StockStorage().Get(ctx, ticker); err == nil {
		stock.Exchange = existing.Exchange
	}
	return p.storage.StockStorage().Upsert(ctx, stock)
}

// setStep records pipeline progress on the job row. Progress tracking is
// advisory; failures are logged and ignored.
func (p *Pipeline) setStep(ctx context.Context, jobID, phase, substep, progress string) {
	if err := p.storage.JobStorage().UpdateStep(ctx, jobID, phase, substep, progress); err != nil {
		p.logger.Warn().Str("job_id", jobID).Str("phase", phase).Err(err).Msg("Failed to record job step")
	}
}

func sectorLabel(sector string) string {
	if sector == "" {
		return "general"
	}
	return sector
}
