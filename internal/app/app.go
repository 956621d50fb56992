// -----------------------------------------------------------------------
// Application wiring - builds every service from configuration and
// manages their lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/analysis"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/jobs"
	"github.com/ternarybob/aestimo/internal/providers/edgar"
	"github.com/ternarybob/aestimo/internal/providers/eodhd"
	"github.com/ternarybob/aestimo/internal/queue"
	"github.com/ternarybob/aestimo/internal/services/llm"
	"github.com/ternarybob/aestimo/internal/services/scheduler"
	"github.com/ternarybob/aestimo/internal/storage/badger"
)

// App holds every wired service. Construction order matters: storage
// first, then providers, then the pipeline and its consumers.
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	Storage   interfaces.StorageManager
	Queue     *queue.Service
	Worker    *queue.Worker
	Scheduler interfaces.SchedulerService
}

// New builds the application from configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	// Market data
	eodhdOpts := []eodhd.ClientOption{
		eodhd.WithLogger(logger),
		eodhd.WithRateLimit(config.EODHD.RateLimit),
	}
	if config.EODHD.BaseURL != "" {
		eodhdOpts = append(eodhdOpts, eodhd.WithBaseURL(config.EODHD.BaseURL))
	}
	market := eodhd.NewProvider(eodhd.NewClient(config.EODHD.APIKey, eodhdOpts...), logger)

	// Filings are an optional source; a nil provider disables them
	var filings interfaces.FilingProvider
	if config.Edgar.Enabled {
		edgarOpts := []edgar.ClientOption{edgar.WithLogger(logger)}
		if config.Edgar.BaseURL != "" {
			edgarOpts = append(edgarOpts,
				edgar.WithDataURL(config.Edgar.BaseURL),
				edgar.WithArchiveURL(config.Edgar.BaseURL))
		}
		filings = edgar.NewClient(config.Edgar.UserAgent, edgarOpts...)
	}

	// Scoring
	factory := llm.NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, logger)
	micro := llm.NewMicroScorer(factory, logger)
	macro := llm.NewMacroScorer(factory, logger)

	macroMaxAge := config.Analysis.MacroMaxAgeDuration()
	pipeline := analysis.NewPipeline(market, filings, micro, macro, storage, macroMaxAge, logger)

	// Queue
	queueService := queue.NewService(storage, config.Queue.MaxRetries, macroMaxAge, logger)
	worker := queue.NewWorker(
		storage,
		pipeline,
		config.Queue.Concurrency,
		common.ParseDurationOr(config.Queue.ActivePollPeriod, 0),
		common.ParseDurationOr(config.Queue.IdlePollPeriod, 0),
		logger,
	)

	// Recurring jobs
	sched := scheduler.NewService(logger, nil)
	candidates := jobs.NewCandidateRefresh(market, storage, queueService, config.EODHD.Exchange, logger)
	prices := jobs.NewPriceRefresh(market, storage, logger)
	reconciliation := jobs.NewReconciliation(storage, queueService, logger)
	brief := jobs.NewDailyBrief(storage, logger)
	if err := jobs.RegisterAll(sched, config, candidates, prices, reconciliation, brief, logger); err != nil {
		storage.Close()
		return nil, fmt.Errorf("registering triggers: %w", err)
	}

	logger.Info().
		Str("environment", config.Environment).
		Str("exchange", config.EODHD.Exchange).
		Bool("edgar_enabled", config.Edgar.Enabled).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Msg("Application initialized")

	return &App{
		Config:    config,
		Logger:    logger,
		Storage:   storage,
		Queue:     queueService,
		Worker:    worker,
		Scheduler: sched,
	}, nil
}

// Start launches the worker pool and the trigger scheduler.
func (a *App) Start(ctx context.Context) error {
	a.Worker.Start(ctx)
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	a.Logger.Info().Msg("Application started")
	return nil
}

// Stop shuts everything down in reverse order: no new triggers, drain
// workers, then close storage.
func (a *App) Stop() {
	a.Scheduler.Stop()
	a.Worker.Stop()
	if err := a.Storage.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Storage close reported an error")
	}
	a.Logger.Info().Msg("Application stopped")
}
