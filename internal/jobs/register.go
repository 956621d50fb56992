package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

// RegisterAll wires every recurring job into the scheduler using the
// configured schedules. Disabled triggers are logged and skipped.
func RegisterAll(
	sched interfaces.SchedulerService,
	config *common.Config,
	candidates *CandidateRefresh,
	prices *PriceRefresh,
	reconciliation *Reconciliation,
	brief *DailyBrief,
	logger arbor.ILogger,
) error {
	triggers := []struct {
		name string
		fn   interfaces.TriggerFunc
	}{
		{common.TriggerCandidateRefreshHourly, candidates.RunHourly},
		{common.TriggerCandidateRefreshDaily, candidates.RunDaily},
		{common.TriggerPriceRefresh, prices.Run},
		{common.TriggerReconciliation, reconciliation.Run},
		{common.TriggerDailyBrief, brief.Run},
	}

	for _, trigger := range triggers {
		cfg, ok := config.Triggers[trigger.name]
		if !ok || !cfg.Enabled {
			logger.Info().Str("trigger", trigger.name).Msg("Trigger disabled, skipping registration")
			continue
		}
		if err := sched.RegisterTrigger(trigger.name, cfg.Schedule, scheduleCadence(cfg.Schedule), trigger.fn); err != nil {
			return err
		}
	}

	return nil
}

// scheduleCadence derives the expected interval between runs from the
// cron expression itself, so the staleness health check tracks whatever
// schedule the operator configured.
func scheduleCadence(schedule string) time.Duration {
	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return 0
	}
	first := spec.Next(time.Now())
	second := spec.Next(first)
	return second.Sub(first)
}
