// -----------------------------------------------------------------------
// Scheduler service - cron-style recurring triggers with overlap
// protection and health monitoring
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

const healthCheckInterval = 5 * time.Minute

// staleness beyond this multiple of the trigger's cadence marks it unhealthy
const staleCadenceMultiple = 2

// triggerEntry is one registered trigger and its run bookkeeping.
// runMu serializes executions of this trigger only; overlapping ticks
// are skipped, never queued.
type triggerEntry struct {
	name     string
	schedule string
	cadence  time.Duration
	fn       interfaces.TriggerFunc
	cronID   cron.EntryID

	runMu sync.Mutex

	mu             sync.Mutex
	running        bool
	lastRunTime    time.Time
	lastRunSuccess bool
	lastError      string
	runCount       int
	errorCount     int
	skippedCount   int
	health         interfaces.HealthStatus
}

// Service implements SchedulerService on top of robfig/cron.
type Service struct {
	cron    *cron.Cron
	clock   Clock
	logger  arbor.ILogger
	baseCtx context.Context

	mu       sync.Mutex
	triggers map[string]*triggerEntry
	order    []string
	started  bool
	stopCh   chan struct{}
}

var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a scheduler. A nil clock uses wall time.
func NewService(logger arbor.ILogger, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{
		cron:     cron.New(),
		clock:    clock,
		logger:   logger,
		baseCtx:  context.Background(),
		triggers: make(map[string]*triggerEntry),
	}
}

// RegisterTrigger adds a named trigger. Must be called before Start.
func (s *Service) RegisterTrigger(name, schedule string, cadence time.Duration, fn interfaces.TriggerFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("trigger name and callback are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("cannot register trigger %s after start", name)
	}
	if _, exists := s.triggers[name]; exists {
		return fmt.Errorf("trigger %s already registered", name)
	}

	entry := &triggerEntry{
		name:     name,
		schedule: schedule,
		cadence:  cadence,
		fn:       fn,
		health:   interfaces.HealthUnknown,
	}

	id, err := s.cron.AddFunc(schedule, func() { s.execute(entry) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for trigger %s: %w", schedule, name, err)
	}
	entry.cronID = id

	s.triggers[name] = entry
	s.order = append(s.order, name)

	s.logger.Info().
		Str("trigger", name).
		Str("schedule", schedule).
		Str("cadence", cadence.String()).
		Msg("Trigger registered")

	return nil
}

// Start begins schedule evaluation and the health monitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.baseCtx = ctx
	s.stopCh = make(chan struct{})

	s.cron.Start()
	go s.runHealthMonitor()

	s.logger.Info().Int("triggers", len(s.triggers)).Msg("Scheduler started")
	return nil
}

// Stop halts schedule evaluation and waits for running triggers to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// TriggerNow runs a trigger out of schedule, honoring its overlap guard.
func (s *Service) TriggerNow(name string) error {
	s.mu.Lock()
	entry, ok := s.triggers[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown trigger %s", name)
	}

	s.execute(entry)
	return nil
}

// execute runs one tick of a trigger. An already-running trigger skips the
// tick instead of stacking a second execution.
func (s *Service) execute(entry *triggerEntry) {
	if !entry.runMu.TryLock() {
		entry.mu.Lock()
		entry.skippedCount++
		entry.mu.Unlock()
		s.logger.Warn().Str("trigger", entry.name).Msg("Trigger still running, tick skipped")
		return
	}
	defer entry.runMu.Unlock()

	entry.mu.Lock()
	entry.running = true
	entry.mu.Unlock()

	started := s.clock.Now()
	err := s.runGuarded(entry)

	entry.mu.Lock()
	entry.running = false
	entry.lastRunTime = started
	entry.runCount++
	if err != nil {
		entry.errorCount++
		entry.lastRunSuccess = false
		entry.lastError = err.Error()
		entry.health = interfaces.HealthUnhealthy
	} else {
		entry.lastRunSuccess = true
		entry.lastError = ""
		entry.health = interfaces.HealthHealthy
	}
	entry.mu.Unlock()

	if err != nil {
		s.logger.Error().Str("trigger", entry.name).Err(err).Msg("Trigger run failed")
	} else {
		s.logger.Info().
			Str("trigger", entry.name).
			Str("duration", time.Since(started).Round(time.Millisecond).String()).
			Msg("Trigger run completed")
	}
}

// runGuarded invokes the callback with panic containment.
func (s *Service) runGuarded(entry *triggerEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trigger panic: %v", r)
		}
	}()
	return entry.fn(s.baseCtx)
}

// GetStatus reports every registered trigger in registration order.
func (s *Service) GetStatus() []interfaces.TriggerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	statuses := make([]interfaces.TriggerStatus, 0, len(s.order))
	for _, name := range s.order {
		entry := s.triggers[name]
		entry.mu.Lock()
		status := interfaces.TriggerStatus{
			Name:           entry.name,
			Schedule:       entry.schedule,
			Enabled:        true,
			Running:        entry.running,
			LastRunTime:    entry.lastRunTime,
			LastRunSuccess: entry.lastRunSuccess,
			LastError:      entry.lastError,
			NextRunTime:    s.cron.Entry(entry.cronID).Next,
			RunCount:       entry.runCount,
			ErrorCount:     entry.errorCount,
			SkippedCount:   entry.skippedCount,
			Health:         s.evaluateHealth(entry, now),
		}
		entry.mu.Unlock()
		statuses = append(statuses, status)
	}
	return statuses
}

// evaluateHealth classifies a trigger. Callers hold entry.mu.
func (s *Service) evaluateHealth(entry *triggerEntry, now time.Time) interfaces.HealthStatus {
	if entry.lastRunTime.IsZero() {
		return interfaces.HealthUnknown
	}
	if !entry.lastRunSuccess {
		return interfaces.HealthUnhealthy
	}
	if entry.cadence > 0 && now.Sub(entry.lastRunTime) > staleCadenceMultiple*entry.cadence {
		return interfaces.HealthUnhealthy
	}
	return interfaces.HealthHealthy
}

// runHealthMonitor periodically re-evaluates trigger health so staleness
// surfaces in logs even when nobody polls GetStatus.
func (s *Service) runHealthMonitor() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkHealth()
		}
	}
}

func (s *Service) checkHealth() {
	now := s.clock.Now()

	s.mu.Lock()
	entries := make([]*triggerEntry, 0, len(s.triggers))
	for _, name := range s.order {
		entries = append(entries, s.triggers[name])
	}
	s.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		previous := entry.health
		current := s.evaluateHealth(entry, now)
		entry.health = current
		lastRun := entry.lastRunTime
		entry.mu.Unlock()

		if current == interfaces.HealthUnhealthy && previous != interfaces.HealthUnhealthy {
			s.logger.Warn().
				Str("trigger", entry.name).
				Str("last_run", lastRun.Format(time.RFC3339)).
				Msg("Trigger became unhealthy")
		}
	}
}
