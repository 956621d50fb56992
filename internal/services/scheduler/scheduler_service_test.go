package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

// fakeClock returns a settable instant
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestScheduler(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	return NewService(arbor.NewLogger(), clock), clock
}

func TestRegisterTriggerRejectsBadSchedule(t *testing.T) {
	svc, _ := newTestScheduler(t)
	err := svc.RegisterTrigger("bad", "every tea time", time.Hour, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRegisterTriggerRejectsDuplicate(t *testing.T) {
	svc, _ := newTestScheduler(t)
	fn := func(context.Context) error { return nil }
	require.NoError(t, svc.RegisterTrigger("dup", "0 * * * *", time.Hour, fn))
	assert.Error(t, svc.RegisterTrigger("dup", "0 * * * *", time.Hour, fn))
}

func TestTriggerNowRunsAndRecordsSuccess(t *testing.T) {
	svc, _ := newTestScheduler(t)

	ran := false
	require.NoError(t, svc.RegisterTrigger("refresh", "0 * * * *", time.Hour, func(context.Context) error {
		ran = true
		return nil
	}))

	require.NoError(t, svc.TriggerNow("refresh"))
	assert.True(t, ran)

	status := svc.GetStatus()
	require.Len(t, status, 1)
	assert.Equal(t, "refresh", status[0].Name)
	assert.Equal(t, 1, status[0].RunCount)
	assert.True(t, status[0].LastRunSuccess)
	assert.Equal(t, interfaces.HealthHealthy, status[0].Health)
}

func TestTriggerNowUnknownName(t *testing.T) {
	svc, _ := newTestScheduler(t)
	assert.Error(t, svc.TriggerNow("nope"))
}

func TestTriggerErrorMarksUnhealthy(t *testing.T) {
	svc, _ := newTestScheduler(t)

	var fail = true
	require.NoError(t, svc.RegisterTrigger("flaky", "0 * * * *", time.Hour, func(context.Context) error {
		if fail {
			return errors.New("screener 500")
		}
		return nil
	}))

	require.NoError(t, svc.TriggerNow("flaky"))

	status := svc.GetStatus()[0]
	assert.False(t, status.LastRunSuccess)
	assert.Equal(t, "screener 500", status.LastError)
	assert.Equal(t, 1, status.ErrorCount)
	assert.Equal(t, interfaces.HealthUnhealthy, status.Health)

	// A later successful run recovers
	fail = false
	require.NoError(t, svc.TriggerNow("flaky"))
	recovered := svc.GetStatus()[0]
	assert.Equal(t, 2, recovered.RunCount)
	assert.Equal(t, 1, recovered.ErrorCount)
	assert.True(t, recovered.LastRunSuccess)
	assert.Empty(t, recovered.LastError)
	assert.Equal(t, interfaces.HealthHealthy, recovered.Health)
}

func TestTriggerPanicContained(t *testing.T) {
	svc, _ := newTestScheduler(t)

	require.NoError(t, svc.RegisterTrigger("panicky", "0 * * * *", time.Hour, func(context.Context) error {
		panic("boom")
	}))

	require.NoError(t, svc.TriggerNow("panicky"))

	status := svc.GetStatus()[0]
	assert.False(t, status.LastRunSuccess)
	assert.Contains(t, status.LastError, "panic")
}

func TestStaleTriggerBecomesUnhealthy(t *testing.T) {
	svc, clock := newTestScheduler(t)

	require.NoError(t, svc.RegisterTrigger("hourly", "0 * * * *", time.Hour, func(context.Context) error {
		return nil
	}))

	require.NoError(t, svc.TriggerNow("hourly"))
	assert.Equal(t, interfaces.HealthHealthy, svc.GetStatus()[0].Health)

	// Within 2x cadence is still healthy
	clock.Advance(90 * time.Minute)
	assert.Equal(t, interfaces.HealthHealthy, svc.GetStatus()[0].Health)

	// Beyond 2x cadence is stale
	clock.Advance(90 * time.Minute)
	assert.Equal(t, interfaces.HealthUnhealthy, svc.GetStatus()[0].Health)
}

func TestNeverRunTriggerIsUnknown(t *testing.T) {
	svc, _ := newTestScheduler(t)

	require.NoError(t, svc.RegisterTrigger("idle", "0 6 * * *", 24*time.Hour, func(context.Context) error {
		return nil
	}))

	status := svc.GetStatus()[0]
	assert.Equal(t, interfaces.HealthUnknown, status.Health)
	assert.True(t, status.LastRunTime.IsZero())
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	svc, _ := newTestScheduler(t)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, svc.RegisterTrigger("slow", "* * * * *", time.Minute, func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	go func() { _ = svc.TriggerNow("slow") }()
	<-started

	// Second tick while the first is still running
	require.NoError(t, svc.TriggerNow("slow"))

	status := svc.GetStatus()[0]
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.SkippedCount)
	assert.Equal(t, 0, status.RunCount)

	close(release)
	assert.Eventually(t, func() bool {
		return svc.GetStatus()[0].RunCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	svc, _ := newTestScheduler(t)
	require.NoError(t, svc.RegisterTrigger("noop", "0 * * * *", time.Hour, func(context.Context) error { return nil }))

	require.NoError(t, svc.Start(context.Background()))
	assert.Error(t, svc.Start(context.Background()), "second start should fail")
	assert.Error(t, svc.RegisterTrigger("late", "0 * * * *", time.Hour, func(context.Context) error { return nil }))

	svc.Stop()
	svc.Stop() // idempotent
}
