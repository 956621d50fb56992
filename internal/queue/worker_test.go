package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/analysis"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

type fakeRunner struct {
	fn func(ctx context.Context, job *models.AnalysisJob) error
}

func (f *fakeRunner) Run(ctx context.Context, job *models.AnalysisJob) error {
	return f.fn(ctx, job)
}

func startWorker(t *testing.T, storage interfaces.StorageManager, runner JobRunner) {
	t.Helper()
	worker := NewWorker(storage, runner, 1, 5*time.Millisecond, 5*time.Millisecond, arbor.NewLogger())
	worker.Start(context.Background())
	t.Cleanup(worker.Stop)
}

func awaitJob(t *testing.T, storage interfaces.StorageManager, jobID string, done func(*models.AnalysisJob) bool) *models.AnalysisJob {
	t.Helper()
	var job *models.AnalysisJob
	require.Eventually(t, func() bool {
		var err error
		job, err = storage.JobStorage().GetJob(context.Background(), jobID)
		return err == nil && done(job)
	}, 3*time.Second, 10*time.Millisecond)
	return job
}

func TestWorkerCompletesJob(t *testing.T) {
	storage := newTestStorage(t)
	svc := NewService(storage, 3, 24*time.Hour, arbor.NewLogger())

	runner := &fakeRunner{fn: func(context.Context, *models.AnalysisJob) error { return nil }}
	startWorker(t, storage, runner)

	job, _, err := svc.Enqueue(context.Background(), "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)

	final := awaitJob(t, storage, job.ID, func(j *models.AnalysisJob) bool { return j.IsTerminal() })
	assert.Equal(t, models.JobStatusCompleted, final.Status)
}

func TestWorkerRetriesFailedJob(t *testing.T) {
	storage := newTestStorage(t)
	svc := NewService(storage, 3, 24*time.Hour, arbor.NewLogger())

	runner := &fakeRunner{fn: func(context.Context, *models.AnalysisJob) error {
		return errors.New("provider down")
	}}
	startWorker(t, storage, runner)

	job, _, err := svc.Enqueue(context.Background(), "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)

	retried := awaitJob(t, storage, job.ID, func(j *models.AnalysisJob) bool { return j.RetryCount > 0 })
	assert.Equal(t, models.JobStatusPending, retried.Status)
	assert.Equal(t, 1, retried.RetryCount)
	assert.Contains(t, retried.ErrorMessage, "provider down")
	assert.True(t, retried.ScheduledAt.After(time.Now()), "retry should be scheduled in the future")
}

func TestWorkerDropsSupersededResult(t *testing.T) {
	storage := newTestStorage(t)
	svc := NewService(storage, 3, 24*time.Hour, arbor.NewLogger())

	runner := &fakeRunner{fn: func(ctx context.Context, job *models.AnalysisJob) error {
		_, err := storage.JobStorage().CancelActiveJobs(ctx, job.Ticker)
		require.NoError(t, err)
		return analysis.ErrSuperseded
	}}
	startWorker(t, storage, runner)

	job, _, err := svc.Enqueue(context.Background(), "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)

	final := awaitJob(t, storage, job.ID, func(j *models.AnalysisJob) bool { return j.IsTerminal() })
	assert.Equal(t, models.JobStatusCancelled, final.Status)
	assert.Equal(t, 0, final.RetryCount)
}

func TestWorkerRecoversFromPanic(t *testing.T) {
	storage := newTestStorage(t)
	svc := NewService(storage, 3, 24*time.Hour, arbor.NewLogger())

	runner := &fakeRunner{fn: func(context.Context, *models.AnalysisJob) error {
		panic("nil map write")
	}}
	startWorker(t, storage, runner)

	job, _, err := svc.Enqueue(context.Background(), "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)

	retried := awaitJob(t, storage, job.ID, func(j *models.AnalysisJob) bool { return j.RetryCount > 0 })
	assert.Equal(t, models.JobStatusPending, retried.Status)
	assert.Contains(t, retried.ErrorMessage, "panic")
}
