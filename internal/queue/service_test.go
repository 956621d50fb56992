package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/storage/badger"
)

func newTestStorage(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path:       t.TempDir(),
		GCInterval: "10m",
	})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	storage := newTestStorage(t)
	return NewService(storage, 3, 24*time.Hour, arbor.NewLogger()), storage
}

func TestEnqueueNormalizesTicker(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	job, created, err := svc.Enqueue(ctx, "aapl", "manual", models.JobPriorityHigh, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "AAPL", job.Ticker)
	assert.Equal(t, 3, job.MaxRetries)
}

func TestEnqueueSingleFlightReturnsActiveJob(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, created, err := svc.Enqueue(ctx, "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Enqueue(ctx, "AAPL", "background", models.JobPriorityNormal, false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnqueueForceSupersedes(t *testing.T) {
	ctx := context.Background()
	svc, storage := newTestService(t)

	first, _, err := svc.Enqueue(ctx, "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)

	second, created, err := svc.Enqueue(ctx, "AAPL", "manual", models.JobPriorityHigh, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)

	old, err := storage.JobStorage().GetJob(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, old.Status)
}

func TestEnqueueResetsTracking(t *testing.T) {
	ctx := context.Background()
	svc, storage := newTestService(t)

	require.NoError(t, storage.StockStorage().Upsert(ctx, &models.Stock{
		Ticker: "AAPL", MicroDone: true, MacroDone: true, CombinedDone: true,
	}))
	require.NoError(t, storage.AnalysisStorage().Upsert(ctx, &models.StockAnalysis{
		Ticker: "AAPL", Status: models.AnalysisStatusCompleted, IntegratedScore: 80,
	}))

	_, created, err := svc.Enqueue(ctx, "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)
	require.True(t, created)

	stock, err := storage.StockStorage().Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, stock.AnalysisComplete())

	snapshot, err := storage.AnalysisStorage().Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusAnalyzing, snapshot.Status)
}

func TestEnqueueRejectsEmptyTicker(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Enqueue(context.Background(), "", "manual", models.JobPriorityNormal, false)
	assert.Error(t, err)
}

func TestCancelJobs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, _, err := svc.Enqueue(ctx, "AAPL", "manual", models.JobPriorityNormal, false)
	require.NoError(t, err)

	cancelled, err := svc.CancelJobs(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	job, err := svc.GetJobStatus(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, job.Status)
}
