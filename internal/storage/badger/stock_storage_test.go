package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/models"
)

func TestStockCompletionFlags(t *testing.T) {
	storage := NewStockStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, &models.Stock{
		Ticker:      "AAPL",
		CompanyName: "Apple Inc",
		Sector:      "Technology",
	}))
	require.NoError(t, storage.Upsert(ctx, &models.Stock{
		Ticker:       "MSFT",
		CompanyName:  "Microsoft Corp",
		Sector:       "Technology",
		MicroDone:    true,
		MacroDone:    true,
		CombinedDone: true,
	}))

	incomplete, err := storage.ListIncomplete(ctx)
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, "AAPL", incomplete[0].Ticker)

	require.NoError(t, storage.SetCompletionFlags(ctx, "AAPL", true, true, true))

	incomplete, err = storage.ListIncomplete(ctx)
	require.NoError(t, err)
	assert.Empty(t, incomplete)

	got, err := storage.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, got.AnalysisComplete())
}

func TestStockUpsertPreservesCreatedAt(t *testing.T) {
	storage := NewStockStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, &models.Stock{Ticker: "AAPL"}))
	first, err := storage.Get(ctx, "AAPL")
	require.NoError(t, err)

	require.NoError(t, storage.Upsert(ctx, &models.Stock{Ticker: "AAPL", CompanyName: "Apple Inc"}))
	second, err := storage.Get(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "Apple Inc", second.CompanyName)
}

func TestStockUpdatePrice(t *testing.T) {
	storage := NewStockStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, &models.Stock{Ticker: "AAPL"}))
	require.NoError(t, storage.UpdatePrice(ctx, "AAPL", 231.5, 229.1))

	got, err := storage.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 231.5, got.CurrentPrice)
	assert.Equal(t, 229.1, got.PreviousClose)
}
