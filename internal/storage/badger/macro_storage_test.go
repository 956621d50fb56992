package badger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

func newMacro(sector string, age time.Duration) *models.MacroAnalysis {
	return &models.MacroAnalysis{
		ID:              uuid.New().String(),
		Sector:          sector,
		MacroScore:      60,
		MacroFactor:     1.1,
		MarketCondition: models.MarketBull,
		CreatedAt:       time.Now().UTC().Add(-age),
	}
}

func TestMacroGetCurrent(t *testing.T) {
	storage := NewMacroStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, newMacro("Technology", time.Hour)))

	got, err := storage.GetCurrent(ctx, "Technology", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "Technology", got.Sector)

	_, err = storage.GetCurrent(ctx, "Energy", 24*time.Hour)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestMacroGetCurrentAgesOut(t *testing.T) {
	storage := NewMacroStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, newMacro("Technology", 30*time.Hour)))

	// Stale rows are treated as absent so the pipeline recreates them
	_, err := storage.GetCurrent(ctx, "Technology", 24*time.Hour)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestMacroGetCurrentReturnsNewest(t *testing.T) {
	storage := NewMacroStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	old := newMacro("Technology", 2*time.Hour)
	old.MacroScore = 40
	require.NoError(t, storage.Save(ctx, old))

	fresh := newMacro("Technology", time.Minute)
	fresh.MacroScore = 70
	require.NoError(t, storage.Save(ctx, fresh))

	got, err := storage.GetCurrent(ctx, "Technology", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 70, got.MacroScore)
}

func TestMacroSectorNormalization(t *testing.T) {
	storage := NewMacroStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	// Empty sector = general market
	require.NoError(t, storage.Save(ctx, newMacro("", time.Minute)))

	// Placeholder sector values resolve to the general market row
	got, err := storage.GetCurrent(ctx, "N/A", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "", got.Sector)
}
