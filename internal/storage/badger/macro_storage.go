package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// MacroStorage implements the MacroStorage interface for Badger.
//
// Macro rows are append-only; GetCurrent reads the newest per sector. Two
// pipelines racing to create a snapshot for the same sector both succeed
// and the later row wins on the next lookup, which is the accepted
// resolution for the cache-aside race.
type MacroStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMacroStorage creates a new MacroStorage instance
func NewMacroStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MacroStorage {
	return &MacroStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a macro snapshot
func (s *MacroStorage) Save(ctx context.Context, macro *models.MacroAnalysis) error {
	if macro.ID == "" {
		return fmt.Errorf("macro analysis ID is required")
	}
	if macro.CreatedAt.IsZero() {
		macro.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(macro.ID, macro); err != nil {
		return fmt.Errorf("failed to save macro analysis: %w", err)
	}

	s.logger.Debug().
		Str("id", macro.ID).
		Str("sector", macro.Sector).
		Int("macro_score", macro.MacroScore).
		Msg("Macro analysis saved")

	return nil
}

// GetByID fetches a macro snapshot by ID
func (s *MacroStorage) GetByID(ctx context.Context, id string) (*models.MacroAnalysis, error) {
	var macro models.MacroAnalysis
	if err := s.db.Store().Get(id, &macro); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get macro analysis %s: %w", id, err)
	}
	return &macro, nil
}

// GetCurrent returns the newest fresh snapshot for a sector, or ErrNotFound.
// Rows older than maxAge are treated as absent so the caller recreates them.
func (s *MacroStorage) GetCurrent(ctx context.Context, sector string, maxAge time.Duration) (*models.MacroAnalysis, error) {
	sector = models.NormalizeSector(sector)

	var macros []models.MacroAnalysis
	query := badgerhold.Where("Sector").Eq(sector).SortBy("CreatedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&macros, query); err != nil {
		return nil, fmt.Errorf("failed to query macro analyses for sector %q: %w", sector, err)
	}
	if len(macros) == 0 {
		return nil, interfaces.ErrNotFound
	}

	macro := macros[0]
	if !macro.IsFresh(time.Now().UTC(), maxAge) {
		return nil, interfaces.ErrNotFound
	}
	return &macro, nil
}
