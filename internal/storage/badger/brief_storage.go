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

// BriefStorage implements the BriefStorage interface for Badger
type BriefStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBriefStorage creates a new BriefStorage instance
func NewBriefStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BriefStorage {
	return &BriefStorage{
		db:     db,
		logger: logger,
	}
}

// Save persists a daily brief, overwriting any brief for the same date
func (s *BriefStorage) Save(ctx context.Context, brief *models.DailyBrief) error {
	if brief.Date == "" {
		return fmt.Errorf("brief date is required")
	}
	if brief.CreatedAt.IsZero() {
		brief.CreatedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(brief.Date, brief); err != nil {
		return fmt.Errorf("failed to save daily brief for %s: %w", brief.Date, err)
	}
	return nil
}

// GetByDate fetches the brief for a date ("2006-01-02")
func (s *BriefStorage) GetByDate(ctx context.Context, date string) (*models.DailyBrief, error) {
	var brief models.DailyBrief
	if err := s.db.Store().Get(date, &brief); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get daily brief for %s: %w", date, err)
	}
	return &brief, nil
}
