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

// AnalysisStorage implements the AnalysisStorage interface for Badger
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert saves the analysis snapshot for a ticker, preserving CreatedAt
func (s *AnalysisStorage) Upsert(ctx context.Context, analysis *models.StockAnalysis) error {
	if analysis.Ticker == "" {
		return fmt.Errorf("analysis ticker is required")
	}

	now := time.Now().UTC()
	var existing models.StockAnalysis
	if err := s.db.Store().Get(analysis.Ticker, &existing); err == nil {
		analysis.CreatedAt = existing.CreatedAt
	} else {
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now

	if err := s.db.Store().Upsert(analysis.Ticker, analysis); err != nil {
		return fmt.Errorf("failed to save analysis for %s: %w", analysis.Ticker, err)
	}
	return nil
}

// Get fetches the latest snapshot for a ticker
func (s *AnalysisStorage) Get(ctx context.Context, ticker string) (*models.StockAnalysis, error) {
	var analysis models.StockAnalysis
	if err := s.db.Store().Get(ticker, &analysis); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis for %s: %w", ticker, err)
	}
	return &analysis, nil
}

// ListCompleted returns completed snapshots, highest integrated score first
func (s *AnalysisStorage) ListCompleted(ctx context.Context, limit int) ([]*models.StockAnalysis, error) {
	query := badgerhold.Where("Status").Eq(models.AnalysisStatusCompleted).
		SortBy("IntegratedScore").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var analyses []models.StockAnalysis
	if err := s.db.Store().Find(&analyses, query); err != nil {
		return nil, fmt.Errorf("failed to list completed analyses: %w", err)
	}

	result := make([]*models.StockAnalysis, len(analyses))
	for i := range analyses {
		result[i] = &analyses[i]
	}
	return result, nil
}
