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

// StockStorage implements the StockStorage interface for Badger
type StockStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStockStorage creates a new StockStorage instance
func NewStockStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StockStorage {
	return &StockStorage{
		db:     db,
		logger: logger,
	}
}

// Upsert saves a stock, preserving CreatedAt on existing rows
func (s *StockStorage) Upsert(ctx context.Context, stock *models.Stock) error {
	if stock.Ticker == "" {
		return fmt.Errorf("stock ticker is required")
	}

	now := time.Now().UTC()
	var existing models.Stock
	if err := s.db.Store().Get(stock.Ticker, &existing); err == nil {
		stock.CreatedAt = existing.CreatedAt
	} else {
		stock.CreatedAt = now
	}
	stock.UpdatedAt = now

	if err := s.db.Store().Upsert(stock.Ticker, stock); err != nil {
		return fmt.Errorf("failed to save stock %s: %w", stock.Ticker, err)
	}
	return nil
}

// Get fetches a stock by ticker
func (s *StockStorage) Get(ctx context.Context, ticker string) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.Store().Get(ticker, &stock); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get stock %s: %w", ticker, err)
	}
	return &stock, nil
}

// List returns all tracked stocks
func (s *StockStorage) List(ctx context.Context) ([]*models.Stock, error) {
	var stocks []models.Stock
	if err := s.db.Store().Find(&stocks, badgerhold.Where("Ticker").Ne("").SortBy("Ticker")); err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	result := make([]*models.Stock, len(stocks))
	for i := range stocks {
		result[i] = &stocks[i]
	}
	return result, nil
}

// ListIncomplete returns stocks with at least one completion flag unset
func (s *StockStorage) ListIncomplete(ctx context.Context) ([]*models.Stock, error) {
	stocks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	// Flag combinations don't index well; filter the scan instead
	incomplete := make([]*models.Stock, 0)
	for _, stock := range stocks {
		if !stock.AnalysisComplete() {
			incomplete = append(incomplete, stock)
		}
	}
	return incomplete, nil
}

// SetCompletionFlags updates the per-phase bookkeeping for a ticker
func (s *StockStorage) SetCompletionFlags(ctx context.Context, ticker string, micro, macro, combined bool) error {
	var stock models.Stock
	if err := s.db.Store().Get(ticker, &stock); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get stock %s: %w", ticker, err)
	}

	stock.MicroDone = micro
	stock.MacroDone = macro
	stock.CombinedDone = combined
	stock.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Update(ticker, &stock); err != nil {
		return fmt.Errorf("failed to update flags for %s: %w", ticker, err)
	}
	return nil
}

// UpdatePrice refreshes the cached quote fields for a ticker
func (s *StockStorage) UpdatePrice(ctx context.Context, ticker string, price, previousClose float64) error {
	var stock models.Stock
	if err := s.db.Store().Get(ticker, &stock); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrNotFound
		}
		return fmt.Errorf("failed to get stock %s: %w", ticker, err)
	}

	stock.CurrentPrice = price
	stock.PreviousClose = previousClose
	stock.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Update(ticker, &stock); err != nil {
		return fmt.Errorf("failed to update price for %s: %w", ticker, err)
	}
	return nil
}
