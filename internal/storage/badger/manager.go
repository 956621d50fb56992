package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	job      interfaces.JobStorage
	stock    interfaces.StockStorage
	analysis interfaces.AnalysisStorage
	macro    interfaces.MacroStorage
	brief    interfaces.BriefStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		job:      NewJobStorage(db, logger),
		stock:    NewStockStorage(db, logger),
		analysis: NewAnalysisStorage(db, logger),
		macro:    NewMacroStorage(db, logger),
		brief:    NewBriefStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the analysis job queue storage
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// StockStorage returns the tracked stock storage
func (m *Manager) StockStorage() interfaces.StockStorage {
	return m.stock
}

// AnalysisStorage returns the analysis snapshot storage
func (m *Manager) AnalysisStorage() interfaces.AnalysisStorage {
	return m.analysis
}

// MacroStorage returns the macro snapshot storage
func (m *Manager) MacroStorage() interfaces.MacroStorage {
	return m.macro
}

// BriefStorage returns the daily brief storage
func (m *Manager) BriefStorage() interfaces.BriefStorage {
	return m.brief
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
