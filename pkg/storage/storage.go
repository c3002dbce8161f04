package storage

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/indexing"
	"github.com/adfharrison1/go-nosql/pkg/metrics"
	"github.com/adfharrison1/go-nosql/pkg/wal"
)

// Log is the write-ahead log as seen by the engine
type Log interface {
	LogWriter
	Recover(r wal.Replayer) (wal.RecoveryStats, error)
	Close() error
}

// StorageEngine is the registry of collections. It routes requests to the
// owning collection and drives log replay at startup.
type StorageEngine struct {
	collections sync.Map // name -> *Collection
	indexEngine *indexing.IndexEngine
	wal         Log
	logger      *zap.SugaredLogger

	// Configuration
	dataDir string

	// Mutations hold the read side; Close takes the write side
	closeMu sync.RWMutex
	closed  bool
}

// NewStorageEngine creates a storage engine on top of an open log
func NewStorageEngine(log Log, options ...StorageOption) (*StorageEngine, error) {
	if log == nil {
		return nil, fmt.Errorf("write-ahead log is required")
	}
	engine := &StorageEngine{
		wal:     log,
		dataDir: "data",
		logger:  zap.NewNop().Sugar(),
	}

	// Apply options
	for _, option := range options {
		option(engine)
	}
	if engine.indexEngine == nil {
		engine.indexEngine = indexing.NewIndexEngine()
	}

	if err := os.MkdirAll(engine.dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return engine, nil
}

// GetIndexEngine returns the index engine instance
func (se *StorageEngine) GetIndexEngine() *indexing.IndexEngine {
	return se.indexEngine
}

// DataDir returns the data directory
func (se *StorageEngine) DataDir() string {
	return se.dataDir
}

// Collections returns the sorted names of all collections
func (se *StorageEngine) Collections() []string {
	names := []string{}
	se.collections.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// RecoverFromWAL replays the log into the engine. Call it once, before
// serving requests.
func (se *StorageEngine) RecoverFromWAL() (wal.RecoveryStats, error) {
	stats, err := se.wal.Recover(se)
	if err != nil {
		return stats, fmt.Errorf("failed to recover from write-ahead log: %w", err)
	}
	return stats, nil
}

// Close waits for in-flight mutations, then closes the log. Later
// mutations fail with domain.ErrClosed; reads keep working.
func (se *StorageEngine) Close() error {
	se.closeMu.Lock()
	defer se.closeMu.Unlock()

	if se.closed {
		return nil
	}
	se.closed = true
	if err := se.wal.Close(); err != nil {
		return fmt.Errorf("failed to close write-ahead log: %w", err)
	}
	se.logger.Infow("storage engine closed", "collections", len(se.Collections()))
	return nil
}

// mutate runs fn unless the engine is closed and records the outcome
func (se *StorageEngine) mutate(operation string, fn func() domain.Result) domain.Result {
	se.closeMu.RLock()
	defer se.closeMu.RUnlock()

	var result domain.Result
	if se.closed {
		result = domain.Failed(domain.ErrClosed)
	} else {
		result = fn()
	}
	metrics.ObserveOperation(operation, result.Success)
	return result
}

func (se *StorageEngine) observe(operation string, result domain.Result) domain.Result {
	metrics.ObserveOperation(operation, result.Success)
	return result
}

var _ domain.DatabaseEngine = (*StorageEngine)(nil)
var _ wal.Replayer = (*StorageEngine)(nil)
