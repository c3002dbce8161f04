package storage

import (
	"go.uber.org/zap"

	"github.com/adfharrison1/go-nosql/pkg/indexing"
)

type StorageOption func(*StorageEngine)

func WithDataDir(dir string) StorageOption {
	return func(engine *StorageEngine) {
		engine.dataDir = dir
	}
}

// WithIndexEngine shares an existing index engine
func WithIndexEngine(ie *indexing.IndexEngine) StorageOption {
	return func(engine *StorageEngine) {
		engine.indexEngine = ie
	}
}

func WithLogger(logger *zap.SugaredLogger) StorageOption {
	return func(engine *StorageEngine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}
