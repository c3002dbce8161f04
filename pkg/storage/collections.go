package storage

import (
	"fmt"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// GetCollection returns a collection by name
func (se *StorageEngine) GetCollection(collName string) (*Collection, error) {
	if value, ok := se.collections.Load(collName); ok {
		return value.(*Collection), nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrCollectionMissing, collName)
}

// CreateCollection creates a new, empty collection
func (se *StorageEngine) CreateCollection(collName string) domain.Result {
	return se.mutate("create_collection", func() domain.Result {
		if err := domain.ValidateCollectionName(collName); err != nil {
			return domain.Failed(err)
		}
		if _, exists := se.collections.Load(collName); exists {
			return domain.Failedf(domain.ErrCollectionExists, "%s", collName)
		}

		collection, err := NewCollection(collName, se.dataDir, se.wal, se.indexEngine)
		if err != nil {
			return domain.Failed(err)
		}
		if _, loaded := se.collections.LoadOrStore(collName, collection); loaded {
			return domain.Failedf(domain.ErrCollectionExists, "%s", collName)
		}

		se.logger.Infow("collection created", "collection", collName)
		return domain.OK("collection created", collName)
	})
}

// getOrCreateCollection is used by replay, where unknown collections are
// created on first sight
func (se *StorageEngine) getOrCreateCollection(collName string) (*Collection, error) {
	if value, ok := se.collections.Load(collName); ok {
		return value.(*Collection), nil
	}

	collection, err := NewCollection(collName, se.dataDir, se.wal, se.indexEngine)
	if err != nil {
		return nil, err
	}
	value, loaded := se.collections.LoadOrStore(collName, collection)
	if !loaded {
		se.logger.Infow("created collection during replay", "collection", collName)
	}
	return value.(*Collection), nil
}

// withCollection runs fn on an existing collection or fails with
// "collection missing"
func (se *StorageEngine) withCollection(collName string, fn func(*Collection) domain.Result) domain.Result {
	collection, err := se.GetCollection(collName)
	if err != nil {
		return domain.Failed(err)
	}
	return fn(collection)
}
