package storage

import (
	"fmt"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// CreateIndex creates an index on a field of a collection and backfills it
// from the documents already stored. Creating an existing index succeeds.
func (se *StorageEngine) CreateIndex(collName, fieldName string) domain.Result {
	return se.observe("create_index", se.withCollection(collName, func(c *Collection) domain.Result {
		if fieldName == "" {
			return domain.Failedf(domain.ErrInvalidInput, "field is required")
		}
		created, err := c.BuildIndex(fieldName)
		if err != nil {
			return domain.Failed(err)
		}
		if !created {
			return domain.OK(fmt.Sprintf("index already exists: %s", fieldName), fieldName)
		}
		se.logger.Infow("index created", "collection", collName, "field", fieldName, "documents", c.Count())
		return domain.OK("index created", fieldName)
	}))
}

// FindDocuments returns the documents whose field stringifies to key
func (se *StorageEngine) FindDocuments(collName, fieldName, key string) domain.Result {
	return se.observe("find", se.withCollection(collName, func(c *Collection) domain.Result {
		return c.Find(fieldName, key)
	}))
}

// DropIndex removes an index from a collection. Like CreateIndex it is not
// logged; an index seeded from configuration comes back on restart.
func (se *StorageEngine) DropIndex(collName, fieldName string) domain.Result {
	return se.observe("drop_index", se.withCollection(collName, func(c *Collection) domain.Result {
		if !c.DropIndex(fieldName) {
			return domain.Failedf(domain.ErrIndexNotFound, "%s", fieldName)
		}
		se.logger.Infow("index dropped", "collection", collName, "field", fieldName)
		return domain.OK("index dropped", fieldName)
	}))
}

// GetIndexes returns all indexed field names of a collection
func (se *StorageEngine) GetIndexes(collName string) ([]string, error) {
	if _, err := se.GetCollection(collName); err != nil {
		return nil, err
	}
	return se.indexEngine.GetIndexes(collName), nil
}
