package storage

import (
	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// ReplayInsert applies a recovered INSERT without logging it
func (se *StorageEngine) ReplayInsert(collName string, doc *domain.Document) error {
	collection, err := se.getOrCreateCollection(collName)
	if err != nil {
		return err
	}
	return collection.replayInsert(doc)
}

// ReplayUpdate applies a recovered UPDATE without logging it
func (se *StorageEngine) ReplayUpdate(collName string, doc *domain.Document) error {
	collection, err := se.getOrCreateCollection(collName)
	if err != nil {
		return err
	}
	return collection.replayUpdate(doc)
}

// ReplayDelete applies a recovered DELETE without logging it
func (se *StorageEngine) ReplayDelete(collName, docID string) error {
	collection, err := se.getOrCreateCollection(collName)
	if err != nil {
		return err
	}
	return collection.replayDelete(docID)
}
