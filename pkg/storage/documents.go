package storage

import (
	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// InsertDocument inserts a document into a collection
func (se *StorageEngine) InsertDocument(collName string, doc *domain.Document) domain.Result {
	return se.mutate("insert", func() domain.Result {
		return se.withCollection(collName, func(c *Collection) domain.Result {
			return c.Insert(doc)
		})
	})
}

// UpdateDocument replaces the data of an existing document
func (se *StorageEngine) UpdateDocument(collName string, doc *domain.Document) domain.Result {
	return se.mutate("update", func() domain.Result {
		return se.withCollection(collName, func(c *Collection) domain.Result {
			return c.Update(doc)
		})
	})
}

// DeleteDocument removes a document by its ID
func (se *StorageEngine) DeleteDocument(collName, docID string) domain.Result {
	return se.mutate("delete", func() domain.Result {
		return se.withCollection(collName, func(c *Collection) domain.Result {
			return c.Delete(docID)
		})
	})
}

// GetDocument retrieves a specific document by its ID
func (se *StorageEngine) GetDocument(collName, docID string) domain.Result {
	return se.observe("get", se.withCollection(collName, func(c *Collection) domain.Result {
		return c.Get(docID)
	}))
}

// GetAllDocuments returns every document of a collection
func (se *StorageEngine) GetAllDocuments(collName string) domain.Result {
	return se.observe("get_all", se.withCollection(collName, func(c *Collection) domain.Result {
		return c.GetAll()
	}))
}
