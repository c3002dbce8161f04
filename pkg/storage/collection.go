package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/indexing"
	"github.com/adfharrison1/go-nosql/pkg/wal"
)

// LogWriter is the append side of the write-ahead log
type LogWriter interface {
	Write(op wal.Operation, collection, payload string) error
}

// Collection owns the documents of one named collection. Every mutation
// holds the write lock across check, log append, map update and index
// update, so log order equals visible order.
type Collection struct {
	name string
	dir  string

	mu        sync.RWMutex
	documents map[string]*domain.Document

	wal     LogWriter
	indexes *indexing.IndexEngine
}

// NewCollection creates a collection and its directory under dataDir
func NewCollection(name, dataDir string, log LogWriter, indexes *indexing.IndexEngine) (*Collection, error) {
	if err := domain.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(dataDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	return &Collection{
		name:      name,
		dir:       dir,
		documents: make(map[string]*domain.Document),
		wal:       log,
		indexes:   indexes,
	}, nil
}

func (c *Collection) Name() string { return c.name }
func (c *Collection) Dir() string  { return c.dir }

// Insert stores a new document
func (c *Collection) Insert(doc *domain.Document) domain.Result {
	if err := checkDocument(doc); err != nil {
		return domain.Failed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := doc.ID()
	if _, exists := c.documents[id]; exists {
		return domain.Failedf(domain.ErrDocumentExists, "%s", id)
	}

	stored := doc.Clone()
	if err := c.appendLog(wal.OpInsert, stored); err != nil {
		return domain.Failed(err)
	}
	c.documents[id] = stored
	c.indexes.Update(c.name, stored)
	return domain.OK("document inserted", id)
}

// Update replaces the data of an existing document. The stored id and
// createdAt are kept; updatedAt never moves backwards.
func (c *Collection) Update(doc *domain.Document) domain.Result {
	if err := checkDocument(doc); err != nil {
		return domain.Failed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := doc.ID()
	existing, exists := c.documents[id]
	if !exists {
		return domain.Failedf(domain.ErrDocumentNotFound, "%s", id)
	}

	next := existing.Revise(doc.Data())
	if err := c.appendLog(wal.OpUpdate, next); err != nil {
		return domain.Failed(err)
	}
	c.documents[id] = next
	c.indexes.Update(c.name, next)
	return domain.OK("document updated", id)
}

// Delete removes a document
func (c *Collection) Delete(id string) domain.Result {
	if err := domain.ValidateID(id); err != nil {
		return domain.Failed(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.documents[id]; !exists {
		return domain.Failedf(domain.ErrDocumentNotFound, "%s", id)
	}
	if err := c.wal.Write(wal.OpDelete, c.name, id); err != nil {
		return domain.Failed(fmt.Errorf("%w: %v", domain.ErrWALFailure, err))
	}
	delete(c.documents, id)
	c.indexes.Delete(c.name, id)
	return domain.OK("document deleted", id)
}

// Get returns a copy of one document
func (c *Collection) Get(id string) domain.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, exists := c.documents[id]
	if !exists {
		return domain.Failedf(domain.ErrDocumentNotFound, "%s", id)
	}
	return domain.OK("document found", doc.Clone())
}

// GetAll returns copies of every document ordered by createdAt, then id
func (c *Collection) GetAll() domain.Result {
	c.mu.RLock()
	docs := make([]*domain.Document, 0, len(c.documents))
	for _, doc := range c.documents {
		docs = append(docs, doc.Clone())
	}
	c.mu.RUnlock()

	sortDocuments(docs)
	return domain.OK(recordsMessage(len(docs)), docs)
}

// Find returns documents whose field stringifies to key. Indexed fields are
// answered from the index; other fields are scanned.
func (c *Collection) Find(field, key string) domain.Result {
	if field == "" {
		return domain.Failedf(domain.ErrInvalidInput, "field is required")
	}

	c.mu.RLock()
	var docs []*domain.Document
	if c.indexes.HasIndex(c.name, field) {
		ids := c.indexes.Lookup(c.name, field, key)
		docs = make([]*domain.Document, 0, len(ids))
		for _, id := range ids {
			if doc, ok := c.documents[id]; ok {
				docs = append(docs, doc.Clone())
			}
		}
	} else {
		docs = make([]*domain.Document, 0)
		for _, doc := range c.documents {
			if MatchesField(doc, field, key) {
				docs = append(docs, doc.Clone())
			}
		}
	}
	c.mu.RUnlock()

	sortDocuments(docs)
	return domain.OK(recordsMessage(len(docs)), docs)
}

// BuildIndex registers an index on field and backfills it. Writers are
// excluded for the duration so no mutation can slip between the two.
func (c *Collection) BuildIndex(field string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	created := c.indexes.CreateIndex(c.name, field)
	if !created {
		return false, nil
	}
	docs := make([]*domain.Document, 0, len(c.documents))
	for _, doc := range c.documents {
		docs = append(docs, doc)
	}
	if err := c.indexes.Build(c.name, field, docs); err != nil {
		return true, err
	}
	return true, nil
}

// DropIndex removes the index on field. Find falls back to scanning.
func (c *Collection) DropIndex(field string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexes.DropIndex(c.name, field) == nil
}

// Count returns the number of documents
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}

// Replay methods apply recovered records with the usual checks and index
// maintenance but never write to the log.

func (c *Collection) replayInsert(doc *domain.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := doc.ID()
	if _, exists := c.documents[id]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDocumentExists, id)
	}
	c.documents[id] = doc
	c.indexes.Update(c.name, doc)
	return nil
}

func (c *Collection) replayUpdate(doc *domain.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := doc.ID()
	if _, exists := c.documents[id]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	c.documents[id] = doc
	c.indexes.Update(c.name, doc)
	return nil
}

func (c *Collection) replayDelete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.documents[id]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	delete(c.documents, id)
	c.indexes.Delete(c.name, id)
	return nil
}

func (c *Collection) appendLog(op wal.Operation, doc *domain.Document) error {
	payload, err := doc.JSON()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.wal.Write(op, c.name, payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWALFailure, err)
	}
	return nil
}

func checkDocument(doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}
	return domain.ValidateID(doc.ID())
}

func recordsMessage(n int) string {
	return fmt.Sprintf("%d records", n)
}
