package indexing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// IndexEngine keeps in-memory secondary indexes:
// collection name -> field name -> stringified value -> document IDs.
// Only fields registered with CreateIndex are maintained.
type IndexEngine struct {
	mu      sync.RWMutex
	indexes map[string]*collectionIndexes
}

type collectionIndexes struct {
	mu     sync.RWMutex
	fields map[string]*Index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]*collectionIndexes),
	}
}

// Index stores a mapping from a field's value to document IDs. The reverse
// map remembers each document's current key so that moving a document
// between buckets needs no scan.
type Index struct {
	Field string

	mu       sync.RWMutex
	inverted map[string]map[string]struct{}
	byDoc    map[string]string
}

// NewIndex creates an index on a specific field.
func NewIndex(field string) *Index {
	return &Index{
		Field:    field,
		inverted: make(map[string]map[string]struct{}),
		byDoc:    make(map[string]string),
	}
}

// Key returns the bucket key for a document's field, and false when the
// field is missing or null and therefore not indexed.
func Key(doc *domain.Document, field string) (string, bool) {
	v, ok := doc.Get(field)
	if !ok || v.IsNull() {
		return "", false
	}
	return v.String(), true
}

// Set moves docID into the bucket for its new value
func (idx *Index) Set(doc *domain.Document) {
	key, indexed := Key(doc, idx.Field)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	docID := doc.ID()
	if old, ok := idx.byDoc[docID]; ok {
		if indexed && old == key {
			return
		}
		idx.removeLocked(docID, old)
	}
	if !indexed {
		return
	}
	bucket, ok := idx.inverted[key]
	if !ok {
		bucket = make(map[string]struct{})
		idx.inverted[key] = bucket
	}
	bucket[docID] = struct{}{}
	idx.byDoc[docID] = key
}

// Remove drops docID from whichever bucket holds it
func (idx *Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if old, ok := idx.byDoc[docID]; ok {
		idx.removeLocked(docID, old)
	}
}

func (idx *Index) removeLocked(docID, key string) {
	delete(idx.byDoc, docID)
	if bucket, ok := idx.inverted[key]; ok {
		delete(bucket, docID)
		if len(bucket) == 0 {
			delete(idx.inverted, key)
		}
	}
}

// Query returns the sorted document IDs stored under key.
func (idx *Index) Query(key string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bucket := idx.inverted[key]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of distinct indexed values
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.inverted)
}

// CreateIndex registers an index on a field. It reports true when the index
// is new and false when it already existed.
func (ie *IndexEngine) CreateIndex(collectionName, fieldName string) bool {
	ci := ie.collection(collectionName, true)

	ci.mu.Lock()
	defer ci.mu.Unlock()

	if _, exists := ci.fields[fieldName]; exists {
		return false
	}
	ci.fields[fieldName] = NewIndex(fieldName)
	return true
}

// DropIndex removes an index from a collection
func (ie *IndexEngine) DropIndex(collectionName, fieldName string) error {
	ci := ie.collection(collectionName, false)
	if ci == nil {
		return fmt.Errorf("no indexes exist for collection %s", collectionName)
	}

	ci.mu.Lock()
	defer ci.mu.Unlock()

	if _, exists := ci.fields[fieldName]; !exists {
		return fmt.Errorf("index on field %s does not exist in collection %s", fieldName, collectionName)
	}
	delete(ci.fields, fieldName)
	return nil
}

// Build backfills an index from existing documents
func (ie *IndexEngine) Build(collectionName, fieldName string, docs []*domain.Document) error {
	index, exists := ie.GetIndex(collectionName, fieldName)
	if !exists {
		return fmt.Errorf("index on field %s does not exist in collection %s", fieldName, collectionName)
	}
	for _, doc := range docs {
		index.Set(doc)
	}
	return nil
}

// Update re-indexes a document under every registered field of its collection
func (ie *IndexEngine) Update(collectionName string, doc *domain.Document) {
	for _, index := range ie.indexesOf(collectionName) {
		index.Set(doc)
	}
}

// Delete removes a document from every index of its collection
func (ie *IndexEngine) Delete(collectionName, docID string) {
	for _, index := range ie.indexesOf(collectionName) {
		index.Remove(docID)
	}
}

// Lookup returns the sorted IDs of documents whose field stringifies to key.
// The result is empty when nothing matches or the field is not indexed.
func (ie *IndexEngine) Lookup(collectionName, fieldName, key string) []string {
	index, exists := ie.GetIndex(collectionName, fieldName)
	if !exists {
		return []string{}
	}
	return index.Query(key)
}

// HasIndex reports whether a field of a collection is indexed
func (ie *IndexEngine) HasIndex(collectionName, fieldName string) bool {
	_, exists := ie.GetIndex(collectionName, fieldName)
	return exists
}

// GetIndexes returns the sorted indexed field names of a collection
func (ie *IndexEngine) GetIndexes(collectionName string) []string {
	ci := ie.collection(collectionName, false)
	if ci == nil {
		return []string{}
	}

	ci.mu.RLock()
	defer ci.mu.RUnlock()

	names := make([]string, 0, len(ci.fields))
	for fieldName := range ci.fields {
		names = append(names, fieldName)
	}
	sort.Strings(names)
	return names
}

// GetIndex returns an index for a specific field in a collection
func (ie *IndexEngine) GetIndex(collectionName, fieldName string) (*Index, bool) {
	ci := ie.collection(collectionName, false)
	if ci == nil {
		return nil, false
	}

	ci.mu.RLock()
	defer ci.mu.RUnlock()

	index, exists := ci.fields[fieldName]
	return index, exists
}

// Stats returns the number of distinct values per indexed field
func (ie *IndexEngine) Stats() map[string]map[string]int {
	ie.mu.RLock()
	names := make([]string, 0, len(ie.indexes))
	for name := range ie.indexes {
		names = append(names, name)
	}
	ie.mu.RUnlock()

	stats := make(map[string]map[string]int, len(names))
	for _, name := range names {
		fields := make(map[string]int)
		for _, index := range ie.indexesOf(name) {
			fields[index.Field] = index.Len()
		}
		stats[name] = fields
	}
	return stats
}

func (ie *IndexEngine) collection(collectionName string, create bool) *collectionIndexes {
	ie.mu.RLock()
	ci, exists := ie.indexes[collectionName]
	ie.mu.RUnlock()
	if exists || !create {
		return ci
	}

	ie.mu.Lock()
	defer ie.mu.Unlock()
	if ci, exists = ie.indexes[collectionName]; !exists {
		ci = &collectionIndexes{fields: make(map[string]*Index)}
		ie.indexes[collectionName] = ci
	}
	return ci
}

func (ie *IndexEngine) indexesOf(collectionName string) []*Index {
	ci := ie.collection(collectionName, false)
	if ci == nil {
		return nil
	}

	ci.mu.RLock()
	defer ci.mu.RUnlock()

	out := make([]*Index, 0, len(ci.fields))
	for _, index := range ci.fields {
		out = append(out, index)
	}
	return out
}
