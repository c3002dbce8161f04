package storage

import (
	"sort"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/indexing"
)

// MatchesField checks whether a document's field stringifies to key, using
// the same rules as the secondary indexes
func MatchesField(doc *domain.Document, field, key string) bool {
	actual, indexed := indexing.Key(doc, field)
	return indexed && actual == key
}

// sortDocuments orders documents by creation time, then id
func sortDocuments(docs []*domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt() != docs[j].CreatedAt() {
			return docs[i].CreatedAt() < docs[j].CreatedAt()
		}
		return docs[i].ID() < docs[j].ID()
	})
}
