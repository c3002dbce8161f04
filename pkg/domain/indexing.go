package domain

// IndexEngine defines secondary index operations
type IndexEngine interface {
	CreateIndex(collName, fieldName string) Result
	// FindDocuments returns documents whose field stringifies to key
	FindDocuments(collName, fieldName, key string) Result
	GetIndexes(collName string) ([]string, error)
	DropIndex(collName, fieldName string) Result
}
