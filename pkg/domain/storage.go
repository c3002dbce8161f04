package domain

// StorageEngine defines the document operations served to clients.
// Every method reports its outcome as a Result, never as a panic.
type StorageEngine interface {
	CreateCollection(collName string) Result
	InsertDocument(collName string, doc *Document) Result
	UpdateDocument(collName string, doc *Document) Result
	DeleteDocument(collName, docID string) Result
	GetDocument(collName, docID string) Result
	GetAllDocuments(collName string) Result
	Collections() []string
	Stats() map[string]interface{}
}

// DatabaseEngine combines StorageEngine and IndexEngine interfaces
type DatabaseEngine interface {
	StorageEngine
	IndexEngine
}
