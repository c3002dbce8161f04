package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/wal"
)

// newTestEngine opens a log and an engine sharing one data directory
func newTestEngine(t *testing.T, dir string, walOpts ...wal.Option) *StorageEngine {
	t.Helper()
	log, err := wal.Open(dir, walOpts...)
	require.NoError(t, err)
	engine, err := NewStorageEngine(log, WithDataDir(dir))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

// restart closes engine and recovers a fresh one from the same directory
func restart(t *testing.T, engine *StorageEngine, walOpts ...wal.Option) *StorageEngine {
	t.Helper()
	require.NoError(t, engine.Close())
	fresh := newTestEngine(t, engine.DataDir(), walOpts...)
	_, err := fresh.RecoverFromWAL()
	require.NoError(t, err)
	return fresh
}

func newDoc(id string, fields ...interface{}) *domain.Document {
	obj := domain.NewObject()
	for i := 0; i+1 < len(fields); i += 2 {
		obj.Set(fields[i].(string), domain.MustValue(fields[i+1]))
	}
	return domain.NewDocumentWithID(id, obj)
}

func getDoc(t *testing.T, engine *StorageEngine, coll, id string) *domain.Document {
	t.Helper()
	result := engine.GetDocument(coll, id)
	require.True(t, result.Success, result.Message)
	doc, ok := result.Document()
	require.True(t, ok)
	return doc
}

func field(t *testing.T, doc *domain.Document, name string) interface{} {
	t.Helper()
	v, ok := doc.Get(name)
	require.True(t, ok, "field %s missing", name)
	return v.Interface()
}

// walLines returns every record in every log file of dir, in replay order
func walLines(t *testing.T, dir string) []string {
	t.Helper()
	segments, err := filepath.Glob(filepath.Join(dir, "wal_*.wal"))
	require.NoError(t, err)
	var lines []string
	for _, path := range segments {
		f, err := os.Open(path)
		require.NoError(t, err)
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		require.NoError(t, scanner.Err())
		f.Close()
	}
	return lines
}

func TestNewStorageEngine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	log, err := wal.Open(dir)
	require.NoError(t, err)

	engine, err := NewStorageEngine(log, WithDataDir(dir))
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, dir, engine.dataDir)
	assert.NotNil(t, engine.indexEngine)
	assert.Equal(t, []string{}, engine.Collections())

	_, err = NewStorageEngine(nil)
	assert.Error(t, err)
}

func TestStorageEngine_CreateCollection(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir)

	result := engine.CreateCollection("users")
	require.True(t, result.Success, result.Message)
	assert.DirExists(t, filepath.Join(dir, "users"))

	result = engine.CreateCollection("users")
	assert.False(t, result.Success)
	assert.Equal(t, "collection already exists: users", result.Message)
	assert.True(t, result.Is(domain.ErrCollectionExists))

	for _, name := range []string{"", ".", "..", "a|b", "a/b", "a\nb"} {
		result = engine.CreateCollection(name)
		assert.False(t, result.Success, "name %q", name)
		assert.True(t, result.Is(domain.ErrInvalidInput), "name %q", name)
	}

	require.True(t, engine.CreateCollection("orders").Success)
	assert.Equal(t, []string{"orders", "users"}, engine.Collections())
}

func TestStorageEngine_CollectionMissing(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())

	tests := []struct {
		name string
		run  func() domain.Result
	}{
		{"insert", func() domain.Result { return engine.InsertDocument("ghost", newDoc("1")) }},
		{"update", func() domain.Result { return engine.UpdateDocument("ghost", newDoc("1")) }},
		{"delete", func() domain.Result { return engine.DeleteDocument("ghost", "1") }},
		{"get", func() domain.Result { return engine.GetDocument("ghost", "1") }},
		{"get all", func() domain.Result { return engine.GetAllDocuments("ghost") }},
		{"create index", func() domain.Result { return engine.CreateIndex("ghost", "name") }},
		{"find", func() domain.Result { return engine.FindDocuments("ghost", "name", "x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.run()
			assert.False(t, result.Success)
			assert.Equal(t, "collection missing: ghost", result.Message)
			assert.True(t, result.Is(domain.ErrCollectionMissing))
		})
	}

	_, err := engine.GetIndexes("ghost")
	assert.ErrorIs(t, err, domain.ErrCollectionMissing)
	assert.Empty(t, walLines(t, engine.DataDir()))
}

// S1
func TestStorageEngine_InsertAndGet(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)

	original := newDoc("u1", "name", "A", "age", 30)
	result := engine.InsertDocument("users", original)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "document inserted", result.Message)
	assert.Equal(t, "u1", result.Data)

	doc := getDoc(t, engine, "users", "u1")
	assert.Equal(t, "u1", doc.ID())
	assert.Equal(t, "A", field(t, doc, "name"))
	assert.Equal(t, int64(30), field(t, doc, "age"))
	assert.Equal(t, original.CreatedAt(), doc.CreatedAt())
	assert.True(t, original.Data().Equal(doc.Data()))
}

// S2
func TestStorageEngine_DuplicateInsert(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir)
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("u1", "name", "A")).Success)

	result := engine.InsertDocument("users", newDoc("u1", "name", "B"))
	assert.False(t, result.Success)
	assert.Equal(t, "document already exists: u1", result.Message)
	assert.True(t, result.Is(domain.ErrDocumentExists))
	assert.Nil(t, result.Data)

	assert.Equal(t, "A", field(t, getDoc(t, engine, "users", "u1"), "name"))

	// The rejected insert left no record
	lines := walLines(t, dir)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "INSERT|users|"))
}

// S3
func TestStorageEngine_UpdateThenDelete(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("u1", "name", "A", "age", 30)).Success)
	before := getDoc(t, engine, "users", "u1")

	result := engine.UpdateDocument("users", newDoc("u1", "name", "A", "age", 31))
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "document updated", result.Message)

	after := getDoc(t, engine, "users", "u1")
	assert.Equal(t, int64(31), field(t, after, "age"))
	assert.Equal(t, before.CreatedAt(), after.CreatedAt())
	assert.GreaterOrEqual(t, after.UpdatedAt(), before.UpdatedAt())

	result = engine.DeleteDocument("users", "u1")
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "document deleted", result.Message)

	result = engine.GetDocument("users", "u1")
	assert.False(t, result.Success)
	assert.Equal(t, "document not found: u1", result.Message)
	assert.True(t, result.Is(domain.ErrDocumentNotFound))
}

func TestStorageEngine_UpdateKeepsIdentity(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)

	stored, err := domain.ParseDocument(`{"id":"u1","data":{"n":1},"createdAt":1000,"updatedAt":5000000000000}`)
	require.NoError(t, err)
	require.True(t, engine.InsertDocument("users", stored).Success)

	incoming, err := domain.ParseDocument(`{"id":"u1","data":{"n":2},"createdAt":42,"updatedAt":1}`)
	require.NoError(t, err)
	require.True(t, engine.UpdateDocument("users", incoming).Success)

	doc := getDoc(t, engine, "users", "u1")
	assert.Equal(t, int64(2), field(t, doc, "n"))
	assert.Equal(t, int64(1000), doc.CreatedAt())
	assert.Equal(t, int64(5000000000000), doc.UpdatedAt(), "updatedAt never moves backwards")
}

func TestStorageEngine_RejectedMutationsLeaveNoRecord(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir)
	require.True(t, engine.CreateCollection("users").Success)

	assert.False(t, engine.UpdateDocument("users", newDoc("missing")).Success)
	assert.False(t, engine.DeleteDocument("users", "missing").Success)
	assert.False(t, engine.InsertDocument("users", nil).Success)
	assert.False(t, engine.DeleteDocument("users", "").Success)

	require.True(t, engine.InsertDocument("users", newDoc("u1")).Success)
	result := engine.DeleteDocument("users", "u1")
	require.True(t, result.Success)

	// Deleting twice is rejected the second time
	result = engine.DeleteDocument("users", "u1")
	assert.False(t, result.Success)
	assert.True(t, result.Is(domain.ErrDocumentNotFound))

	lines := walLines(t, dir)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "INSERT|users|"))
	assert.Equal(t, "DELETE|users|u1", lines[1])
}

func TestStorageEngine_GetAll(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)

	result := engine.GetAllDocuments("users")
	require.True(t, result.Success)
	assert.Equal(t, "0 records", result.Message)
	docs, ok := result.Documents()
	require.True(t, ok)
	assert.Empty(t, docs)

	for _, text := range []string{
		`{"id":"b","data":{},"createdAt":2}`,
		`{"id":"c","data":{},"createdAt":1}`,
		`{"id":"a","data":{},"createdAt":2}`,
	} {
		doc, err := domain.ParseDocument(text)
		require.NoError(t, err)
		require.True(t, engine.InsertDocument("users", doc).Success)
	}

	result = engine.GetAllDocuments("users")
	require.True(t, result.Success)
	assert.Equal(t, "3 records", result.Message)
	docs, _ = result.Documents()
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID()
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestStorageEngine_ReturnedDocumentsAreCopies(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)

	doc := newDoc("u1", "name", "A")
	require.True(t, engine.InsertDocument("users", doc).Success)
	doc.Put("name", domain.String("mutated after insert"))

	got := getDoc(t, engine, "users", "u1")
	assert.Equal(t, "A", field(t, got, "name"))
	got.Put("name", domain.String("mutated after get"))

	all, _ := engine.GetAllDocuments("users").Documents()
	all[0].Put("name", domain.String("mutated after get all"))

	assert.Equal(t, "A", field(t, getDoc(t, engine, "users", "u1"), "name"))
}

func TestStorageEngine_Close(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("u1")).Success)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())

	for _, result := range []domain.Result{
		engine.InsertDocument("users", newDoc("u2")),
		engine.UpdateDocument("users", newDoc("u1")),
		engine.DeleteDocument("users", "u1"),
		engine.CreateCollection("orders"),
	} {
		assert.False(t, result.Success)
		assert.Equal(t, "engine closed", result.Message)
		assert.True(t, result.Is(domain.ErrClosed))
	}

	// Reads still work
	assert.True(t, engine.GetDocument("users", "u1").Success)
}

func TestStorageEngine_Indexes(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)

	users := []*domain.Document{
		newDoc("1", "name", "Alice", "age", 25, "role", "admin"),
		newDoc("2", "name", "Bob", "age", 30, "role", "user"),
		newDoc("3", "name", "Charlie", "age", 25, "role", "user"),
		newDoc("4", "name", "David", "age", 35, "role", "admin"),
	}
	for _, u := range users {
		require.True(t, engine.InsertDocument("users", u).Success)
	}

	// Scan before the index exists
	scanned, _ := engine.FindDocuments("users", "role", "admin").Documents()
	require.Len(t, scanned, 2)

	result := engine.CreateIndex("users", "role")
	require.True(t, result.Success, result.Message)
	assert.Equal(t, "index created", result.Message)

	result = engine.CreateIndex("users", "role")
	assert.True(t, result.Success)
	assert.Equal(t, "index already exists: role", result.Message)

	result = engine.CreateIndex("users", "")
	assert.True(t, result.Is(domain.ErrInvalidInput))

	indexes, err := engine.GetIndexes("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"role"}, indexes)

	result = engine.FindDocuments("users", "role", "admin")
	require.True(t, result.Success)
	assert.Equal(t, "2 records", result.Message)
	indexed, _ := result.Documents()
	require.Len(t, indexed, 2)
	for i := range indexed {
		assert.True(t, scanned[i].Equal(indexed[i]))
	}

	// Index follows mutations
	require.True(t, engine.UpdateDocument("users", newDoc("2", "name", "Bob", "role", "admin")).Success)
	require.True(t, engine.DeleteDocument("users", "1").Success)
	admins, _ := engine.FindDocuments("users", "role", "admin").Documents()
	require.Len(t, admins, 2)
	assert.Equal(t, "2", admins[0].ID())
	assert.Equal(t, "4", admins[1].ID())

	// Unindexed numeric field compares by literal
	aged, _ := engine.FindDocuments("users", "age", "25").Documents()
	require.Len(t, aged, 1)
	assert.Equal(t, "3", aged[0].ID())

	dropped := engine.DropIndex("users", "role")
	require.True(t, dropped.Success, dropped.Message)
	assert.Equal(t, "index dropped", dropped.Message)
	assert.False(t, engine.GetIndexEngine().HasIndex("users", "role"))

	again := engine.DropIndex("users", "role")
	assert.True(t, again.Is(domain.ErrIndexNotFound))
	assert.Equal(t, "index not found: role", again.Message)
	assert.True(t, engine.DropIndex("nobody", "role").Is(domain.ErrCollectionMissing))

	// Without the index the field is answered by a scan
	admins, _ = engine.FindDocuments("users", "role", "admin").Documents()
	assert.Len(t, admins, 2)
}

func TestStorageEngine_Stats(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("1", "role", "x")).Success)
	require.True(t, engine.CreateIndex("users", "role").Success)

	stats := engine.Stats()
	assert.Equal(t, 1, stats["collections"])
	assert.Equal(t, 1, stats["total_documents"])
	assert.Equal(t, map[string]int{"users": 1}, stats["documents"])
	assert.Equal(t, map[string]map[string]int{"users": {"role": 1}}, stats["indexes"])
	assert.Greater(t, stats["wal_size"], int64(0))
	assert.Contains(t, stats, "num_goroutines")
}

// S4
func TestStorageEngine_Recovery(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("u1", "name", "A", "age", 30)).Success)
	require.True(t, engine.UpdateDocument("users", newDoc("u1", "name", "A", "age", 31)).Success)
	before := getDoc(t, engine, "users", "u1")

	engine = restart(t, engine)

	after := getDoc(t, engine, "users", "u1")
	assert.Equal(t, int64(31), field(t, after, "age"))
	assert.True(t, before.Equal(after), "recovered document is identical")
}

func TestStorageEngine_RecoveryDoesNotRelog(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir)
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("u1")).Success)
	require.True(t, engine.InsertDocument("users", newDoc("u2")).Success)
	require.True(t, engine.DeleteDocument("users", "u1").Success)

	engine = restart(t, engine)
	assert.Len(t, walLines(t, dir), 3)

	engine = restart(t, engine)
	assert.Len(t, walLines(t, dir), 3)
	assert.True(t, engine.GetDocument("users", "u2").Success)
	assert.False(t, engine.GetDocument("users", "u1").Success)
}

// Replaying the log into a fresh engine yields the state the operations produced
func TestStorageEngine_ReplayMatchesLiveState(t *testing.T) {
	engine := newTestEngine(t, t.TempDir(), wal.WithMaxFileSize(2048))
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.CreateCollection("orders").Success)
	require.True(t, engine.CreateIndex("users", "team").Success)

	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("u%02d", i%20)
		switch i % 4 {
		case 0, 1:
			engine.InsertDocument("users", newDoc(id, "team", fmt.Sprintf("t%d", i%3), "i", i))
		case 2:
			engine.UpdateDocument("users", newDoc(id, "team", fmt.Sprintf("t%d", (i+1)%3), "i", i))
		case 3:
			engine.DeleteDocument("users", id)
		}
		engine.InsertDocument("orders", newDoc(fmt.Sprintf("o%d", i), "n", i))
	}

	snapshot := func(e *StorageEngine) map[string][]*domain.Document {
		out := make(map[string][]*domain.Document)
		for _, name := range e.Collections() {
			docs, ok := e.GetAllDocuments(name).Documents()
			require.True(t, ok)
			out[name] = docs
		}
		return out
	}
	want := snapshot(engine)
	wantTeam, _ := engine.FindDocuments("users", "team", "t1").Documents()

	engine = restart(t, engine, wal.WithMaxFileSize(2048))
	got := snapshot(engine)

	require.Equal(t, len(want), len(got))
	for name, docs := range want {
		require.Len(t, got[name], len(docs), name)
		for i := range docs {
			assert.True(t, docs[i].Equal(got[name][i]), "%s[%d]", name, i)
		}
	}

	gotTeam, _ := engine.FindDocuments("users", "team", "t1").Documents()
	require.Len(t, gotTeam, len(wantTeam))
	for i := range wantTeam {
		assert.Equal(t, wantTeam[i].ID(), gotTeam[i].ID())
	}
}

func TestStorageEngine_ReplayAutoCreatesCollections(t *testing.T) {
	dir := t.TempDir()
	payload, err := newDoc("p1", "name", "pen").JSON()
	require.NoError(t, err)
	content := "INSERT|products|" + payload + "\n" +
		"DELETE|ghosts|nobody\n" +
		"INSERT|products|" + payload + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wal_1.wal"), []byte(content), 0644))

	engine := newTestEngine(t, dir)
	stats, err := engine.RecoverFromWAL()
	require.NoError(t, err)

	assert.Equal(t, wal.RecoveryStats{Files: 1, Applied: 1, Failed: 2}, stats)
	assert.Equal(t, []string{"ghosts", "products"}, engine.Collections())
	assert.Equal(t, "pen", field(t, getDoc(t, engine, "products", "p1"), "name"))
	assert.DirExists(t, filepath.Join(dir, "products"))
}

func TestStorageEngine_IndexesRegisteredBeforeRecovery(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir)
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.InsertDocument("users", newDoc("1", "role", "admin")).Success)
	require.True(t, engine.InsertDocument("users", newDoc("2", "role", "user")).Success)
	require.NoError(t, engine.Close())

	fresh := newTestEngine(t, dir)
	require.True(t, fresh.CreateCollection("users").Success)
	require.True(t, fresh.CreateIndex("users", "role").Success)
	_, err := fresh.RecoverFromWAL()
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, fresh.GetIndexEngine().Lookup("users", "role", "admin"))
}
