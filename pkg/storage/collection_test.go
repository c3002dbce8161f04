package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/indexing"
	"github.com/adfharrison1/go-nosql/pkg/wal"
)

// stubLog records appends and can be told to fail
type stubLog struct {
	mu      sync.Mutex
	records []string
	err     error
}

func (s *stubLog) Write(op wal.Operation, collection, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, string(op)+"|"+collection+"|"+payload)
	return nil
}

func (s *stubLog) Recover(wal.Replayer) (wal.RecoveryStats, error) {
	return wal.RecoveryStats{}, nil
}

func (s *stubLog) Close() error { return nil }

func newTestCollection(t *testing.T, log LogWriter) (*Collection, *indexing.IndexEngine) {
	t.Helper()
	ie := indexing.NewIndexEngine()
	c, err := NewCollection("users", t.TempDir(), log, ie)
	require.NoError(t, err)
	return c, ie
}

func TestNewCollection_RejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "..", "a|b"} {
		_, err := NewCollection(name, t.TempDir(), &stubLog{}, indexing.NewIndexEngine())
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "name %q", name)
	}
}

func TestCollection_LogsTheStoredDocument(t *testing.T) {
	log := &stubLog{}
	c, _ := newTestCollection(t, log)

	doc := newDoc("u1", "note", "pipes|are|fine")
	require.True(t, c.Insert(doc).Success)
	require.True(t, c.Update(newDoc("u1", "note", "changed")).Success)
	require.True(t, c.Delete("u1").Success)

	require.Len(t, log.records, 3)
	insertJSON, err := doc.JSON()
	require.NoError(t, err)
	assert.Equal(t, "INSERT|users|"+insertJSON, log.records[0])

	updated, err := domain.ParseDocument(strings.TrimPrefix(log.records[1], "UPDATE|users|"))
	require.NoError(t, err)
	assert.Equal(t, "u1", updated.ID())
	assert.Equal(t, doc.CreatedAt(), updated.CreatedAt(), "the logged update carries the stored createdAt")

	assert.Equal(t, "DELETE|users|u1", log.records[2])
}

func TestCollection_WALFailureLeavesStateUnchanged(t *testing.T) {
	log := &stubLog{}
	c, ie := newTestCollection(t, log)
	ie.CreateIndex("users", "role")
	require.True(t, c.Insert(newDoc("u1", "role", "admin")).Success)

	log.err = fmt.Errorf("%w: disk full", wal.ErrWALFailed)

	tests := []struct {
		name string
		run  func() domain.Result
	}{
		{"insert", func() domain.Result { return c.Insert(newDoc("u2", "role", "user")) }},
		{"update", func() domain.Result { return c.Update(newDoc("u1", "role", "user")) }},
		{"delete", func() domain.Result { return c.Delete("u1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.run()
			assert.False(t, result.Success)
			assert.True(t, result.Is(domain.ErrWALFailure))
			assert.True(t, strings.HasPrefix(result.Message, "write-ahead log failure: "), result.Message)
			assert.True(t, errors.Is(result.Err, domain.ErrWALFailure))
		})
	}

	assert.Equal(t, 1, c.Count())
	assert.False(t, c.Get("u2").Success)
	doc, _ := c.Get("u1").Document()
	role, _ := doc.Get("role")
	assert.Equal(t, "admin", role.String())
	assert.Equal(t, []string{"u1"}, ie.Lookup("users", "role", "admin"))
	assert.Empty(t, ie.Lookup("users", "role", "user"))

	// The lock was released on every failure path
	log.err = nil
	assert.True(t, c.Insert(newDoc("u2")).Success)
}

func TestCollection_ReplayDoesNotLog(t *testing.T) {
	log := &stubLog{}
	c, ie := newTestCollection(t, log)
	ie.CreateIndex("users", "role")

	require.NoError(t, c.replayInsert(newDoc("u1", "role", "admin")))
	assert.ErrorIs(t, c.replayInsert(newDoc("u1")), domain.ErrDocumentExists)
	require.NoError(t, c.replayUpdate(newDoc("u1", "role", "user")))
	assert.ErrorIs(t, c.replayUpdate(newDoc("u9")), domain.ErrDocumentNotFound)
	assert.Equal(t, []string{"u1"}, ie.Lookup("users", "role", "user"))
	require.NoError(t, c.replayDelete("u1"))
	assert.ErrorIs(t, c.replayDelete("u1"), domain.ErrDocumentNotFound)

	assert.Empty(t, log.records)
	assert.Empty(t, ie.Lookup("users", "role", "user"))
}

func TestCollection_Find(t *testing.T) {
	c, _ := newTestCollection(t, &stubLog{})
	require.True(t, c.Insert(newDoc("1", "active", true, "tags", []interface{}{"a"})).Success)
	require.True(t, c.Insert(newDoc("2", "active", false)).Success)
	require.True(t, c.Insert(newDoc("3", "active", nil)).Success)

	tests := []struct {
		field string
		key   string
		want  []string
	}{
		{"active", "true", []string{"1"}},
		{"active", "false", []string{"2"}},
		{"active", "null", []string{}},
		{"tags", `["a"]`, []string{"1"}},
		{"missing", "x", []string{}},
	}
	for _, indexed := range []bool{false, true} {
		if indexed {
			for _, f := range []string{"active", "tags"} {
				_, err := c.BuildIndex(f)
				require.NoError(t, err)
			}
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s=%s/indexed=%v", tt.field, tt.key, indexed), func(t *testing.T) {
				result := c.Find(tt.field, tt.key)
				require.True(t, result.Success)
				docs, _ := result.Documents()
				ids := []string{}
				for _, d := range docs {
					ids = append(ids, d.ID())
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	}

	assert.True(t, c.Find("", "x").Is(domain.ErrInvalidInput))
}

// S6
func TestCollection_ConcurrentInsertRace(t *testing.T) {
	dir := t.TempDir()
	engine := newTestEngine(t, dir)
	require.True(t, engine.CreateCollection("users").Success)

	var successes, exists int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result := engine.InsertDocument("users", newDoc("shared", "worker", i))
			switch {
			case result.Success:
				atomic.AddInt32(&successes, 1)
			case result.Is(domain.ErrDocumentExists):
				atomic.AddInt32(&exists, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(99), exists)

	count := 0
	for _, line := range walLines(t, dir) {
		if strings.HasPrefix(line, "INSERT|users|") && strings.Contains(line, `"id":"shared"`) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCollection_ConcurrentMixedOperations(t *testing.T) {
	engine := newTestEngine(t, t.TempDir())
	require.True(t, engine.CreateCollection("users").Success)
	require.True(t, engine.CreateIndex("users", "bucket").Success)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				engine.InsertDocument("users", newDoc(id, "bucket", i%3))
				engine.GetDocument("users", id)
				engine.UpdateDocument("users", newDoc(id, "bucket", (i+1)%3))
				engine.FindDocuments("users", "bucket", "1")
				if i%5 == 0 {
					engine.DeleteDocument("users", id)
				}
			}
		}(w)
	}
	wg.Wait()

	docs, _ := engine.GetAllDocuments("users").Documents()
	assert.Len(t, docs, 10*40)

	// Index agrees with a scan of the live documents
	ie := engine.GetIndexEngine()
	for _, key := range []string{"0", "1", "2"} {
		want := []string{}
		for _, d := range docs {
			if MatchesField(d, "bucket", key) {
				want = append(want, d.ID())
			}
		}
		got := ie.Lookup("users", "bucket", key)
		assert.ElementsMatch(t, want, got, "bucket %s", key)
	}
}
