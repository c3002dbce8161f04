package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-nosql/pkg/domain"
	"github.com/adfharrison1/go-nosql/pkg/server"
	"github.com/adfharrison1/go-nosql/pkg/storage"
	"github.com/adfharrison1/go-nosql/pkg/wal"
)

func startServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	log, err := wal.Open(dir)
	require.NoError(t, err)
	engine, err := storage.NewStorageEngine(log, storage.WithDataDir(dir))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	srv, err := server.NewServer(engine)
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func newDoc(id string, fields ...interface{}) *domain.Document {
	obj := domain.NewObject()
	for i := 0; i+1 < len(fields); i += 2 {
		obj.Set(fields[i].(string), domain.MustValue(fields[i+1]))
	}
	return domain.NewDocumentWithID(id, obj)
}

func TestClient_CRUD(t *testing.T) {
	c, err := Dial(startServer(t))
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.CreateCollection("users")
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	original := newDoc("u1", "name", "Ann", "age", 30)
	resp, err = c.Insert("users", original)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	resp, err = c.Insert("users", original)
	require.NoError(t, err)
	assert.EqualError(t, resp.Err(), "document already exists: u1")

	resp, err = c.Get("users", "u1")
	require.NoError(t, err)
	got, err := resp.Document()
	require.NoError(t, err)
	assert.True(t, original.Equal(got))

	resp, err = c.Update("users", newDoc("u1", "name", "Anna"))
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	resp, err = c.Get("users", "u1")
	require.NoError(t, err)
	got, err = resp.Document()
	require.NoError(t, err)
	name, _ := got.Get("name")
	assert.Equal(t, "Anna", name.String())
	assert.Equal(t, original.CreatedAt(), got.CreatedAt())

	resp, err = c.Delete("users", "u1")
	require.NoError(t, err)
	require.NoError(t, resp.Err())

	resp, err = c.GetAll("users")
	require.NoError(t, err)
	docs, err := resp.Documents()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestClient_IndexAndFind(t *testing.T) {
	c, err := Dial(startServer(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.CreateCollection("products")
	require.NoError(t, err)
	for _, doc := range []*domain.Document{
		newDoc("p1", "category", "books", "price", 10),
		newDoc("p2", "category", "games", "price", 10),
		newDoc("p3", "category", "books", "price", 25),
	} {
		resp, err := c.Insert("products", doc)
		require.NoError(t, err)
		require.NoError(t, resp.Err())
	}

	resp, err := c.CreateIndex("products", "category")
	require.NoError(t, err)
	assert.Equal(t, "index created", resp.Message)

	tests := []struct {
		field string
		value interface{}
		want  []string
	}{
		{"category", "books", []string{"p1", "p3"}},
		{"price", 10, []string{"p1", "p2"}},
		{"category", "toys", nil},
	}
	for _, tt := range tests {
		resp, err := c.Find("products", tt.field, tt.value)
		require.NoError(t, err)
		require.NoError(t, resp.Err())
		docs, err := resp.Documents()
		require.NoError(t, err)

		var ids []string
		for _, d := range docs {
			ids = append(ids, d.ID())
		}
		assert.Equal(t, tt.want, ids, "%s=%v", tt.field, tt.value)
	}

	names, err := c.ListCollections()
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, names)
}

func TestClient_ConcurrentUse(t *testing.T) {
	c, err := Dial(startServer(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.CreateCollection("c")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Insert("c", newDoc("", "n", i))
			if assert.NoError(t, err) {
				assert.True(t, resp.Success, resp.Message)
			}
		}(i)
	}
	wg.Wait()

	resp, err := c.GetAll("c")
	require.NoError(t, err)
	assert.Equal(t, "20 records", resp.Message)
}

func TestDial_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(addr, WithTimeout(time.Second))
	assert.Error(t, err)
}
