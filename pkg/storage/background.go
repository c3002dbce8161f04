package storage

import (
	"runtime"
)

// walStatus is implemented by logs that can report their position
type walStatus interface {
	Size() int64
	CurrentFile() string
}

// Stats returns collection, index and memory statistics
func (se *StorageEngine) Stats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	documents := make(map[string]int)
	total := 0
	se.collections.Range(func(key, value interface{}) bool {
		n := value.(*Collection).Count()
		documents[key.(string)] = n
		total += n
		return true
	})

	stats := map[string]interface{}{
		"alloc_mb":        m.Alloc / 1024 / 1024,
		"total_alloc_mb":  m.TotalAlloc / 1024 / 1024,
		"sys_mb":          m.Sys / 1024 / 1024,
		"num_goroutines":  runtime.NumGoroutine(),
		"collections":     len(documents),
		"documents":       documents,
		"total_documents": total,
		"indexes":         se.indexEngine.Stats(),
	}
	if status, ok := se.wal.(walStatus); ok {
		stats["wal_file"] = status.CurrentFile()
		stats["wal_size"] = status.Size()
	}
	return stats
}
