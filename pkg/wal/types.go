package wal

import (
	"errors"

	"github.com/adfharrison1/go-nosql/pkg/domain"
)

// Operation names the mutation a record describes
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// DurabilityLevel represents the level of durability guarantee
type DurabilityLevel int

const (
	DurabilityOS   DurabilityLevel = iota // Written to the OS page cache (default)
	DurabilityFull                        // Full durability with fsync
)

// ParseDurability maps a config string onto a DurabilityLevel
func ParseDurability(s string) (DurabilityLevel, bool) {
	switch s {
	case "", "os":
		return DurabilityOS, true
	case "full", "fsync":
		return DurabilityFull, true
	default:
		return DurabilityOS, false
	}
}

func (d DurabilityLevel) String() string {
	if d == DurabilityFull {
		return "full"
	}
	return "os"
}

const (
	// DefaultMaxFileSize is the size at which the active file is rotated
	DefaultMaxFileSize int64 = 1024 * 1024

	baseName      = "wal"
	fileExt       = ".wal"
	archiveExt    = ".lz4"
	tempExt       = ".tmp"
	fieldSep      = "|"
	recordEnd     = '\n'
	recordFields  = 3
	readerBufSize = 64 * 1024
)

var (
	// ErrWALFailed is returned by every Write after an append or rotation
	// failed; the log's tail is in an unknown state.
	ErrWALFailed = errors.New("write-ahead log is in a failed state")
	// ErrClosed is returned by Write after Close
	ErrClosed = errors.New("write-ahead log closed")
	// ErrInvalidRecord rejects records that cannot be framed as one line
	ErrInvalidRecord = errors.New("invalid write-ahead log record")
)

// Replayer applies recovered records without logging them again
type Replayer interface {
	ReplayInsert(collection string, doc *domain.Document) error
	ReplayUpdate(collection string, doc *domain.Document) error
	ReplayDelete(collection, id string) error
}

// RecoveryStats summarises one recovery run
type RecoveryStats struct {
	Files   int `json:"files"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
