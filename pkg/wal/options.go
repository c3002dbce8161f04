package wal

import "go.uber.org/zap"

// Option configures a WriteAheadLog
type Option func(*WriteAheadLog)

// WithMaxFileSize sets the rotation threshold in bytes
func WithMaxFileSize(size int64) Option {
	return func(w *WriteAheadLog) {
		if size > 0 {
			w.maxFileSize = size
		}
	}
}

// WithDurability sets the durability guarantee level
func WithDurability(level DurabilityLevel) Option {
	return func(w *WriteAheadLog) {
		w.durability = level
	}
}

// WithArchiveSealed compresses rotated files to lz4 in the background
func WithArchiveSealed(enabled bool) Option {
	return func(w *WriteAheadLog) {
		w.archiveSealed = enabled
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(w *WriteAheadLog) {
		if logger != nil {
			w.logger = logger
		}
	}
}
