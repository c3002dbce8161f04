package wal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"

	"github.com/adfharrison1/go-nosql/pkg/metrics"
)

// scheduleArchive compresses a sealed segment in the background
func (w *WriteAheadLog) scheduleArchive(path string) {
	w.archiving.Add(1)
	go func() {
		defer w.archiving.Done()

		written, err := archiveSegment(path)
		if err != nil {
			metrics.WALArchived.WithLabelValues("error").Inc()
			w.logger.Warnw("failed to archive WAL segment", "file", filepath.Base(path), "error", err)
			return
		}
		metrics.WALArchived.WithLabelValues("ok").Inc()
		w.logger.Debugw("archived WAL segment",
			"file", filepath.Base(path),
			"compressed", humanize.IBytes(uint64(written)),
		)
	}()
}

// archivePending archives sealed plain segments left behind by an earlier
// run, skipping the active file
func (w *WriteAheadLog) archivePending(segments []segment) {
	current := w.CurrentFile()
	for _, seg := range segments {
		if seg.archived || seg.path == current {
			continue
		}
		w.scheduleArchive(seg.path)
	}
}

// archiveSegment writes path as an lz4 frame to path.lz4 and removes the
// original. The archive keeps the original modification time so replay
// order is unchanged. It returns the compressed size.
func archiveSegment(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat segment: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment: %w", err)
	}
	defer src.Close()

	tmpPath := path + archiveExt + tempExt
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}

	zw := lz4.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to compress segment: %w", err)
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to sync archive: %w", err)
	}
	written, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		written = 0
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}

	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to set archive time: %w", err)
	}
	if err := os.Rename(tmpPath, path+archiveExt); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to publish archive: %w", err)
	}
	// Until this succeeds both files exist and replay prefers the plain one.
	if err := os.Remove(path); err != nil {
		return written, fmt.Errorf("failed to remove archived segment: %w", err)
	}
	return written, nil
}
