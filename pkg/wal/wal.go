package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-nosql/pkg/metrics"
)

// WriteAheadLog appends mutation records to size-rotated files in one
// directory. Records are written one per line as
// <operation>|<collection>|<payload>.
type WriteAheadLog struct {
	dir           string
	maxFileSize   int64
	durability    DurabilityLevel
	archiveSealed bool
	logger        *zap.SugaredLogger

	mu        sync.Mutex
	file      *os.File
	path      string
	lastStamp int64
	failure   error
	closed    bool

	size      atomic.Int64
	archiving sync.WaitGroup
}

// segment is one log file on disk
type segment struct {
	path     string
	stamp    int64
	modTime  time.Time
	archived bool
}

// Open prepares dir for logging and opens the newest file for append,
// creating one if the directory holds none.
func Open(dir string, opts ...Option) (*WriteAheadLog, error) {
	w := &WriteAheadLog{
		dir:         dir,
		maxFileSize: DefaultMaxFileSize,
		durability:  DurabilityOS,
		logger:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	segments, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	for _, seg := range segments {
		if seg.stamp > w.lastStamp {
			w.lastStamp = seg.stamp
		}
	}

	// The active file is the newest plain segment; archives are always sealed.
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i].archived {
			continue
		}
		if err := w.openExisting(segments[i].path); err != nil {
			return nil, err
		}
		break
	}
	if w.file == nil {
		if err := w.createFile(); err != nil {
			return nil, err
		}
	}

	w.logger.Infow("write-ahead log opened",
		"dir", dir,
		"file", filepath.Base(w.path),
		"size", humanize.IBytes(uint64(w.size.Load())),
		"segments", len(segments),
		"durability", w.durability.String(),
	)
	return w, nil
}

// Write appends one record. The record is handed to the OS before Write
// returns, and fsynced as well under DurabilityFull.
func (w *WriteAheadLog) Write(op Operation, collection, payload string) error {
	if strings.ContainsAny(collection, "|\r\n") || strings.ContainsAny(payload, "\r\n") {
		return fmt.Errorf("%w: %s record for %q spans fields or lines", ErrInvalidRecord, op, collection)
	}
	record := formatRecord(op, collection, payload)
	n := int64(len(record))

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.failure != nil {
		return fmt.Errorf("%w: %v", ErrWALFailed, w.failure)
	}

	if current := w.size.Load(); current > 0 && current+n > w.maxFileSize {
		if err := w.rotateLocked(); err != nil {
			return w.fail(fmt.Errorf("failed to rotate WAL file: %w", err))
		}
	}

	if _, err := w.file.WriteString(record); err != nil {
		return w.fail(fmt.Errorf("failed to write to WAL file: %w", err))
	}
	if err := w.applyDurability(); err != nil {
		return w.fail(fmt.Errorf("failed to apply durability: %w", err))
	}

	w.size.Add(n)
	metrics.WALRecords.WithLabelValues(string(op)).Inc()
	metrics.WALBytes.Add(float64(n))
	return nil
}

// Rotate seals the active file and starts a new one. Empty files are kept.
func (w *WriteAheadLog) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.failure != nil {
		return fmt.Errorf("%w: %v", ErrWALFailed, w.failure)
	}
	if w.size.Load() == 0 {
		return nil
	}
	if err := w.rotateLocked(); err != nil {
		return w.fail(fmt.Errorf("failed to rotate WAL file: %w", err))
	}
	return nil
}

// Files lists log files in replay order
func (w *WriteAheadLog) Files() ([]string, error) {
	segments, err := listSegments(w.dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, len(segments))
	for i, seg := range segments {
		files[i] = seg.path
	}
	return files, nil
}

// Size returns the byte length of the active file
func (w *WriteAheadLog) Size() int64 {
	return w.size.Load()
}

// CurrentFile returns the path of the active file
func (w *WriteAheadLog) CurrentFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Close closes the active file and waits for background archiving
func (w *WriteAheadLog) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	var err error
	if w.file != nil {
		if w.failure == nil && w.durability == DurabilityFull {
			err = w.file.Sync()
		}
		if closeErr := w.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		w.file = nil
	}
	w.mu.Unlock()

	w.archiving.Wait()
	if err != nil {
		return fmt.Errorf("failed to close WAL file: %w", err)
	}
	return nil
}

// Private methods

func (w *WriteAheadLog) fail(err error) error {
	w.failure = err
	metrics.WALFailures.Inc()
	w.logger.Errorw("write-ahead log failed, further writes are refused", "file", w.path, "error", err)
	return fmt.Errorf("%w: %v", ErrWALFailed, err)
}

func (w *WriteAheadLog) applyDurability() error {
	switch w.durability {
	case DurabilityOS:
		// The write syscall already placed the record in the page cache
		return nil
	case DurabilityFull:
		return w.file.Sync()
	default:
		return fmt.Errorf("unknown durability level: %d", w.durability)
	}
}

func (w *WriteAheadLog) rotateLocked() error {
	sealed := w.path
	sealedSize := w.size.Load()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close current WAL file: %w", err)
	}
	w.file = nil

	if err := w.createFile(); err != nil {
		return err
	}

	metrics.WALRotations.Inc()
	w.logger.Infow("rotated write-ahead log",
		"sealed", filepath.Base(sealed),
		"sealed_size", humanize.IBytes(uint64(sealedSize)),
		"file", filepath.Base(w.path),
	)

	if w.archiveSealed {
		w.scheduleArchive(sealed)
	}
	return nil
}

func (w *WriteAheadLog) openExisting(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open WAL file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat WAL file: %w", err)
	}
	size := info.Size()

	// A crash can leave a partial last record. Terminate it so the next
	// record starts on its own line; recovery counts the fragment as failed.
	torn, err := endsWithoutNewline(path, size)
	if err != nil {
		file.Close()
		return err
	}
	if torn {
		if _, err := file.Write([]byte{'\n'}); err != nil {
			file.Close()
			return fmt.Errorf("failed to terminate torn WAL record: %w", err)
		}
		size++
		w.logger.Warnw("terminated torn record at end of write-ahead log", "file", filepath.Base(path))
	}

	w.file = file
	w.path = path
	w.size.Store(size)
	return nil
}

func endsWithoutNewline(path string, size int64) (bool, error) {
	if size == 0 {
		return false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open WAL file: %w", err)
	}
	defer f.Close()

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false, fmt.Errorf("failed to read WAL file tail: %w", err)
	}
	return last[0] != '\n', nil
}

// createFile starts a new file whose name stamp is unique and later than
// every stamp seen so far
func (w *WriteAheadLog) createFile() error {
	stamp := time.Now().UnixMilli()
	if stamp <= w.lastStamp {
		stamp = w.lastStamp + 1
	}

	for {
		path := filepath.Join(w.dir, segmentName(stamp))
		if _, err := os.Stat(path + archiveExt); err == nil {
			stamp++
			continue
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0644)
		if os.IsExist(err) {
			stamp++
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create WAL file: %w", err)
		}

		w.file = file
		w.path = path
		w.lastStamp = stamp
		w.size.Store(0)
		return nil
	}
}

func formatRecord(op Operation, collection, payload string) string {
	var b strings.Builder
	b.Grow(len(op) + len(collection) + len(payload) + 3)
	b.WriteString(string(op))
	b.WriteString(fieldSep)
	b.WriteString(collection)
	b.WriteString(fieldSep)
	b.WriteString(payload)
	b.WriteByte(recordEnd)
	return b.String()
}

func segmentName(stamp int64) string {
	return baseName + "_" + strconv.FormatInt(stamp, 10) + fileExt
}

// parseSegmentName extracts the creation stamp from a file name, reporting
// whether the name belongs to the log at all
func parseSegmentName(name string) (stamp int64, archived bool, ok bool) {
	if !strings.HasPrefix(name, baseName+"_") {
		return 0, false, false
	}
	rest := strings.TrimPrefix(name, baseName+"_")
	switch {
	case strings.HasSuffix(rest, fileExt+archiveExt):
		rest = strings.TrimSuffix(rest, fileExt+archiveExt)
		archived = true
	case strings.HasSuffix(rest, fileExt):
		rest = strings.TrimSuffix(rest, fileExt)
	default:
		return 0, false, false
	}
	stamp, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false, false
	}
	return stamp, archived, true
}

// listSegments returns the log files of dir in replay order: modification
// time ascending, ties broken by name stamp. When a segment exists both
// plain and archived, the plain file wins.
func listSegments(dir string) ([]segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list WAL files: %w", err)
	}

	byStamp := make(map[int64]segment)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stamp, archived, ok := parseSegmentName(entry.Name())
		if !ok {
			continue
		}
		if prev, seen := byStamp[stamp]; seen && !prev.archived {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat WAL file %s: %w", entry.Name(), err)
		}
		byStamp[stamp] = segment{
			path:     filepath.Join(dir, entry.Name()),
			stamp:    stamp,
			modTime:  info.ModTime(),
			archived: archived,
		}
	}

	segments := make([]segment, 0, len(byStamp))
	for _, seg := range byStamp {
		segments = append(segments, seg)
	}
	sort.Slice(segments, func(i, j int) bool {
		if !segments[i].modTime.Equal(segments[j].modTime) {
			return segments[i].modTime.Before(segments[j].modTime)
		}
		return segments[i].stamp < segments[j].stamp
	})
	return segments, nil
}
