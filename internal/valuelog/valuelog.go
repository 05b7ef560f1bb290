package valuelog

import (
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/ignitedb/ignite/pkg/errors"
	"github.com/ignitedb/ignite/pkg/filesys"
	"github.com/ignitedb/ignite/pkg/seginfo"
	"go.uber.org/zap"
)

// Config holds everything Log needs to open or create its segment
// directory.
type Config struct {
	DataDir     string
	Directory   string
	Prefix      string
	SegmentSize uint64
	Logger      *zap.SugaredLogger
}

// Log is the out-of-line value store: a sequence of append-only segment
// files, exactly one of which (the "active" segment) accepts new
// writes at any given time.
type Log struct {
	mu sync.RWMutex

	dataDir     string
	directory   string
	prefix      string
	segmentSize uint64
	log         *zap.SugaredLogger

	active        *SegmentWriter
	readers       map[uint64]*os.File
	nextSegmentID uint64
	sealedIDs     []uint64 // every non-active segment ID known on disk, oldest first
}

// Open creates or recovers a value log rooted at
// cfg.DataDir/cfg.Directory. The most recent segment found on disk
// becomes the active segment if it still has room, otherwise a new
// segment is created.
func Open(cfg Config) (*Log, error) {
	dir := filepath.Join(cfg.DataDir, cfg.Directory)
	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create value log directory").WithPath(dir)
	}

	l := &Log{
		dataDir:       cfg.DataDir,
		directory:     cfg.Directory,
		prefix:        cfg.Prefix,
		segmentSize:   cfg.SegmentSize,
		log:           cfg.Logger,
		readers:       make(map[uint64]*os.File),
		nextSegmentID: 1,
	}

	ids, err := l.discoverSegmentIDs()
	if err != nil {
		return nil, err
	}

	var activeID uint64 = 1
	if len(ids) > 0 {
		activeID = ids[len(ids)-1]
		l.sealedIDs = ids[:len(ids)-1]
	}

	writer, err := OpenSegmentWriter(activeID, l.segmentPath(activeID))
	if err != nil {
		return nil, err
	}
	l.active = writer
	if activeID >= l.nextSegmentID {
		l.nextSegmentID = activeID + 1
	}

	if writer.Size() >= l.segmentSize && l.segmentSize > 0 {
		if err := l.rotateLocked(); err != nil {
			return nil, err
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Infow("value log recovered", "directory", dir, "activeSegmentID", l.active.SegmentID(), "sealedSegments", len(l.sealedIDs))
	}

	return l, nil
}

func (l *Log) discoverSegmentIDs() ([]uint64, error) {
	pattern := filepath.Join(l.dataDir, l.directory, l.prefix+"*.seg")
	paths, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to scan value log directory").WithPath(pattern)
	}

	ids := make([]uint64, 0, len(paths))
	for _, p := range paths {
		id, err := seginfo.ParseSegmentID(p, l.prefix)
		if err != nil {
			if l.log != nil {
				l.log.Warnw("skipping unparsable value log segment during recovery", "path", p, "error", err)
			}
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (l *Log) segmentPath(id uint64) string {
	return filepath.Join(l.dataDir, l.directory, seginfo.GenerateName(id, l.prefix))
}

// GetWriter returns the currently active segment writer. The flush
// pipeline writes every separated value for one flush through the
// writer returned here, then calls Register to seal and (if needed)
// rotate it.
func (l *Log) GetWriter() *SegmentWriter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Register is called once a flush has finished writing through a
// SegmentWriter obtained from GetWriter. It syncs the segment to stable
// storage and rotates in a fresh active segment if the current one has
// reached its configured size limit.
func (l *Log) Register(w *SegmentWriter) error {
	if err := w.Sync(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w.SegmentID() != l.active.SegmentID() {
		// A writer from a prior generation; nothing to rotate.
		return nil
	}
	if l.segmentSize == 0 || w.Size() < l.segmentSize {
		return nil
	}
	return l.rotateLocked()
}

// rotateLocked retires the current active segment and opens a new one.
// Callers must hold l.mu.
func (l *Log) rotateLocked() error {
	sealedID := l.active.SegmentID()
	l.sealedIDs = append(l.sealedIDs, sealedID)

	newID := l.nextSegmentID
	l.nextSegmentID++

	writer, err := OpenSegmentWriter(newID, l.segmentPath(newID))
	if err != nil {
		return err
	}

	l.active = writer
	if l.log != nil {
		l.log.Infow("value log segment rotated", "sealedSegmentID", sealedID, "activeSegmentID", newID)
	}
	return nil
}

// Get resolves a ValueHandle to the bytes it addresses.
func (l *Log) Get(handle ValueHandle) ([]byte, error) {
	file, err := l.readerFor(handle.SegmentID)
	if err != nil {
		return nil, err
	}

	header := make([]byte, recordFixedOverhead)
	if _, err := file.ReadAt(header, int64(handle.Offset)); err != nil {
		return nil, errors.NewBlobError(err, errors.ErrorCodeDecodeTruncated, "failed to read value log record header").
			WithSegmentID(handle.SegmentID).WithOffset(handle.Offset)
	}

	// The header alone doesn't carry the full record length (key and
	// value lengths live inside it), so re-read with enough slack once
	// we know how big the record actually is.
	keyLen := beUint32(header[0:4])
	remaining := make([]byte, 4+int(keyLen)+4)
	if _, err := file.ReadAt(remaining, int64(handle.Offset)); err != nil {
		return nil, errors.NewBlobError(err, errors.ErrorCodeDecodeTruncated, "failed to read value log key region").
			WithSegmentID(handle.SegmentID).WithOffset(handle.Offset)
	}
	valueLen := beUint32(remaining[4+int(keyLen):])

	full := make([]byte, recordFixedOverhead+int(keyLen)+int(valueLen))
	if _, err := file.ReadAt(full, int64(handle.Offset)); err != nil {
		return nil, errors.NewBlobError(err, errors.ErrorCodeDecodeTruncated, "failed to read value log record").
			WithSegmentID(handle.SegmentID).WithOffset(handle.Offset)
	}

	_, value, _, err := decodeRecord(full)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (l *Log) readerFor(segmentID uint64) (*os.File, error) {
	l.mu.RLock()
	if f, ok := l.readers[segmentID]; ok {
		l.mu.RUnlock()
		return f, nil
	}
	activeID := l.active.SegmentID()
	l.mu.RUnlock()

	path := l.segmentPath(segmentID)
	if segmentID > activeID {
		return nil, errors.NewUnknownSegmentError(segmentID)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewUnknownSegmentError(segmentID).WithMessage("value log segment file missing")
	}

	l.mu.Lock()
	if existing, ok := l.readers[segmentID]; ok {
		l.mu.Unlock()
		f.Close()
		return existing, nil
	}
	l.readers[segmentID] = f
	l.mu.Unlock()

	return f, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Close releases every cached file handle and the active segment
// writer.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.readers {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := l.active.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
