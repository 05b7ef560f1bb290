// Package lsm also exposes Tree, the façade the blobtree package drives
// directly: Insert/Remove/Get/Range for the live read/write path, and
// RotateMemtable/NewSegmentWriter/ConsumeWriter for the flush pipeline.
package lsm

import (
	"path/filepath"
	"slices"
	"sync"

	"github.com/ignitedb/ignite/pkg/errors"
	"github.com/ignitedb/ignite/pkg/filesys"
	"github.com/ignitedb/ignite/pkg/seginfo"
	"go.uber.org/zap"
)

// Config holds everything Tree needs to open or create its on-disk
// segment directory.
type Config struct {
	DataDir    string
	SegmentDir string
	Prefix     string
	BlockSize  uint32
	BloomFP    float64
	Logger     *zap.SugaredLogger
}

// Tree is the sorted, multi-versioned key space backing one blob tree's
// index. It holds one mutable memtable for new writes, at most one
// memtable that has been rotated out and is being flushed, and zero or
// more immutable on-disk segments ordered oldest to newest.
type Tree struct {
	mu sync.RWMutex

	dataDir    string
	segmentDir string
	prefix     string
	blockSize  uint32
	bloomFP    float64
	log        *zap.SugaredLogger

	active        *Memtable
	pendingFlush  *Memtable
	segments      []*SegmentReader
	nextSegmentID uint64
}

// Open creates or recovers a Tree rooted at cfg.DataDir/cfg.SegmentDir.
// Recovery re-opens every existing segment file found there, in ascending
// ID order, so that reads against previously flushed data work
// immediately after a restart.
func Open(cfg Config) (*Tree, error) {
	segmentDir := filepath.Join(cfg.DataDir, cfg.SegmentDir)
	if err := filesys.CreateDir(segmentDir, 0755, true); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create index segment directory").
			WithPath(segmentDir)
	}

	t := &Tree{
		dataDir:       cfg.DataDir,
		segmentDir:    cfg.SegmentDir,
		prefix:        cfg.Prefix,
		blockSize:     cfg.BlockSize,
		bloomFP:       cfg.BloomFP,
		log:           cfg.Logger,
		active:        NewMemtable(),
		nextSegmentID: 1,
	}

	ids, err := t.discoverSegmentIDs()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		path := t.segmentPath(id)
		reader, err := OpenSegmentReader(id, path)
		if err != nil {
			return nil, err
		}
		t.segments = append(t.segments, reader)
		if id >= t.nextSegmentID {
			t.nextSegmentID = id + 1
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Infow("index tree recovered", "segmentDir", segmentDir, "segments", len(t.segments))
	}

	return t, nil
}

func (t *Tree) discoverSegmentIDs() ([]uint64, error) {
	pattern := filepath.Join(t.dataDir, t.segmentDir, t.prefix+"*.seg")
	paths, err := filesys.ReadDir(pattern)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to scan index segment directory").
			WithPath(pattern)
	}

	ids := make([]uint64, 0, len(paths))
	for _, p := range paths {
		id, err := seginfo.ParseSegmentID(p, t.prefix)
		if err != nil {
			if t.log != nil {
				t.log.Warnw("skipping unparsable segment file during recovery", "path", p, "error", err)
			}
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *Tree) segmentPath(id uint64) string {
	return filepath.Join(t.dataDir, t.segmentDir, seginfo.GenerateName(id, t.prefix))
}

// Insert writes a live value for userKey at seqNo into the active
// memtable.
func (t *Tree) Insert(userKey []byte, seqNo uint64, value []byte) {
	t.mu.RLock()
	active := t.active
	t.mu.RUnlock()
	active.Put(InternalKey{UserKey: userKey, SeqNo: seqNo, Type: ValueTypeValue}, value)
}

// Remove writes a tombstone for userKey at seqNo into the active
// memtable.
func (t *Tree) Remove(userKey []byte, seqNo uint64) {
	t.mu.RLock()
	active := t.active
	t.mu.RUnlock()
	active.Put(InternalKey{UserKey: userKey, SeqNo: seqNo, Type: ValueTypeTombstone}, nil)
}

// Get resolves the most recent version of userKey visible as of seqNo,
// checking the active memtable, then the memtable being flushed (if
// any), then on-disk segments from newest to oldest. A tombstone hit
// reports not-found rather than leaking deletion markers to callers.
func (t *Tree) Get(userKey []byte, seqNo uint64) (InternalKey, []byte, bool, error) {
	t.mu.RLock()
	active := t.active
	pending := t.pendingFlush
	segs := make([]*SegmentReader, len(t.segments))
	copy(segs, t.segments)
	t.mu.RUnlock()

	if k, v, ok := active.Get(userKey, seqNo); ok {
		return visible(k, v)
	}
	if pending != nil {
		if k, v, ok := pending.Get(userKey, seqNo); ok {
			return visible(k, v)
		}
	}
	for i := len(segs) - 1; i >= 0; i-- {
		k, v, ok, err := segs[i].Get(userKey, seqNo)
		if err != nil {
			return InternalKey{}, nil, false, err
		}
		if ok {
			return visible(k, v)
		}
	}
	return InternalKey{}, nil, false, nil
}

func visible(k InternalKey, v []byte) (InternalKey, []byte, bool, error) {
	if k.Type == ValueTypeTombstone {
		return InternalKey{}, nil, false, nil
	}
	return k, v, true, nil
}

// Range returns a merge iterator over every key visible as of seqNo,
// spanning the active memtable, the memtable being flushed, and every
// on-disk segment.
func (t *Tree) Range(seqNo uint64) (*MergeIterator, error) {
	t.mu.RLock()
	active := t.active
	pending := t.pendingFlush
	segs := make([]*SegmentReader, len(t.segments))
	copy(segs, t.segments)
	t.mu.RUnlock()

	sources := [][]Entry{active.Sorted()}
	if pending != nil {
		sources = append(sources, pending.Sorted())
	}
	for _, s := range segs {
		entries, err := s.All()
		if err != nil {
			return nil, err
		}
		sources = append(sources, entries)
	}

	return NewMergeIterator(seqNo, sources...), nil
}

// RotateMemtable swaps in a fresh, empty memtable as the active one and
// returns the retired memtable for the flush pipeline to drain. The
// retired memtable stays reachable from Get/Range (as "pendingFlush")
// until ConsumeWriter registers its replacement segment.
//
// RotateMemtable returns nil if the active memtable is empty, since
// flushing nothing would only create an empty segment file.
func (t *Tree) RotateMemtable() *Memtable {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active.Len() == 0 {
		return nil
	}

	retired := t.active
	t.active = NewMemtable()
	t.pendingFlush = retired
	return retired
}

// NewSegmentWriter allocates the next segment ID and opens a writer for
// it in this tree's segment directory.
func (t *Tree) NewSegmentWriter(estimatedEntries uint) (*SegmentWriter, error) {
	t.mu.Lock()
	id := t.nextSegmentID
	t.nextSegmentID++
	t.mu.Unlock()

	return NewSegmentWriter(id, t.segmentPath(id), estimatedEntries, t.bloomFP, t.blockSize)
}

// ConsumeWriter finalizes a flush: the segment described by meta becomes
// part of the queryable segment list, and the pending memtable is
// released.
func (t *Tree) ConsumeWriter(meta *SegmentMeta) error {
	reader, err := OpenSegmentReader(meta.ID, meta.Path)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.segments = append(t.segments, reader)
	t.pendingFlush = nil
	t.mu.Unlock()

	if t.log != nil {
		t.log.Infow("index segment committed", "segmentID", meta.ID, "count", meta.Count, "bytes", meta.FileSize)
	}
	return nil
}

// Segments returns a snapshot of the currently open on-disk segments,
// oldest first. Used by tests asserting on flush behavior.
func (t *Tree) Segments() []*SegmentReader {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*SegmentReader, len(t.segments))
	copy(out, t.segments)
	return out
}

// ActiveSize reports the estimated byte size of the active memtable. The
// compaction scheduler does not consult it; it flushes on every tick.
func (t *Tree) ActiveSize() uint64 {
	t.mu.RLock()
	active := t.active
	t.mu.RUnlock()
	return active.Size()
}

// Close releases every open segment file handle.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for _, s := range t.segments {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
