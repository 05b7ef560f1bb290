package blobtree

import (
	"sync/atomic"

	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/ignitedb/ignite/pkg/errors"
	"go.uber.org/zap"
)

// Config holds the collaborators and tunables a BlobTree needs. The
// caller (internal/engine) is responsible for opening the underlying
// lsm.Tree and valuelog.Log and handing them in already-initialized.
type Config struct {
	Index                  *lsm.Tree
	Blobs                  *valuelog.Log
	SepThreshold           uint32
	EvictTombstonesAtFlush bool
	Logger                 *zap.SugaredLogger
}

// BlobTree is the key-value-separated tree: a sorted index plus an
// out-of-line value log, with the separation decision made at flush
// time rather than at insert time. It owns the monotonic sequence
// counter that orders every write across both the index and, once a
// value is separated, the value log.
type BlobTree struct {
	index                  *IndexTree
	lsm                    *lsm.Tree
	blobs                  *valuelog.Log
	sepThreshold           uint32
	evictTombstonesAtFlush bool
	log                    *zap.SugaredLogger
	seqNo                  atomic.Uint64
}

// Open constructs a BlobTree over an already-opened index and value
// log.
func Open(cfg Config) *BlobTree {
	return &BlobTree{
		index:                  NewIndexTree(cfg.Index),
		lsm:                    cfg.Index,
		blobs:                  cfg.Blobs,
		sepThreshold:           cfg.SepThreshold,
		evictTombstonesAtFlush: cfg.EvictTombstonesAtFlush,
		log:                    cfg.Logger,
	}
}

// Insert stores value under key. The value is always buffered inline in
// the active memtable; whether it ends up inline or separated on disk is
// decided later, when that memtable is flushed.
func (bt *BlobTree) Insert(key, value []byte) error {
	seqNo := bt.seqNo.Add(1)
	bt.lsm.Insert(key, seqNo, EncodeEntry(NewInlineValue(value)))
	return nil
}

// Remove writes a tombstone for key.
func (bt *BlobTree) Remove(key []byte) error {
	seqNo := bt.seqNo.Add(1)
	bt.lsm.Remove(key, seqNo)
	return nil
}

// Get resolves key as of the current write sequence, transparently
// following an Indirect entry into the value log. A dangling handle —
// an Indirect entry the value log has no bytes for — surfaces as an
// error rather than a silent miss, since at a point lookup the caller
// explicitly asked for this one key and deserves to know its index and
// its value log have fallen out of sync. A genuine I/O fault or checksum
// mismatch out of the value log propagates as-is rather than being
// relabeled as a dangling handle.
func (bt *BlobTree) Get(key []byte) ([]byte, bool, error) {
	v, ok, err := bt.index.GetRaw(key, bt.seqNo.Load())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	if !v.IsIndirect() {
		return v.Inline, true, nil
	}

	value, err := bt.blobs.Get(*v.Indirect)
	if err != nil {
		if errors.IsDanglingValueLogHandle(err) {
			return nil, false, errors.NewDanglingHandleError(string(key), v.Indirect.SegmentID, v.Indirect.Offset)
		}
		return nil, false, err
	}
	return value, true, nil
}

// Range returns a RangeMapper over every live key visible as of the
// current write sequence, resolving indirections lazily as the caller
// advances it. Unlike Get, a dangling handle encountered during a range
// scan is skipped rather than raised as an error — see mapper.go.
func (bt *BlobTree) Range() (*RangeMapper, error) {
	it, err := bt.lsm.Range(bt.seqNo.Load())
	if err != nil {
		return nil, err
	}
	return NewRangeMapper(it, bt.blobs, bt.log), nil
}

// Index exposes the tree's index façade as a valuelog.ExternalIndex, for
// wiring into the value log's GC sweep.
func (bt *BlobTree) Index() *IndexTree {
	return bt.index
}

// FlushActiveMemtable runs the flush pipeline: it rotates the active
// memtable out, streams its entries into a new index segment (and, for
// any value at or above SepThreshold, a value-log segment), and commits
// both. It returns (false, nil) if there was nothing to flush.
func (bt *BlobTree) FlushActiveMemtable() (bool, error) {
	return runFlush(bt)
}

// Len returns the number of live (non-tombstoned) keys currently
// visible. It is a thin convenience built on Range, carried over from
// the abstract tree interface this design was distilled from.
func (bt *BlobTree) Len() (int, error) {
	mapper, err := bt.Range()
	if err != nil {
		return 0, err
	}
	count := 0
	for {
		_, _, ok, err := mapper.Next()
		if err != nil {
			return count, err
		}
		if !ok {
			return count, nil
		}
		count++
	}
}

// Iter returns a pull-based iteration function over every live key,
// another thin convenience over Range.
func (bt *BlobTree) Iter() (func() ([]byte, []byte, bool, error), error) {
	mapper, err := bt.Range()
	if err != nil {
		return nil, err
	}
	return mapper.Next, nil
}

// Close releases the tree's underlying resources.
func (bt *BlobTree) Close() error {
	var firstErr error
	if err := bt.lsm.Close(); err != nil {
		firstErr = err
	}
	if err := bt.blobs.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
