package blobtree

import (
	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/ignitedb/ignite/pkg/errors"
	"go.uber.org/zap"
)

// RangeMapper adapts a raw lsm.MergeIterator to blobtree's entry codec,
// resolving Indirect entries into value-log bytes lazily as the caller
// pulls each key. Unlike BlobTree.Get, a dangling handle the value log can
// no longer serve is skipped rather than surfaced as an error: a scan
// touches many keys on the caller's behalf, and failing the whole scan
// for one stale handle would be a worse outcome than quietly omitting
// that one key and logging it for operators to notice. Any other failure
// out of the value log — an I/O fault, a checksum mismatch — is a real
// read error and is returned to the caller like any other.
type RangeMapper struct {
	it    *lsm.MergeIterator
	blobs *valuelog.Log
	log   *zap.SugaredLogger
}

// NewRangeMapper wraps it, resolving indirections through blobs.
func NewRangeMapper(it *lsm.MergeIterator, blobs *valuelog.Log, log *zap.SugaredLogger) *RangeMapper {
	return &RangeMapper{it: it, blobs: blobs, log: log}
}

// Next returns the next live key/value pair, or (nil, nil, false, nil)
// once the underlying iterator is exhausted.
func (m *RangeMapper) Next() ([]byte, []byte, bool, error) {
	for {
		key, raw, ok := m.it.Next()
		if !ok {
			return nil, nil, false, nil
		}

		v, err := DecodeEntry(raw)
		if err != nil {
			return nil, nil, false, err
		}

		if !v.IsIndirect() {
			return key.UserKey, v.Inline, true, nil
		}

		value, err := m.blobs.Get(*v.Indirect)
		if err != nil {
			if !errors.IsDanglingValueLogHandle(err) {
				return nil, nil, false, err
			}
			if m.log != nil {
				m.log.Debugw("skipping dangling value-log handle during scan",
					"key", string(key.UserKey), "segmentID", v.Indirect.SegmentID, "offset", v.Indirect.Offset, "error", err)
			}
			continue
		}
		return key.UserKey, value, true, nil
	}
}
