package blobtree

import (
	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/pkg/errors"
)

// runFlush drains bt's active memtable into a new index segment,
// separating any value at or above bt.sepThreshold into the value log
// along the way. Every entry in a memtable is Inline by construction
// (Insert never writes an Indirect entry); the size-gate classification
// that produces Indirect entries happens here, and only here.
//
// The value-log segment is committed (synced, and rotated if now full)
// before the index segment is registered, so that a crash between the
// two commits can only ever leave the value log holding bytes the index
// doesn't reference yet — recoverable as ordinary unreferenced,
// eventually-reclaimed garbage — rather than an index pointing at a
// value-log offset that was never durably written.
func runFlush(bt *BlobTree) (bool, error) {
	retired := bt.lsm.RotateMemtable()
	if retired == nil {
		return false, nil
	}

	sorted := retired.Sorted()

	indexWriter, err := bt.lsm.NewSegmentWriter(uint(len(sorted)))
	if err != nil {
		return false, err
	}

	blobWriter := bt.blobs.GetWriter()
	separatedAny := false

	for _, e := range sorted {
		if e.Key.Type == lsm.ValueTypeTombstone {
			if bt.evictTombstonesAtFlush {
				continue
			}
			if err := indexWriter.Append(e.Key, nil); err != nil {
				indexWriter.Abort()
				return false, err
			}
			continue
		}

		raw := e.Value
		decoded, err := DecodeEntry(raw)
		if err != nil {
			indexWriter.Abort()
			return false, err
		}
		if decoded.IsIndirect() {
			indexWriter.Abort()
			return false, errors.NewInvariantViolationError("memtable entry was Indirect before its first flush")
		}

		out := decoded
		if uint32(len(decoded.Inline)) >= bt.sepThreshold {
			handle, err := blobWriter.Write(e.Key.UserKey, decoded.Inline)
			if err != nil {
				indexWriter.Abort()
				return false, err
			}
			out = NewIndirectValue(handle)
			separatedAny = true
		}

		if err := indexWriter.Append(e.Key, EncodeEntry(out)); err != nil {
			indexWriter.Abort()
			return false, err
		}
	}

	if separatedAny {
		if err := bt.blobs.Register(blobWriter); err != nil {
			indexWriter.Abort()
			return false, err
		}
	}

	meta, err := indexWriter.Finish()
	if err != nil {
		return false, err
	}
	if err := bt.lsm.ConsumeWriter(meta); err != nil {
		return false, err
	}

	if bt.log != nil {
		bt.log.Infow("memtable flushed", "entries", len(sorted), "segmentID", meta.ID, "separated", separatedAny)
	}

	return true, nil
}
