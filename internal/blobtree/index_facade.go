package blobtree

import (
	"math"

	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/internal/valuelog"
)

// IndexTree adapts the sorted key space (lsm.Tree) to blobtree's entry
// codec, decoding raw index bytes into MaybeInlineValue on the way out.
// It also implements valuelog.ExternalIndex, letting the value log's GC
// sweep ask "does the index still point at this handle?" without
// needing to know anything about InternalKey ordering or MVCC itself.
type IndexTree struct {
	lsm *lsm.Tree
}

// NewIndexTree wraps an lsm.Tree as an IndexTree.
func NewIndexTree(tree *lsm.Tree) *IndexTree {
	return &IndexTree{lsm: tree}
}

// GetRaw resolves the most recent version of key visible as of seqNo and
// decodes it into a MaybeInlineValue, without resolving an Indirect
// handle into its actual bytes. Callers that need the value itself
// should use BlobTree.Get, which also reaches into the value log.
func (ix *IndexTree) GetRaw(key []byte, seqNo uint64) (MaybeInlineValue, bool, error) {
	_, raw, ok, err := ix.lsm.Get(key, seqNo)
	if err != nil {
		return MaybeInlineValue{}, false, err
	}
	if !ok {
		return MaybeInlineValue{}, false, nil
	}

	v, err := DecodeEntry(raw)
	if err != nil {
		return MaybeInlineValue{}, false, err
	}
	return v, true, nil
}

// IsLive implements valuelog.ExternalIndex. A value-log record is live
// only if the index's latest entry for key is still Indirect and still
// names exactly this handle; any overwrite, deletion, or re-separation
// at a different offset/segment makes it dead.
func (ix *IndexTree) IsLive(key []byte, handle valuelog.ValueHandle) (bool, error) {
	v, ok, err := ix.GetRaw(key, math.MaxUint64)
	if err != nil {
		return false, err
	}
	if !ok || !v.IsIndirect() {
		return false, nil
	}
	return *v.Indirect == handle, nil
}
