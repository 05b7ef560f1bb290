package lsm

import "container/heap"

// cursor walks one sorted source of Entry (a memtable snapshot or
// a decoded segment) in InternalKey order.
type cursor struct {
	entries []Entry
	pos     int
}

func (c *cursor) peek() (Entry, bool) {
	if c.pos >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[c.pos], true
}

func (c *cursor) advance() { c.pos++ }

// cursorHeap orders cursors by the InternalKey each currently points at,
// so the smallest InternalKey across every source is always at index 0.
type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	a, _ := h[i].peek()
	b, _ := h[j].peek()
	return Compare(a.Key, b.Key) < 0
}
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MergeIterator produces the logical, de-duplicated view of a tree's
// contents as of a given sequence number: the active memtable plus every
// flushed segment, merged in InternalKey order, collapsed to one visible
// version per user key, with tombstoned keys dropped.
//
// Because sequence numbers are assigned by a single counter shared across
// the whole tree, "most recent version visible at seqNo" is simply "the
// entry with the largest SeqNo <= seqNo", independent of which source
// (memtable or which segment) it came from.
type MergeIterator struct {
	heap  cursorHeap
	seqNo uint64
}

// NewMergeIterator builds a merge iterator over the given sorted
// sources, each of which must already be ordered by InternalKey.
func NewMergeIterator(seqNo uint64, sources ...[]Entry) *MergeIterator {
	mi := &MergeIterator{seqNo: seqNo}
	for _, s := range sources {
		if len(s) == 0 {
			continue
		}
		mi.heap = append(mi.heap, &cursor{entries: s})
	}
	heap.Init(&mi.heap)
	return mi
}

// Next returns the next visible, non-tombstoned user key/value pair in
// ascending key order. The bool return is false once the iterator is
// exhausted.
func (mi *MergeIterator) Next() (InternalKey, []byte, bool) {
	for {
		if mi.heap.Len() == 0 {
			return InternalKey{}, nil, false
		}

		top, _ := mi.heap[0].peek()
		groupKey := top.Key.UserKey

		var (
			best   Entry
			found  bool
			popped []*cursor
		)

		sameKey := func(k []byte) bool {
			return Compare(InternalKey{UserKey: k}, InternalKey{UserKey: groupKey}) == 0
		}

		for mi.heap.Len() > 0 {
			c := mi.heap[0]
			e, ok := c.peek()
			if !ok || !sameKey(e.Key.UserKey) {
				break
			}
			heap.Pop(&mi.heap)

			// A single source stores every version of a key contiguously
			// (sorted by UserKey then SeqNo), so drain all of this
			// cursor's versions of groupKey now instead of re-pushing it
			// after only one: otherwise a tombstone and an older value
			// for the same key in one source would land in separate
			// groups and the older value would wrongly surface as live.
			for {
				if e.Key.SeqNo <= mi.seqNo && (!found || e.Key.SeqNo > best.Key.SeqNo) {
					best, found = e, true
				}
				c.advance()

				next, ok := c.peek()
				if !ok || !sameKey(next.Key.UserKey) {
					break
				}
				e = next
			}

			if _, ok := c.peek(); ok {
				popped = append(popped, c)
			}
		}

		for _, c := range popped {
			heap.Push(&mi.heap, c)
		}

		if !found {
			continue
		}
		if best.Key.Type == ValueTypeTombstone {
			continue
		}
		return best.Key, best.Value, true
	}
}
