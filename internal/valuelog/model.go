// Package valuelog implements the out-of-line value store that backs
// indirect (separated) values in a blob tree. It is deliberately ignorant
// of keys beyond what it needs for garbage collection: callers address
// stored values purely by ValueHandle, and the index layer (package
// blobtree) owns the mapping from user key to handle.
package valuelog

// ValueHandle locates one value inside the value log. Its field order
// matches the wire order the handle is encoded in: offset first, then
// segment ID. Keeping the struct and wire layouts identical sidesteps an
// entire class of bugs where a handle decoded correctly but its fields
// were swapped relative to what the writer meant.
type ValueHandle struct {
	Offset    uint64
	SegmentID uint64
}
