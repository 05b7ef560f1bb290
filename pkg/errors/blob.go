package errors

import stdErrors "errors"

// BlobError is a specialized error type for the value-separation layer:
// codec decode failures, flush-time invariant violations, and dangling
// value-log references. It embeds baseError the same way StorageError
// does, adding the context needed to tell the two failure modes apart
// at the call site.
type BlobError struct {
	*baseError
	key       string // User key involved, when known.
	segmentId uint64 // Value-log or index segment ID involved, when known.
	offset    uint64 // Byte offset involved, when known.
}

// NewBlobError creates a new blob-tree-specific error.
func NewBlobError(err error, code ErrorCode, msg string) *BlobError {
	return &BlobError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the BlobError type.
func (be *BlobError) WithMessage(msg string) *BlobError {
	be.baseError.WithMessage(msg)
	return be
}

// WithCode sets the error code while preserving the BlobError type.
func (be *BlobError) WithCode(code ErrorCode) *BlobError {
	be.baseError.WithCode(code)
	return be
}

// WithDetail adds contextual information while maintaining the BlobError type.
func (be *BlobError) WithDetail(key string, value any) *BlobError {
	be.baseError.WithDetail(key, value)
	return be
}

// WithKey records which user key was being processed.
func (be *BlobError) WithKey(key string) *BlobError {
	be.key = key
	return be
}

// WithSegmentID records which segment (index or value-log) was involved.
func (be *BlobError) WithSegmentID(id uint64) *BlobError {
	be.segmentId = id
	return be
}

// WithOffset records which byte offset was involved.
func (be *BlobError) WithOffset(offset uint64) *BlobError {
	be.offset = offset
	return be
}

// Key returns the user key involved in the error, if any.
func (be *BlobError) Key() string { return be.key }

// SegmentID returns the segment ID involved in the error, if any.
func (be *BlobError) SegmentID() uint64 { return be.segmentId }

// Offset returns the byte offset involved in the error, if any.
func (be *BlobError) Offset() uint64 { return be.offset }

// NewUnknownTagError builds the error for an EncodedEntry whose tag byte
// doesn't match either known variant. Always a data error: the tag came
// from a byte sequence read off disk, never from in-process construction.
func NewUnknownTagError(tag byte) *BlobError {
	return NewBlobError(nil, ErrorCodeDecodeUnknownTag, "encoded entry has unknown tag byte").
		WithDetail("tag", tag)
}

// NewTruncatedError builds the error for an EncodedEntry whose length
// prefix or payload ran past the end of the available bytes.
func NewTruncatedError(what string, want, have int) *BlobError {
	return NewBlobError(nil, ErrorCodeDecodeTruncated, "encoded entry truncated: "+what).
		WithDetail("wantBytes", want).
		WithDetail("haveBytes", have)
}

// NewInvariantViolationError builds the error for a flush-time invariant
// failure, e.g. a pre-flush entry that decoded as Indirect.
func NewInvariantViolationError(msg string) *BlobError {
	return NewBlobError(nil, ErrorCodeInvariantViolation, msg)
}

// NewDanglingHandleError builds the error for a point read whose Indirect
// handle resolved to nothing in the value log.
func NewDanglingHandleError(key string, segmentID, offset uint64) *BlobError {
	return NewBlobError(nil, ErrorCodeDanglingHandle, "value handle referenced no value-log bytes").
		WithKey(key).
		WithSegmentID(segmentID).
		WithOffset(offset)
}

// NewUnknownSegmentError builds the error for a handle referencing a
// value-log segment that was never registered.
func NewUnknownSegmentError(segmentID uint64) *BlobError {
	return NewBlobError(nil, ErrorCodeUnknownSegment, "value handle references unregistered segment").
		WithSegmentID(segmentID)
}

// IsBlobError checks if the given error is a BlobError or contains one in
// its error chain.
func IsBlobError(err error) bool {
	var be *BlobError
	return stdErrors.As(err, &be)
}

// IsDanglingValueLogHandle reports whether err is the specific, recoverable
// case of a value handle that no longer resolves to any value-log bytes —
// either a dangling handle or a reference to a segment the log never
// registered. Every other error out of the value log (I/O failure, a
// checksum mismatch) must not be mistaken for this and silently dropped.
func IsDanglingValueLogHandle(err error) bool {
	be, ok := AsBlobError(err)
	if !ok {
		return false
	}
	return be.Code() == ErrorCodeDanglingHandle || be.Code() == ErrorCodeUnknownSegment
}

// AsBlobError extracts BlobError context from an error chain.
func AsBlobError(err error) (*BlobError, bool) {
	var be *BlobError
	if stdErrors.As(err, &be) {
		return be, true
	}
	return nil, false
}
