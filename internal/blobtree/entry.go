// Package blobtree implements the key-value-separated tree: a sorted
// index (package lsm) whose values are either stored inline or as a
// handle into an out-of-line value log (package valuelog). The decision
// between the two lives entirely in the flush pipeline (flush.go); every
// value is inserted inline and is only possibly separated once its
// memtable is flushed to a segment.
package blobtree

import (
	"encoding/binary"

	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/ignitedb/ignite/pkg/errors"
)

type entryTag byte

const (
	tagInline   entryTag = 0
	tagIndirect entryTag = 1
)

// entryTagSize is the width of the tag byte that prefixes every encoded
// entry, ahead of the Inline length prefix or the two Indirect fields.
const entryTagSize = 1

// MaybeInlineValue is the tagged union stored as the raw value of every
// index-segment record. A record is either the actual value bytes
// (Inline) or a handle pointing into the value log (Indirect). Exactly
// one of the two fields is set.
type MaybeInlineValue struct {
	Inline   []byte
	Indirect *valuelog.ValueHandle
}

// NewInlineValue wraps raw value bytes for inline storage.
func NewInlineValue(value []byte) MaybeInlineValue {
	return MaybeInlineValue{Inline: value}
}

// NewIndirectValue wraps a value-log handle for out-of-line storage.
func NewIndirectValue(handle valuelog.ValueHandle) MaybeInlineValue {
	return MaybeInlineValue{Indirect: &handle}
}

// IsIndirect reports whether this entry points into the value log
// rather than carrying its value inline.
func (v MaybeInlineValue) IsIndirect() bool {
	return v.Indirect != nil
}

// EncodeEntry serializes a MaybeInlineValue as it is stored in an index
// segment record:
//
//	Inline:   tag(0) | u64 len | bytes
//	Indirect: tag(1) | u64 offset | u64 segmentID
//
// The Indirect layout deliberately matches valuelog.ValueHandle's field
// order (Offset before SegmentID) so the wire format and the in-memory
// struct never disagree about which eight bytes mean what.
func EncodeEntry(v MaybeInlineValue) []byte {
	if v.IsIndirect() {
		buf := make([]byte, entryTagSize+8+8)
		buf[0] = byte(tagIndirect)
		binary.BigEndian.PutUint64(buf[1:9], v.Indirect.Offset)
		binary.BigEndian.PutUint64(buf[9:17], v.Indirect.SegmentID)
		return buf
	}

	buf := make([]byte, entryTagSize+8+len(v.Inline))
	buf[0] = byte(tagInline)
	binary.BigEndian.PutUint64(buf[1:9], uint64(len(v.Inline)))
	copy(buf[9:], v.Inline)
	return buf
}

// DecodeEntry parses a MaybeInlineValue from its encoded form. Any
// structural problem — an unrecognized tag or a length/offset field that
// runs past the end of buf — is reported as a *errors.BlobError rather
// than panicking, since buf ultimately comes from disk and must be
// treated as untrusted input.
func DecodeEntry(buf []byte) (MaybeInlineValue, error) {
	if len(buf) < entryTagSize {
		return MaybeInlineValue{}, errors.NewTruncatedError("tag byte", entryTagSize, len(buf))
	}

	switch entryTag(buf[0]) {
	case tagInline:
		if len(buf) < entryTagSize+8 {
			return MaybeInlineValue{}, errors.NewTruncatedError("inline length", entryTagSize+8, len(buf))
		}
		length := binary.BigEndian.Uint64(buf[1:9])
		if uint64(len(buf)-9) < length {
			return MaybeInlineValue{}, errors.NewTruncatedError("inline payload", int(9+length), len(buf))
		}
		value := make([]byte, length)
		copy(value, buf[9:9+length])
		return MaybeInlineValue{Inline: value}, nil

	case tagIndirect:
		if len(buf) < entryTagSize+16 {
			return MaybeInlineValue{}, errors.NewTruncatedError("indirect handle", entryTagSize+16, len(buf))
		}
		offset := binary.BigEndian.Uint64(buf[1:9])
		segmentID := binary.BigEndian.Uint64(buf[9:17])
		return MaybeInlineValue{Indirect: &valuelog.ValueHandle{Offset: offset, SegmentID: segmentID}}, nil

	default:
		return MaybeInlineValue{}, errors.NewUnknownTagError(buf[0])
	}
}
