package lsm

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/ignitedb/ignite/pkg/errors"
)

// Each index segment record is laid out as:
//
//	u8  tag          (ValueType)
//	u64 seqNo
//	u32 userKeyLen
//	    userKey
//	u32 valueLen
//	    value
//	u64 checksum      (xxhash64 of everything above)
//
// The checksum covers the whole record rather than just the payload so
// that a torn write during a crash is detected even if it only clipped
// the header.
const recordFixedOverhead = 1 + 8 + 4 + 4 + 8

// encodeRecord serializes one InternalKey/value pair using the segment
// record format described above.
func encodeRecord(key InternalKey, value []byte) []byte {
	buf := make([]byte, recordFixedOverhead+len(key.UserKey)+len(value))

	pos := 0
	buf[pos] = byte(key.Type)
	pos++

	binary.BigEndian.PutUint64(buf[pos:], key.SeqNo)
	pos += 8

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(key.UserKey)))
	pos += 4
	pos += copy(buf[pos:], key.UserKey)

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(value)))
	pos += 4
	pos += copy(buf[pos:], value)

	checksum := xxhash.Sum64(buf[:pos])
	binary.BigEndian.PutUint64(buf[pos:], checksum)

	return buf
}

// decodeRecord parses one record starting at the head of buf and returns
// the key, value, and the number of bytes consumed.
func decodeRecord(buf []byte) (InternalKey, []byte, int, error) {
	if len(buf) < recordFixedOverhead {
		return InternalKey{}, nil, 0, errors.NewBlobError(
			nil, errors.ErrorCodeDecodeTruncated, "segment record header truncated",
		).WithDetail("haveBytes", len(buf))
	}

	pos := 0
	vt := ValueType(buf[pos])
	pos++

	seqNo := binary.BigEndian.Uint64(buf[pos:])
	pos += 8

	keyLen := binary.BigEndian.Uint32(buf[pos:])
	pos += 4
	if len(buf) < pos+int(keyLen)+4 {
		return InternalKey{}, nil, 0, errors.NewBlobError(
			nil, errors.ErrorCodeDecodeTruncated, "segment record key truncated",
		).WithDetail("wantBytes", pos+int(keyLen)+4).WithDetail("haveBytes", len(buf))
	}
	userKey := make([]byte, keyLen)
	copy(userKey, buf[pos:pos+int(keyLen)])
	pos += int(keyLen)

	valueLen := binary.BigEndian.Uint32(buf[pos:])
	pos += 4
	if len(buf) < pos+int(valueLen)+8 {
		return InternalKey{}, nil, 0, errors.NewBlobError(
			nil, errors.ErrorCodeDecodeTruncated, "segment record value truncated",
		).WithDetail("wantBytes", pos+int(valueLen)+8).WithDetail("haveBytes", len(buf))
	}
	value := make([]byte, valueLen)
	copy(value, buf[pos:pos+int(valueLen)])
	pos += int(valueLen)

	wantChecksum := binary.BigEndian.Uint64(buf[pos:])
	gotChecksum := xxhash.Sum64(buf[:pos])
	pos += 8

	if wantChecksum != gotChecksum {
		return InternalKey{}, nil, 0, errors.NewStorageError(
			nil, errors.ErrorCodeSegmentCorrupted, "segment record checksum mismatch",
		).WithDetail("wantChecksum", wantChecksum).WithDetail("gotChecksum", gotChecksum)
	}

	return InternalKey{UserKey: userKey, SeqNo: seqNo, Type: vt}, value, pos, nil
}

// SegmentMeta describes a finished, immutable index segment: its ID and
// file path, record count, smallest and largest user key, and file size.
// The bloom filter and sparse index live in the segment file's footer.
type SegmentMeta struct {
	ID       uint64
	Path     string
	Count    uint64
	MinKey   []byte
	MaxKey   []byte
	FileSize int64
}
