package valuelog

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/ignitedb/ignite/pkg/errors"
)

// Each value-log record is laid out as:
//
//	u32 keyLen
//	    key        (the user key, kept alongside the value so GC can
//	                 ask the index whether this key still points at
//	                 this record, and so a corrupted segment can still
//	                 be inspected key-first)
//	u32 valueLen
//	    value
//	u64 checksum    (xxhash64 over everything above)
const recordFixedOverhead = 4 + 4 + 8

// encodeRecord serializes one key/value pair using the value-log record
// format described above.
func encodeRecord(key, value []byte) []byte {
	buf := make([]byte, recordFixedOverhead+len(key)+len(value))

	pos := 0
	binary.BigEndian.PutUint32(buf[pos:], uint32(len(key)))
	pos += 4
	pos += copy(buf[pos:], key)

	binary.BigEndian.PutUint32(buf[pos:], uint32(len(value)))
	pos += 4
	pos += copy(buf[pos:], value)

	checksum := xxhash.Sum64(buf[:pos])
	binary.BigEndian.PutUint64(buf[pos:], checksum)

	return buf
}

// decodeRecord parses one record starting at the head of buf, returning
// the key, value, and number of bytes consumed.
func decodeRecord(buf []byte) (key, value []byte, consumed int, err error) {
	if len(buf) < recordFixedOverhead {
		return nil, nil, 0, errors.NewBlobError(
			nil, errors.ErrorCodeDecodeTruncated, "value log record header truncated",
		).WithDetail("haveBytes", len(buf))
	}

	pos := 0
	keyLen := binary.BigEndian.Uint32(buf[pos:])
	pos += 4
	if len(buf) < pos+int(keyLen)+4 {
		return nil, nil, 0, errors.NewBlobError(
			nil, errors.ErrorCodeDecodeTruncated, "value log record key truncated",
		)
	}
	key = make([]byte, keyLen)
	copy(key, buf[pos:pos+int(keyLen)])
	pos += int(keyLen)

	valueLen := binary.BigEndian.Uint32(buf[pos:])
	pos += 4
	if len(buf) < pos+int(valueLen)+8 {
		return nil, nil, 0, errors.NewBlobError(
			nil, errors.ErrorCodeDecodeTruncated, "value log record value truncated",
		)
	}
	value = make([]byte, valueLen)
	copy(value, buf[pos:pos+int(valueLen)])
	pos += int(valueLen)

	wantChecksum := binary.BigEndian.Uint64(buf[pos:])
	gotChecksum := xxhash.Sum64(buf[:pos])
	pos += 8

	if wantChecksum != gotChecksum {
		return nil, nil, 0, errors.NewStorageError(
			nil, errors.ErrorCodeSegmentCorrupted, "value log record checksum mismatch",
		).WithDetail("wantChecksum", wantChecksum).WithDetail("gotChecksum", gotChecksum)
	}

	return key, value, pos, nil
}

// SegmentMeta describes a value-log segment file.
type SegmentMeta struct {
	ID       uint64
	Path     string
	FileSize int64
}
