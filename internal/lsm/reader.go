package lsm

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/ignitedb/ignite/pkg/errors"
)

// SegmentReader provides point and range access into a finished,
// immutable index segment file: a bloom-gated existence check, a sparse
// index for seeking near a key without a full scan, and sequential
// decoding of records from there.
type SegmentReader struct {
	meta        *SegmentMeta
	file        *os.File
	bloom       *bloom.BloomFilter
	sparse      []sparseEntry
	footerStart int64
}

// OpenSegmentReader opens an existing segment file and parses its
// footer (sparse index, bloom filter, key range).
func OpenSegmentReader(id uint64, path string) (*SegmentReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open segment file").
			WithPath(path)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat segment file").WithPath(path)
	}
	size := fi.Size()
	if size < 8 {
		file.Close()
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "segment file too small to contain a footer").
			WithPath(path)
	}

	var footerOffsetBuf [8]byte
	if _, err := file.ReadAt(footerOffsetBuf[:], size-8); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeHeaderReadFailure, "failed to read segment footer offset").
			WithPath(path)
	}
	footerStart := int64(binary.BigEndian.Uint64(footerOffsetBuf[:]))
	if footerStart < 0 || footerStart > size-8 {
		file.Close()
		return nil, errors.NewStorageError(nil, errors.ErrorCodeSegmentCorrupted, "segment footer offset out of range").
			WithPath(path).WithDetail("footerStart", footerStart).WithDetail("fileSize", size)
	}

	footer := make([]byte, size-8-footerStart)
	if _, err := file.ReadAt(footer, footerStart); err != nil {
		file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodePayloadReadFailure, "failed to read segment footer").
			WithPath(path)
	}

	sparse, bf, minKey, maxKey, count, err := parseFooter(footer)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &SegmentReader{
		meta: &SegmentMeta{
			ID: id, Path: path, Count: count, MinKey: minKey, MaxKey: maxKey, FileSize: size,
		},
		file:        file,
		bloom:       bf,
		sparse:      sparse,
		footerStart: footerStart,
	}, nil
}

func parseFooter(footer []byte) ([]sparseEntry, *bloom.BloomFilter, []byte, []byte, uint64, error) {
	r := bytes.NewReader(footer)

	var sparseCount uint32
	if err := binary.Read(r, binary.BigEndian, &sparseCount); err != nil {
		return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to read sparse index count")
	}

	sparse := make([]sparseEntry, 0, sparseCount)
	for i := uint32(0); i < sparseCount; i++ {
		var klen uint32
		if err := binary.Read(r, binary.BigEndian, &klen); err != nil {
			return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to read sparse index key length")
		}
		key := make([]byte, klen)
		if _, err := r.Read(key); err != nil {
			return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to read sparse index key")
		}
		var off uint64
		if err := binary.Read(r, binary.BigEndian, &off); err != nil {
			return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to read sparse index offset")
		}
		sparse = append(sparse, sparseEntry{key: key, offset: int64(off)})
	}

	var bloomLen uint32
	if err := binary.Read(r, binary.BigEndian, &bloomLen); err != nil {
		return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to read bloom filter length")
	}
	bloomBytes := make([]byte, bloomLen)
	if _, err := r.Read(bloomBytes); err != nil {
		return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to read bloom filter bytes")
	}
	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(bytes.NewReader(bloomBytes)); err != nil {
		return nil, nil, nil, nil, 0, errors.NewStorageError(err, errors.ErrorCodeSegmentCorrupted, "failed to deserialize bloom filter")
	}

	var minLen uint32
	binary.Read(r, binary.BigEndian, &minLen)
	minKey := make([]byte, minLen)
	r.Read(minKey)

	var maxLen uint32
	binary.Read(r, binary.BigEndian, &maxLen)
	maxKey := make([]byte, maxLen)
	r.Read(maxKey)

	var count uint64
	binary.Read(r, binary.BigEndian, &count)

	return sparse, bf, minKey, maxKey, count, nil
}

// MayContain reports whether userKey could possibly be present in this
// segment. A false result is certain; a true result still requires a
// real lookup because bloom filters admit false positives.
func (r *SegmentReader) MayContain(userKey []byte) bool {
	return r.bloom.Test(userKey)
}

// Meta returns the segment's metadata.
func (r *SegmentReader) Meta() *SegmentMeta { return r.meta }

// Get finds the most recent version of userKey visible as of seqNo. It
// uses the bloom filter to short-circuit misses, then seeks to the
// nearest sparse-index block at or before the key and scans forward.
func (r *SegmentReader) Get(userKey []byte, seqNo uint64) (InternalKey, []byte, bool, error) {
	if !r.MayContain(userKey) {
		return InternalKey{}, nil, false, nil
	}

	startOffset := r.seekOffset(userKey)

	var (
		best    InternalKey
		bestVal []byte
		found   bool
	)

	const scanChunk = 64 * 1024
	buf := make([]byte, 0, scanChunk)
	pos := startOffset

	for {
		chunk := make([]byte, scanChunk)
		n, err := r.file.ReadAt(chunk, pos)
		if n == 0 {
			break
		}
		buf = append(buf[:0], chunk[:n]...)

		consumed := 0
		for consumed < len(buf) {
			key, value, used, derr := decodeRecord(buf[consumed:])
			if derr != nil {
				// Not enough bytes left in this chunk for a full record;
				// re-read starting at the unconsumed offset next chunk.
				break
			}
			consumed += used
			pos += int64(used)

			cmp := bytes.Compare(key.UserKey, userKey)
			if cmp > 0 {
				// Sorted order guarantees nothing further matches.
				if found {
					return best, bestVal, true, nil
				}
				return InternalKey{}, nil, false, nil
			}
			if cmp == 0 && key.SeqNo <= seqNo {
				if !found || key.SeqNo > best.SeqNo {
					best, bestVal, found = key, value, true
				}
			}
		}

		if err != nil || n < scanChunk {
			break
		}
	}

	if !found {
		return InternalKey{}, nil, false, nil
	}
	return best, bestVal, true, nil
}

// seekOffset returns the byte offset of the sparse-index block where a
// scan for userKey must start: the last block whose first key sorts
// strictly before userKey (versions of userKey may begin in that block
// and continue into later ones), or 0 if there is no such block.
func (r *SegmentReader) seekOffset(userKey []byte) int64 {
	offset := int64(0)
	for _, e := range r.sparse {
		if bytes.Compare(e.key, userKey) >= 0 {
			break
		}
		offset = e.offset
	}
	return offset
}

// All decodes every record in the segment in file order (which is sort
// order), for use by the merge iterator behind Tree.Range.
func (r *SegmentReader) All() ([]Entry, error) {
	data := make([]byte, r.footerStart)
	if _, err := r.file.ReadAt(data, 0); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodePayloadReadFailure, "failed to read segment body").
			WithPath(r.meta.Path)
	}

	var out []Entry
	pos := 0
	for pos < len(data) {
		key, value, used, err := decodeRecord(data[pos:])
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Value: value})
		pos += used
	}
	return out, nil
}

// Close releases the underlying file handle.
func (r *SegmentReader) Close() error {
	return r.file.Close()
}
