package lsm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/ignitedb/ignite/pkg/errors"
)

// SegmentWriter streams InternalKey/value pairs, already in sorted
// order, into a new immutable index segment file. It builds a sparse
// block index and a bloom filter as it goes so that the finished segment
// can be queried without a full linear scan.
//
// Callers MUST append entries in non-decreasing InternalKey order;
// SegmentWriter does not sort or buffer the whole dataset in memory.
type SegmentWriter struct {
	id         uint64
	path       string
	file       *os.File
	bw         *bufio.Writer
	blockSize  uint32
	bloom      *bloom.BloomFilter
	offset     int64
	sinceBlock uint32
	sparse     []sparseEntry
	count      uint64
	minKey     []byte
	maxKey     []byte
	closed     bool
}

type sparseEntry struct {
	key    []byte
	offset int64
}

// NewSegmentWriter creates a new segment file at path, sized to hold
// roughly estimatedEntries keys at the requested bloom false-positive
// rate, with a sparse index entry emitted for the first record and for
// the first record after each run of at least blockSize bytes.
func NewSegmentWriter(id uint64, path string, estimatedEntries uint, fpRate float64, blockSize uint32) (*SegmentWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create segment file").
			WithPath(path)
	}

	if estimatedEntries == 0 {
		estimatedEntries = 1024
	}

	return &SegmentWriter{
		id:        id,
		path:      path,
		file:      file,
		bw:        bufio.NewWriter(file),
		blockSize: blockSize,
		bloom:     bloom.NewWithEstimates(estimatedEntries, fpRate),
	}, nil
}

// SegmentID returns the identifier this writer's finished segment will
// carry.
func (w *SegmentWriter) SegmentID() uint64 { return w.id }

// Append writes the next InternalKey/value pair to the segment.
func (w *SegmentWriter) Append(key InternalKey, value []byte) error {
	record := encodeRecord(key, value)

	if w.sinceBlock == 0 || w.sinceBlock >= w.blockSize {
		w.sparse = append(w.sparse, sparseEntry{key: append([]byte(nil), key.UserKey...), offset: w.offset})
		w.sinceBlock = 0
	}

	n, err := w.bw.Write(record)
	if err != nil {
		return errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write segment record").
			WithPath(w.path).WithOffset(int(w.offset))
	}

	w.offset += int64(n)
	w.sinceBlock += uint32(n)
	w.count++
	w.bloom.Add(key.UserKey)

	if w.minKey == nil {
		w.minKey = append([]byte(nil), key.UserKey...)
	}
	w.maxKey = append([]byte(nil), key.UserKey...)

	return nil
}

// Finish flushes buffered writes, appends the sparse index, bloom
// filter, and trailer footer, and closes the file. It returns metadata
// describing the completed segment.
func (w *SegmentWriter) Finish() (*SegmentMeta, error) {
	if w.closed {
		return nil, errors.NewStorageError(nil, errors.ErrorCodeIO, "segment writer already finished").
			WithPath(w.path)
	}
	w.closed = true

	footerStart := w.offset

	var idxBuf bytes.Buffer
	binary.Write(&idxBuf, binary.BigEndian, uint32(len(w.sparse)))
	for _, e := range w.sparse {
		binary.Write(&idxBuf, binary.BigEndian, uint32(len(e.key)))
		idxBuf.Write(e.key)
		binary.Write(&idxBuf, binary.BigEndian, uint64(e.offset))
	}

	var bloomBuf bytes.Buffer
	if _, err := w.bloom.WriteTo(&bloomBuf); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to serialize bloom filter").
			WithPath(w.path)
	}

	var footer bytes.Buffer
	footer.Write(idxBuf.Bytes())
	binary.Write(&footer, binary.BigEndian, uint32(bloomBuf.Len()))
	footer.Write(bloomBuf.Bytes())
	binary.Write(&footer, binary.BigEndian, uint32(len(w.minKey)))
	footer.Write(w.minKey)
	binary.Write(&footer, binary.BigEndian, uint32(len(w.maxKey)))
	footer.Write(w.maxKey)
	binary.Write(&footer, binary.BigEndian, w.count)
	binary.Write(&footer, binary.BigEndian, uint64(footerStart))

	if _, err := w.bw.Write(footer.Bytes()); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to write segment footer").
			WithPath(w.path)
	}

	if err := w.bw.Flush(); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to flush segment writer").
			WithPath(w.path)
	}

	fi, err := w.file.Stat()
	if err != nil {
		w.file.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to stat finished segment").
			WithPath(w.path)
	}

	if err := w.file.Close(); err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to close finished segment").
			WithPath(w.path)
	}

	return &SegmentMeta{
		ID:       w.id,
		Path:     w.path,
		Count:    w.count,
		MinKey:   w.minKey,
		MaxKey:   w.maxKey,
		FileSize: fi.Size(),
	}, nil
}

// Abort discards a partially written segment, closing and removing the
// file. Used when a flush fails partway through and must not leave a
// half-written segment behind for recovery to trip over.
func (w *SegmentWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.file.Close()
	return os.Remove(w.path)
}
