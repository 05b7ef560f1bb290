package blobtree

import (
	"testing"

	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/ignitedb/ignite/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInlineRoundTrip(t *testing.T) {
	v := NewInlineValue([]byte("hello world"))
	buf := EncodeEntry(v)

	got, err := DecodeEntry(buf)
	require.NoError(t, err)
	assert.False(t, got.IsIndirect())
	assert.Equal(t, []byte("hello world"), got.Inline)
}

func TestEncodeDecodeIndirectRoundTrip(t *testing.T) {
	handle := valuelog.ValueHandle{Offset: 4096, SegmentID: 7}
	v := NewIndirectValue(handle)
	buf := EncodeEntry(v)

	got, err := DecodeEntry(buf)
	require.NoError(t, err)
	require.True(t, got.IsIndirect())
	assert.Equal(t, handle, *got.Indirect)
}

func TestEncodeIndirectWireOrderMatchesHandleFields(t *testing.T) {
	handle := valuelog.ValueHandle{Offset: 10, SegmentID: 20}
	buf := EncodeEntry(NewIndirectValue(handle))

	// tag(1) + offset(8) + segmentID(8); offset must precede segmentID on the wire.
	require.Len(t, buf, 17)
	offsetField := buf[1:9]
	segmentField := buf[9:17]
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 10}, offsetField)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 20}, segmentField)

	got, err := DecodeEntry(buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Indirect.Offset)
	assert.Equal(t, uint64(20), got.Indirect.SegmentID)
}

func TestDecodeEntryUnknownTag(t *testing.T) {
	_, err := DecodeEntry([]byte{0x7F, 0, 0, 0, 0, 0, 0, 0, 0})
	require.Error(t, err)
	be, ok := errors.AsBlobError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCodeDecodeUnknownTag, be.Code())
}

func TestDecodeEntryTruncatedInlinePayload(t *testing.T) {
	v := NewInlineValue([]byte("a longer value than the truncated buffer claims"))
	buf := EncodeEntry(v)

	_, err := DecodeEntry(buf[:10])
	require.Error(t, err)
	assert.True(t, errors.IsBlobError(err))
}

func TestDecodeEntryEmptyBuffer(t *testing.T) {
	_, err := DecodeEntry(nil)
	assert.Error(t, err)
}
