package valuelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T, segmentSize uint64) *Log {
	t.Helper()
	l, err := Open(Config{
		DataDir:     t.TempDir(),
		Directory:   "values",
		Prefix:      "val",
		SegmentSize: segmentSize,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLogWriteAndGetRoundTrip(t *testing.T) {
	l := openTestLog(t, 0)

	writer := l.GetWriter()
	handle, err := writer.Write([]byte("k"), []byte("a large separated value"))
	require.NoError(t, err)
	require.NoError(t, l.Register(writer))

	value, err := l.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, "a large separated value", string(value))
}

func TestLogRegisterRotatesAtSizeLimit(t *testing.T) {
	l := openTestLog(t, 1) // any write exceeds a 1-byte budget, forcing rotation

	writer := l.GetWriter()
	firstID := writer.SegmentID()
	_, err := writer.Write([]byte("k"), []byte("v"))
	require.NoError(t, err)
	require.NoError(t, l.Register(writer))

	newWriter := l.GetWriter()
	assert.NotEqual(t, firstID, newWriter.SegmentID(), "writer should have rotated to a new segment")
}

func TestLogGetUnknownSegmentErrors(t *testing.T) {
	l := openTestLog(t, 0)

	_, err := l.Get(ValueHandle{Offset: 0, SegmentID: 999})
	assert.Error(t, err)
}

func TestLogGetFromPriorSegmentAfterRotation(t *testing.T) {
	l := openTestLog(t, 1)

	writer := l.GetWriter()
	handle, err := writer.Write([]byte("k"), []byte("old-segment-value"))
	require.NoError(t, err)
	require.NoError(t, l.Register(writer)) // rotates to a fresh active segment

	// The handle still addresses the now-sealed segment.
	value, err := l.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, "old-segment-value", string(value))
}
