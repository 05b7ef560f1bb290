package valuelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	live map[string]bool
}

func (f *fakeIndex) IsLive(key []byte, handle ValueHandle) (bool, error) {
	return f.live[string(key)], nil
}

func sealOneSegment(t *testing.T, l *Log, key, value []byte) {
	t.Helper()
	writer := l.GetWriter()
	_, err := writer.Write(key, value)
	require.NoError(t, err)
	require.NoError(t, l.Register(writer)) // segmentSize=1 forces a rotation, sealing this segment
}

func TestSweepReclaimsFullyDeadSegment(t *testing.T) {
	l := openTestLog(t, 1)
	sealOneSegment(t, l, []byte("k"), []byte("v"))

	idx := &fakeIndex{live: map[string]bool{}}
	reclaimedSegments, reclaimedBytes, err := l.Sweep(idx, 8)

	require.NoError(t, err)
	assert.Equal(t, 1, reclaimedSegments)
	assert.Positive(t, reclaimedBytes)
}

func TestSweepKeepsSegmentWithLiveRecord(t *testing.T) {
	l := openTestLog(t, 1)
	sealOneSegment(t, l, []byte("k"), []byte("v"))

	idx := &fakeIndex{live: map[string]bool{"k": true}}
	reclaimedSegments, _, err := l.Sweep(idx, 8)

	require.NoError(t, err)
	assert.Equal(t, 0, reclaimedSegments, "a segment with any live record must not be reclaimed")
}

func TestSweepRespectsMaxSegmentsBound(t *testing.T) {
	l := openTestLog(t, 1)
	sealOneSegment(t, l, []byte("a"), []byte("1"))
	sealOneSegment(t, l, []byte("b"), []byte("2"))
	sealOneSegment(t, l, []byte("c"), []byte("3"))

	idx := &fakeIndex{live: map[string]bool{}}
	reclaimedSegments, _, err := l.Sweep(idx, 2)

	require.NoError(t, err)
	assert.Equal(t, 2, reclaimedSegments, "sweep must stop after maxSegments candidates")
}
