package blobtree

import (
	"testing"

	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndexTree(t *testing.T) *IndexTree {
	t.Helper()
	tree, err := lsm.Open(lsm.Config{
		DataDir:    t.TempDir(),
		SegmentDir: "segments",
		Prefix:     "idx",
		BlockSize:  4096,
		BloomFP:    0.01,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return NewIndexTree(tree)
}

func TestIndexTreeGetRawInline(t *testing.T) {
	ix := openTestIndexTree(t)
	ix.lsm.Insert([]byte("k"), 1, EncodeEntry(NewInlineValue([]byte("v"))))

	got, ok, err := ix.GetRaw([]byte("k"), 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.IsIndirect())
	assert.Equal(t, []byte("v"), got.Inline)
}

func TestIndexTreeGetRawMissing(t *testing.T) {
	ix := openTestIndexTree(t)
	_, ok, err := ix.GetRaw([]byte("missing"), 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexTreeIsLiveMatchingHandle(t *testing.T) {
	ix := openTestIndexTree(t)
	handle := valuelog.ValueHandle{Offset: 123, SegmentID: 1}
	ix.lsm.Insert([]byte("k"), 1, EncodeEntry(NewIndirectValue(handle)))

	live, err := ix.IsLive([]byte("k"), handle)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestIndexTreeIsLiveStaleHandle(t *testing.T) {
	ix := openTestIndexTree(t)
	original := valuelog.ValueHandle{Offset: 1, SegmentID: 1}
	replaced := valuelog.ValueHandle{Offset: 2, SegmentID: 1}

	ix.lsm.Insert([]byte("k"), 1, EncodeEntry(NewIndirectValue(original)))
	ix.lsm.Insert([]byte("k"), 2, EncodeEntry(NewIndirectValue(replaced)))

	live, err := ix.IsLive([]byte("k"), original)
	require.NoError(t, err)
	assert.False(t, live, "a handle superseded by a newer write must report dead")
}

func TestIndexTreeIsLiveDeletedKey(t *testing.T) {
	ix := openTestIndexTree(t)
	handle := valuelog.ValueHandle{Offset: 1, SegmentID: 1}
	ix.lsm.Insert([]byte("k"), 1, EncodeEntry(NewIndirectValue(handle)))
	ix.lsm.Remove([]byte("k"), 2)

	live, err := ix.IsLive([]byte("k"), handle)
	require.NoError(t, err)
	assert.False(t, live)
}

func TestIndexTreeIsLiveInlineValueIsNeverLive(t *testing.T) {
	ix := openTestIndexTree(t)
	ix.lsm.Insert([]byte("k"), 1, EncodeEntry(NewInlineValue([]byte("inline"))))

	live, err := ix.IsLive([]byte("k"), valuelog.ValueHandle{Offset: 1, SegmentID: 1})
	require.NoError(t, err)
	assert.False(t, live)
}
