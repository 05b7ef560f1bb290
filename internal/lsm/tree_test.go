package lsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := Open(Config{
		DataDir:    t.TempDir(),
		SegmentDir: "segments",
		Prefix:     "idx",
		BlockSize:  4096,
		BloomFP:    0.01,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tree.Close() })
	return tree
}

func TestTreeInsertGetRoundTrip(t *testing.T) {
	tree := openTestTree(t)

	tree.Insert([]byte("k"), 1, []byte("v1"))
	key, value, ok, err := tree.Get([]byte("k"), 10)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), key.SeqNo)
	assert.Equal(t, []byte("v1"), value)
}

func TestTreeRemoveHidesKey(t *testing.T) {
	tree := openTestTree(t)

	tree.Insert([]byte("k"), 1, []byte("v1"))
	tree.Remove([]byte("k"), 2)

	_, _, ok, err := tree.Get([]byte("k"), 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTreeRotateMemtableEmptyReturnsNil(t *testing.T) {
	tree := openTestTree(t)
	assert.Nil(t, tree.RotateMemtable())
}

func TestTreeFlushCycleMakesDataQueryableFromSegment(t *testing.T) {
	tree := openTestTree(t)

	tree.Insert([]byte("a"), 1, []byte("a-value"))
	tree.Insert([]byte("b"), 2, []byte("b-value"))

	retired := tree.RotateMemtable()
	require.NotNil(t, retired)

	sorted := retired.Sorted()
	writer, err := tree.NewSegmentWriter(uint(len(sorted)))
	require.NoError(t, err)
	for _, en := range sorted {
		require.NoError(t, writer.Append(en.Key, en.Value))
	}
	meta, err := writer.Finish()
	require.NoError(t, err)
	require.NoError(t, tree.ConsumeWriter(meta))

	assert.Len(t, tree.Segments(), 1)

	key, value, ok, err := tree.Get([]byte("a"), 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), key.SeqNo)
	assert.Equal(t, []byte("a-value"), value)

	it, err := tree.Range(10)
	require.NoError(t, err)
	count := 0
	for {
		_, _, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}

func TestTreeGetPrefersActiveMemtableOverSegment(t *testing.T) {
	tree := openTestTree(t)

	tree.Insert([]byte("k"), 1, []byte("old"))
	retired := tree.RotateMemtable()
	writer, err := tree.NewSegmentWriter(1)
	require.NoError(t, err)
	for _, en := range retired.Sorted() {
		require.NoError(t, writer.Append(en.Key, en.Value))
	}
	meta, err := writer.Finish()
	require.NoError(t, err)
	require.NoError(t, tree.ConsumeWriter(meta))

	tree.Insert([]byte("k"), 2, []byte("new"))

	key, value, ok, err := tree.Get([]byte("k"), 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), key.SeqNo)
	assert.Equal(t, []byte("new"), value)
}
