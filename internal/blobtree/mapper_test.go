package blobtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeMapperOrdersKeysAscending(t *testing.T) {
	bt := openTestBlobTree(t, 4096)

	require.NoError(t, bt.Insert([]byte("c"), []byte("3")))
	require.NoError(t, bt.Insert([]byte("a"), []byte("1")))
	require.NoError(t, bt.Insert([]byte("b"), []byte("2")))

	mapper, err := bt.Range()
	require.NoError(t, err)

	var keys []string
	for {
		key, _, ok, err := mapper.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, string(key))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestRangeMapperResolvesIndirectValues(t *testing.T) {
	bt := openTestBlobTree(t, 4)

	require.NoError(t, bt.Insert([]byte("k"), []byte("a value over the threshold")))
	flushed, err := bt.FlushActiveMemtable()
	require.NoError(t, err)
	require.True(t, flushed)

	mapper, err := bt.Range()
	require.NoError(t, err)

	key, value, ok, err := mapper.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "k", string(key))
	assert.Equal(t, "a value over the threshold", string(value))
}

// TestRangeMapperSkipsDanglingHandle constructs an index entry pointing
// at a value-log handle that was never written, simulating the value log
// and index having fallen out of sync, and confirms the scan quietly
// omits that key rather than failing outright.
func TestRangeMapperSkipsDanglingHandle(t *testing.T) {
	index, err := lsm.Open(lsm.Config{DataDir: t.TempDir(), SegmentDir: "segments", Prefix: "idx", BlockSize: 4096, BloomFP: 0.01})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	blobs, err := valuelog.Open(valuelog.Config{DataDir: t.TempDir(), Directory: "values", Prefix: "val"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	danglingHandle := valuelog.ValueHandle{Offset: 999_999, SegmentID: 999}
	index.Insert([]byte("dangling"), 1, EncodeEntry(NewIndirectValue(danglingHandle)))
	index.Insert([]byte("fine"), 2, EncodeEntry(NewInlineValue([]byte("ok"))))

	it, err := index.Range(10)
	require.NoError(t, err)
	mapper := NewRangeMapper(it, blobs, nil)

	var keys []string
	for {
		key, _, ok, err := mapper.Next()
		require.NoError(t, err, "a dangling handle must be skipped, never surfaced as a scan error")
		if !ok {
			break
		}
		keys = append(keys, string(key))
	}
	assert.Equal(t, []string{"fine"}, keys)
}

// TestRangeMapperPropagatesValueLogCorruption confirms that a genuine
// value-log read failure (here, a checksum mismatch from on-disk
// corruption) is returned to the caller rather than swallowed the way a
// dangling handle is: only a handle the log has no bytes for at all gets
// the quiet skip.
func TestRangeMapperPropagatesValueLogCorruption(t *testing.T) {
	valuesDir := t.TempDir()

	index, err := lsm.Open(lsm.Config{DataDir: t.TempDir(), SegmentDir: "segments", Prefix: "idx", BlockSize: 4096, BloomFP: 0.01})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	blobs, err := valuelog.Open(valuelog.Config{DataDir: valuesDir, Directory: "values", Prefix: "val"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	handle, err := blobs.GetWriter().Write([]byte("k"), []byte("a genuine value"))
	require.NoError(t, err)
	require.NoError(t, blobs.Register(blobs.GetWriter()))

	corruptSegment(t, valuesDir, "values", "val")

	index.Insert([]byte("k"), 1, EncodeEntry(NewIndirectValue(handle)))

	it, err := index.Range(10)
	require.NoError(t, err)
	mapper := NewRangeMapper(it, blobs, nil)

	_, _, _, err = mapper.Next()
	assert.Error(t, err, "a checksum mismatch must fail the scan rather than be skipped as a dangling handle")
}

// corruptSegment flips a byte inside the sole value-log segment file found
// under dataDir/directory/prefix*.seg, landing inside the value payload so
// the length prefixes stay intact and only the checksum comparison fails.
func corruptSegment(t *testing.T, dataDir, directory, prefix string) {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dataDir, directory, prefix+"*.seg"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.OpenFile(matches[0], os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	// Layout: u32 keyLen | key | u32 valueLen | value | u64 checksum.
	// "k" is 1 byte, so the value starts at offset 4+1+4 = 9.
	_, err = f.WriteAt([]byte{0xff}, 9)
	require.NoError(t, err)
}

func TestRangeMapperEmptyTree(t *testing.T) {
	bt := openTestBlobTree(t, 4096)
	mapper, err := bt.Range()
	require.NoError(t, err)

	_, _, ok, err := mapper.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
