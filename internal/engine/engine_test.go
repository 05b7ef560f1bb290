package engine

import (
	"testing"
	"time"

	"github.com/ignitedb/ignite/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	opts := options.NewDefaultOptions()
	options.WithDataDir(t.TempDir())(&opts)
	options.WithCompactInterval(time.Hour)(&opts)

	e, err := New(&Config{Options: &opts})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngineInsertGetRoundTrip(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Insert([]byte("k"), []byte("v")))

	value, ok, err := e.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestEngineRemove(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Insert([]byte("k"), []byte("v")))
	require.NoError(t, e.Remove([]byte("k")))

	_, ok, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngineFlush(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.Insert([]byte("k"), []byte("v")))

	flushed, err := e.Flush()
	require.NoError(t, err)
	assert.True(t, flushed)

	value, ok, err := e.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)
}

func TestEngineOperationsFailAfterClose(t *testing.T) {
	opts := options.NewDefaultOptions()
	options.WithDataDir(t.TempDir())(&opts)
	options.WithCompactInterval(time.Hour)(&opts)

	e, err := New(&Config{Options: &opts})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, _, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrEngineClosed)

	err = e.Insert([]byte("k"), []byte("v"))
	assert.ErrorIs(t, err, ErrEngineClosed)

	assert.ErrorIs(t, e.Close(), ErrEngineClosed, "closing twice must report already-closed rather than panic")
}

func TestEngineLenCountsLiveKeys(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Insert([]byte("a"), []byte("1")))
	require.NoError(t, e.Insert([]byte("b"), []byte("2")))
	require.NoError(t, e.Remove([]byte("a")))

	count, err := e.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
