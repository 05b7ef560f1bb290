package compaction

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeFlusher) FlushActiveMemtable() (bool, error) {
	f.calls.Add(1)
	return true, f.err
}

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) Sweep(idx valuelog.ExternalIndex, maxSegments int) (int, int64, error) {
	f.calls.Add(1)
	return 0, 0, f.err
}

type fakeIndex struct{}

func (fakeIndex) IsLive(key []byte, handle valuelog.ValueHandle) (bool, error) { return true, nil }

func TestSchedulerTicksFlushAndSweep(t *testing.T) {
	flusher := &fakeFlusher{}
	sweeper := &fakeSweeper{}

	s := New(Config{Tree: flusher, Log: sweeper, Index: fakeIndex{}, Interval: 5 * time.Millisecond})
	s.Start()

	require.Eventually(t, func() bool {
		return flusher.calls.Load() > 0 && sweeper.calls.Load() > 0
	}, time.Second, time.Millisecond)

	s.Stop()
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := New(Config{Tree: &fakeFlusher{}, Log: &fakeSweeper{}, Index: fakeIndex{}, Interval: time.Hour})
	s.Start()
	s.Stop()
	assert.NotPanics(t, func() { s.Stop() })
}

func TestSchedulerSurvivesFlushError(t *testing.T) {
	flusher := &fakeFlusher{err: assert.AnError}
	sweeper := &fakeSweeper{}

	s := New(Config{Tree: flusher, Log: sweeper, Index: fakeIndex{}, Interval: 5 * time.Millisecond})
	s.Start()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() > 0
	}, time.Second, time.Millisecond, "a flush error must not prevent the sweep from still running")

	s.Stop()
}
