package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultOptionsMatchesDefaults(t *testing.T) {
	opts := NewDefaultOptions()

	assert.Equal(t, DefaultDataDir, opts.DataDir)
	assert.Equal(t, DefaultCompactInterval, opts.CompactInterval)
	assert.Equal(t, DefaultSepThreshold, opts.SepThreshold)
	require.NotNil(t, opts.SegmentOptions)
	assert.Equal(t, DefaultSegmentSize, opts.SegmentOptions.Size)
	assert.Equal(t, DefaultSegmentDirectory, opts.SegmentOptions.Directory)
	assert.True(t, opts.Index.BloomEnabled)
	assert.Equal(t, DefaultValueLogDirectory, opts.ValueLog.Directory)
}

func TestNewDefaultOptionsDoesNotShareSegmentOptionsPointer(t *testing.T) {
	a := NewDefaultOptions()
	b := NewDefaultOptions()

	WithSegmentDir("custom-a")(&a)

	assert.Equal(t, "custom-a", a.SegmentOptions.Directory)
	assert.Equal(t, DefaultSegmentDirectory, b.SegmentOptions.Directory, "mutating one instance's options must not affect another's")
}

func TestWithDataDirTrimsAndIgnoresBlank(t *testing.T) {
	opts := NewDefaultOptions()
	WithDataDir("  /custom/dir  ")(&opts)
	assert.Equal(t, "/custom/dir", opts.DataDir)

	WithDataDir("   ")(&opts)
	assert.Equal(t, "/custom/dir", opts.DataDir, "a blank value must not overwrite the existing data dir")
}

func TestWithCompactIntervalRejectsBelowMinimum(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.CompactInterval

	WithCompactInterval(500 * time.Millisecond)(&opts)
	assert.Equal(t, original, opts.CompactInterval, "an interval below MinCompactInterval must be rejected")

	WithCompactInterval(2 * time.Minute)(&opts)
	assert.Equal(t, 2*time.Minute, opts.CompactInterval)
}

func TestWithSepThresholdRejectsZero(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.SepThreshold

	WithSepThreshold(0)(&opts)
	assert.Equal(t, original, opts.SepThreshold)

	WithSepThreshold(8192)(&opts)
	assert.Equal(t, uint32(8192), opts.SepThreshold)
}

func TestWithSegmentSizeEnforcesBounds(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.SegmentOptions.Size

	WithSegmentSize(100)(&opts) // below MinSegmentSize
	assert.Equal(t, original, opts.SegmentOptions.Size)

	WithSegmentSize(MaxSegmentSize + 1)(&opts) // above MaxSegmentSize
	assert.Equal(t, original, opts.SegmentOptions.Size)

	WithSegmentSize(MinSegmentSize + 1)(&opts)
	assert.Equal(t, MinSegmentSize+1, opts.SegmentOptions.Size)
}

func TestWithIndexBloomFalsePositiveRateRejectsOutOfRange(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.Index.BloomFalsePositiveRate

	WithIndexBloomFalsePositiveRate(0)(&opts)
	assert.Equal(t, original, opts.Index.BloomFalsePositiveRate)

	WithIndexBloomFalsePositiveRate(1)(&opts)
	assert.Equal(t, original, opts.Index.BloomFalsePositiveRate)

	WithIndexBloomFalsePositiveRate(0.01)(&opts)
	assert.Equal(t, 0.01, opts.Index.BloomFalsePositiveRate)
}

func TestWithIndexEvictTombstonesAtFlushToggles(t *testing.T) {
	opts := NewDefaultOptions()
	WithIndexEvictTombstonesAtFlush(true)(&opts)
	assert.True(t, opts.Index.EvictTombstonesAtFlush)
}

func TestWithValueLogSegmentSizeRejectsZero(t *testing.T) {
	opts := NewDefaultOptions()
	original := opts.ValueLog.SegmentSize

	WithValueLogSegmentSize(0)(&opts)
	assert.Equal(t, original, opts.ValueLog.SegmentSize)

	WithValueLogSegmentSize(1024)(&opts)
	assert.Equal(t, uint64(1024), opts.ValueLog.SegmentSize)
}
