// Package options provides data structures and functions for configuring
// the Ignite database. It defines various parameters that control Ignite's
// storage behavior, performance, and maintenance operations, such as
// directory paths, segment characteristics, value-separation thresholds,
// and maintenance intervals.
package options

import (
	"strings"
	"time"
)

// Defines configurable parameters for each segment.
// It provides fine-grained control over segment behavior, performance, and resource utilization.
type segmentOptions struct {
	// Size is bounds-checked and stored by WithSegmentSize, but the engine
	// does not read it: each flush writes one index segment, and
	// value-log segments rotate at ValueLog.SegmentSize.
	//
	//  - Default: 1GB
	//  - Maximum: 4GB
	//  - Minimum: 512MB
	Size uint64 `json:"maxSegmentSize"`

	// Specifies where segment files are stored.
	//
	// Default: "/var/lib/ignitedb/segments"
	Directory string `json:"directory"`

	// Defines the filename prefix for segment files.
	// Final filename will be: `prefix_segmentId_timestamp.seg`
	//
	// Default: "segment"
	//
	// Example: If Prefix is "mydata", a segment file might be "mydata_00001_1716679260000000000.seg".
	Prefix string `json:"prefix"`
}

// IndexOptions configures the in-memory/on-disk LSM index tree: the
// sorted-segment I/O granularity and the filter that gates disk reads.
type IndexOptions struct {
	// BlockSize is the target size, in bytes, of a read unit within a
	// segment file. Larger blocks amortize I/O but waste bandwidth on
	// point lookups.
	//
	// Default: 4KiB
	BlockSize uint32 `json:"blockSize"`

	// BloomEnabled is stored in Options, but the index does not read it:
	// every index segment is written with a bloom filter, which point
	// lookups consult before scanning the segment.
	//
	// Default: true
	BloomEnabled bool `json:"bloomEnabled"`

	// BloomFalsePositiveRate is the target false-positive rate for the
	// per-segment bloom filter.
	//
	// Default: 0.0001
	BloomFalsePositiveRate float64 `json:"bloomFalsePositiveRate"`

	// EvictTombstonesAtFlush controls whether tombstones are dropped
	// when a memtable is flushed into the lowest index segment level.
	// The flush pipeline does not see older segments to compare against,
	// so this defaults to false (do not evict) per the canonical policy.
	//
	// Default: false
	EvictTombstonesAtFlush bool `json:"evictTombstonesAtFlush"`
}

// ValueLogOptions configures the out-of-line value log that backs
// separated (indirect) values.
type ValueLogOptions struct {
	// SegmentSize is the maximum size, in bytes, a value-log segment can
	// grow to before a new one is rotated in.
	//
	// Default: 256MiB
	SegmentSize uint64 `json:"segmentSize"`

	// Directory is the subdirectory (relative to DataDir) where value-log
	// segment files are stored.
	//
	// Default: "/blobs"
	Directory string `json:"directory"`
}

// Defines the configuration parameters for Ignite DB.
// It provides control over storage, performance and maintenance aspects.
type Options struct {
	// Specifies the base path where files will be stored.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// Defines how often the compaction/maintenance scheduler runs to
	// flush the active memtable and sweep the value log for reclaimable
	// segments. More frequent runs mean more up-to-date durability and
	// space reclamation but higher background overhead.
	//
	// Default: 5h
	CompactInterval time.Duration `json:"compactInterval"`

	// SepThreshold is the value-size separation threshold the flush
	// pipeline uses to decide between storing a value inline in the
	// index segment or out-of-line in the value log. Values with a
	// length greater than or equal to this threshold are separated.
	//
	// Default: 4096 bytes
	SepThreshold uint32 `json:"sepThreshold"`

	// Configures segment management including size limits and naming convention.
	SegmentOptions *segmentOptions `json:"segmentOptions"`

	// Configures the LSM index tree.
	Index IndexOptions `json:"index"`

	// Configures the out-of-line value log.
	ValueLog ValueLogOptions `json:"valueLog"`
}

// OptionFunc is a function type that modifies the Ignite system's configuration.
type OptionFunc func(*Options)

// Applies a predefined set of default configuration values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		opts := NewDefaultOptions()
		o.DataDir = opts.DataDir
		o.SegmentOptions = opts.SegmentOptions
		o.CompactInterval = opts.CompactInterval
		o.SepThreshold = opts.SepThreshold
		o.Index = opts.Index
		o.ValueLog = opts.ValueLog
	}
}

// Sets the primary data directory for Ignite.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// Sets the interval at which Ignite performs maintenance operations
// (memtable flush + value-log GC sweep).
func WithCompactInterval(interval time.Duration) OptionFunc {
	return func(o *Options) {
		if interval >= MinCompactInterval {
			o.CompactInterval = interval
		}
	}
}

// Sets the directory specifically for storing index segment files.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentOptions.Directory = directory
		}
	}
}

// Sets the file name prefix for segment files.
func WithSegmentPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.SegmentOptions.Prefix = prefix
		}
	}
}

// Sets the maximum size of individual segment files.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > MinSegmentSize && size < MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// Sets the value-size separation threshold: values at or above this
// length are stored in the value log instead of inline in the index.
func WithSepThreshold(threshold uint32) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.SepThreshold = threshold
		}
	}
}

// Sets the index block size.
func WithIndexBlockSize(size uint32) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.Index.BlockSize = size
		}
	}
}

// Sets Index.BloomEnabled. The index does not read this field; every
// index segment carries a bloom filter.
func WithIndexBloomEnabled(enabled bool) OptionFunc {
	return func(o *Options) {
		o.Index.BloomEnabled = enabled
	}
}

// Sets the target false-positive rate for the index's bloom filters.
func WithIndexBloomFalsePositiveRate(rate float64) OptionFunc {
	return func(o *Options) {
		if rate > 0 && rate < 1 {
			o.Index.BloomFalsePositiveRate = rate
		}
	}
}

// Controls whether tombstones are evicted when flushing into the index.
func WithIndexEvictTombstonesAtFlush(evict bool) OptionFunc {
	return func(o *Options) {
		o.Index.EvictTombstonesAtFlush = evict
	}
}

// Sets the maximum size of individual value-log segment files.
func WithValueLogSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.ValueLog.SegmentSize = size
		}
	}
}

// Sets the subdirectory (relative to DataDir) used for value-log segments.
func WithValueLogDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.ValueLog.Directory = directory
		}
	}
}
