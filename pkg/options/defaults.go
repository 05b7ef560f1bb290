package options

import "time"

const (
	// Specifies the default base directory where IgniteDB will store its data files.
	// If no other directory is specified during initialization, this path will be used.
	DefaultDataDir = "/var/lib/ignitedb"

	// Defines the default time duration between automatic compaction operations.
	// By default, compaction will run every 5 hours.
	DefaultCompactInterval = time.Hour * 5

	// MinCompactInterval is the smallest interval WithCompactInterval
	// accepts: anything tighter turns flush+GC into a busy loop.
	MinCompactInterval = time.Second

	// Represents the minimum allowed size for a segment file in bytes (512MB).
	MinSegmentSize uint64 = 512 * 1024 * 1024

	// Represents the maximum allowed size for a segment file in bytes (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// Specifies the default target size for a new segment file in bytes (1GB).
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// Specifies the default subdirectory within the main data directory
	// where segment files will be stored.
	DefaultSegmentDirectory = "/segments"

	// Defines the default prefix for segment file names.
	// For example, a segment file might be named
	// "segment_00001_1716679260000000000.seg".
	DefaultSegmentPrefix = "segment"

	// DefaultSepThreshold is the default value-size separation threshold,
	// in bytes. Values at or above this length are written to the value
	// log instead of inline in the index segment.
	DefaultSepThreshold uint32 = 4096

	// DefaultIndexBlockSize is the default read-unit size for index
	// segment files.
	DefaultIndexBlockSize uint32 = 4 * 1024

	// DefaultBloomFalsePositiveRate is the default target false-positive
	// rate for per-segment bloom filters.
	DefaultBloomFalsePositiveRate = 0.0001

	// DefaultValueLogSegmentSize is the default target size for a
	// value-log segment file, in bytes (256MB).
	DefaultValueLogSegmentSize uint64 = 256 * 1024 * 1024

	// DefaultValueLogDirectory is the default subdirectory (relative to
	// DataDir) where value-log segment files are stored.
	DefaultValueLogDirectory = "/blobs"
)

// NewDefaultOptions returns a fresh Options value populated with every
// default. Every call allocates its own SegmentOptions so that callers
// applying OptionFuncs to the result never mutate another instance's
// configuration through a shared pointer.
func NewDefaultOptions() Options {
	return Options{
		DataDir:         DefaultDataDir,
		CompactInterval: DefaultCompactInterval,
		SepThreshold:    DefaultSepThreshold,
		SegmentOptions: &segmentOptions{
			Size:      DefaultSegmentSize,
			Prefix:    DefaultSegmentPrefix,
			Directory: DefaultSegmentDirectory,
		},
		Index: IndexOptions{
			BlockSize:              DefaultIndexBlockSize,
			BloomEnabled:           true,
			BloomFalsePositiveRate: DefaultBloomFalsePositiveRate,
			EvictTombstonesAtFlush: false,
		},
		ValueLog: ValueLogOptions{
			SegmentSize: DefaultValueLogSegmentSize,
			Directory:   DefaultValueLogDirectory,
		},
	}
}
