// Package engine provides the core database engine implementation for the Ignite storage system.
//
// The engine serves as the central coordinator and entry point for all database operations.
// It orchestrates the interaction between two main subsystems:
//   - BlobTree: The key-value-separated index and value log that holds live data
//   - Compaction: Performs background maintenance (memtable flush + value-log GC)
//
// The engine implements a thread-safe interface with proper lifecycle management,
// ensuring resources are properly initialized and cleaned up. It uses atomic operations
// for state management to provide consistent behavior across concurrent operations.
package engine

import (
	"errors"
	"sync/atomic"

	"github.com/ignitedb/ignite/internal/blobtree"
	"github.com/ignitedb/ignite/internal/compaction"
	"github.com/ignitedb/ignite/internal/lsm"
	"github.com/ignitedb/ignite/internal/valuelog"
	"github.com/ignitedb/ignite/pkg/options"
	"go.uber.org/zap"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = errors.New("operation failed: cannot access closed engine")
)

// Engine represents the main database engine that coordinates all subsystems.
// It acts as the primary interface for database operations and manages the lifecycle
// of all internal components. The engine is designed to be thread-safe and supports
// concurrent operations while maintaining data consistency.
type Engine struct {
	options    *options.Options       // options contains all configuration parameters for the engine and its subsystems.
	log        *zap.SugaredLogger     // log provides structured logging capabilities throughout the engine.
	closed     atomic.Bool            // closed is an atomic boolean that tracks the engine's lifecycle state.
	tree       *blobtree.BlobTree     // tree is the key-value-separated index plus value log holding all live data.
	compaction *compaction.Scheduler  // compaction manages background processes that flush and reclaim space.
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes a new Engine instance with the provided configuration.
// This constructor follows the dependency injection pattern, making the engine
// testable and allowing for different configurations in different environments.
//
// Returns:
//   - *Engine: A fully initialized engine ready for use
//   - error: Any error encountered during initialization, typically from storage setup
func New(config *Config) (*Engine, error) {
	opts := config.Options

	// Open the sorted index first since the value log's GC sweep needs to
	// query it (through the index façade) for liveness, not the other
	// way around.
	indexTree, err := lsm.Open(lsm.Config{
		DataDir:    opts.DataDir,
		SegmentDir: opts.SegmentOptions.Directory,
		Prefix:     opts.SegmentOptions.Prefix,
		BlockSize:  opts.Index.BlockSize,
		BloomFP:    opts.Index.BloomFalsePositiveRate,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}

	blobLog, err := valuelog.Open(valuelog.Config{
		DataDir:     opts.DataDir,
		Directory:   opts.ValueLog.Directory,
		Prefix:      opts.SegmentOptions.Prefix,
		SegmentSize: opts.ValueLog.SegmentSize,
		Logger:      config.Logger,
	})
	if err != nil {
		indexTree.Close()
		return nil, err
	}

	tree := blobtree.Open(blobtree.Config{
		Index:                  indexTree,
		Blobs:                  blobLog,
		SepThreshold:           opts.SepThreshold,
		EvictTombstonesAtFlush: opts.Index.EvictTombstonesAtFlush,
		Logger:                 config.Logger,
	})

	scheduler := compaction.New(compaction.Config{
		Tree:     tree,
		Log:      blobLog,
		Index:    tree.Index(),
		Interval: opts.CompactInterval,
		Logger:   config.Logger,
	})
	scheduler.Start()

	// Create and return the engine with all subsystems properly initialized.
	// At this point, all dependencies are satisfied and the engine is ready
	// to handle database operations. The closed flag defaults to false,
	// indicating the engine is in an active, usable state.
	return &Engine{
		options:    opts,
		log:        config.Logger,
		tree:       tree,
		compaction: scheduler,
	}, nil
}

// Insert stores value under key.
func (e *Engine) Insert(key, value []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.tree.Insert(key, value)
}

// Remove deletes key.
func (e *Engine) Remove(key []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.tree.Remove(key)
}

// Get resolves key to its current value, if any.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	if e.closed.Load() {
		return nil, false, ErrEngineClosed
	}
	return e.tree.Get(key)
}

// Range returns a live iterator over every visible key in the engine.
func (e *Engine) Range() (*blobtree.RangeMapper, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.tree.Range()
}

// Len reports the number of live keys currently visible.
func (e *Engine) Len() (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	return e.tree.Len()
}

// Flush forces an immediate memtable flush, outside the maintenance
// scheduler's normal interval.
func (e *Engine) Flush() (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}
	return e.tree.FlushActiveMemtable()
}

// Close gracefully shuts down the engine and releases all associated resources.
// This method ensures that all pending operations complete and that data is
// properly persisted before the engine becomes unusable.
func (e *Engine) Close() error {
	// Use atomic compare-and-swap to transition from open (false) to closed (true).
	// This operation is atomic and thread-safe, ensuring only one goroutine
	// can successfully close the engine. The operation returns true if the
	// swap was successful (engine was open) or false if it failed (already closed).
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.compaction.Stop()
	_, flushErr := e.tree.FlushActiveMemtable()
	if err := e.tree.Close(); err != nil {
		return err
	}
	return flushErr
}
