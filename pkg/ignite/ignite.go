// Package ignite provides a high-performance key/value data store with
// key-value separation, inspired by WiscKey-style storage engines. It
// combines a sorted, multi-versioned in-memory/on-disk index with an
// out-of-line value log, separating large values from the index so that
// compaction of the sorted structure never has to move large payloads
// around. It is designed for applications requiring fast read and write
// operations over large values, such as object/blob stores and content
// caches, aiming to provide a simple, efficient, and reliable solution
// for persistent key-value storage in Go applications.
package ignite

import (
	"context"
	"sync"
	"time"

	"github.com/ignitedb/ignite/internal/engine"
	"github.com/ignitedb/ignite/pkg/logger"
	"github.com/ignitedb/ignite/pkg/options"
)

// Represents an instance of the Ignite key/value data store.
// It encapsulates the core engine responsible for data handling and
// the configuration options for this specific database instance.
//
// Instance is the primary entry point for interacting with the Ignite store,
// providing methods for setting, getting, and deleting key-value pairs.
type Instance struct {
	engine  *engine.Engine   // The underlying database engine handling read/write operations.
	options *options.Options // Configuration options applied to this DB instance.

	ttlMu sync.Mutex
	ttl   map[string]time.Time // expiry deadlines for keys written through SetX
}

// Creates and initializes a new Ignite DB instance.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	// Initialize a logger for the given service.
	log := logger.New(service)

	// Initialize default options.
	defaultOpts := options.NewDefaultOptions()

	// Apply any provided functional options to override defaults.
	if len(opts) > 0 {
		for _, opt := range opts {
			opt(&defaultOpts)
		}
	}

	// Create a new internal engine with the initialized logger.
	eng, err := engine.New(&engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{
		engine:  eng,
		options: &defaultOpts,
		ttl:     make(map[string]time.Time),
	}, nil
}

// Set stores a key-value pair in the database.
// If the key already exists, its value will be updated.
// The write is buffered in the in-memory memtable and reaches disk on the
// next flush (Flush, the maintenance scheduler's tick, or Close).
func (i *Instance) Set(ctx context.Context, key string, value []byte) error {
	i.clearTTL(key)
	return i.engine.Insert([]byte(key), value)
}

// SetX stores a key-value pair with an expiration time. The entry will
// automatically be considered expired and inaccessible after the
// specified duration from the time of setting. The deadline is held only
// in this Instance's memory; the maintenance scheduler does not see it,
// and the key is deleted only when a Get finds the deadline passed.
// If the key already exists, its value and expiry will be updated.
func (i *Instance) SetX(ctx context.Context, key string, value []byte, expiry time.Duration) error {
	if err := i.engine.Insert([]byte(key), value); err != nil {
		return err
	}

	i.ttlMu.Lock()
	i.ttl[key] = time.Now().Add(expiry)
	i.ttlMu.Unlock()
	return nil
}

// Get retrieves the value associated with the given key. A key whose
// SetX deadline has passed is treated as absent, and this read writes a
// tombstone for it in the underlying store.
func (i *Instance) Get(ctx context.Context, key string) ([]byte, error) {
	if i.expired(key) {
		i.clearTTL(key)
		_ = i.engine.Remove([]byte(key))
		return nil, nil
	}

	value, ok, err := i.engine.Get([]byte(key))
	if err != nil || !ok {
		return nil, err
	}
	return value, nil
}

// Delete removes a key-value pair from the database.
// The operation writes a tombstone that hides the key from reads. Index
// segments are never merged, so the tombstone itself is kept on disk.
func (i *Instance) Delete(ctx context.Context, key string) error {
	i.clearTTL(key)
	return i.engine.Remove([]byte(key))
}

// Scan returns a pull-based iterator over every live key currently
// visible in the store.
func (i *Instance) Scan(ctx context.Context) (func() (string, []byte, bool, error), error) {
	mapper, err := i.engine.Range()
	if err != nil {
		return nil, err
	}
	return func() (string, []byte, bool, error) {
		key, value, ok, err := mapper.Next()
		if err != nil || !ok {
			return "", nil, ok, err
		}
		return string(key), value, true, nil
	}, nil
}

// Flush forces an immediate flush of the active memtable, outside the
// maintenance scheduler's normal interval.
func (i *Instance) Flush(ctx context.Context) error {
	_, err := i.engine.Flush()
	return err
}

// Close gracefully shuts down the Ignite DB instance, releasing all
// associated resources, flushing any pending writes, and ensuring data
// durability.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}

func (i *Instance) expired(key string) bool {
	i.ttlMu.Lock()
	deadline, ok := i.ttl[key]
	i.ttlMu.Unlock()
	return ok && time.Now().After(deadline)
}

func (i *Instance) clearTTL(key string) {
	i.ttlMu.Lock()
	delete(i.ttl, key)
	i.ttlMu.Unlock()
}
