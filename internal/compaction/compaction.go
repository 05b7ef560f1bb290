// Package compaction runs the background maintenance loop that keeps a
// blob tree healthy between foreground writes: periodically flushing
// the active memtable to disk and sweeping the value log for segments
// that no longer hold any live data. There is deliberately no
// leveled or tiered segment compaction here — segments, once written,
// are never merged or rewritten; only whole, fully-dead value-log
// segments are ever reclaimed.
package compaction

import (
	"sync"
	"time"

	"github.com/ignitedb/ignite/internal/valuelog"
	"go.uber.org/zap"
)

// gcMaxSegmentsPerCycle bounds how many value-log segments a single
// maintenance tick will consider for reclamation, so one slow sweep
// can't starve the next scheduled flush.
const gcMaxSegmentsPerCycle = 8

// Flusher is the subset of *blobtree.BlobTree the scheduler drives.
type Flusher interface {
	FlushActiveMemtable() (bool, error)
}

// Sweeper is the subset of *valuelog.Log the scheduler drives.
type Sweeper interface {
	Sweep(idx valuelog.ExternalIndex, maxSegments int) (reclaimedSegments int, reclaimedBytes int64, err error)
}

// Config holds everything the scheduler needs to run its maintenance
// loop.
type Config struct {
	Tree     Flusher
	Log      Sweeper
	Index    valuelog.ExternalIndex
	Interval time.Duration
	Logger   *zap.SugaredLogger
}

// Scheduler ticks on a fixed interval, flushing the active memtable and
// sweeping the value log on every tick. It runs on its own goroutine
// and is safe to Stop from any other goroutine.
type Scheduler struct {
	tree     Flusher
	log      Sweeper
	index    valuelog.ExternalIndex
	interval time.Duration
	logger   *zap.SugaredLogger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New constructs a Scheduler from cfg. Call Start to begin its
// background loop.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		tree:     cfg.Tree,
		log:      cfg.Log,
		index:    cfg.Index,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler's background loop. It returns
// immediately; the loop runs until Stop is called.
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	flushed, err := s.tree.FlushActiveMemtable()
	if err != nil {
		if s.logger != nil {
			s.logger.Errorw("maintenance flush failed", "error", err)
		}
	} else if flushed && s.logger != nil {
		s.logger.Infow("maintenance flush completed")
	}

	segments, bytes, err := s.log.Sweep(s.index, gcMaxSegmentsPerCycle)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorw("value log sweep failed", "error", err)
		}
		return
	}
	if segments > 0 && s.logger != nil {
		s.logger.Infow("value log sweep reclaimed segments", "segments", segments, "bytes", bytes)
	}
}

// Stop halts the background loop and waits for it to exit. Calling Stop
// more than once is safe.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}
