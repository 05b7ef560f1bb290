package valuelog

import "os"

// Sweep reclaims whole sealed segments that no longer hold any live
// value. It is intentionally conservative: rather than rewriting a
// segment to drop only its dead records (which would require remapping
// every surviving ValueHandle back into the index), it only deletes a
// segment outright once every record in it has been superseded or
// removed. Mixed segments — live and dead records side by side — are
// left alone until a later sweep finds them fully dead.
//
// This trades some reclaimable space for never needing the index to
// rewrite handles out from under a concurrent reader, matching this
// tree's choice not to implement leveled/tiered compaction anywhere.
//
// maxSegments bounds how many sealed segments one call inspects, so a
// single scheduler tick can't block on an unbounded directory scan.
func (l *Log) Sweep(idx ExternalIndex, maxSegments int) (reclaimedSegments int, reclaimedBytes int64, err error) {
	l.mu.RLock()
	candidates := make([]uint64, 0, len(l.sealedIDs))
	candidates = append(candidates, l.sealedIDs...)
	l.mu.RUnlock()

	if maxSegments > 0 && len(candidates) > maxSegments {
		candidates = candidates[:maxSegments]
	}

	for _, id := range candidates {
		path := l.segmentPath(id)

		allDead, size, sweepErr := l.segmentFullyDead(id, path, idx)
		if sweepErr != nil {
			if l.log != nil {
				l.log.Warnw("value log gc sweep failed to inspect segment", "segmentID", id, "error", sweepErr)
			}
			continue
		}
		if !allDead {
			continue
		}

		if err := l.evictSegment(id, path); err != nil {
			if l.log != nil {
				l.log.Warnw("value log gc sweep failed to reclaim segment", "segmentID", id, "error", err)
			}
			continue
		}

		reclaimedSegments++
		reclaimedBytes += size
		if l.log != nil {
			l.log.Infow("value log segment reclaimed", "segmentID", id, "bytes", size)
		}
	}

	return reclaimedSegments, reclaimedBytes, nil
}

func (l *Log) segmentFullyDead(id uint64, path string, idx ExternalIndex) (bool, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, 0, err
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return false, 0, err
	}

	data := make([]byte, fi.Size())
	if _, err := file.ReadAt(data, 0); err != nil {
		return false, 0, err
	}

	pos := 0
	for pos < len(data) {
		key, _, used, err := decodeRecord(data[pos:])
		if err != nil {
			// A corrupted tail record stops the scan; treat what's been
			// read so far honestly rather than guessing past it.
			break
		}

		live, err := idx.IsLive(key, ValueHandle{Offset: uint64(pos), SegmentID: id})
		if err != nil {
			return false, 0, err
		}
		if live {
			return false, fi.Size(), nil
		}
		pos += used
	}

	return true, fi.Size(), nil
}

func (l *Log) evictSegment(id uint64, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.readers[id]; ok {
		f.Close()
		delete(l.readers, id)
	}

	for i, sealed := range l.sealedIDs {
		if sealed == id {
			l.sealedIDs = append(l.sealedIDs[:i], l.sealedIDs[i+1:]...)
			break
		}
	}

	return os.Remove(path)
}
