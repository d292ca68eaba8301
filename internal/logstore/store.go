package logstore

import (
	"sync/atomic"

	"github.com/five82/pufferwatch/internal/parse"
)

const (
	// DefaultSegmentSize is the arena segment size used when none is configured.
	DefaultSegmentSize = 256 * 1024
	minSegmentSize     = 4 * 1024
)

// Store holds the current generation of the log. Append, SetPending and Reset
// belong to the single producer; everything reachable from Current may be used
// by any number of readers without locking.
type Store struct {
	segmentSize int
	current     atomic.Pointer[Generation]
}

// New returns an empty store. Segment sizes below 4 KiB are raised to 4 KiB and
// a zero size selects DefaultSegmentSize.
func New(segmentSize int) *Store {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	if segmentSize < minSegmentSize {
		segmentSize = minSegmentSize
	}
	s := &Store{segmentSize: segmentSize}
	s.current.Store(newGeneration(1, 0, segmentSize))
	return s
}

// Current returns the live generation.
func (s *Store) Current() *Generation {
	return s.current.Load()
}

// Committed is shorthand for Current().Committed().
func (s *Store) Committed() uint64 {
	return s.Current().Committed()
}

// Append copies rec into the live generation and commits it. The returned
// Entry is visible to readers by the time Append returns. The pending preview
// described the entry now being committed, so it is cleared once the
// watermark has moved past it; until then readers drop it themselves.
func (s *Store) Append(rec parse.Record) Entry {
	g := s.Current()
	e := g.append(rec)
	g.pending.Store(nil)
	return e
}

// SetPending publishes a preview of the still-open entry, or clears it when ok
// is false.
func (s *Store) SetPending(rec parse.Record, ok bool) {
	s.Current().setPending(rec, ok)
}

// Reset retires the live generation and starts an empty one. Sequence numbers
// continue from where the retired generation stopped, so they are never reused.
func (s *Store) Reset() *Generation {
	old := s.Current()
	next := newGeneration(old.id+1, old.Committed(), s.segmentSize)
	s.current.Store(next)
	old.pending.Store(nil)
	old.stale.Store(true)
	return next
}
