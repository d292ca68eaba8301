package logstore

import "sync/atomic"

// Span locates an entry's bytes inside a generation's arena.
type Span struct {
	Segment int
	Offset  int
	Len     int
}

// arena is the append-only byte buffer of a generation. It grows by adding
// fixed-size segments; a segment is never moved or reallocated once created, so
// a Span stays valid for the lifetime of the generation. Data larger than a
// segment gets a dedicated segment of exactly its size.
type arena struct {
	segmentSize int
	segments    atomic.Pointer[[][]byte]

	// Producer-only state.
	open int // index of the segment being filled, or -1
	fill int

	size atomic.Int64
}

func newArena(segmentSize int) *arena {
	a := &arena{segmentSize: segmentSize, open: -1}
	empty := [][]byte{}
	a.segments.Store(&empty)
	return a
}

// alloc copies data into the arena and returns its span.
func (a *arena) alloc(data []byte) Span {
	n := len(data)
	a.size.Add(int64(n))

	if n > a.segmentSize {
		seg := make([]byte, n)
		copy(seg, data)
		return Span{Segment: a.addSegment(seg), Offset: 0, Len: n}
	}
	if a.open < 0 || a.fill+n > a.segmentSize {
		a.open = a.addSegment(make([]byte, a.segmentSize))
		a.fill = 0
	}
	segs := *a.segments.Load()
	off := a.fill
	copy(segs[a.open][off:off+n], data)
	a.fill += n
	return Span{Segment: a.open, Offset: off, Len: n}
}

func (a *arena) addSegment(seg []byte) int {
	old := *a.segments.Load()
	next := append(old[:len(old):len(old)], seg)
	a.segments.Store(&next)
	return len(next) - 1
}

// bytes returns the bytes behind sp. The result aliases the arena and must not
// be modified.
func (a *arena) bytes(sp Span) []byte {
	segs := *a.segments.Load()
	return segs[sp.Segment][sp.Offset : sp.Offset+sp.Len : sp.Offset+sp.Len]
}

func (a *arena) segmentCount() int {
	return len(*a.segments.Load())
}
