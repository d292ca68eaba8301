package logstore

import (
	"sync/atomic"

	"github.com/five82/pufferwatch/internal/parse"
)

const chunkEntries = 1024

// slot is the index record for one entry. Offsets are relative to the start
// of the entry's span.
type slot struct {
	span        Span
	time        parse.Timestamp
	level       parse.Level
	sourceStart int32
	sourceEnd   int32
	bodyStart   int32
}

type chunk [chunkEntries]slot

// index is the ordered entry table of a generation, stored as a directory of
// fixed-size chunks. Chunks are never moved; only the directory is replaced
// when a chunk is added.
type index struct {
	chunks atomic.Pointer[[]*chunk]
}

func newIndex() *index {
	x := &index{}
	empty := []*chunk{}
	x.chunks.Store(&empty)
	return x
}

// put stores s at position i. Positions must be filled in order by the single
// producer.
func (x *index) put(i uint64, s slot) {
	dir := *x.chunks.Load()
	c := int(i / chunkEntries)
	if c == len(dir) {
		next := append(dir[:len(dir):len(dir)], new(chunk))
		x.chunks.Store(&next)
		dir = next
	}
	dir[c][i%chunkEntries] = s
}

func (x *index) get(i uint64) *slot {
	dir := *x.chunks.Load()
	return &dir[i/chunkEntries][i%chunkEntries]
}
