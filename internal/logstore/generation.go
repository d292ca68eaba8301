package logstore

import (
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/five82/pufferwatch/internal/parse"
)

// Generation is one buffer/index lifetime between a session start (or reset)
// and the next reset. Its committed entries are immutable. Every read method
// is safe for concurrent use with the producer.
type Generation struct {
	id      uint64
	base    uint64
	started time.Time

	arena     *arena
	index     *index
	committed Watermark

	pending     atomic.Pointer[Entry]
	sources     atomic.Pointer[[]string]
	sourceWidth atomic.Int64
	stale       atomic.Bool

	// Producer-only.
	sourceSet map[string]struct{}
}

func newGeneration(id, base uint64, segmentSize int) *Generation {
	g := &Generation{
		id:        id,
		base:      base,
		started:   time.Now(),
		arena:     newArena(segmentSize),
		index:     newIndex(),
		sourceSet: make(map[string]struct{}),
	}
	empty := []string{}
	g.sources.Store(&empty)
	return g
}

// ID identifies the generation within its store. IDs start at 1.
func (g *Generation) ID() uint64 { return g.id }

// Base is the sequence number of the generation's first entry.
func (g *Generation) Base() uint64 { return g.base }

// Started reports when the generation was created.
func (g *Generation) Started() time.Time { return g.started }

// Len returns the number of committed entries.
func (g *Generation) Len() uint64 { return g.committed.Load() }

// Committed returns the committed watermark as a sequence number: entries with
// Base() <= seq < Committed() are readable.
func (g *Generation) Committed() uint64 { return g.base + g.committed.Load() }

// Stale reports whether the store has moved on to a newer generation. Readers
// holding a stale generation should re-subscribe with Store.Current.
func (g *Generation) Stale() bool { return g.stale.Load() }

// Segments returns the number of arena segments allocated so far.
func (g *Generation) Segments() int { return g.arena.segmentCount() }

// Size returns the number of entry bytes held by the arena.
func (g *Generation) Size() int64 { return g.arena.size.Load() }

// Get returns the entry with the given sequence number.
func (g *Generation) Get(seq uint64) (Entry, bool) {
	if seq < g.base || seq >= g.Committed() {
		return Entry{}, false
	}
	return g.entry(seq), true
}

// Scan calls fn for each committed entry with from <= seq < to, in order,
// stopping early when fn returns false. Bounds are clamped to the generation.
// It returns the sequence number one past the last entry visited.
func (g *Generation) Scan(from, to uint64, fn func(Entry) bool) uint64 {
	if from < g.base {
		from = g.base
	}
	if end := g.Committed(); to > end {
		to = end
	}
	seq := from
	for ; seq < to; seq++ {
		if !fn(g.entry(seq)) {
			return seq + 1
		}
	}
	return seq
}

// Read returns the committed entries with from <= seq < to.
func (g *Generation) Read(from, to uint64) []Entry {
	var out []Entry
	if to > from {
		out = make([]Entry, 0, min(to-from, g.Len()))
	}
	g.Scan(from, to, func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Pending returns the preview of the entry still being parsed. It is never
// part of the committed index: a preview whose sequence number has already
// been committed is stale and is not returned.
func (g *Generation) Pending() (Entry, bool) {
	p := g.pending.Load()
	if p == nil || p.Seq < g.Committed() {
		return Entry{}, false
	}
	return *p, true
}

// Sources returns the distinct source names seen so far, in first-seen order.
func (g *Generation) Sources() []string {
	return *g.sources.Load()
}

// MaxSourceWidth returns the widest source name in runes.
func (g *Generation) MaxSourceWidth() int {
	return int(g.sourceWidth.Load())
}

func (g *Generation) entry(seq uint64) Entry {
	s := g.index.get(seq - g.base)
	return entryFromSlot(seq, s, g.arena.bytes(s.span))
}

// append commits rec. Publishing the watermark is the final step.
func (g *Generation) append(rec parse.Record) Entry {
	span := g.arena.alloc(rec.Raw)
	s := slot{
		span:        span,
		time:        rec.Time,
		level:       rec.Level,
		sourceStart: int32(rec.SourceStart),
		sourceEnd:   int32(rec.SourceEnd),
		bodyStart:   int32(rec.BodyStart),
	}
	n := g.committed.Load()
	g.index.put(n, s)
	g.noteSource(rec.Source())

	e := entryFromSlot(g.base+n, &s, g.arena.bytes(span))
	g.committed.Advance(n + 1)
	return e
}

func (g *Generation) noteSource(name string) {
	if name == "" {
		return
	}
	if _, ok := g.sourceSet[name]; ok {
		return
	}
	g.sourceSet[name] = struct{}{}
	old := *g.sources.Load()
	next := append(old[:len(old):len(old)], name)
	g.sources.Store(&next)
	if w := int64(utf8.RuneCountInString(name)); w > g.sourceWidth.Load() {
		g.sourceWidth.Store(w)
	}
}

func (g *Generation) setPending(rec parse.Record, ok bool) {
	if !ok {
		g.pending.Store(nil)
		return
	}
	e := Entry{
		Seq:         g.Committed(),
		Time:        rec.Time,
		Level:       rec.Level,
		Raw:         append([]byte(nil), rec.Raw...),
		sourceStart: int32(rec.SourceStart),
		sourceEnd:   int32(rec.SourceEnd),
		bodyStart:   int32(rec.BodyStart),
	}
	e.Span = Span{Segment: -1, Len: len(e.Raw)}
	g.pending.Store(&e)
}
