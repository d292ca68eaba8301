package logstore

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pufferwatch/internal/parse"
)

func record(t *testing.T, line string) parse.Record {
	t.Helper()
	var out []parse.Record
	p := parse.New(nil)
	p.Feed([]byte(line), func(r parse.Record) { out = append(out, r.Clone()) })
	p.Finish(func(r parse.Record) { out = append(out, r.Clone()) })
	require.Len(t, out, 1)
	return out[0]
}

func TestStoreAppendAndRead(t *testing.T) {
	s := New(0)
	g := s.Current()
	assert.Equal(t, uint64(1), g.ID())
	assert.Equal(t, uint64(0), g.Committed())

	e := s.Append(record(t, "[12:00:00 INFO] [Core] Loaded\nextra detail"))
	assert.Equal(t, uint64(0), e.Seq)
	assert.Equal(t, "Core", e.Source())
	assert.Equal(t, parse.LevelInfo, e.Level)
	assert.Equal(t, []string{"Loaded", "extra detail"}, e.Body())
	assert.Equal(t, 2, e.LineCount())

	s.Append(record(t, "[12:00:01 ERROR Content Patcher] boom"))
	require.Equal(t, uint64(2), g.Committed())

	got, ok := g.Get(1)
	require.True(t, ok)
	assert.Equal(t, "Content Patcher", got.Source())
	assert.Equal(t, []string{"boom"}, got.Body())

	_, ok = g.Get(2)
	assert.False(t, ok)

	entries := g.Read(0, 10)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"Core", "Content Patcher"}, g.Sources())
	assert.Equal(t, len("Content Patcher"), g.MaxSourceWidth())
}

func TestStoreSequencesAndSpans(t *testing.T) {
	s := New(minSegmentSize)
	big := "[12:00:00 INFO SMAPI] " + strings.Repeat("x", minSegmentSize*2)

	for i := 0; i < 3000; i++ {
		line := fmt.Sprintf("[12:00:00 DEBUG Mod%d] entry %d", i%7, i)
		if i%500 == 0 {
			line = big
		}
		s.Append(record(t, line))
	}

	g := s.Current()
	require.Equal(t, uint64(3000), g.Len())
	assert.Greater(t, g.Segments(), 1)

	seen := map[int][]Span{}
	prev := uint64(0)
	g.Scan(0, g.Committed(), func(e Entry) bool {
		if e.Seq > 0 {
			assert.Equal(t, prev+1, e.Seq)
		}
		prev = e.Seq
		assert.Equal(t, e.Span.Len, len(e.Raw))
		for _, other := range seen[e.Span.Segment] {
			overlap := e.Span.Offset < other.Offset+other.Len && other.Offset < e.Span.Offset+e.Span.Len
			assert.False(t, overlap, "span %+v overlaps %+v", e.Span, other)
		}
		seen[e.Span.Segment] = append(seen[e.Span.Segment], e.Span)
		return true
	})

	e, ok := g.Get(500)
	require.True(t, ok)
	assert.Equal(t, big, string(e.Raw))
}

func TestStoreResetStartsNewGeneration(t *testing.T) {
	s := New(0)
	for i := 0; i < 5; i++ {
		s.Append(record(t, fmt.Sprintf("[12:00:00 INFO SMAPI] %d", i)))
	}
	old := s.Current()
	kept, _ := old.Get(4)

	next := s.Reset()
	assert.True(t, old.Stale())
	assert.False(t, next.Stale())
	assert.Equal(t, uint64(2), next.ID())
	assert.Equal(t, uint64(5), next.Base())
	assert.Equal(t, uint64(5), next.Committed())
	assert.Empty(t, next.Sources())

	e := s.Append(record(t, "[12:00:01 WARN SMAPI] after reset"))
	assert.Equal(t, uint64(5), e.Seq)
	_, ok := next.Get(4)
	assert.False(t, ok)

	// Entries taken from the retired generation stay readable.
	assert.Equal(t, "[12:00:00 INFO SMAPI] 4", string(kept.Raw))
}

func TestStorePending(t *testing.T) {
	s := New(0)
	g := s.Current()
	_, ok := g.Pending()
	assert.False(t, ok)

	rec := record(t, "[12:00:00 ALERT SMAPI] still open")
	s.SetPending(rec, true)
	p, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, uint64(0), p.Seq)
	assert.Equal(t, "SMAPI", p.Source())
	assert.Equal(t, uint64(0), g.Len())

	s.Append(rec)
	_, ok = g.Pending()
	assert.False(t, ok)
}

func TestStorePendingHiddenOnceCommitted(t *testing.T) {
	s := New(0)
	g := s.Current()
	rec := record(t, "[12:00:00 INFO SMAPI] newest line")

	// The moment between publishing the entry and clearing the preview: a
	// follower must see the entry exactly once, from the index.
	s.SetPending(rec, true)
	g.append(rec)
	require.Equal(t, uint64(1), g.Len())
	_, ok := g.Pending()
	assert.False(t, ok, "preview of a committed entry must not be shown")
	assert.NotNil(t, g.pending.Load())

	// A preview of the next entry is shown again.
	next := record(t, "[12:00:01 INFO SMAPI] still open")
	s.SetPending(next, true)
	p, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, uint64(1), p.Seq)

	s.Append(next)
	assert.Nil(t, g.pending.Load())
	_, ok = g.Pending()
	assert.False(t, ok)
}

func TestStoreConcurrentReaders(t *testing.T) {
	s := New(minSegmentSize)
	const total = 5000

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := s.Current()
			next := uint64(0)
			for next < total {
				g.Scan(next, g.Committed(), func(e Entry) bool {
					want := fmt.Sprintf("[12:00:00 INFO SMAPI] line %d", e.Seq)
					if string(e.Raw) != want {
						t.Errorf("seq %d: got %q", e.Seq, e.Raw)
					}
					next = e.Seq + 1
					return true
				})
			}
		}()
	}

	p := parse.New(nil)
	for i := 0; i < total; i++ {
		p.Feed([]byte(fmt.Sprintf("[12:00:00 INFO SMAPI] line %d\n", i)), func(r parse.Record) {
			s.Append(r)
		})
	}
	p.Finish(func(r parse.Record) { s.Append(r) })
	wg.Wait()
	assert.Equal(t, uint64(total), s.Committed())
}
