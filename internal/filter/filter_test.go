package filter

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pufferwatch/internal/logstore"
	"github.com/five82/pufferwatch/internal/parse"
)

// fill appends the given header lines to s through a real parser.
func fill(s *logstore.Store, lines ...string) {
	p := parse.New(nil)
	for _, l := range lines {
		p.Feed([]byte(l+"\n"), func(r parse.Record) { s.Append(r) })
	}
	p.Finish(func(r parse.Record) { s.Append(r) })
}

func sampleLines(n int) []string {
	levels := []string{"TRACE", "DEBUG", "INFO", "ALERT", "WARN", "ERROR"}
	out := make([]string, n)
	for i := range out {
		src := fmt.Sprintf("Mod %c", 'A'+i%5)
		out[i] = fmt.Sprintf("[12:00:00 %s %s] message %d from mod %c", levels[i%len(levels)], src, i, 'x'+i%3)
	}
	return out
}

func TestPredicates(t *testing.T) {
	s := logstore.New(0)
	fill(s,
		"untagged text",
		"[12:00:00 WARN Content Patcher] Asset MISSING",
		"[12:00:01 INFO SMAPI] all good",
	)
	g := s.Current()
	unknown, _ := g.Get(0)
	warn, _ := g.Get(1)
	info, _ := g.Get(2)
	require.Equal(t, parse.LevelUnknown, unknown.Level)

	tests := []struct {
		name string
		pred Predicate
		want []bool
	}{
		{"any", Any(), []bool{true, true, true}},
		{"min unknown", MinLevel(parse.LevelUnknown), []bool{true, true, true}},
		{"min warn", MinLevel(parse.LevelWarn), []bool{true, false, false}},
		{"min trace hides unknown", MinLevel(parse.LevelTrace), []bool{true, true, false}},
		{"level in", LevelIn(parse.LevelInfo, parse.LevelUnknown), []bool{false, true, true}},
		{"source equals", SourceEquals("SMAPI"), []bool{false, true, false}},
		{"source contains", SourceContains("patch"), []bool{true, false, false}},
		{"source in", SourceIn("SMAPI", "Other"), []bool{false, true, false}},
		{"source not in", SourceNotIn("SMAPI"), []bool{true, false, true}},
		{"text any case", TextContains("missing"), []bool{true, false, false}},
		{"text empty", TextContains(""), []bool{true, true, true}},
		{"text not in header", TextContains("Content"), []bool{false, false, false}},
		{"all", All(MinLevel(parse.LevelInfo), TextContains("good")), []bool{false, true, false}},
		{"all empty", All(), []bool{true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []bool{tt.pred(warn), tt.pred(info), tt.pred(unknown)}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold([]byte("Hello World"), []byte("WORLD")))
	assert.True(t, containsFold([]byte("Ünïcode ÉTÉ"), []byte("été")))
	assert.False(t, containsFold([]byte("short"), []byte("longer needle")))
	assert.True(t, containsFold([]byte("x"), nil))
}

func TestCriteriaPredicate(t *testing.T) {
	s := logstore.New(0)
	fill(s, sampleLines(60)...)

	c := Criteria{MinLevel: parse.LevelInfo}
	c.ToggleLevel(parse.LevelAlert)
	c.ToggleSource("Mod A")
	c.Text = "FROM MOD Y"

	pred := c.Predicate()
	s.Current().Scan(0, s.Committed(), func(e logstore.Entry) bool {
		want := e.Level >= parse.LevelInfo &&
			e.Level != parse.LevelAlert &&
			e.Source() != "Mod A" &&
			e.Seq%3 == 1
		assert.Equal(t, want, pred(e), "seq %d", e.Seq)
		return true
	})

	assert.False(t, c.IsZero())
	assert.True(t, Criteria{}.IsZero())
	assert.Equal(t, "all", Criteria{}.String())
	assert.Contains(t, c.String(), "level>=info")

	clone := c.Clone()
	clone.ToggleSource("Mod A")
	assert.True(t, c.HiddenSources["Mod A"])
	assert.False(t, clone.HiddenSources["Mod A"])
}

func TestCriteriaSources(t *testing.T) {
	s := logstore.New(0)
	fill(s, sampleLines(20)...)

	c := Criteria{Sources: []string{"Mod B", "Mod D"}}
	pred := c.Predicate()
	matched := 0
	s.Current().Scan(0, s.Committed(), func(e logstore.Entry) bool {
		if pred(e) {
			matched++
			assert.Contains(t, []string{"Mod B", "Mod D"}, e.Source())
		}
		return true
	})
	assert.Equal(t, 8, matched)
	assert.False(t, c.IsZero())
	assert.Contains(t, c.String(), "source in Mod B,Mod D")

	clone := c.Clone()
	clone.Sources[0] = "Mod Z"
	assert.Equal(t, "Mod B", c.Sources[0])
}

func TestViewRefreshIsIncrementalAndIdempotent(t *testing.T) {
	s := logstore.New(0)
	fill(s, sampleLines(100)...)

	v := NewView(s, "warn", MinLevel(parse.LevelWarn))
	assert.Equal(t, 0, v.Count())
	assert.Equal(t, uint64(0), v.Cursor())

	n := v.Refresh()
	assert.Equal(t, uint64(100), v.Scanned())
	assert.Equal(t, uint64(100), v.Cursor())
	before := append([]uint64(nil), v.matches...)

	assert.Equal(t, n, v.Refresh())
	assert.Equal(t, uint64(100), v.Scanned())
	assert.Equal(t, before, v.matches)

	fill(s, sampleLines(30)...)
	v.Refresh()
	assert.Equal(t, uint64(130), v.Scanned())
	assert.Equal(t, before, v.matches[:len(before)], "earlier matches must stay in place")
	for i := 1; i < v.Count(); i++ {
		assert.Less(t, v.matches[i-1], v.matches[i])
	}
}

func TestTwoViewsKeepIndependentCursors(t *testing.T) {
	s := logstore.New(0)
	fill(s, sampleLines(1000)...)

	warn := NewView(s, "warn", MinLevel(parse.LevelWarn))
	modX := NewView(s, "modx", TextContains("mod x"))

	warn.Refresh()
	assert.Equal(t, uint64(1000), warn.Scanned())
	assert.Equal(t, uint64(0), modX.Scanned())
	assert.Equal(t, uint64(0), modX.Cursor())

	modX.Refresh()
	assert.Equal(t, uint64(1000), modX.Scanned())
	warn.Refresh()
	assert.Equal(t, uint64(1000), warn.Scanned())

	assert.Equal(t, 332, warn.Count())
	assert.Equal(t, 334, modX.Count())
}

func TestViewRestartsOnReset(t *testing.T) {
	s := logstore.New(0)
	fill(s, sampleLines(12)...)

	v := NewView(s, "all", nil)
	require.Equal(t, 12, v.Refresh())
	oldGen := v.Generation()

	s.Reset()
	fill(s, sampleLines(3)...)

	assert.Equal(t, 3, v.Refresh())
	assert.Equal(t, 1, v.Restarts())
	assert.NotSame(t, oldGen, v.Generation())
	seq, ok := v.Seq(0)
	require.True(t, ok)
	assert.Equal(t, uint64(12), seq, "sequence numbers continue after reset")
}

func TestViewWindowAndRange(t *testing.T) {
	s := logstore.New(0)
	fill(s, sampleLines(60)...)

	v := NewView(s, "error", LevelIn(parse.LevelError))
	require.Equal(t, 10, v.Refresh())

	w := v.Window(2, 5)
	require.Len(t, w, 3)
	assert.Equal(t, uint64(17), w[0].Seq)
	assert.Equal(t, uint64(29), w[2].Seq)

	assert.Len(t, v.Window(-3, 100), 10)
	assert.Nil(t, v.Window(8, 2))

	assert.Equal(t, 2, v.IndexOf(12))
	assert.Equal(t, 2, v.IndexOf(17))
	assert.Equal(t, 10, v.IndexOf(1000))

	r := v.Range(10, 30)
	require.Len(t, r, 4)
	assert.Equal(t, uint64(11), r[0].Seq)
}

func TestEngineRefreshAll(t *testing.T) {
	s := logstore.New(0)
	e := NewEngine(s)
	e.Add("all", nil)
	e.Add("errors", MinLevel(parse.LevelError))
	e.Add("search", TextContains("mod z"))
	e.Add("errors", MinLevel(parse.LevelWarn))

	require.Len(t, e.Views(), 3)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fill(s, sampleLines(600)...)
	}()
	for i := 0; i < 20; i++ {
		_, err := e.RefreshAll(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()

	counts, err := e.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"all": 600, "errors": 200, "search": 200}, counts)

	e.Remove("search")
	_, ok := e.View("search")
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.RefreshAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
