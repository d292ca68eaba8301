package filter

import (
	"sort"

	"github.com/five82/pufferwatch/internal/logstore"
)

// View is an incrementally maintained list of the sequence numbers in the
// store's live generation that satisfy a predicate.
//
// Each Refresh scans only the entries committed since the previous one. When
// the store has moved to a new generation the view starts over against it.
// A View has a single writer: Refresh and the read methods must not be called
// concurrently on the same View. Different views may refresh in parallel.
type View struct {
	name  string
	pred  Predicate
	store *logstore.Store

	gen     *logstore.Generation
	cursor  uint64
	matches []uint64

	scanned  uint64
	restarts int
}

// NewView creates a view with its cursor at the start of the live generation.
// Nothing is scanned until the first Refresh.
func NewView(store *logstore.Store, name string, pred Predicate) *View {
	if pred == nil {
		pred = Any()
	}
	gen := store.Current()
	return &View{
		name:   name,
		pred:   pred,
		store:  store,
		gen:    gen,
		cursor: gen.Base(),
	}
}

// Name returns the view's label.
func (v *View) Name() string { return v.name }

// Refresh scans the entries committed since the last call, appends the ones
// that match and returns the total match count. Calling it again with no new
// entries does nothing.
func (v *View) Refresh() int {
	cur := v.store.Current()
	if cur != v.gen || v.cursor > cur.Committed() || v.cursor < cur.Base() {
		v.restart(cur)
	}

	end := v.gen.Committed()
	if v.cursor >= end {
		return len(v.matches)
	}
	v.gen.Scan(v.cursor, end, func(e logstore.Entry) bool {
		v.scanned++
		if v.pred(e) {
			v.matches = append(v.matches, e.Seq)
		}
		return true
	})
	v.cursor = end
	return len(v.matches)
}

func (v *View) restart(gen *logstore.Generation) {
	v.gen = gen
	v.cursor = gen.Base()
	v.matches = v.matches[:0]
	v.restarts++
}

// Generation returns the generation the view currently derives from.
func (v *View) Generation() *logstore.Generation { return v.gen }

// Cursor returns the sequence number the next Refresh starts scanning from.
func (v *View) Cursor() uint64 { return v.cursor }

// Count returns the number of matches found so far.
func (v *View) Count() int { return len(v.matches) }

// Scanned returns how many entries the predicate has been evaluated on over
// the life of the view.
func (v *View) Scanned() uint64 { return v.scanned }

// Restarts returns how many times the view started over on a new generation.
func (v *View) Restarts() int { return v.restarts }

// Seq returns the sequence number of the i-th match.
func (v *View) Seq(i int) (uint64, bool) {
	if i < 0 || i >= len(v.matches) {
		return 0, false
	}
	return v.matches[i], true
}

// Window returns the matched entries with match index in [from, to), clamped
// to the available matches.
func (v *View) Window(from, to int) []logstore.Entry {
	if from < 0 {
		from = 0
	}
	if to > len(v.matches) {
		to = len(v.matches)
	}
	if from >= to {
		return nil
	}
	out := make([]logstore.Entry, 0, to-from)
	for _, seq := range v.matches[from:to] {
		if e, ok := v.gen.Get(seq); ok {
			out = append(out, e)
		}
	}
	return out
}

// Range returns the matched entries with fromSeq <= seq < toSeq.
func (v *View) Range(fromSeq, toSeq uint64) []logstore.Entry {
	return v.Window(v.IndexOf(fromSeq), v.IndexOf(toSeq))
}

// IndexOf returns the index of the first match with sequence >= seq. It
// returns Count() when there is none.
func (v *View) IndexOf(seq uint64) int {
	return sort.Search(len(v.matches), func(i int) bool { return v.matches[i] >= seq })
}
