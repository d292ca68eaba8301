package filter

import (
	"bytes"
	"unicode/utf8"

	"github.com/five82/pufferwatch/internal/logstore"
	"github.com/five82/pufferwatch/internal/parse"
)

// Predicate decides whether an entry belongs to a view. Predicates must be
// pure functions of the entry so that a match never changes once computed.
type Predicate func(e logstore.Entry) bool

// Any matches every entry.
func Any() Predicate {
	return func(logstore.Entry) bool { return true }
}

// MinLevel matches entries at or above threshold. LevelUnknown as a threshold
// matches everything; any other threshold excludes entries of unknown level.
func MinLevel(threshold parse.Level) Predicate {
	if threshold == parse.LevelUnknown {
		return Any()
	}
	return func(e logstore.Entry) bool { return e.Level >= threshold }
}

// LevelIn matches entries whose level is in the set.
func LevelIn(levels ...parse.Level) Predicate {
	var set [8]bool
	for _, l := range levels {
		if l >= 0 && int(l) < len(set) {
			set[l] = true
		}
	}
	return func(e logstore.Entry) bool {
		return e.Level >= 0 && int(e.Level) < len(set) && set[e.Level]
	}
}

// SourceEquals matches entries whose source is exactly name.
func SourceEquals(name string) Predicate {
	b := []byte(name)
	return func(e logstore.Entry) bool { return bytes.Equal(e.SourceBytes(), b) }
}

// SourceContains matches entries whose source contains sub, ignoring case.
func SourceContains(sub string) Predicate {
	needle := []byte(sub)
	return func(e logstore.Entry) bool { return containsFold(e.SourceBytes(), needle) }
}

// SourceIn matches entries whose source is one of names.
func SourceIn(names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(e logstore.Entry) bool {
		_, ok := set[string(e.SourceBytes())]
		return ok
	}
}

// SourceNotIn matches entries whose source is not one of names.
func SourceNotIn(names ...string) Predicate {
	in := SourceIn(names...)
	return func(e logstore.Entry) bool { return !in(e) }
}

// TextContains matches entries whose message body contains text, ignoring
// case. An empty text matches everything.
func TextContains(text string) Predicate {
	if text == "" {
		return Any()
	}
	needle := []byte(text)
	return func(e logstore.Entry) bool { return containsFold(e.BodyBytes(), needle) }
}

// All matches when every predicate matches. Nil predicates are skipped.
func All(preds ...Predicate) Predicate {
	var list []Predicate
	for _, p := range preds {
		if p != nil {
			list = append(list, p)
		}
	}
	switch len(list) {
	case 0:
		return Any()
	case 1:
		return list[0]
	}
	return func(e logstore.Entry) bool {
		for _, p := range list {
			if !p(e) {
				return false
			}
		}
		return true
	}
}

// containsFold reports whether needle occurs in hay ignoring case. ASCII
// needles are compared in place; others fall back to lowering both sides.
func containsFold(hay, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	if isASCII(needle) {
		n := len(needle)
		for i := 0; i+n <= len(hay); i++ {
			if asciiEqualFold(hay[i:i+n], needle) {
				return true
			}
		}
		return false
	}
	lowered := bytes.ToLower(needle)
	hayLower := bytes.ToLower(hay)
	return bytes.Contains(hayLower, lowered)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func asciiEqualFold(a, b []byte) bool {
	for i := range a {
		x, y := a[i], b[i]
		if x == y {
			continue
		}
		if 'A' <= x && x <= 'Z' {
			x += 'a' - 'A'
		}
		if 'A' <= y && y <= 'Z' {
			y += 'a' - 'A'
		}
		if x != y {
			return false
		}
	}
	return true
}
