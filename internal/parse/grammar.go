package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Header describes a recognized header at the start of a line. Offsets are
// byte positions within the line.
type Header struct {
	Time        Timestamp
	Level       Level
	SourceStart int
	SourceEnd   int
	BodyStart   int
}

// HeaderRule is one entry of the grammar table. The whole pattern is anchored
// at the start of the line and may use the named groups "time", "level" and "source".
// The end of the overall match is where the message body begins.
type HeaderRule struct {
	Name    string
	Pattern *regexp.Regexp

	timeIdx   int
	levelIdx  int
	sourceIdx int
}

// Grammar is an ordered table of header rules plus the level token table.
// Rules are tried in order and the first match wins.
type Grammar struct {
	rules  []HeaderRule
	levels map[string]Level
}

const clockPattern = `(?P<time>\d{1,2}:\d{2}:\d{2})`

// DefaultGrammar returns the SMAPI header grammar:
//
//	[HH:MM:SS LEVEL Source] message
//	[HH:MM:SS LEVEL] [Source] message
//	[HH:MM:SS LEVEL] message
func DefaultGrammar() *Grammar {
	g, err := NewGrammar(nil, nil)
	if err != nil {
		panic(fmt.Sprintf("default grammar: %v", err))
	}
	return g
}

// NewGrammar builds a grammar whose extra rules are tried before the built-in
// SMAPI rules. Level aliases map additional tokens (e.g. "WARNING") to level
// names understood by ParseLevel.
func NewGrammar(extraPatterns []string, levelAliases map[string]string) (*Grammar, error) {
	levels := map[string]Level{}
	for _, l := range Levels {
		levels[l.String()] = l
	}
	for token, name := range levelAliases {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		level, ok := ParseLevel(name)
		if !ok {
			return nil, fmt.Errorf("level alias %q: unknown level %q", token, name)
		}
		levels[token] = level
	}

	g := &Grammar{levels: levels}
	for i, pattern := range extraPatterns {
		rule, err := compileRule(fmt.Sprintf("custom-%d", i+1), pattern)
		if err != nil {
			return nil, err
		}
		g.rules = append(g.rules, rule)
	}

	alt := levelAlternation(levels)
	builtins := []struct{ name, pattern string }{
		{"smapi", `\[\s*` + clockPattern + `\s+(?P<level>` + alt + `)\s+(?P<source>[^\]]*[^\]\s])\s*\](?: |$)`},
		{"bracketed-source", `\[\s*` + clockPattern + `\s+(?P<level>` + alt + `)\s*\] \[(?P<source>[^\]]+)\](?: |$)`},
		{"no-source", `\[\s*` + clockPattern + `\s+(?P<level>` + alt + `)\s*\](?: |$)`},
	}
	for _, b := range builtins {
		rule, err := compileRule(b.name, b.pattern)
		if err != nil {
			return nil, err
		}
		g.rules = append(g.rules, rule)
	}
	return g, nil
}

// Rules returns the rule names in match order.
func (g *Grammar) Rules() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.Name
	}
	return names
}

// Match reports whether line begins with a recognized header.
func (g *Grammar) Match(line []byte) (Header, bool) {
	for i := range g.rules {
		rule := &g.rules[i]
		loc := rule.Pattern.FindSubmatchIndex(line)
		if loc == nil {
			continue
		}
		h := Header{BodyStart: loc[1]}
		if rule.levelIdx > 0 && loc[2*rule.levelIdx] >= 0 {
			level, ok := g.levels[string(line[loc[2*rule.levelIdx]:loc[2*rule.levelIdx+1]])]
			if !ok {
				continue
			}
			h.Level = level
		}
		if rule.timeIdx > 0 && loc[2*rule.timeIdx] >= 0 {
			if ts, ok := parseClock(string(line[loc[2*rule.timeIdx]:loc[2*rule.timeIdx+1]])); ok {
				h.Time = ts
			}
		}
		if rule.sourceIdx > 0 && loc[2*rule.sourceIdx] >= 0 {
			h.SourceStart = loc[2*rule.sourceIdx]
			h.SourceEnd = loc[2*rule.sourceIdx+1]
		}
		return h, true
	}
	return Header{}, false
}

func compileRule(name, pattern string) (HeaderRule, error) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return HeaderRule{}, fmt.Errorf("header rule %s: pattern is empty", name)
	}
	// Group before anchoring so every top-level alternative starts the line.
	re, err := regexp.Compile("^(?:" + trimmed + ")")
	if err != nil {
		return HeaderRule{}, fmt.Errorf("header rule %s: %w", name, err)
	}
	return HeaderRule{
		Name:      name,
		Pattern:   re,
		timeIdx:   re.SubexpIndex("time"),
		levelIdx:  re.SubexpIndex("level"),
		sourceIdx: re.SubexpIndex("source"),
	}, nil
}

// levelAlternation builds "WARNING|ERROR|..." with longer tokens first so that
// leftmost-first alternation prefers WARNING over WARN.
func levelAlternation(levels map[string]Level) string {
	tokens := make([]string, 0, len(levels))
	for token := range levels {
		tokens = append(tokens, regexp.QuoteMeta(token))
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return strings.Join(tokens, "|")
}
