package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/five82/pufferwatch/internal/parse"
)

// Criteria is the structured form of the operator's filter settings. The zero
// value matches every entry.
type Criteria struct {
	// MinLevel hides entries below the threshold. LevelUnknown disables it.
	MinLevel parse.Level
	// HiddenLevels hides individual levels regardless of the threshold.
	HiddenLevels map[parse.Level]bool
	// Source keeps only entries whose source equals this value.
	Source string
	// Sources keeps only entries whose source is one of these names.
	Sources []string
	// SourceContains keeps entries whose source contains this text (any case).
	SourceContains string
	// HiddenSources hides entries from the named sources.
	HiddenSources map[string]bool
	// Text keeps entries whose body contains this text (any case).
	Text string
}

// Predicate compiles the criteria into a single predicate.
func (c Criteria) Predicate() Predicate {
	var preds []Predicate
	if c.MinLevel != parse.LevelUnknown {
		preds = append(preds, MinLevel(c.MinLevel))
	}
	if hidden := c.hiddenLevels(); len(hidden) > 0 {
		var allowed []parse.Level
		isHidden := make(map[parse.Level]bool, len(hidden))
		for _, l := range hidden {
			isHidden[l] = true
		}
		for _, l := range append([]parse.Level{parse.LevelUnknown}, parse.Levels[:]...) {
			if !isHidden[l] {
				allowed = append(allowed, l)
			}
		}
		preds = append(preds, LevelIn(allowed...))
	}
	if c.Source != "" {
		preds = append(preds, SourceEquals(c.Source))
	}
	if len(c.Sources) > 0 {
		preds = append(preds, SourceIn(c.Sources...))
	}
	if c.SourceContains != "" {
		preds = append(preds, SourceContains(c.SourceContains))
	}
	if hidden := c.hiddenSources(); len(hidden) > 0 {
		preds = append(preds, SourceNotIn(hidden...))
	}
	if c.Text != "" {
		preds = append(preds, TextContains(c.Text))
	}
	return All(preds...)
}

// IsZero reports whether the criteria match everything.
func (c Criteria) IsZero() bool {
	return c.MinLevel == parse.LevelUnknown &&
		len(c.hiddenLevels()) == 0 &&
		c.Source == "" &&
		len(c.Sources) == 0 &&
		c.SourceContains == "" &&
		len(c.hiddenSources()) == 0 &&
		c.Text == ""
}

// Clone returns a deep copy so the caller may modify the maps.
func (c Criteria) Clone() Criteria {
	out := c
	out.Sources = append([]string(nil), c.Sources...)
	out.HiddenLevels = make(map[parse.Level]bool, len(c.HiddenLevels))
	for k, v := range c.HiddenLevels {
		out.HiddenLevels[k] = v
	}
	out.HiddenSources = make(map[string]bool, len(c.HiddenSources))
	for k, v := range c.HiddenSources {
		out.HiddenSources[k] = v
	}
	return out
}

// ToggleLevel flips whether level l is hidden.
func (c *Criteria) ToggleLevel(l parse.Level) {
	if c.HiddenLevels == nil {
		c.HiddenLevels = map[parse.Level]bool{}
	}
	c.HiddenLevels[l] = !c.HiddenLevels[l]
}

// ToggleSource flips whether source name is hidden.
func (c *Criteria) ToggleSource(name string) {
	if c.HiddenSources == nil {
		c.HiddenSources = map[string]bool{}
	}
	c.HiddenSources[name] = !c.HiddenSources[name]
}

// String summarizes the active criteria for a status line.
func (c Criteria) String() string {
	if c.IsZero() {
		return "all"
	}
	var parts []string
	if c.MinLevel != parse.LevelUnknown {
		parts = append(parts, "level>="+strings.ToLower(c.MinLevel.String()))
	}
	if hidden := c.hiddenLevels(); len(hidden) > 0 {
		names := make([]string, len(hidden))
		for i, l := range hidden {
			names[i] = strings.ToLower(l.String())
		}
		parts = append(parts, "-"+strings.Join(names, ",-"))
	}
	if c.Source != "" {
		parts = append(parts, fmt.Sprintf("source=%q", c.Source))
	}
	if len(c.Sources) > 0 {
		parts = append(parts, "source in "+strings.Join(c.Sources, ","))
	}
	if c.SourceContains != "" {
		parts = append(parts, fmt.Sprintf("source~%q", c.SourceContains))
	}
	if hidden := c.hiddenSources(); len(hidden) > 0 {
		parts = append(parts, fmt.Sprintf("%d sources hidden", len(hidden)))
	}
	if c.Text != "" {
		parts = append(parts, fmt.Sprintf("text~%q", c.Text))
	}
	return strings.Join(parts, " ")
}

func (c Criteria) hiddenLevels() []parse.Level {
	var out []parse.Level
	for l, hidden := range c.HiddenLevels {
		if hidden {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Criteria) hiddenSources() []string {
	var out []string
	for s, hidden := range c.HiddenSources {
		if hidden {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
