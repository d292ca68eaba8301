package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pufferwatch/internal/state"
)

// renderHeader renders the session status line.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot
	compact := m.width < 100

	parts := []string{bg.Render("pufferwatch", styles.Logo)}

	switch snap.Phase {
	case state.PhaseStreaming:
		label := "● LIVE"
		if !snap.Follow && snap.ChildPID == 0 {
			label = "● READING"
		}
		parts = append(parts, bg.Render(label, styles.SuccessText))
	case state.PhaseEnded:
		label := "■ ENDED"
		if snap.ChildExited {
			label = "■ EXITED"
		}
		parts = append(parts, bg.Render(label, styles.MutedText.Bold(true)))
	case state.PhaseFailed:
		parts = append(parts, bg.Render("✖ FAILED", styles.DangerText))
	default:
		parts = append(parts, bg.Render("… STARTING", styles.WarningText.Bold(true)))
	}

	if snap.BytesRead > 0 {
		parts = append(parts, bg.Render(humanBytes(snap.BytesRead), styles.MutedText))
	}
	if snap.ChildPID > 0 {
		parts = append(parts, bg.Render("pid", styles.FaintText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", snap.ChildPID), styles.Text))
	}
	if snap.Resets > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d resets", snap.Resets), styles.WarningText))
	}

	if n, ok := snap.Latest(); ok {
		limit := 80
		if compact {
			limit = 40
		}
		style := styles.MutedText
		switch {
		case snap.Phase == state.PhaseFailed && n.Err != nil:
			style = styles.DangerText
		case n.Warning:
			style = styles.WarningText
		}
		parts = append(parts, bg.Render(truncate(n.String(), limit), style)+
			bg.Space()+bg.Render(formatAge(n.At), styles.FaintText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxWidth(m.width).
		Render(bg.Join(parts, "  "))
}

// renderCommandBar renders the key hints line.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	followLabel := "Pause"
	if !m.scroll.follow {
		followLabel = "Follow"
	}
	rawLabel := "Raw"
	if m.raw {
		rawLabel = "Formatted"
	}

	type cmd struct{ key, desc string }
	commands := []cmd{
		{"Space", followLabel},
		{"/", "Search"},
		{"n/N", "Next/Prev"},
		{"v", "Level " + strings.ToLower(m.levelSummary())},
		{"s", "Sources"},
		{"F", "Filters"},
		{"r", rawLabel},
	}
	if m.sender != nil {
		commands = append(commands, cmd{":", "Command"})
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxWidth(m.width).Render(bg.Join(segments, "  "))
}

// formatAge renders how long ago t was, relative to now.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	since := time.Since(t)
	switch {
	case since < time.Minute:
		return t.Format("15:04:05")
	case since < time.Hour:
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	}
}
