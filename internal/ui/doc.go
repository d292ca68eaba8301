// Package ui implements pufferwatch's terminal viewer using Bubble Tea.
//
// # Architecture
//
// The viewer is a consumer of the log store. It never reads the byte source
// and never blocks the producer. On every tick (refresh_interval) it asks the
// filter engine to extend its views with whatever was committed since the
// previous tick, copies the session status snapshot, and redraws.
//
// Two views are registered with the engine:
//
//   - "main": the entries passing the operator's filter criteria
//   - "search": main's predicate AND the "/" query, present while a search is active
//
// Changing the criteria replaces the main view; a new predicate is a new
// view scanned from the start of the live generation.
//
// # Scrolling
//
// The panel either follows the newest entry or is anchored to a sequence
// number. Because an anchor names an entry rather than a row, entries
// appended while the operator reads older output do not move the panel.
// Scrolling down past the last page resumes following. When the store
// starts a new generation (the file was truncated or replaced) the panel
// returns to follow mode.
//
// In follow mode the entry still being written is drawn dimmed below the
// committed ones. It is not counted and not searchable until it is complete.
//
// # Key Bindings
//
//	Space        Toggle follow mode
//	j/k, ↑/↓     Scroll one entry
//	pgup/pgdown  Scroll one page
//	ctrl+u/d     Scroll half a page
//	g/G          Oldest entry / newest entry
//	/            Search messages (case-insensitive)
//	n/N          Next / previous match
//	esc          Clear search
//	v            Cycle the minimum level
//	1-6          Hide or show TRACE, DEBUG, INFO, ALERT, WARN, ERROR
//	s            Pick sources to hide
//	F            Filter by source and message text
//	x            Clear all filters
//	r            Raw / formatted display
//	:            Send a console command to the game (run mode)
//	T            Cycle theme
//	h/?          Help
//	q, ctrl+c    Quit
//
// # Preferences
//
// Theme, level threshold and raw display are saved to the prefs file when
// changed, off the UI goroutine. A failed save shows as a warning in the
// header.
//
// # Styling
//
// BgStyle renders each word of a segment on an explicit background so that
// composed lines have no unstyled gaps; lipgloss resets between segments
// otherwise show the terminal's default background.
package ui
