package parse

import "strings"

// Level represents the severity of a log entry. Levels are ordered so that a
// threshold comparison (level >= threshold) selects the more severe entries.
type Level int8

const (
	LevelUnknown Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelAlert
	LevelWarn
	LevelError
)

// Levels lists every known level from least to most severe.
var Levels = [...]Level{LevelTrace, LevelDebug, LevelInfo, LevelAlert, LevelWarn, LevelError}

// String returns the header token for the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelAlert:
		return "ALERT"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Short returns a 5-char padded string for display.
func (l Level) Short() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO "
	case LevelAlert:
		return "ALERT"
	case LevelWarn:
		return "WARN "
	case LevelError:
		return "ERROR"
	default:
		return "...  "
	}
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive and
// accepts the common "warning" spelling.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, true
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "ALERT":
		return LevelAlert, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelUnknown, false
	}
}
