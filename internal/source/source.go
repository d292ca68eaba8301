package source

import (
	"context"
	"errors"
	"fmt"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 64 * 1024

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("source closed")

// EventKind distinguishes the events a Source produces.
type EventKind int

const (
	// EventData carries the next chunk of bytes.
	EventData EventKind = iota
	// EventReset means the underlying stream was truncated or replaced and
	// previously read bytes no longer describe it. Data that follows starts
	// from the beginning of the new stream.
	EventReset
	// EventEOF means no more data will arrive.
	EventEOF
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventReset:
		return "reset"
	case EventEOF:
		return "eof"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one step of a Source. Data is only valid until the next call to
// Next. Reason and Err describe Reset and EOF events.
type Event struct {
	Kind   EventKind
	Data   []byte
	Reason Reason
	Err    error
}

// Source is a stream of byte chunks. Next blocks until data, a reset, the end
// of the stream or an error is available, or ctx is done. A stall while
// following a live file is not an error: Next simply keeps waiting.
//
// Next must be called from a single goroutine. Close may be called from any
// goroutine and makes a blocked Next return promptly.
type Source interface {
	Next(ctx context.Context) (Event, error)
	Close() error
	Name() string
}

// Reason is the discriminated cause attached to notifications.
type Reason int

const (
	ReasonReset Reason = iota + 1
	ReasonEOF
	ReasonIO
	ReasonChildExited
	ReasonSpawnFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonReset:
		return "source reset"
	case ReasonEOF:
		return "end of stream"
	case ReasonIO:
		return "i/o failure"
	case ReasonChildExited:
		return "child exited"
	case ReasonSpawnFailed:
		return "child spawn failed"
	default:
		return "unknown"
	}
}

// Error is a terminal source failure.
type Error struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Reason, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the Reason from err, or returns ReasonIO for other
// non-nil errors.
func ReasonOf(err error) Reason {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason
	}
	return ReasonIO
}
