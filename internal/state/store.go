package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/pufferwatch/internal/source"
)

// maxNotices bounds the notice history kept for the status bar.
const maxNotices = 20

// Phase is the lifecycle of the session's producer.
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseStreaming
	PhaseEnded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStreaming:
		return "streaming"
	case PhaseEnded:
		return "ended"
	case PhaseFailed:
		return "failed"
	default:
		return "starting"
	}
}

// Notice is a session event shown to the operator.
type Notice struct {
	Reason  source.Reason
	Warning bool
	Message string
	Err     error
	At      time.Time
}

// String renders the notice for a status line.
func (n Notice) String() string {
	msg := n.Message
	if msg == "" {
		msg = n.Reason.String()
	}
	if n.Err != nil {
		return fmt.Sprintf("%s: %v", msg, n.Err)
	}
	return msg
}

// Snapshot represents the latest session status available to the UI.
type Snapshot struct {
	SourceName  string
	Follow      bool
	Phase       Phase
	BytesRead   int64
	Resets      int
	ChildID     string
	ChildPID    int
	ChildExited bool
	Notices     []Notice
	LastError   error
	LastUpdated time.Time
}

// Latest returns the newest notice.
func (s Snapshot) Latest() (Notice, bool) {
	if len(s.Notices) == 0 {
		return Notice{}, false
	}
	return s.Notices[len(s.Notices)-1], true
}

// Store coordinates concurrent updates to the snapshot. The producer writes,
// the UI reads; the zero value is ready to use.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetSource records which source the session reads.
func (s *Store) SetSource(name string, follow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.SourceName = name
	s.snapshot.Follow = follow
	s.touch()
}

// SetChild records the supervised child.
func (s *Store) SetChild(id string, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.ChildID = id
	s.snapshot.ChildPID = pid
	s.touch()
}

// AddBytes counts bytes read from the source.
func (s *Store) AddBytes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.BytesRead += int64(n)
	if s.snapshot.Phase == PhaseStarting {
		s.snapshot.Phase = PhaseStreaming
	}
	s.touch()
}

// Notify records a source event. Terminal errors move the session to
// PhaseFailed; end-of-stream moves it to PhaseEnded.
func (s *Store) Notify(reason source.Reason, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch reason {
	case source.ReasonReset:
		s.snapshot.Resets++
	case source.ReasonEOF:
		s.snapshot.Phase = PhaseEnded
	case source.ReasonChildExited:
		s.snapshot.Phase = PhaseEnded
		s.snapshot.ChildExited = true
	case source.ReasonIO, source.ReasonSpawnFailed:
		s.snapshot.Phase = PhaseFailed
		s.snapshot.LastError = err
	}
	s.push(Notice{Reason: reason, Err: err})
}

// Warn records a non-fatal problem such as a command the child could not
// receive.
func (s *Store) Warn(message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(Notice{Warning: true, Message: message, Err: err})
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if len(s.snapshot.Notices) > 0 {
		snap.Notices = make([]Notice, len(s.snapshot.Notices))
		copy(snap.Notices, s.snapshot.Notices)
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func (s *Store) push(n Notice) {
	n.At = time.Now()
	s.snapshot.Notices = append(s.snapshot.Notices, n)
	if over := len(s.snapshot.Notices) - maxNotices; over > 0 {
		s.snapshot.Notices = append(s.snapshot.Notices[:0], s.snapshot.Notices[over:]...)
	}
	s.touch()
}

func (s *Store) touch() {
	s.snapshot.LastUpdated = time.Now()
}
