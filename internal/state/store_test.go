package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/pufferwatch/internal/source"
)

func TestStore_ProgressAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.SetSource("SMAPI-latest.txt", true)
	s.AddBytes(100)
	s.AddBytes(20)
	s.Notify(source.ReasonReset, nil)

	snap := s.Snapshot()
	if snap.SourceName != "SMAPI-latest.txt" || !snap.Follow {
		t.Fatalf("source = %q follow=%v", snap.SourceName, snap.Follow)
	}
	if snap.BytesRead != 120 {
		t.Fatalf("BytesRead = %d, want 120", snap.BytesRead)
	}
	if snap.Phase != PhaseStreaming {
		t.Fatalf("Phase = %v, want streaming", snap.Phase)
	}
	if snap.Resets != 1 || len(snap.Notices) != 1 {
		t.Fatalf("Resets = %d notices = %d, want 1 and 1", snap.Resets, len(snap.Notices))
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Notices[0].Message = "changed"
	if s.Snapshot().Notices[0].Message != "" {
		t.Fatal("Snapshot should clone notices")
	}
}

func TestStore_NotifyPhases(t *testing.T) {
	tests := []struct {
		name   string
		reason source.Reason
		err    error
		phase  Phase
		exited bool
	}{
		{name: "eof", reason: source.ReasonEOF, phase: PhaseEnded},
		{name: "child exited", reason: source.ReasonChildExited, phase: PhaseEnded, exited: true},
		{name: "io", reason: source.ReasonIO, err: errors.New("boom"), phase: PhaseFailed},
		{name: "spawn", reason: source.ReasonSpawnFailed, err: errors.New("nope"), phase: PhaseFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Store
			s.Notify(tt.reason, tt.err)
			snap := s.Snapshot()
			if snap.Phase != tt.phase {
				t.Fatalf("Phase = %v, want %v", snap.Phase, tt.phase)
			}
			if snap.ChildExited != tt.exited {
				t.Fatalf("ChildExited = %v, want %v", snap.ChildExited, tt.exited)
			}
			n, ok := snap.Latest()
			if !ok || n.Reason != tt.reason {
				t.Fatalf("latest notice = %#v", n)
			}
		})
	}
}

func TestStore_ErrorIsCloned(t *testing.T) {
	var s Store
	origErr := errors.New("boom")
	s.Notify(source.ReasonIO, origErr)

	snap := s.Snapshot()
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("cloned error should wrap original")
	}
}

func TestStore_NoticeHistoryIsBounded(t *testing.T) {
	var s Store
	for i := 0; i < maxNotices+5; i++ {
		s.Warn("command not delivered", nil)
	}
	s.Notify(source.ReasonEOF, nil)

	snap := s.Snapshot()
	if len(snap.Notices) != maxNotices {
		t.Fatalf("len(Notices) = %d, want %d", len(snap.Notices), maxNotices)
	}
	latest, _ := snap.Latest()
	if latest.Reason != source.ReasonEOF || latest.String() != "end of stream" {
		t.Fatalf("latest = %q", latest.String())
	}
	if !snap.Notices[0].Warning {
		t.Fatalf("oldest kept notice should be a warning")
	}
}
