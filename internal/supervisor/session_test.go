//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pufferwatch/internal/source"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// drain reads the session output until end of stream.
func drain(t *testing.T, ctx context.Context, src source.Source) (string, source.Event) {
	t.Helper()
	var sb strings.Builder
	for {
		ev, err := src.Next(ctx)
		require.NoError(t, err)
		if ev.Kind == source.EventEOF {
			return sb.String(), ev
		}
		sb.Write(ev.Data)
	}
}

func TestStartClassifiesSpawnFailures(t *testing.T) {
	dir := t.TempDir()
	notExec := filepath.Join(dir, "StardewValley")
	require.NoError(t, os.WriteFile(notExec, []byte("#!/bin/sh\n"), 0o644))

	tests := []struct {
		name string
		path string
		kind SpawnKind
	}{
		{"missing path", filepath.Join(dir, "missing"), SpawnNotFound},
		{"missing on PATH", "pufferwatch-no-such-binary", SpawnNotFound},
		{"not executable", notExec, SpawnPermission},
		{"empty", "", SpawnNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Start(Options{Path: tt.path})
			require.Error(t, err)
			var se *SpawnError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			assert.Equal(t, tt.kind, se.Kind)
		})
	}
}

func TestSessionCombinedOutputAndExit(t *testing.T) {
	s, err := Start(Options{Path: "/bin/sh", Args: []string{"-c", "echo out; echo err 1>&2; exit 3"}})
	require.NoError(t, err)
	defer s.Close(time.Second)
	assert.NotEmpty(t, s.ID())
	assert.Greater(t, s.PID(), 0)

	out, eof := drain(t, testContext(t), s.Output())
	assert.Contains(t, out, "out\n")
	assert.Contains(t, out, "err\n")
	assert.Equal(t, source.ReasonChildExited, eof.Reason)

	var exitErr *exec.ExitError
	require.True(t, errors.As(eof.Err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestSessionSendForwardsInput(t *testing.T) {
	s, err := Start(Options{
		Path:     "/bin/sh",
		Args:     []string{"-c", `read line; echo "got:$line"`},
		Encoding: EncodingUTF8,
	})
	require.NoError(t, err)
	defer s.Close(time.Second)

	require.NoError(t, s.Send("help"))
	out, _ := drain(t, testContext(t), s.Output())
	assert.Equal(t, "got:help\n", out)

	<-s.Done()
	err = s.Send("again")
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestSessionMirrorIsTruncated(t *testing.T) {
	mirror := filepath.Join(t.TempDir(), "logs", "mirror.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(mirror), 0o755))
	require.NoError(t, os.WriteFile(mirror, []byte("stale content from an earlier session\n"), 0o644))

	s, err := Start(Options{
		Path:       "/bin/sh",
		Args:       []string{"-c", `printf '[12:00:00 INFO SMAPI] a\nb\n'`},
		MirrorPath: mirror,
	})
	require.NoError(t, err)

	out, _ := drain(t, testContext(t), s.Output())
	require.NoError(t, s.Close(time.Second))

	data, err := os.ReadFile(mirror)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
	assert.Equal(t, "[12:00:00 INFO SMAPI] a\nb\n", string(data))
}

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd on this platform")
	}
	return len(entries)
}

func TestStartMirrorFailureLeavesNoHandles(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	tests := []struct {
		name   string
		mirror string
		want   string
	}{
		{"directory", filepath.Join(blocker, "logs", "mirror.txt"), "create mirror directory"},
		{"file", dir, "create mirror file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			openFDs(t)
			before := openFDs(t)

			_, err := Start(Options{Path: "/bin/sh", Args: []string{"-c", "true"}, MirrorPath: tt.mirror})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			var se *SpawnError
			assert.False(t, errors.As(err, &se), "mirror failures are not spawn failures")

			assert.Equal(t, before, openFDs(t))
		})
	}
}

func TestSessionCloseKillsRunningChild(t *testing.T) {
	s, err := Start(Options{Path: "/bin/sh", Args: []string{"-c", "sleep 30"}})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Close(50*time.Millisecond))
	assert.Less(t, time.Since(start), 5*time.Second)

	select {
	case <-s.Done():
	default:
		t.Fatal("child still running after Close")
	}
	assert.Error(t, s.ExitErr())
}
