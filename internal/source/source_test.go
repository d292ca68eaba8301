package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pufferwatch/internal/parse"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// readUntil collects data from src until want bytes have arrived, returning
// any non-data events seen on the way.
func readUntil(t *testing.T, ctx context.Context, src Source, want int) ([]byte, []EventKind) {
	t.Helper()
	var data []byte
	var kinds []EventKind
	for len(data) < want {
		ev, err := src.Next(ctx)
		require.NoError(t, err)
		if ev.Kind == EventData {
			data = append(data, ev.Data...)
			continue
		}
		kinds = append(kinds, ev.Kind)
	}
	return data, kinds
}

func TestFileStaticRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SMAPI-latest.txt")
	content := strings.Repeat("[12:00:00 INFO SMAPI] hello\n", 100)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := OpenFile(path, FileOptions{ChunkSize: 64})
	require.NoError(t, err)
	defer src.Close()

	ctx := testContext(t)
	data, kinds := readUntil(t, ctx, src, len(content))
	assert.Equal(t, content, string(data))
	assert.Empty(t, kinds)

	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventEOF, ev.Kind)
	assert.Equal(t, ReasonEOF, ev.Reason)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.txt"), FileOptions{})
	require.Error(t, err)
	assert.Equal(t, ReasonIO, ReasonOf(err))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = OpenFile(t.TempDir(), FileOptions{})
	require.Error(t, err)
}

func TestFileFollowGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	src, err := OpenFile(path, FileOptions{Follow: true, PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer src.Close()

	ctx := testContext(t)
	data, _ := readUntil(t, ctx, src, len("first\n"))
	assert.Equal(t, "first\n", string(data))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, kinds := readUntil(t, ctx, src, len("second\n"))
	assert.Equal(t, "second\n", string(data))
	assert.Empty(t, kinds)
}

func TestFileFollowTruncationResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 500), 0o644))

	src, err := OpenFile(path, FileOptions{Follow: true, PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer src.Close()

	ctx := testContext(t)
	data, _ := readUntil(t, ctx, src, 500)
	require.Len(t, data, 500)

	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventReset, ev.Kind)
	assert.Equal(t, ReasonReset, ev.Reason)

	data, kinds := readUntil(t, ctx, src, 10)
	assert.Equal(t, "0123456789", string(data))
	assert.Empty(t, kinds)
}

func TestFileFollowReplacementResets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("old contents that are long\n"), 0o644))

	src, err := OpenFile(path, FileOptions{Follow: true, PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	defer src.Close()

	ctx := testContext(t)
	readUntil(t, ctx, src, len("old contents that are long\n"))

	next := filepath.Join(dir, "log.new")
	require.NoError(t, os.WriteFile(next, []byte("new session, much longer than the old one\n"), 0o644))
	require.NoError(t, os.Rename(next, path))

	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventReset, ev.Kind)

	data, _ := readUntil(t, ctx, src, len("new session, much longer than the old one\n"))
	assert.Equal(t, "new session, much longer than the old one\n", string(data))
}

func TestFileCloseUnblocksFollower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src, err := OpenFile(path, FileOptions{Follow: true, PollInterval: time.Hour})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := src.Next(context.Background())
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, src.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestFileContextCancelUnblocksFollower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src, err := OpenFile(path, FileOptions{Follow: true, PollInterval: time.Hour})
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReaderEvents(t *testing.T) {
	src := NewReader("stdin", strings.NewReader("abcdefghij"), 4)
	defer src.Close()
	assert.Equal(t, "stdin", src.Name())

	ctx := testContext(t)
	data, _ := readUntil(t, ctx, src, 10)
	assert.Equal(t, "abcdefghij", string(data))

	ev, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventEOF, ev.Kind)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestReaderIOError(t *testing.T) {
	src := NewReader("remote", failingReader{}, 0)
	defer src.Close()

	_, err := src.Next(testContext(t))
	require.Error(t, err)
	assert.Equal(t, ReasonIO, ReasonOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReaderCloseUnblocks(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewReader("pipe", pr, 0)

	errc := make(chan error, 1)
	go func() {
		_, err := src.Next(context.Background())
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, src.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestTeeRoundTrip(t *testing.T) {
	lines := []string{
		"[12:00:00 INFO  SMAPI] Starting",
		"[12:00:01 ERROR Mod] Broken \xff byte",
		"   at Frame()",
		"[12:00:02 DEBUG] [Core] done",
	}
	input := strings.Join(lines, "\n") + "\n"
	mirrorPath := filepath.Join(t.TempDir(), "mirror.txt")
	mirror, err := os.Create(mirrorPath)
	require.NoError(t, err)

	tee := NewTee(NewReader("child", strings.NewReader(input), 7), mirror, nil)
	ctx := testContext(t)

	var parsed []string
	p := parse.New(nil)
	emit := func(r parse.Record) {
		parsed = append(parsed, strings.Split(string(r.Raw), "\n")...)
	}
	for {
		ev, err := tee.Next(ctx)
		require.NoError(t, err)
		if ev.Kind == EventEOF {
			break
		}
		p.Feed(ev.Data, emit)
	}
	p.Finish(emit)
	require.NoError(t, mirror.Close())

	back, err := os.ReadFile(mirrorPath)
	require.NoError(t, err)
	var mirrored []string
	for _, l := range strings.Split(strings.TrimSuffix(string(back), "\n"), "\n") {
		mirrored = append(mirrored, strings.ToValidUTF8(l, "�"))
	}
	assert.Equal(t, parsed, mirrored)
}

type brokenWriter struct{ calls int }

func (w *brokenWriter) Write([]byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestTeeWriteFailureIsReportedOnce(t *testing.T) {
	w := &brokenWriter{}
	var reported []error
	tee := NewTee(NewReader("child", strings.NewReader("abcdef"), 2), w, func(err error) {
		reported = append(reported, err)
	})
	ctx := testContext(t)
	data, _ := readUntil(t, ctx, tee, 6)
	assert.Equal(t, "abcdef", string(data))
	assert.Equal(t, 1, w.calls)
	require.Len(t, reported, 1)
	assert.Equal(t, ReasonIO, ReasonOf(reported[0]))
}
