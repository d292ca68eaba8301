package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/five82/pufferwatch/internal/config"
	"github.com/five82/pufferwatch/internal/filter"
	"github.com/five82/pufferwatch/internal/logstore"
	"github.com/five82/pufferwatch/internal/parse"
	"github.com/five82/pufferwatch/internal/prefs"
	"github.com/five82/pufferwatch/internal/state"
	"github.com/five82/pufferwatch/internal/supervisor"
)

const sampleLog = "[12:00:00 INFO SMAPI] Starting\n" +
	"[12:00:01 WARN Mod] careful\n" +
	"  detail\n" +
	"[12:00:02 ERROR Mod] broke\n"

func baseOptions(t *testing.T) (Options, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	return Options{
		ConfigPath: filepath.Join(dir, "missing.toml"),
		PrefsPath:  filepath.Join(dir, "prefs.toml"),
		Print:      true,
		Stdout:     &out,
	}, &out
}

func runWithTimeout(t *testing.T, opts Options) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := Run(ctx, opts)
	if ctx.Err() != nil {
		t.Fatal("session did not finish before the timeout")
	}
	return err
}

func TestPrintFile(t *testing.T) {
	opts, out := baseOptions(t)
	path := filepath.Join(t.TempDir(), "SMAPI-latest.txt")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	opts.Mode = ModeFile
	opts.LogPath = path
	opts.Criteria = filter.Criteria{MinLevel: parse.LevelWarn}

	if err := runWithTimeout(t, opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := "[12:00:01 WARN Mod] careful\n  detail\n[12:00:02 ERROR Mod] broke\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestPrintFileMissing(t *testing.T) {
	opts, _ := baseOptions(t)
	opts.Mode = ModeFile
	opts.LogPath = filepath.Join(t.TempDir(), "nope.txt")

	err := runWithTimeout(t, opts)
	if err == nil || !strings.Contains(err.Error(), "open log") {
		t.Fatalf("expected open log error, got %v", err)
	}
}

func TestPrintStdin(t *testing.T) {
	opts, out := baseOptions(t)
	opts.Mode = ModeStdin
	opts.Stdin = strings.NewReader("preamble\n" + sampleLog)
	opts.Criteria = filter.Criteria{Text: "broke"}

	if err := runWithTimeout(t, opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.String() != "[12:00:02 ERROR Mod] broke\n" {
		t.Fatalf("output = %q", out.String())
	}
}

type fakeOpener struct {
	body string
	err  error
	url  string
}

func (f *fakeOpener) Open(_ context.Context, rawURL string) (io.ReadCloser, error) {
	f.url = rawURL
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func TestPrintRemote(t *testing.T) {
	opts, out := baseOptions(t)
	opener := &fakeOpener{body: sampleLog}
	opts.Mode = ModeRemote
	opts.URL = "https://smapi.io/log/abc"
	opts.Opener = opener
	opts.Criteria = filter.Criteria{Sources: []string{"SMAPI"}}

	if err := runWithTimeout(t, opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if opener.url != opts.URL {
		t.Fatalf("opened %q", opener.url)
	}
	if out.String() != "[12:00:00 INFO SMAPI] Starting\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRemoteOpenFailure(t *testing.T) {
	opts, _ := baseOptions(t)
	boom := errors.New("connection refused")
	opts.Mode = ModeRemote
	opts.URL = "https://smapi.io/log/abc"
	opts.Opener = &fakeOpener{err: boom}

	err := runWithTimeout(t, opts)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	opts, _ := baseOptions(t)
	opts.Mode = ModeRun
	opts.SMAPIPath = filepath.Join(t.TempDir(), "StardewModdingAPI")

	err := runWithTimeout(t, opts)
	var spawnErr *supervisor.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
	if spawnErr.Kind != supervisor.SpawnNotFound {
		t.Fatalf("kind = %v, want not found", spawnErr.Kind)
	}
}

func TestRunChildMirrorsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the child")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-smapi")
	body := "#!/bin/sh\nprintf '[12:00:00 INFO SMAPI] hello\\n[12:00:01 TRACE Mod] quiet\\n'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	opts, out := baseOptions(t)
	opts.Mode = ModeRun
	opts.SMAPIPath = script
	opts.Encoding = "utf8"
	opts.MirrorPath = filepath.Join(dir, "mirror", "console.log")
	opts.Criteria = filter.Criteria{MinLevel: parse.LevelInfo}

	if err := runWithTimeout(t, opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.String() != "[12:00:00 INFO SMAPI] hello\n" {
		t.Fatalf("output = %q", out.String())
	}
	mirrored, err := os.ReadFile(opts.MirrorPath)
	if err != nil {
		t.Fatalf("read mirror: %v", err)
	}
	if string(mirrored) != "[12:00:00 INFO SMAPI] hello\n[12:00:01 TRACE Mod] quiet\n" {
		t.Fatalf("mirror = %q", mirrored)
	}
}

func TestRunRejectsUnknownEncoding(t *testing.T) {
	opts, _ := baseOptions(t)
	opts.Mode = ModeRun
	opts.SMAPIPath = "/bin/true"
	opts.Encoding = "latin1"

	err := runWithTimeout(t, opts)
	if err == nil || !strings.Contains(err.Error(), "unknown encoding") {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestViewerOptionsMergesPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := prefs.Save(path, prefs.Prefs{Theme: "Slate", Level: "warn", Raw: true}); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	engine := filter.NewEngine(logstore.New(0))
	cfg := config.Default()

	got := viewerOptions(context.Background(), cfg, Options{PrefsPath: path}, engine, &state.Store{}, &session{})
	if got.ThemeName != "Slate" || !got.Raw || got.Criteria.MinLevel != parse.LevelWarn {
		t.Fatalf("prefs not applied: theme=%s raw=%v level=%v", got.ThemeName, got.Raw, got.Criteria.MinLevel)
	}
	if got.Sender != nil {
		t.Fatal("sender must be nil without a child")
	}
	if got.PrefsPath != path || got.RefreshInterval != cfg.RefreshInterval {
		t.Fatalf("unexpected options: %+v", got)
	}

	flagged := Options{PrefsPath: path, Criteria: filter.Criteria{MinLevel: parse.LevelError}, Mode: ModeStdin}
	got = viewerOptions(context.Background(), cfg, flagged, engine, &state.Store{}, &session{})
	if got.Criteria.MinLevel != parse.LevelError {
		t.Fatalf("command-line level should win, got %v", got.Criteria.MinLevel)
	}
	if !got.InputTTY {
		t.Fatal("stdin sessions read keys from the terminal")
	}
}

func TestViewerOptionsConfigTheme(t *testing.T) {
	cfg := config.Default()
	cfg.Theme = "Slate"
	engine := filter.NewEngine(logstore.New(0))
	got := viewerOptions(context.Background(), cfg, Options{PrefsPath: filepath.Join(t.TempDir(), "none.toml")}, engine, &state.Store{}, &session{})
	if got.ThemeName != "Slate" {
		t.Fatalf("theme = %s, want config theme", got.ThemeName)
	}
	if got.Criteria.MinLevel != parse.LevelUnknown {
		t.Fatalf("level = %v, want all", got.Criteria.MinLevel)
	}
}

func TestModeString(t *testing.T) {
	tests := map[Mode]string{ModeFile: "log", ModeStdin: "stdin", ModeRemote: "remote", ModeRun: "run"}
	for mode, want := range tests {
		if mode.String() != want {
			t.Fatalf("Mode(%d).String() = %q, want %q", mode, mode.String(), want)
		}
	}
}
