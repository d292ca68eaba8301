package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"github.com/five82/pufferwatch/internal/config"
	"github.com/five82/pufferwatch/internal/filter"
	"github.com/five82/pufferwatch/internal/logging"
	"github.com/five82/pufferwatch/internal/logstore"
	"github.com/five82/pufferwatch/internal/parse"
	"github.com/five82/pufferwatch/internal/pipeline"
	"github.com/five82/pufferwatch/internal/prefs"
	"github.com/five82/pufferwatch/internal/remote"
	"github.com/five82/pufferwatch/internal/source"
	"github.com/five82/pufferwatch/internal/state"
	"github.com/five82/pufferwatch/internal/supervisor"
	"github.com/five82/pufferwatch/internal/ui"
)

// Mode selects where the session's log comes from.
type Mode int

const (
	ModeFile Mode = iota
	ModeStdin
	ModeRemote
	ModeRun
)

func (m Mode) String() string {
	switch m {
	case ModeStdin:
		return "stdin"
	case ModeRemote:
		return "remote"
	case ModeRun:
		return "run"
	default:
		return "log"
	}
}

// childGrace is how long a child gets to exit after its input is closed.
const childGrace = 3 * time.Second

// Options configure a pufferwatch session.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/pufferwatch/prefs.toml
	OutputLog  string
	LogLevel   string

	Mode Mode

	// ModeFile
	LogPath string
	Follow  bool

	// ModeRemote
	URL    string
	Opener remote.Opener // nil uses remote.NewClient

	// ModeRun
	SMAPIPath  string
	Args       []string
	MirrorPath string
	Encoding   string // empty uses the config, then the platform default

	Criteria filter.Criteria

	// Print writes matching entries to Stdout instead of starting the viewer.
	Print  bool
	Stdin  io.Reader // nil uses os.Stdin
	Stdout io.Writer // nil uses os.Stdout
}

// session is the opened log source plus the child behind it, if any.
type session struct {
	src    source.Source
	child  *supervisor.Session
	follow bool
}

// Run opens the configured source, starts the producer and blocks in the
// viewer (or the printer) until the operator quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(opts.OutputLog, opts.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	grammar, err := cfg.Grammar()
	if err != nil {
		return fmt.Errorf("build grammar: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	status := &state.Store{}
	sess, err := openSession(ctx, cfg, opts, status, logger)
	if err != nil {
		return err
	}
	defer sess.close(logger)

	store := logstore.New(cfg.SegmentSize)
	producer := StartProducer(ctx, pipeline.New(sess.src, grammar, store, status, logger), logger)
	engine := filter.NewEngine(store)

	logger.Info().Str("mode", opts.Mode.String()).Str("source", sess.src.Name()).Bool("follow", sess.follow).Msg("session started")

	if opts.Print {
		err = printEntries(ctx, engine, opts.Criteria, stdoutOf(opts), producer, cfg.RefreshInterval)
	} else {
		err = ui.Run(viewerOptions(ctx, cfg, opts, engine, status, sess))
	}

	cancel()
	_ = sess.src.Close()
	if perr := producer.Wait(); perr != nil && !errors.Is(perr, context.Canceled) {
		logger.Debug().Err(perr).Msg("producer stopped")
	}
	return err
}

// viewerOptions merges saved preferences into the viewer settings. Filters
// given on the command line win over the saved level.
func viewerOptions(ctx context.Context, cfg config.Config, opts Options, engine *filter.Engine, status *state.Store, sess *session) ui.Options {
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	theme := cfg.Theme
	if userPrefs.Theme != "" {
		theme = userPrefs.Theme
	}
	criteria := opts.Criteria
	if criteria.MinLevel == parse.LevelUnknown && userPrefs.Level != "" {
		if level, ok := parse.ParseLevel(userPrefs.Level); ok {
			criteria.MinLevel = level
		}
	}

	uiOpts := ui.Options{
		Context:         ctx,
		Engine:          engine,
		Status:          status,
		Criteria:        criteria,
		Raw:             userPrefs.Raw,
		ThemeName:       theme,
		PrefsPath:       prefsPath,
		RefreshInterval: cfg.RefreshInterval,
		InputTTY:        opts.Mode == ModeStdin,
	}
	if sess.child != nil {
		uiOpts.Sender = sess.child
	}
	return uiOpts
}

// openSession builds the source for the selected mode.
func openSession(ctx context.Context, cfg config.Config, opts Options, status *state.Store, logger *log.Logger) (*session, error) {
	switch opts.Mode {
	case ModeFile:
		path, err := cfg.ResolveLogPath(opts.LogPath)
		if err != nil {
			return nil, err
		}
		f, err := source.OpenFile(path, source.FileOptions{
			Follow:       opts.Follow,
			PollInterval: cfg.PollInterval,
			ChunkSize:    cfg.ChunkSize,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		status.SetSource(path, opts.Follow)
		return &session{src: f, follow: opts.Follow}, nil

	case ModeStdin:
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		status.SetSource("stdin", true)
		return &session{src: source.NewReader("stdin", in, cfg.ChunkSize), follow: true}, nil

	case ModeRemote:
		opener := opts.Opener
		if opener == nil {
			opener = remote.NewClient()
		}
		body, err := opener.Open(ctx, opts.URL)
		if err != nil {
			status.Notify(source.ReasonIO, err)
			return nil, fmt.Errorf("fetch remote log: %w", err)
		}
		status.SetSource(opts.URL, false)
		return &session{src: source.NewReader(opts.URL, body, cfg.ChunkSize)}, nil

	case ModeRun:
		path, err := cfg.ResolveSMAPIPath(opts.SMAPIPath)
		if err != nil {
			return nil, err
		}
		name := opts.Encoding
		if name == "" {
			name = cfg.Encoding
		}
		enc, err := supervisor.ParseEncoding(name)
		if err != nil {
			return nil, err
		}
		child, err := supervisor.Start(supervisor.Options{
			Path:       path,
			Args:       opts.Args,
			Dir:        filepath.Dir(path),
			MirrorPath: opts.MirrorPath,
			Encoding:   enc,
			ChunkSize:  cfg.ChunkSize,
			Logger:     logger,
		})
		if err != nil {
			status.Notify(source.ReasonSpawnFailed, err)
			return nil, fmt.Errorf("start SMAPI: %w", err)
		}
		status.SetSource(path, true)
		status.SetChild(child.ID(), child.PID())
		return &session{src: child.Output(), child: child, follow: true}, nil
	}
	return nil, fmt.Errorf("unknown mode %d", opts.Mode)
}

// close releases the source and stops the child.
func (s *session) close(logger *log.Logger) {
	if s.child != nil {
		if err := s.child.Close(childGrace); err != nil {
			logger.Warn().Err(err).Str("session", s.child.ID()).Msg("close child")
		}
		return
	}
	if err := s.src.Close(); err != nil {
		logger.Debug().Err(err).Msg("close source")
	}
}

func stdoutOf(opts Options) io.Writer {
	if opts.Stdout != nil {
		return opts.Stdout
	}
	return os.Stdout
}
