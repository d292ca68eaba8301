package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/five82/pufferwatch/internal/logging"
	"github.com/five82/pufferwatch/internal/source"
)

// Options describes the child to run.
type Options struct {
	Path string
	Args []string
	Dir  string
	// MirrorPath, when set, receives a copy of every chunk of child output.
	// The file is truncated when the session starts.
	MirrorPath string
	Encoding   Encoding
	ChunkSize  int
	Logger     *log.Logger
}

// Session is a running child process. Its combined stdout and stderr are
// exposed as a source.Source and operator commands are forwarded to its
// standard input. The session outlives the child: after exit the output source
// reports end of stream and Send returns ErrInputClosed.
type Session struct {
	id   string
	path string
	cmd  *exec.Cmd
	enc  Encoding
	log  *log.Logger

	output source.Source
	mirror *os.File

	inMu     sync.Mutex
	stdin    io.WriteCloser
	inClosed bool

	group   errgroup.Group
	done    chan struct{}
	exitErr error

	closeOnce sync.Once
}

// Start spawns the child. Failure to start is returned as a *SpawnError.
func Start(opts Options) (*Session, error) {
	logger := logging.OrDiscard(opts.Logger)
	if opts.Path == "" {
		return nil, &SpawnError{Kind: SpawnNotFound, Path: opts.Path, Err: errors.New("no executable given")}
	}

	cmd := exec.Command(opts.Path, opts.Args...)
	cmd.Dir = opts.Dir
	if cmd.Err != nil {
		return nil, classifySpawn(opts.Path, cmd.Err)
	}

	// Mirror first: a bad mirror path must not leave pipes open.
	var mirror *os.File
	if opts.MirrorPath != "" {
		if dir := filepath.Dir(opts.MirrorPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create mirror directory: %w", err)
			}
		}
		f, err := os.Create(opts.MirrorPath)
		if err != nil {
			return nil, fmt.Errorf("create mirror file: %w", err)
		}
		mirror = f
	}
	closeMirror := func() {
		if mirror != nil {
			mirror.Close()
		}
	}

	r, w, err := os.Pipe()
	if err != nil {
		closeMirror()
		return nil, &SpawnError{Kind: SpawnPlatform, Path: opts.Path, Err: fmt.Errorf("create output pipe: %w", err)}
	}
	cmd.Stdout = w
	cmd.Stderr = w

	stdin, err := cmd.StdinPipe()
	if err != nil {
		r.Close()
		w.Close()
		closeMirror()
		return nil, &SpawnError{Kind: SpawnPlatform, Path: opts.Path, Err: fmt.Errorf("create input pipe: %w", err)}
	}

	// On failure Start closes the parent end of the input pipe itself.
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		closeMirror()
		return nil, classifySpawn(opts.Path, err)
	}
	// The child holds its own copy of the write end; closing ours lets the
	// reader see EOF once the child exits.
	w.Close()

	s := &Session{
		id:     uuid.NewString(),
		path:   opts.Path,
		cmd:    cmd,
		enc:    opts.Encoding,
		log:    logger,
		mirror: mirror,
		stdin:  stdin,
		done:   make(chan struct{}),
	}

	var out source.Source = &childOutput{Reader: source.NewReader("child", r, opts.ChunkSize), session: s}
	if mirror != nil {
		out = source.NewTee(out, mirror, func(err error) {
			logger.Warn().Err(err).Str("path", opts.MirrorPath).Msg("mirror write failed, mirroring stopped")
		})
	}
	s.output = out

	s.group.Go(func() error {
		err := cmd.Wait()
		s.exitErr = err
		close(s.done)
		s.log.Info().Str("session", s.id).Int("pid", cmd.Process.Pid).Err(err).Msg("child exited")
		return nil
	})

	logger.Info().Str("session", s.id).Str("path", opts.Path).Strs("args", opts.Args).Int("pid", cmd.Process.Pid).Str("encoding", opts.Encoding.String()).Msg("child started")
	return s, nil
}

// ID is a unique identifier for the session, used in diagnostics.
func (s *Session) ID() string { return s.id }

// Path returns the executable path.
func (s *Session) Path() string { return s.path }

// PID returns the child's process id.
func (s *Session) PID() int { return s.cmd.Process.Pid }

// Output returns the child's combined output as a Source.
func (s *Session) Output() source.Source { return s.output }

// Done is closed when the child has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitErr returns the child's exit error. It is only meaningful after Done is
// closed.
func (s *Session) ExitErr() error {
	select {
	case <-s.done:
		return s.exitErr
	default:
		return nil
	}
}

// Send writes line followed by a newline to the child's standard input in the
// session's encoding.
func (s *Session) Send(line string) error {
	data, err := s.enc.Encode(line + "\n")
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	s.inMu.Lock()
	defer s.inMu.Unlock()
	if s.inClosed {
		return ErrInputClosed
	}
	select {
	case <-s.done:
		s.inClosed = true
		return ErrInputClosed
	default:
	}
	if _, err := s.stdin.Write(data); err != nil {
		s.inClosed = true
		return fmt.Errorf("%w: %w", ErrInputClosed, err)
	}
	return nil
}

// Close terminates the child if it is still running and releases every handle.
// It waits up to grace for the child to exit after its input is closed before
// killing it.
func (s *Session) Close(grace time.Duration) error {
	var err error
	s.closeOnce.Do(func() {
		s.inMu.Lock()
		if !s.inClosed {
			s.inClosed = true
			_ = s.stdin.Close()
		}
		s.inMu.Unlock()

		select {
		case <-s.done:
		case <-time.After(grace):
			if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				s.log.Warn().Err(kerr).Str("session", s.id).Msg("kill child")
			}
		}
		_ = s.group.Wait()
		err = s.output.Close()
		if s.mirror != nil {
			if cerr := s.mirror.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

// childOutput reports the child's exit as the end of the stream.
type childOutput struct {
	*source.Reader
	session *Session
}

func (c *childOutput) Next(ctx context.Context) (source.Event, error) {
	ev, err := c.Reader.Next(ctx)
	if err != nil || ev.Kind != source.EventEOF {
		return ev, err
	}
	select {
	case <-c.session.done:
	case <-ctx.Done():
		return source.Event{}, ctx.Err()
	}
	return source.Event{Kind: source.EventEOF, Reason: source.ReasonChildExited, Err: c.session.exitErr}, nil
}
