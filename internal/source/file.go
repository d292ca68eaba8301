package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"

	"github.com/five82/pufferwatch/internal/logging"
)

// DefaultPollInterval is the follow-mode polling interval used when none is
// configured.
const DefaultPollInterval = 250 * time.Millisecond

// FileOptions configures a File source.
type FileOptions struct {
	// Follow keeps the source open at end of file, waiting for more data.
	Follow bool
	// PollInterval bounds how long a follower waits between size checks when
	// no filesystem notification arrives.
	PollInterval time.Duration
	ChunkSize    int
	Logger       *log.Logger
}

// File reads a log file once, or follows it as it grows. A follower watches
// the file's directory with fsnotify and also polls, so missed notifications
// only delay updates by one interval.
//
// While following, a shrinking file or a file replaced at the same path (a new
// identity) produces an EventReset and reading restarts from offset zero. A
// file that temporarily disappears is not an error.
type File struct {
	path string
	opts FileOptions
	log  *log.Logger

	mu     sync.Mutex
	f      *os.File
	info   os.FileInfo
	offset int64
	buf    []byte
	eof    bool

	watcher   *fsnotify.Watcher
	ticker    *time.Ticker
	closed    chan struct{}
	closeOnce sync.Once
}

// OpenFile opens path for reading. Failure to open is a terminal error.
func OpenFile(path string, opts FileOptions) (*File, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Reason: ReasonIO, Op: "open log", Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &Error{Reason: ReasonIO, Op: "stat log", Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &Error{Reason: ReasonIO, Op: "open log", Err: errors.New(path + " is a directory")}
	}

	src := &File{
		path:   filepath.Clean(path),
		opts:   opts,
		log:    logging.OrDiscard(opts.Logger),
		f:      f,
		info:   info,
		buf:    make([]byte, opts.ChunkSize),
		closed: make(chan struct{}),
	}

	if opts.Follow {
		src.ticker = time.NewTicker(opts.PollInterval)
		w, err := fsnotify.NewWatcher()
		if err != nil {
			src.log.Warn().Err(err).Msg("file notifications unavailable, polling only")
		} else if err := w.Add(filepath.Dir(src.path)); err != nil {
			src.log.Warn().Err(err).Str("path", src.path).Msg("watch log directory failed, polling only")
			w.Close()
		} else {
			src.watcher = w
		}
	}
	return src, nil
}

// Name returns the file path.
func (s *File) Name() string { return s.path }

// Next implements Source.
func (s *File) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		select {
		case <-s.closed:
			return Event{}, ErrClosed
		default:
		}

		ev, ok, err := s.step()
		if err != nil || ok {
			return ev, err
		}
		if err := s.wait(ctx); err != nil {
			return Event{}, err
		}
	}
}

// step performs one non-blocking read attempt. ok is false when the caller
// should wait for the file to change.
func (s *File) step() (Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return Event{}, false, ErrClosed
	default:
	}
	if s.f == nil {
		return s.reopen()
	}

	n, err := s.f.Read(s.buf)
	if n > 0 {
		s.offset += int64(n)
		return Event{Kind: EventData, Data: s.buf[:n]}, true, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return Event{}, false, &Error{Reason: ReasonIO, Op: "read log", Err: err}
	}

	if !s.opts.Follow {
		if s.eof {
			return Event{}, false, io.EOF
		}
		s.eof = true
		return Event{Kind: EventEOF, Reason: ReasonEOF}, true, nil
	}
	return s.checkReplaced()
}

// checkReplaced detects truncation or replacement at end of file.
func (s *File) checkReplaced() (Event, bool, error) {
	onDisk, err := os.Stat(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Mid-rotation. The open handle is kept until a file reappears.
		return Event{}, false, nil
	case err != nil:
		s.log.Debug().Err(err).Str("path", s.path).Msg("stat followed log")
		return Event{}, false, nil
	}

	if !os.SameFile(onDisk, s.info) {
		s.log.Info().Str("path", s.path).Msg("log file replaced")
		s.f.Close()
		s.f = nil
		return s.reopen()
	}

	if onDisk.Size() < s.offset {
		s.log.Info().Str("path", s.path).Int64("offset", s.offset).Int64("size", onDisk.Size()).Msg("log file truncated")
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return Event{}, false, &Error{Reason: ReasonIO, Op: "rewind log", Err: err}
		}
		s.offset = 0
		s.info = onDisk
		return Event{Kind: EventReset, Reason: ReasonReset}, true, nil
	}
	return Event{}, false, nil
}

// reopen opens the file found at the path after a replacement. A missing
// file means waiting.
func (s *File) reopen() (Event, bool, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, &Error{Reason: ReasonIO, Op: "reopen log", Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Event{}, false, &Error{Reason: ReasonIO, Op: "stat log", Err: err}
	}
	s.f = f
	s.info = info
	s.offset = 0
	return Event{Kind: EventReset, Reason: ReasonReset}, true, nil
}

func (s *File) wait(ctx context.Context) error {
	var events <-chan fsnotify.Event
	var errs <-chan error
	if s.watcher != nil {
		events = s.watcher.Events
		errs = s.watcher.Errors
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return ErrClosed
		case <-s.ticker.C:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == s.path {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Debug().Err(err).Msg("file watcher error")
		}
	}
}

// Close stops following and releases the file.
func (s *File) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ticker != nil {
			s.ticker.Stop()
		}
		if s.watcher != nil {
			s.watcher.Close()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.f != nil {
			err = s.f.Close()
			s.f = nil
		}
	})
	return err
}
