package source

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Reader adapts a blocking io.Reader (stdin, an HTTP response body, a pipe)
// to a Source. A background goroutine performs the reads so that Next can
// return as soon as ctx is done or Close is called.
type Reader struct {
	name   string
	r      io.Reader
	chunks chan readResult
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
	eofSent   bool
}

type readResult struct {
	data []byte
	err  error
}

// NewReader starts reading r in chunks of chunkSize bytes. If r is also an
// io.Closer it is closed by Close, which unblocks the pending read.
func NewReader(name string, r io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	s := &Reader{
		name:   name,
		r:      r,
		chunks: make(chan readResult, 4),
		done:   make(chan struct{}),
	}
	go s.pump(chunkSize)
	return s
}

func (s *Reader) pump(chunkSize int) {
	defer close(s.chunks)
	for {
		buf := make([]byte, chunkSize)
		n, err := s.r.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- readResult{data: buf[:n]}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			select {
			case s.chunks <- readResult{err: err}:
			case <-s.done:
			}
			return
		}
	}
}

// Name returns the label given to NewReader.
func (s *Reader) Name() string { return s.name }

// Next implements Source.
func (s *Reader) Next(ctx context.Context) (Event, error) {
	if s.eofSent {
		return Event{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-s.done:
		return Event{}, ErrClosed
	case res, ok := <-s.chunks:
		switch {
		case !ok, errors.Is(res.err, io.EOF):
			s.eofSent = true
			return Event{Kind: EventEOF, Reason: ReasonEOF}, nil
		case res.err != nil:
			select {
			case <-s.done:
				return Event{}, ErrClosed
			default:
			}
			return Event{}, &Error{Reason: ReasonIO, Op: "read " + s.name, Err: res.err}
		}
		return Event{Kind: EventData, Data: res.data}, nil
	}
}

// Close stops reading. Bytes still buffered are dropped.
func (s *Reader) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if c, ok := s.r.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})
	return s.closeErr
}
