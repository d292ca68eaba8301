package source

import (
	"context"
	"io"
)

// Tee mirrors every data chunk of a Source to a writer. A failed write stops
// mirroring and is reported once through OnError; the source keeps flowing.
type Tee struct {
	Source
	w       io.Writer
	onError func(error)
	failed  bool
}

// NewTee wraps src. onError may be nil.
func NewTee(src Source, w io.Writer, onError func(error)) *Tee {
	return &Tee{Source: src, w: w, onError: onError}
}

// Next implements Source.
func (t *Tee) Next(ctx context.Context) (Event, error) {
	ev, err := t.Source.Next(ctx)
	if err != nil || ev.Kind != EventData || t.failed {
		return ev, err
	}
	if _, werr := t.w.Write(ev.Data); werr != nil {
		t.failed = true
		if t.onError != nil {
			t.onError(&Error{Reason: ReasonIO, Op: "write mirror", Err: werr})
		}
	}
	return ev, nil
}
