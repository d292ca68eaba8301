// Package pipeline runs the single producer of a session: it pulls chunks from
// a Source, parses them into records and commits them to the log store.
//
// The producer only blocks inside Source.Next. On a reset it drops its parse
// state and starts a new store generation. On end of stream the trailing entry
// is committed. On cancellation nothing more is committed: the record being
// built and any unterminated line are discarded.
package pipeline

import (
	"context"
	"errors"

	"github.com/phuslu/log"

	"github.com/five82/pufferwatch/internal/logging"
	"github.com/five82/pufferwatch/internal/logstore"
	"github.com/five82/pufferwatch/internal/parse"
	"github.com/five82/pufferwatch/internal/source"
)

// Reporter receives progress and source notifications. *state.Store
// implements it.
type Reporter interface {
	AddBytes(n int)
	Notify(reason source.Reason, err error)
}

// Pipeline connects one Source to one Store.
type Pipeline struct {
	source   source.Source
	parser   *parse.Parser
	store    *logstore.Store
	reporter Reporter
	log      *log.Logger
}

// New builds a pipeline. grammar may be nil for the default SMAPI grammar and
// reporter may be nil.
func New(src source.Source, grammar *parse.Grammar, store *logstore.Store, reporter Reporter, logger *log.Logger) *Pipeline {
	return &Pipeline{
		source:   src,
		parser:   parse.New(grammar),
		store:    store,
		reporter: reporter,
		log:      logging.OrDiscard(logger),
	}
}

// Run drives the pipeline until the source ends, fails or ctx is cancelled.
// It returns nil at end of stream, ctx.Err() on cancellation and the source
// error otherwise.
func (p *Pipeline) Run(ctx context.Context) error {
	p.log.Debug().Str("source", p.source.Name()).Msg("pipeline started")
	for {
		ev, err := p.source.Next(ctx)
		if err != nil {
			p.abandon()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, source.ErrClosed) {
				return nil
			}
			p.log.Error().Err(err).Str("source", p.source.Name()).Msg("source failed")
			p.notify(source.ReasonOf(err), err)
			return err
		}

		switch ev.Kind {
		case source.EventData:
			if p.reporter != nil {
				p.reporter.AddBytes(len(ev.Data))
			}
			if !p.feed(ctx, ev.Data) {
				p.abandon()
				return ctx.Err()
			}
			rec, ok := p.parser.Pending()
			p.store.SetPending(rec, ok)

		case source.EventReset:
			p.parser.Discard()
			gen := p.store.Reset()
			p.log.Info().Str("source", p.source.Name()).Uint64("generation", gen.ID()).Uint64("base", gen.Base()).Msg("source reset")
			p.notify(source.ReasonReset, nil)

		case source.EventEOF:
			if ctx.Err() != nil {
				p.abandon()
				return ctx.Err()
			}
			if !p.finish(ctx) {
				p.abandon()
				return ctx.Err()
			}
			p.store.SetPending(parse.Record{}, false)
			reason := ev.Reason
			if reason == 0 {
				reason = source.ReasonEOF
			}
			p.log.Info().Str("source", p.source.Name()).Uint64("committed", p.store.Committed()).Err(ev.Err).Msg("end of stream")
			p.notify(reason, ev.Err)
			return nil
		}
	}
}

// feed parses chunk and commits the completed records. It reports false when
// ctx was cancelled, in which case records after the cancellation point were
// not committed.
func (p *Pipeline) feed(ctx context.Context, chunk []byte) bool {
	ok := true
	p.parser.Feed(chunk, func(r parse.Record) {
		if !ok || ctx.Err() != nil {
			ok = false
			return
		}
		p.store.Append(r)
	})
	return ok
}

func (p *Pipeline) finish(ctx context.Context) bool {
	ok := true
	p.parser.Finish(func(r parse.Record) {
		if !ok || ctx.Err() != nil {
			ok = false
			return
		}
		p.store.Append(r)
	})
	return ok
}

// abandon drops uncommitted data.
func (p *Pipeline) abandon() {
	p.parser.Discard()
	p.store.SetPending(parse.Record{}, false)
}

func (p *Pipeline) notify(reason source.Reason, err error) {
	if p.reporter != nil {
		p.reporter.Notify(reason, err)
	}
}
