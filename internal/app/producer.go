package app

import (
	"context"
	"errors"

	"github.com/phuslu/log"

	"github.com/five82/pufferwatch/internal/logging"
	"github.com/five82/pufferwatch/internal/pipeline"
)

// Producer is the background goroutine that owns the pipeline.
type Producer struct {
	done chan struct{}
	err  error
}

// StartProducer launches a background goroutine that runs the pipeline until
// the source ends or ctx is cancelled. It returns immediately.
func StartProducer(ctx context.Context, p *pipeline.Pipeline, logger *log.Logger) *Producer {
	logger = logging.OrDiscard(logger)
	pr := &Producer{done: make(chan struct{})}
	go func() {
		defer close(pr.done)
		pr.err = p.Run(ctx)
		switch {
		case pr.err == nil:
			logger.Debug().Msg("producer finished")
		case errors.Is(pr.err, context.Canceled):
		default:
			// The viewer keeps showing what was committed; the failure is
			// already on the status bar.
			logger.Warn().Err(pr.err).Msg("producer failed")
		}
	}()
	return pr
}

// Done is closed when the pipeline has stopped.
func (p *Producer) Done() <-chan struct{} { return p.done }

// Wait blocks until the pipeline has stopped and returns its result.
func (p *Producer) Wait() error {
	<-p.done
	return p.err
}
