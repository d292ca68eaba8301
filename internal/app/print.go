package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/five82/pufferwatch/internal/filter"
	"github.com/five82/pufferwatch/internal/logstore"
)

const printView = "print"

// printEntries writes every entry that passes criteria to w as raw text, in
// order, until the producer stops or ctx is cancelled. A new generation is
// announced with a separator line and printed from its start.
func printEntries(ctx context.Context, engine *filter.Engine, criteria filter.Criteria, w io.Writer, producer *Producer, every time.Duration) error {
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	out := bufio.NewWriter(w)
	view := engine.Add(printView, criteria.Predicate())
	defer engine.Remove(printView)

	printed := 0
	restarts := view.Restarts()
	flush := func() error {
		view.Refresh()
		if r := view.Restarts(); r != restarts {
			restarts = r
			printed = 0
			fmt.Fprintf(out, "--- log restarted (generation %d) ---\n", view.Generation().ID())
		}
		for _, e := range view.Window(printed, view.Count()) {
			if err := writeEntry(out, e); err != nil {
				return err
			}
		}
		printed = view.Count()
		if err := out.Flush(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-producer.Done():
			return flush()
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func writeEntry(w io.Writer, e logstore.Entry) error {
	if _, err := w.Write(e.Raw); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
