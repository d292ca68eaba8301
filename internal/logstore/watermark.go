package logstore

import (
	"fmt"
	"sync/atomic"
)

// Watermark is a count published by a single writer and observed by any number
// of readers. The writer finishes every write covered by the new value before
// calling Advance; a reader that Loads a value may then read everything below
// it without further synchronization.
type Watermark struct {
	n atomic.Uint64
}

// Load returns the current value.
func (w *Watermark) Load() uint64 {
	return w.n.Load()
}

// Advance publishes n. It must be the last step of a write and panics if n
// would move the watermark backwards.
func (w *Watermark) Advance(n uint64) {
	if cur := w.n.Load(); n < cur {
		panic(fmt.Sprintf("logstore: watermark moved backwards (%d < %d)", n, cur))
	}
	w.n.Store(n)
}
