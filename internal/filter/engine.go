package filter

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/five82/pufferwatch/internal/logstore"
)

// Engine keeps a set of named views over one store and refreshes them
// together.
type Engine struct {
	store *logstore.Store

	mu    sync.Mutex
	views map[string]*View
	order []string
}

// NewEngine returns an engine with no views.
func NewEngine(store *logstore.Store) *Engine {
	return &Engine{store: store, views: make(map[string]*View)}
}

// Store returns the store the engine's views derive from.
func (e *Engine) Store() *logstore.Store { return e.store }

// Add creates a view under name, replacing any view of the same name. A
// changed predicate always means a new view with its cursor at zero.
func (e *Engine) Add(name string, pred Predicate) *View {
	v := NewView(e.store, name, pred)
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.views[name]; !exists {
		e.order = append(e.order, name)
	}
	e.views[name] = v
	return v
}

// View returns the named view.
func (e *Engine) View(name string) (*View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[name]
	return v, ok
}

// Remove drops the named view.
func (e *Engine) Remove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.views[name]; !ok {
		return
	}
	delete(e.views, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Views returns the views in creation order.
func (e *Engine) Views() []*View {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*View, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.views[name])
	}
	return out
}

// RefreshAll refreshes every view concurrently and returns the match counts
// keyed by view name. The caller must not refresh the same views elsewhere
// while this runs.
func (e *Engine) RefreshAll(ctx context.Context) (map[string]int, error) {
	views := e.Views()
	counts := make([]int, len(views))

	g, ctx := errgroup.WithContext(ctx)
	for i, v := range views {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			counts[i] = v.Refresh()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]int, len(views))
	for i, v := range views {
		out[v.name] = counts[i]
	}
	return out, nil
}
