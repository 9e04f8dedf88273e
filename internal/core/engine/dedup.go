package engine

import (
	"sync"

	"github.com/quotaflow/quotaflow/internal/core"
)

// inflight is the shared settlement of one in-flight request. All waiters on
// the same key receive the identical response or the identical error.
type inflight struct {
	done chan struct{}
	resp *core.Response
	err  error
}

// settle publishes the outcome and wakes every waiter. It must be called
// exactly once.
func (f *inflight) settle(resp *core.Response, err error) {
	f.resp = resp
	f.err = err
	close(f.done)
}

// dedupTable maps a request key to its pending in-flight entry so that
// concurrent identical requests share one execution.
type dedupTable struct {
	mu      sync.Mutex
	pending map[string]*inflight
}

// begin returns the existing in-flight entry for key, or registers and
// returns a fresh one. The second result is true when the caller owns the
// execution and must eventually call complete(key).
func (d *dedupTable) begin(key string) (*inflight, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[key]; ok {
		return existing, false
	}

	if d.pending == nil {
		d.pending = make(map[string]*inflight)
	}
	entry := &inflight{done: make(chan struct{})}
	d.pending[key] = entry
	return entry, true
}

// complete removes the entry for key. It runs on success and on failure, so
// a later request for the same key always triggers fresh work.
func (d *dedupTable) complete(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, key)
}
