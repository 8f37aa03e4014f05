// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SupersededEvery: 10, // sample: ~every 10th superseded execution
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	app, _ := asyncdata.New(asyncdata.AppOptions{
//	    Env:   asyncdata.EnvServer,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/asyncdata"
)

// Hooks moves hook delivery off the settlement path. Events are dropped
// (and counted) when the queue is full.
type Hooks struct {
	inner   asyncdata.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ asyncdata.Hooks = (*Hooks)(nil)

func New(inner asyncdata.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) ExecutionSuperseded(k string)     { h.try(func() { h.inner.ExecutionSuperseded(k) }) }
func (h *Hooks) ExecutionFailed(k string, e error) { h.try(func() { h.inner.ExecutionFailed(k, e) }) }
func (h *Hooks) HydrationReused(k string)          { h.try(func() { h.inner.HydrationReused(k) }) }
func (h *Hooks) GenError(k string, e error)        { h.try(func() { h.inner.GenError(k, e) }) }
func (h *Hooks) PayloadSelfHeal(k, r string)       { h.try(func() { h.inner.PayloadSelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)      { h.try(func() { h.inner.ProviderSetRejected(k) }) }
