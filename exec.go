package asyncdata

import (
	"context"
	"fmt"
)

// DedupeMode selects what happens when an execution starts while another
// one for the same key is still in flight.
type DedupeMode uint8

const (
	// DedupeDefault defers to the handle's configured mode, then DedupeCancel.
	DedupeDefault DedupeMode = iota
	// DedupeCancel supersedes the running execution; its result is dropped.
	DedupeCancel
	// DedupeDefer joins the running execution; the producer is not called.
	DedupeDefer
)

func (m DedupeMode) String() string {
	switch m {
	case DedupeCancel:
		return "cancel"
	case DedupeDefer:
		return "defer"
	}
	return "default"
}

// ExecuteOptions tune a single execution.
type ExecuteOptions struct {
	Dedupe DedupeMode

	// set for the first execution a call site starts on its own
	initial bool
}

// execution is the in-flight record of one producer run. gen is the token
// it was started with; only the run goroutine writes it.
type execution struct {
	key  string
	gen  uint64
	fut  *Future
	turn genTurn
}

// runner is what the controller needs from an engine handle.
type runner struct {
	produce func(ctx context.Context) (any, error)
	post    func(any) (any, error) // transform + pick, may be nil
	def     func() any
}

// execute starts (or joins, or skips) an execution for key and returns its
// future. It never blocks on the producer or on the generation store.
func (a *App) execute(key string, r runner, opts ExecuteOptions) *Future {
	a.mu.Lock()
	superseded := false
	if cur, ok := a.inflight[key]; ok {
		if opts.Dedupe == DedupeDefer {
			a.mu.Unlock()
			return cur.fut
		}
		// the new record's bump below invalidates the old token
		delete(a.inflight, key)
		superseded = true
	}

	if opts.initial || a.hydrating {
		if v, ok := a.payload.cached(key); ok {
			if e, ok := a.entries[key]; ok && superseded {
				// nothing is in flight any more; the payload value wins
				a.adoptLocked(e, v)
			}
			a.mu.Unlock()
			a.sched.Flush()
			a.hooks.HydrationReused(key)
			a.log.Debug("asyncdata: reused payload value", Fields{"key": key})
			return settled
		}
	}

	e := a.entryLocked(key, r.def)
	rec := &execution{key: key, fut: newFuture(), turn: a.genTurnLocked(key)}
	a.inflight[key] = rec
	e.update(func(st *State) {
		st.Pending = true
		st.Status = StatusPending
	})
	a.mu.Unlock()
	a.sched.Flush()

	a.log.Debug("asyncdata: execution started", Fields{"key": key})
	go a.run(rec, e, r)
	return rec.fut
}

// genTurn orders generation store calls for one key in the order they were
// requested under a.mu, while the calls themselves run without the lock.
type genTurn struct {
	prev <-chan struct{}
	done chan struct{}
}

func (a *App) genTurnLocked(key string) genTurn {
	t := genTurn{prev: a.genTail[key], done: make(chan struct{})}
	a.genTail[key] = t.done
	return t
}

// bump waits for the earlier turns on key, then bumps its generation.
func (a *App) bump(ctx context.Context, key string, t genTurn) (uint64, error) {
	defer func() {
		close(t.done)
		a.mu.Lock()
		if a.genTail[key] == t.done {
			delete(a.genTail, key)
		}
		a.mu.Unlock()
	}()
	if t.prev != nil {
		<-t.prev
	}
	return a.gens.Bump(ctx, key)
}

// invalidate bumps the generations of keys whose in-flight records were
// dropped, so other holders of a shared store see the change. Failures are
// reported only; the records are gone either way.
func (a *App) invalidate(turns map[string]genTurn) {
	for key, t := range turns {
		if _, err := a.bump(context.Background(), key, t); err != nil {
			a.hooks.GenError(key, err)
			a.log.Warn("asyncdata: generation bump failed", Fields{"key": key, "err": err})
		}
	}
}

func (a *App) run(rec *execution, e *Entry, r runner) {
	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	tok, err := a.bump(ctx, rec.key, rec.turn)
	if err != nil {
		a.settle(rec, e, r, nil, fmt.Errorf("asyncdata: generation bump: %w", err), err)
		return
	}
	rec.gen = tok
	a.log.Debug("asyncdata: execution token", Fields{"key": rec.key, "gen": tok})

	v, err := guard(func() (any, error) { return r.produce(ctx) })
	if err == nil && r.post != nil {
		in := v
		v, err = guard(func() (any, error) { return r.post(in) })
	}

	cur, gerr := a.gens.Snapshot(ctx, rec.key)
	switch {
	case gerr != nil:
		// the token cannot be checked; the entry reports the store failure
		// instead of staying pending
		v, err = nil, fmt.Errorf("asyncdata: generation snapshot: %w", gerr)
	case cur != rec.gen:
		a.abandon(rec, e)
		return
	}
	a.settle(rec, e, r, v, err, gerr)
}

// guard turns a panic in fn into a *PanicError.
func guard(fn func() (any, error)) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, &PanicError{Value: p}
		}
	}()
	return fn()
}

// settle publishes the outcome of rec if it is still the in-flight record for
// its key. gerr is the generation store failure behind err, if any.
func (a *App) settle(rec *execution, e *Entry, r runner, v any, err, gerr error) {
	a.mu.Lock()
	if a.inflight[rec.key] != rec {
		a.mu.Unlock()
		a.dropStale(rec)
		return
	}

	if err != nil {
		a.failLocked(rec.key, e, r, err)
	} else {
		e.update(func(st *State) {
			st.Data = v
			st.Err = nil
			st.Pending = false
			st.Status = StatusSuccess
		})
		a.payload.Data[rec.key] = v
		delete(a.payload.Errors, rec.key)
	}
	delete(a.inflight, rec.key)
	a.mu.Unlock()
	a.sched.Flush()

	switch {
	case gerr != nil:
		a.hooks.GenError(rec.key, gerr)
		a.log.Warn("asyncdata: generation store failed", Fields{"key": rec.key, "err": gerr})
	case err != nil:
		a.hooks.ExecutionFailed(rec.key, err)
		a.log.Warn("asyncdata: execution failed", Fields{"key": rec.key, "err": err})
	}
	rec.fut.resolve()
}

// abandon handles a record whose generation was bumped outside this App. The
// result is dropped and, if nothing newer is running here, the entry leaves
// the pending state without a new value.
func (a *App) abandon(rec *execution, e *Entry) {
	a.mu.Lock()
	if a.inflight[rec.key] != rec {
		a.mu.Unlock()
		a.dropStale(rec)
		return
	}
	delete(a.inflight, rec.key)
	e.update(func(st *State) {
		st.Pending = false
		if st.Status == StatusPending {
			st.Status = StatusIdle
		}
	})
	a.mu.Unlock()
	a.sched.Flush()

	a.hooks.ExecutionSuperseded(rec.key)
	a.log.Debug("asyncdata: generation moved, dropped result", Fields{"key": rec.key, "gen": rec.gen})
	rec.fut.resolve()
}

// dropStale resolves the future of a superseded record once the key is
// settled again.
func (a *App) dropStale(rec *execution) {
	a.hooks.ExecutionSuperseded(rec.key)
	a.log.Debug("asyncdata: dropped stale result", Fields{"key": rec.key, "gen": rec.gen})
	<-a.inflightFuture(rec.key).Done()
	rec.fut.resolve()
}

// adoptLocked settles e from the payload value v and the payload error for
// its key. Caller holds a.mu.
func (a *App) adoptLocked(e *Entry, v any) {
	pe, failed := a.payload.Errors[e.key]
	e.update(func(st *State) {
		st.Data = v
		st.Pending = false
		st.Err = nil
		st.Status = StatusSuccess
		if failed && pe != nil {
			st.Err = pe
			st.Status = StatusError
		}
	})
}

// failLocked moves the entry to the error state and mirrors it into the
// payload. Caller holds a.mu.
func (a *App) failLocked(key string, e *Entry, r runner, err error) {
	var def any
	if r.def != nil {
		def = r.def()
	}
	e.update(func(st *State) {
		st.Err = err
		st.Data = def
		st.Pending = false
		st.Status = StatusError
	})
	a.payload.Data[key] = def
	a.payload.Errors[key] = NormalizeError(err)
}

// inflightFuture returns the future of the running execution for key, or a
// resolved one.
func (a *App) inflightFuture(key string) *Future {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok := a.inflight[key]; ok {
		return rec.fut
	}
	return settled
}
