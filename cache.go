package asyncdata

import (
	"maps"
	"slices"
)

// entryLocked returns the entry for key, creating it on first use. A new
// entry is seeded from the payload (falling back to def) and starts pending
// unless the payload already has a value. Caller holds a.mu.
func (a *App) entryLocked(key string, def func() any) *Entry {
	if e, ok := a.entries[key]; ok {
		return e
	}
	v, cached := a.payload.cached(key)
	if v == nil && def != nil {
		v = def()
	}
	st := State{Data: v, Pending: !cached, Status: StatusIdle}
	if pe, ok := a.payload.Errors[key]; ok && pe != nil {
		st.Err = pe
	}
	e := newEntry(key, a.sched, st)
	a.entries[key] = e
	return e
}

// Entry returns the entry registered for key, if any.
func (a *App) Entry(key string) (*Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	return e, ok
}

// Keys lists every key the App knows about: payload values, payload errors
// and registered entries. The result is sorted.
func (a *App) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keysLocked()
}

func (a *App) keysLocked() []string {
	set := make(map[string]struct{}, len(a.entries)+len(a.payload.Data))
	for k := range a.payload.Data {
		set[k] = struct{}{}
	}
	for k := range a.payload.Errors {
		set[k] = struct{}{}
	}
	for k := range a.entries {
		set[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// ClearData drops cached values and errors for keys (all known keys when
// none are given), resets their entries to idle and invalidates any running
// execution so its late result is discarded.
func (a *App) ClearData(keys ...string) {
	a.mu.Lock()
	if len(keys) == 0 {
		keys = a.keysLocked()
	}
	turns := a.clearLocked(keys)
	a.mu.Unlock()
	a.sched.Flush()
	if turns != nil {
		go a.invalidate(turns)
	}
}

// ClearDataFunc clears every known key match accepts.
func (a *App) ClearDataFunc(match func(key string) bool) {
	if match == nil {
		return
	}
	a.mu.Lock()
	var keys []string
	for _, k := range a.keysLocked() {
		if match(k) {
			keys = append(keys, k)
		}
	}
	turns := a.clearLocked(keys)
	a.mu.Unlock()
	a.sched.Flush()
	if turns != nil {
		go a.invalidate(turns)
	}
}

// clearLocked resets keys and drops their in-flight records. The returned
// turns must be passed to invalidate once a.mu is released.
func (a *App) clearLocked(keys []string) map[string]genTurn {
	var turns map[string]genTurn
	for _, k := range keys {
		delete(a.payload.Data, k)
		delete(a.payload.Errors, k)
		if _, ok := a.inflight[k]; ok {
			delete(a.inflight, k)
			if turns == nil {
				turns = make(map[string]genTurn)
			}
			turns[k] = a.genTurnLocked(k)
		}
		if e, ok := a.entries[k]; ok {
			e.update(func(st *State) {
				st.Data = nil
				st.Err = nil
				st.Pending = false
				st.Status = StatusIdle
			})
		}
	}
	if len(keys) > 0 {
		a.log.Debug("asyncdata: cleared", Fields{"keys": len(keys)})
	}
	return turns
}
