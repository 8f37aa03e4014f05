package asyncdata

import "maps"

// Document is the server-to-client handoff: every materialized value and
// normalized error keyed by async-data key, plus whether the page was
// rendered on the server. It is embedded in the rendered output and restored
// by the client before hydration begins.
type Document struct {
	Data           map[string]any           `json:"data" msgpack:"data" cbor:"data"`
	Errors         map[string]*PayloadError `json:"errors,omitempty" msgpack:"errors,omitempty" cbor:"errors,omitempty"`
	ServerRendered bool                     `json:"serverRendered" msgpack:"serverRendered" cbor:"serverRendered"`
	Path           string                   `json:"path,omitempty" msgpack:"path,omitempty" cbor:"path,omitempty"`
}

func newDocument() *Document {
	return &Document{
		Data:   make(map[string]any),
		Errors: make(map[string]*PayloadError),
	}
}

func (d *Document) clone() Document {
	out := Document{
		Data:           maps.Clone(d.Data),
		Errors:         maps.Clone(d.Errors),
		ServerRendered: d.ServerRendered,
		Path:           d.Path,
	}
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	return out
}

// cached reports the last known good value for key. Presence is what counts:
// a stored nil (a failed execution with a nil default) is still a value.
func (d *Document) cached(key string) (any, bool) {
	v, ok := d.Data[key]
	return v, ok
}

// Payload returns a copy of the current handoff document.
func (a *App) Payload() Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payload.clone()
}

// PayloadData returns the payload value stored for key.
func (a *App) PayloadData(key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payload.cached(key)
}

// UseData returns the shared entry for key, creating it when no call site
// has registered it yet. A new entry starts from the payload value (nil when
// absent) and follows every later execution and SetData for the key.
func (a *App) UseData(key string) (*Entry, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entryLocked(key, nil), nil
}

// SetData replaces the value of key in the entry and the payload, the way an
// optimistic update writes through the data ref. A running execution still
// overwrites it when it settles.
func (a *App) SetData(key string, v any) error {
	if key == "" {
		return ErrInvalidKey
	}
	a.mu.Lock()
	e := a.entryLocked(key, nil)
	e.update(func(st *State) { st.Data = v })
	a.payload.Data[key] = v
	a.mu.Unlock()
	a.sched.Flush()
	return nil
}
