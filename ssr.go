package asyncdata

import (
	"net/http"
	"net/textproto"
)

// Event returns the request being rendered; nil on the client.
func (a *App) Event() *RequestEvent {
	if a.IsClient() {
		return nil
	}
	return a.event
}

// RequestHeaders returns a copy of the incoming request headers, limited to
// include when given. The client has no request and gets an empty header.
func (a *App) RequestHeaders(include ...string) http.Header {
	out := http.Header{}
	ev := a.Event()
	if ev == nil || ev.Request == nil {
		return out
	}
	if len(include) == 0 {
		return ev.Request.Header.Clone()
	}
	for _, name := range include {
		name = textproto.CanonicalMIMEHeaderKey(name)
		if vs, ok := ev.Request.Header[name]; ok {
			out[name] = append([]string(nil), vs...)
		}
	}
	return out
}

// SetResponseStatus records the status of the rendered response. It is
// read back with ResponseStatus when the host writes the page. The client
// ignores it.
func (a *App) SetResponseStatus(code int, message string) {
	if a.IsClient() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = code
	if message != "" {
		a.statusText = message
	}
}

// ResponseStatus returns the recorded status (200 when none was set).
func (a *App) ResponseStatus() (code int, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	code = coalesce(a.status, http.StatusOK)
	return code, coalesce(a.statusText, http.StatusText(code))
}
