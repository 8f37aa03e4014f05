package asyncdata

import (
	"context"
	"net/http"

	"github.com/unkn0wn-root/asyncdata/events"
	gen "github.com/unkn0wn-root/asyncdata/genstore"
	"github.com/unkn0wn-root/asyncdata/reactive"
)

// Env tags an App with where it runs. It is fixed at construction and never
// inferred.
type Env uint8

const (
	EnvServer Env = iota + 1
	EnvClient
)

func (e Env) String() string {
	switch e {
	case EnvServer:
		return "server"
	case EnvClient:
		return "client"
	}
	return "unknown"
}

// Hook names fired on the App bus.
const (
	HookAppCreated        = "app:created"
	HookAppRendered       = "app:rendered"
	HookAppError          = "app:error"
	HookDataRefresh       = "app:data:refresh"
	HookHydrationResolved = "app:suspense:resolve"
)

// RequestEvent is the server request being rendered.
type RequestEvent struct {
	Request  *http.Request
	Response http.ResponseWriter
}

// AppOptions configure one App. Only Env is required; others have sensible
// defaults.
type AppOptions struct {
	// Required
	Env Env

	// Server: the request being rendered (cookies, local fetches, headers).
	Event *RequestEvent
	// Client: the document restored from the server render. Server: optional
	// seed merged into the fresh payload.
	Payload *Document

	Context   context.Context     // base context for executions; nil => Background
	ID        string              // if empty, a random UUID
	Logger    Logger              // if nil, NopLogger is used
	Hooks     Hooks               // if nil, NopHooks is used
	Bus       *events.Bus         // if nil, a private bus
	Scheduler *reactive.Scheduler // if nil, a private scheduler
	GenStore  gen.GenStore        // nil => LocalGenStore

	// Fetch defaults.
	Client  Doer         // nil => http.Client with a 30s timeout
	BaseURL string       // prefix for relative fetch targets
	Handler http.Handler // server: serves path-relative fetches in-process
}

// New builds the environment context every other component takes as an
// explicit dependency.
func New(opts AppOptions) (*App, error) {
	return newApp(opts)
}
