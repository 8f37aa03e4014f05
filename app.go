package asyncdata

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/asyncdata/events"
	gen "github.com/unkn0wn-root/asyncdata/genstore"
	"github.com/unkn0wn-root/asyncdata/reactive"
)

// App is one environment instance: one server request or one client session.
// It owns the keyed cache, the in-flight records, the payload document and
// the hydration state. Nothing in this package is process-global.
type App struct {
	id    string
	env   Env
	log   Logger
	hooks Hooks
	bus   *events.Bus
	sched *reactive.Scheduler
	gens  gen.GenStore

	ctx    context.Context
	cancel context.CancelFunc

	event   *RequestEvent
	client  Doer
	baseURL string
	handler http.Handler

	mu          sync.Mutex
	payload     *Document
	entries     map[string]*Entry
	inflight    map[string]*execution
	genTail     map[string]chan struct{}
	mountQueues map[Component]*mountQueue
	status      int
	statusText  string

	hydrating bool
	holders   int
	resolved  chan struct{}
}

type mountQueue struct {
	fns []func()
}

func newApp(opts AppOptions) (*App, error) {
	if opts.Env != EnvServer && opts.Env != EnvClient {
		return nil, fmt.Errorf("asyncdata: env is required")
	}
	if opts.Env == EnvServer && opts.Event != nil && opts.Event.Request == nil {
		return nil, fmt.Errorf("asyncdata: server event needs a request")
	}

	a := &App{
		id:          opts.ID,
		env:         opts.Env,
		event:       opts.Event,
		baseURL:     opts.BaseURL,
		handler:     opts.Handler,
		payload:     newDocument(),
		entries:     make(map[string]*Entry),
		inflight:    make(map[string]*execution),
		genTail:     make(map[string]chan struct{}),
		mountQueues: make(map[Component]*mountQueue),
		resolved:    make(chan struct{}),
	}
	if a.id == "" {
		a.id = uuid.NewString()
	}

	// defaults
	a.log = coalesce[Logger](opts.Logger, NopLogger{})
	a.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	a.client = coalesce[Doer](opts.Client, &http.Client{Timeout: defaultFetchTimeout})
	if opts.Bus != nil {
		a.bus = opts.Bus
	} else {
		a.bus = events.New()
	}
	if opts.Scheduler != nil {
		a.sched = opts.Scheduler
	} else {
		a.sched = reactive.NewScheduler()
	}
	if opts.GenStore != nil {
		a.gens = opts.GenStore
	} else {
		a.gens = gen.NewLocalGenStore()
	}
	base := opts.Context
	if base == nil {
		base = context.Background()
	}
	a.ctx, a.cancel = context.WithCancel(base)

	if opts.Payload != nil {
		p := opts.Payload.clone()
		a.payload.Data = p.Data
		if p.Errors != nil {
			a.payload.Errors = p.Errors
		}
		a.payload.ServerRendered = p.ServerRendered
		a.payload.Path = p.Path
	}
	if a.env == EnvServer {
		a.payload.ServerRendered = true
		if a.event != nil {
			a.payload.Path = a.event.Request.URL.Path
		}
	}

	// a client taking over server-rendered markup starts out hydrating
	a.hydrating = a.env == EnvClient && a.payload.ServerRendered
	if !a.hydrating {
		close(a.resolved)
	}

	a.log.Debug("app created", Fields{"app": a.id, "env": a.env.String(), "hydrating": a.hydrating})
	return a, nil
}

func (a *App) ID() string                     { return a.id }
func (a *App) Env() Env                       { return a.env }
func (a *App) IsServer() bool                 { return a.env == EnvServer }
func (a *App) IsClient() bool                 { return a.env == EnvClient }
func (a *App) Bus() *events.Bus               { return a.bus }
func (a *App) Scheduler() *reactive.Scheduler { return a.sched }
func (a *App) Logger() Logger                 { return a.log }

// Context is the base context executions derive from; it ends on Close.
func (a *App) Context() context.Context { return a.ctx }

// ServerRendered reports whether the payload comes from a server render.
func (a *App) ServerRendered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.payload.ServerRendered
}

// Close cancels the base context (in-flight producers see ctx.Done) and
// releases the generation store.
func (a *App) Close(ctx context.Context) error {
	a.cancel()
	return a.gens.Close(ctx)
}
