package main

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unkn0wn-root/asyncdata"
	"github.com/unkn0wn-root/asyncdata/codec"
	"github.com/unkn0wn-root/asyncdata/cookie"
	"github.com/unkn0wn-root/asyncdata/keyfilter"
	"github.com/unkn0wn-root/asyncdata/payloadstore"
)

// userKey is the call-site key both the server page and the client share.
const userKey = "page:user"

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var users = map[string]user{
	"1": {ID: "1", Name: "Ada"},
	"2": {ID: "2", Name: "Linus"},
}

type server struct {
	store  *payloadstore.Store
	loader *payloadstore.Loader
	log    asyncdata.Logger
	hooks  asyncdata.Hooks
	api    http.Handler

	mu     sync.Mutex
	routes map[string]struct{} // routes with a parked payload
}

func newServer(store *payloadstore.Store, log asyncdata.Logger, hooks asyncdata.Hooks) *server {
	s := &server{
		store:  store,
		log:    log,
		hooks:  hooks,
		api:    apiRouter(),
		routes: make(map[string]struct{}),
	}
	s.loader = payloadstore.NewLoader(store, func(ctx context.Context, route string) (asyncdata.Document, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, route, nil)
		if err != nil {
			return asyncdata.Document{}, err
		}
		doc, _, err := s.render(ctx, req, nil)
		if err == nil {
			s.remember(route)
		}
		return doc, err
	})
	return s
}

func apiRouter() http.Handler {
	r := chi.NewRouter()
	routeAPI(r)
	return r
}

// routeAPI registers the JSON endpoints pages fetch from. The page router
// and the in-process fetch handler share them.
func routeAPI(r chi.Router) {
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		u, ok := users[chi.URLParam(r, "id")]
		if !ok {
			http.Error(w, "no such user", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", codec.MediaJSON)
		_ = json.NewEncoder(w).Encode(u)
	})
}

func (s *server) routesHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	routeAPI(r)
	r.Get("/users/{id}", s.handlePage)
	r.Get("/_payload/*", s.handlePayload)
	r.Post("/_invalidate", s.handleInvalidate)
	return r
}

type page struct {
	User    user
	Missing bool
	Theme   string
	Served  string
	Payload template.JS
}

// render runs one server App for the route in req. w is nil when the render
// only feeds the payload store.
func (s *server) render(ctx context.Context, req *http.Request, w http.ResponseWriter) (asyncdata.Document, page, error) {
	var pg page
	app, err := asyncdata.New(asyncdata.AppOptions{
		Env:     asyncdata.EnvServer,
		Event:   &asyncdata.RequestEvent{Request: req, Response: w},
		Context: ctx,
		Logger:  s.log,
		Hooks:   s.hooks,
		Handler: s.api,
	})
	if err != nil {
		return asyncdata.Document{}, pg, err
	}
	defer app.Close(ctx)

	theme, err := cookie.Use(app, "theme", cookie.Options[string]{
		MaxAge:  365 * 24 * 3600,
		Default: func() string { return "light" },
	})
	if err != nil {
		return asyncdata.Document{}, pg, err
	}
	if t := req.URL.Query().Get("theme"); t != "" {
		theme.Set(t)
	}

	id := path.Base(req.URL.Path)
	u, err := asyncdata.UseFetch(app, asyncdata.URL("/api/users/"+id), asyncdata.FetchOptions[user]{AutoKey: userKey})
	if err != nil {
		return asyncdata.Document{}, pg, err
	}
	served, err := asyncdata.UseAsyncData(app, asyncdata.Options[string]{Key: "served-at"},
		func(context.Context, *asyncdata.App) (string, error) {
			return time.Now().UTC().Format(time.RFC3339), nil
		})
	if err != nil {
		return asyncdata.Document{}, pg, err
	}

	doc, err := app.Render(ctx, func(context.Context) error {
		if u.Error() != nil {
			app.SetResponseStatus(http.StatusNotFound, "")
			pg.Missing = true
		}
		pg.User = u.Data()
		pg.Theme = theme.Value()
		pg.Served = served.Data()
		return nil
	})
	return doc, pg, err
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html data-theme="{{.Theme}}">
<body>
{{if .Missing}}<p>No such user.</p>{{else}}<h1>{{.User.Name}}</h1>{{end}}
<footer>served {{.Served}}</footer>
<script id="__ASYNCDATA__" type="application/json">{{.Payload}}</script>
</body>
</html>
`))

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	route := r.URL.Path

	obs, gerr := s.store.SnapshotGen(ctx, route)
	doc, pg, err := s.render(ctx, r, w)
	if err != nil {
		s.log.Error("demo: render failed", asyncdata.Fields{"route": route, "err": err})
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if gerr == nil {
		if err := s.store.PutWithGen(ctx, route, doc, obs); err != nil {
			s.log.Warn("demo: park failed", asyncdata.Fields{"route": route, "err": err})
		} else {
			s.remember(route)
		}
	}

	// json.Marshal escapes <, > and & so the document is safe inside <script>
	b, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, "encode payload", http.StatusInternalServerError)
		return
	}
	pg.Payload = template.JS(b)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if pg.Missing {
		w.WriteHeader(http.StatusNotFound)
	}
	if err := pageTmpl.Execute(w, pg); err != nil {
		s.log.Warn("demo: write page", asyncdata.Fields{"route": route, "err": err})
	}
}

func (s *server) handlePayload(w http.ResponseWriter, r *http.Request) {
	route := "/" + chi.URLParam(r, "*")
	doc, fromStore, err := s.loader.Load(r.Context(), route)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	ct := s.store.ContentType()
	b, err := codec.For[asyncdata.Document](ct).Encode(doc)
	if err != nil {
		http.Error(w, "encode payload", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	if fromStore {
		w.Header().Set("X-Payload-Source", "store")
	} else {
		w.Header().Set("X-Payload-Source", "render")
	}
	_, _ = w.Write(b)
}

type invalidated struct {
	Match  string   `json:"match"`
	Routes []string `json:"routes"`
}

// handleInvalidate drops every parked payload whose route matches the
// keyfilter expression in the "match" form value.
func (s *server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	f, err := keyfilter.Compile(r.FormValue("match"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var hit []string
	for route := range s.routes {
		if f.Match(route) {
			hit = append(hit, route)
			delete(s.routes, route)
		}
	}
	s.mu.Unlock()
	sort.Strings(hit)

	for _, route := range hit {
		if err := s.store.Invalidate(r.Context(), route); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}
	b, err := codec.JSON[invalidated]{}.Encode(invalidated{Match: f.String(), Routes: hit})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", codec.MediaJSON)
	_, _ = w.Write(b)
}

func (s *server) remember(route string) {
	if !strings.HasPrefix(route, "/") {
		return
	}
	s.mu.Lock()
	s.routes[route] = struct{}{}
	s.mu.Unlock()
}
