package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/unkn0wn-root/asyncdata"
	"github.com/unkn0wn-root/asyncdata/codec"
	"github.com/unkn0wn-root/asyncdata/keyfilter"
)

type clientConfig struct {
	BaseURL string
	Route   string
	Clear   string // keyfilter expression; matching keys are cleared and refetched
	HTTP    *http.Client
}

type clientReport struct {
	Hydrated  user
	Refetched *user
	Cleared   []string
}

// fetchPayload loads the parked payload for route from a running server.
func fetchPayload(ctx context.Context, hc *http.Client, baseURL, route string) (asyncdata.Document, error) {
	var doc asyncdata.Document
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/_payload"+route, nil)
	if err != nil {
		return doc, err
	}
	res, err := hc.Do(req)
	if err != nil {
		return doc, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return doc, err
	}
	if res.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("payload %s: %s", route, res.Status)
	}
	c := codec.For[asyncdata.Document](res.Header.Get("Content-Type"))
	if c == nil {
		return doc, fmt.Errorf("payload %s: unexpected content type %q", route, res.Header.Get("Content-Type"))
	}
	return c.Decode(body)
}

// runClient restores a server payload into a client App, hydrates the user
// binding from it and optionally clears and refetches matching keys.
func runClient(ctx context.Context, cfg clientConfig, log asyncdata.Logger, hooks asyncdata.Hooks) (clientReport, error) {
	var rep clientReport
	hc := cfg.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	doc, err := fetchPayload(ctx, hc, cfg.BaseURL, cfg.Route)
	if err != nil {
		return rep, err
	}

	app, err := asyncdata.New(asyncdata.AppOptions{
		Env:     asyncdata.EnvClient,
		Payload: &doc,
		Context: ctx,
		Client:  hc,
		BaseURL: cfg.BaseURL,
		Logger:  log,
		Hooks:   hooks,
	})
	if err != nil {
		return rep, err
	}
	defer app.Close(ctx)

	release := app.DeferHydration()
	inst := asyncdata.NewInstance()
	u, err := asyncdata.UseFetch(app, asyncdata.URL("/api/users/"+path.Base(cfg.Route)), asyncdata.FetchOptions[user]{
		AutoKey:   userKey,
		Component: inst,
	})
	if err != nil {
		release()
		return rep, err
	}
	inst.Mount()
	release()
	rep.Hydrated = u.Data()

	if cfg.Clear == "" {
		return rep, nil
	}
	f, err := keyfilter.Compile(cfg.Clear)
	if err != nil {
		return rep, err
	}
	for _, k := range app.Keys() {
		if f.Match(k) {
			rep.Cleared = append(rep.Cleared, k)
		}
	}
	app.ClearDataFunc(f.Match)
	if err := u.Refresh(asyncdata.ExecuteOptions{}).Wait(ctx); err != nil {
		return rep, err
	}
	if err := u.Error(); err != nil {
		return rep, err
	}
	v := u.Data()
	rep.Refetched = &v
	return rep, nil
}
