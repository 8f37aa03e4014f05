package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/unkn0wn-root/asyncdata"
	"github.com/unkn0wn-root/asyncdata/payloadstore"
	"github.com/unkn0wn-root/asyncdata/provider/ristretto"
)

func newTestServer(t *testing.T, codecName string) (*httptest.Server, *payloadstore.Store) {
	t.Helper()
	cfg := defaultConfig()
	cfg.Payload.Codec = codecName
	cd, err := cfg.codec()
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	p, err := ristretto.New(ristretto.Config{Sync: true})
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	store, err := payloadstore.New(payloadstore.Options{Namespace: "test", Provider: p, Codec: cd})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ts := httptest.NewServer(newServer(store, asyncdata.NopLogger{}, asyncdata.NopHooks{}).routesHandler())
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close(context.Background())
	})
	return ts, store
}

func get(t *testing.T, u string) (*http.Response, string) {
	t.Helper()
	res, err := http.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func TestPageEmbedsPayloadAndSetsCookie(t *testing.T) {
	ts, _ := newTestServer(t, "json")

	res, body := get(t, ts.URL+"/users/1?theme=dark")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", res.StatusCode)
	}
	if !strings.Contains(body, "<h1>Ada</h1>") || !strings.Contains(body, `data-theme="dark"`) {
		t.Fatalf("page: %s", body)
	}
	if !strings.Contains(body, `"serverRendered":true`) {
		t.Fatalf("payload not embedded: %s", body)
	}
	var theme string
	for _, c := range res.Cookies() {
		if c.Name == "theme" {
			theme = c.Value
		}
	}
	if theme != "dark" {
		t.Fatalf("theme cookie: %q", theme)
	}
}

func TestMissingUserIs404(t *testing.T) {
	ts, _ := newTestServer(t, "json")
	res, body := get(t, ts.URL+"/users/9")
	if res.StatusCode != http.StatusNotFound || !strings.Contains(body, "No such user") {
		t.Fatalf("status=%d body=%s", res.StatusCode, body)
	}
}

func TestPayloadEndpointServesParkedDocument(t *testing.T) {
	for _, name := range []string{"json", "msgpack", "cbor", "protobuf"} {
		t.Run(name, func(t *testing.T) {
			ts, _ := newTestServer(t, name)

			res, _ := get(t, ts.URL+"/_payload/users/2")
			if res.Header.Get("X-Payload-Source") != "render" {
				t.Fatalf("first load must render, got %q", res.Header.Get("X-Payload-Source"))
			}
			res, _ = get(t, ts.URL+"/_payload/users/2")
			if res.Header.Get("X-Payload-Source") != "store" {
				t.Fatalf("second load must hit the store, got %q", res.Header.Get("X-Payload-Source"))
			}

			doc, err := fetchPayload(context.Background(), http.DefaultClient, ts.URL, "/users/2")
			if err != nil {
				t.Fatalf("fetchPayload: %v", err)
			}
			if !doc.ServerRendered || len(doc.Data) != 2 {
				t.Fatalf("document: %+v", doc)
			}
		})
	}
}

func TestInvalidateByExpression(t *testing.T) {
	ts, _ := newTestServer(t, "json")
	get(t, ts.URL+"/users/1")
	get(t, ts.URL+"/users/2")

	res, err := http.PostForm(ts.URL+"/_invalidate", url.Values{"match": {`key endsWith "/1"`}})
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.Contains(string(b), `"routes":["/users/1"]`) {
		t.Fatalf("invalidated: %s", b)
	}

	r1, _ := get(t, ts.URL+"/_payload/users/1")
	r2, _ := get(t, ts.URL+"/_payload/users/2")
	if r1.Header.Get("X-Payload-Source") != "render" || r2.Header.Get("X-Payload-Source") != "store" {
		t.Fatalf("sources: /1=%q /2=%q", r1.Header.Get("X-Payload-Source"), r2.Header.Get("X-Payload-Source"))
	}

	res, err = http.PostForm(ts.URL+"/_invalidate", url.Values{"match": {`key +`}})
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad expression status: %d", res.StatusCode)
	}
}

type countingTransport struct {
	mu    sync.Mutex
	paths []string
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.paths = append(c.paths, r.URL.Path)
	c.mu.Unlock()
	return http.DefaultTransport.RoundTrip(r)
}

func TestClientHydratesThenRefetchesClearedKeys(t *testing.T) {
	ts, _ := newTestServer(t, "msgpack")

	tr := &countingTransport{}
	hc := &http.Client{Transport: tr}
	rep, err := runClient(context.Background(), clientConfig{BaseURL: ts.URL, Route: "/users/1", HTTP: hc}, asyncdata.NopLogger{}, asyncdata.NopHooks{})
	if err != nil {
		t.Fatalf("runClient: %v", err)
	}
	if rep.Hydrated.Name != "Ada" || rep.Refetched != nil {
		t.Fatalf("report: %+v", rep)
	}
	if len(tr.paths) != 1 || tr.paths[0] != "/_payload/users/1" {
		t.Fatalf("hydration must reuse the payload, requests: %v", tr.paths)
	}

	tr.paths = nil
	rep, err = runClient(context.Background(), clientConfig{
		BaseURL: ts.URL,
		Route:   "/users/1",
		Clear:   `key != "served-at"`,
		HTTP:    hc,
	}, asyncdata.NopLogger{}, asyncdata.NopHooks{})
	if err != nil {
		t.Fatalf("runClient clear: %v", err)
	}
	if len(rep.Cleared) != 1 || rep.Refetched == nil || rep.Refetched.Name != "Ada" {
		t.Fatalf("report: %+v", rep)
	}
	if len(tr.paths) != 2 || tr.paths[1] != "/api/users/1" {
		t.Fatalf("cleared key must be refetched, requests: %v", tr.paths)
	}
}
