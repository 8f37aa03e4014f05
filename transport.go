package asyncdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/unkn0wn-root/asyncdata/codec"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HandlerDoer serves requests in-process through Handler, without a network
// round trip. The server uses it for path-relative fetch targets.
type HandlerDoer struct {
	Handler http.Handler
}

func (d HandlerDoer) Do(req *http.Request) (*http.Response, error) {
	if d.Handler == nil {
		return nil, fmt.Errorf("asyncdata: HandlerDoer without a handler")
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if req.RequestURI == "" {
		req.RequestURI = req.URL.RequestURI()
	}
	rec := httptest.NewRecorder()
	d.Handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// headers a local fetch inherits from the request being rendered
var forwarded = []string{"Cookie", "Authorization", "Accept-Language", "User-Agent", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

func forwardHeaders(req *http.Request, ev *RequestEvent) {
	if ev == nil || ev.Request == nil {
		return
	}
	for _, h := range forwarded {
		if req.Header.Get(h) != "" {
			continue
		}
		if vs := ev.Request.Header.Values(h); len(vs) > 0 {
			req.Header[h] = append([]string(nil), vs...)
		}
	}
	if req.Host == "" {
		req.Host = ev.Request.Host
	}
}

func newRequest(ctx context.Context, base, target string, ro RequestOptions) (*http.Request, error) {
	u, err := resolveURL(base, target)
	if err != nil {
		return nil, err
	}
	if len(ro.Query) > 0 {
		q := u.Query()
		for k, v := range ro.Query {
			addQuery(q, k, v)
		}
		u.RawQuery = q.Encode()
	}

	body, ctype, err := encodeBody(ro.Body)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(coalesce(ro.Method, http.MethodGet))
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range ro.Headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if ctype != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", ctype)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", codec.MediaJSON)
	}
	return req, nil
}

func resolveURL(base, target string) (*url.URL, error) {
	t, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if base == "" || t.IsAbs() {
		return t, nil
	}
	return url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(target, "/"))
}

func addQuery(q url.Values, k string, v any) {
	switch x := v.(type) {
	case nil:
	case string:
		q.Add(k, x)
	case []string:
		for _, s := range x {
			q.Add(k, s)
		}
	case []any:
		for _, e := range x {
			addQuery(q, k, e)
		}
	default:
		q.Add(k, fmt.Sprint(x))
	}
}

func encodeBody(v any) (io.Reader, string, error) {
	switch x := v.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(x), "", nil
	case string:
		return strings.NewReader(x), "", nil
	case io.Reader:
		return x, "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("asyncdata: encode body: %w", err)
	}
	return bytes.NewReader(b), codec.MediaJSON, nil
}

// decodeResponse reads resp into T by media type. string and []byte targets
// get the raw body; non-2xx responses become *FetchError.
func decodeResponse[T any](req *http.Request, resp *http.Response) (T, error) {
	var zero T
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, err
	}
	ct := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zero, &FetchError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Status:     strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode))),
			Data:       looseBody(ct, body),
		}
	}

	switch any(zero).(type) {
	case string:
		return any(string(body)).(T), nil
	case []byte:
		return any(body).(T), nil
	}
	if len(body) == 0 {
		return zero, nil
	}
	if c := codec.For[T](ct); c != nil {
		return c.Decode(body)
	}
	return codec.JSON[T]{}.Decode(body)
}

// looseBody decodes an error body when it is structured and falls back to
// the text.
func looseBody(ct string, body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if c := codec.For[any](ct); c != nil {
		if v, err := c.Decode(body); err == nil {
			return v
		}
	}
	return string(body)
}
