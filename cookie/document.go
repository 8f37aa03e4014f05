package cookie

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Document is the client-side cookie jar, the equivalent of
// document.cookie: Cookie returns "a=1; b=2" and SetCookie applies one
// Set-Cookie line.
type Document interface {
	Cookie() string
	SetCookie(line string) error
}

// MemoryDocument is an in-process Document. Expired and Max-Age<=0 lines
// delete the cookie. Attributes other than expiry are not tracked.
type MemoryDocument struct {
	mu   sync.Mutex
	jar  map[string]string
	now  func() time.Time
	sets int
}

var _ Document = (*MemoryDocument)(nil)

func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{jar: make(map[string]string), now: time.Now}
}

func (d *MemoryDocument) Cookie() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.jar))
	for n := range d.jar {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+d.jar[n])
	}
	return strings.Join(parts, "; ")
}

func (d *MemoryDocument) SetCookie(line string) error {
	c, err := http.ParseSetCookie(line)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sets++
	if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(d.now())) {
		delete(d.jar, c.Name)
		return nil
	}
	d.jar[c.Name] = c.Value
	return nil
}

// Writes reports how many Set-Cookie lines were applied.
func (d *MemoryDocument) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sets
}

// parse returns name => raw value for a Cookie header. Malformed pairs are
// skipped.
func parse(header string) map[string]string {
	out := make(map[string]string)
	if header == "" {
		return out
	}
	for _, c := range (&http.Request{Header: http.Header{"Cookie": {header}}}).Cookies() {
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Value
		}
	}
	return out
}
