package redis

import (
	"testing"
	"time"
)

func TestClampTTL(t *testing.T) {
	p := &Redis{maxTTL: time.Minute}
	for _, tc := range []struct{ in, want time.Duration }{
		{0, time.Minute},
		{-time.Second, time.Minute},
		{time.Second, time.Second},
		{time.Hour, time.Minute},
	} {
		got := tc.in
		p.clampTTL(&got)
		if got != tc.want {
			t.Fatalf("clampTTL(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}

	unbounded := &Redis{}
	ttl := time.Duration(0)
	unbounded.clampTTL(&ttl)
	if ttl != 0 {
		t.Fatalf("no max: %v", ttl)
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}
