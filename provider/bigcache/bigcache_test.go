package bigcache

import (
	"bytes"
	"context"
	"testing"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	if _, ok, err := p.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v"), 0, 0); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "k")
	if !ok || err != nil || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get: ok=%v err=%v got=%q", ok, err, got)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of a missing key must not fail: %v", err)
	}
}
