package ristretto

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestSyncSetIsVisible(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{Sync: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(ctx)

	frame := []byte("frame")
	if ok, err := p.Set(ctx, "payload:t:/", frame, 0, time.Minute); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "payload:t:/")
	if err != nil || !ok || !bytes.Equal(got, frame) {
		t.Fatalf("Get: ok=%v err=%v got=%q", ok, err, got)
	}
	if err := p.Del(ctx, "payload:t:/"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "payload:t:/"); ok {
		t.Fatalf("Get after Del: hit")
	}
}

func TestRejectsNegativeConfig(t *testing.T) {
	if _, err := New(Config{MaxCost: -1}); err == nil {
		t.Fatalf("negative MaxCost accepted")
	}
}
