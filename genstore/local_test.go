package genstore

import (
	"context"
	"sync"
	"testing"
)

func TestLocalSnapshotZeroForMissing(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore()
	t.Cleanup(func() { _ = s.Close(ctx) })

	g, err := s.Snapshot(ctx, "a")
	if err != nil || g != 0 {
		t.Fatalf("Snapshot missing: g=%d err=%v", g, err)
	}
}

func TestLocalBumpInvalidatesObservedGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore()

	obs, _ := s.Bump(ctx, "k")
	if cur, _ := s.Snapshot(ctx, "k"); cur != obs {
		t.Fatalf("fresh token should be current: obs=%d cur=%d", obs, cur)
	}
	if _, err := s.Bump(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if cur, _ := s.Snapshot(ctx, "k"); cur == obs {
		t.Fatalf("token %d still current after bump", obs)
	}
	if s.Len() != 1 {
		t.Fatalf("Len=%d want 1", s.Len())
	}
}

func TestLocalBumpConcurrentUnique(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore()

	const n = 64
	seen := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, _ := s.Bump(ctx, "k")
			seen <- g
		}()
	}
	wg.Wait()
	close(seen)

	uniq := make(map[uint64]bool, n)
	for g := range seen {
		if uniq[g] {
			t.Fatalf("generation %d handed out twice", g)
		}
		uniq[g] = true
	}
	if g, _ := s.Snapshot(ctx, "k"); g != n {
		t.Fatalf("final gen=%d want %d", g, n)
	}
}
