package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hyperjump/ocrdown/internal/models"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	r := &models.Result{ID: "r1", Filename: "scan.png", Markdown: "# Title\n\nBody text"}
	if err := s.Put(ctx, r); err != nil {
		t.Fatal(err)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Markdown != r.Markdown || got.Filename != "scan.png" {
		t.Errorf("got %+v", got)
	}

	got.Markdown = "mutated"
	again, _ := s.Get(ctx, "r1")
	if again.Markdown != r.Markdown {
		t.Error("Get should return a copy")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, &models.Result{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	_ = s.Put(ctx, &models.Result{ID: "a"})
	_ = s.Put(ctx, &models.Result{ID: "b"})
	if _, err := s.Get(ctx, "a"); err != nil { // a becomes most recent
		t.Fatal(err)
	}
	_ = s.Put(ctx, &models.Result{ID: "c"}) // evicts b
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Error("expected b to be evicted")
	}
	for _, id := range []string{"a", "c"} {
		if _, err := s.Get(ctx, id); err != nil {
			t.Errorf("expected %s to remain: %v", id, err)
		}
	}
	if n, _ := s.Count(ctx); n != 2 {
		t.Errorf("Count = %d", n)
	}
}

func TestMemoryStore_Unbounded(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_ = s.Put(ctx, &models.Result{ID: fmt.Sprintf("r%d", i)})
	}
	if n, _ := s.Count(ctx); n != 100 {
		t.Errorf("Count = %d, want 100", n)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", i)
			if err := s.Put(ctx, &models.Result{ID: id, Markdown: id}); err != nil {
				t.Errorf("Put: %v", err)
				return
			}
			got, err := s.Get(ctx, id)
			if err != nil || got.Markdown != id {
				t.Errorf("Get(%s): %v %v", id, got, err)
			}
		}(i)
	}
	wg.Wait()
	if n, _ := s.Count(ctx); n != 20 {
		t.Errorf("Count = %d", n)
	}
}
