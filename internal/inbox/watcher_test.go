package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{"png"}, false, rec.add, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "a.png")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(time.Second)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != path {
		t.Errorf("expected one settled event for %s, got %v", path, got)
	}
}

func TestWatcher_RecursiveNewDirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{"pdf"}, true, rec.add, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "doc.pdf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.snapshot()) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("file in new subdirectory was not reported")
}

func TestWatcher_SyncExistingNonRecursive(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "top.png"), []byte("x"), 0644)
	_ = os.MkdirAll(filepath.Join(dir, "nested"), 0755)
	_ = os.WriteFile(filepath.Join(dir, "nested", "deep.png"), []byte("x"), 0644)

	rec := &recorder{}
	w := NewWatcher([]string{dir}, []string{"png"}, false, rec.add, zap.NewNop())
	w.SyncExisting()

	got := rec.snapshot()
	if len(got) != 1 || filepath.Base(got[0]) != "top.png" {
		t.Errorf("SyncExisting = %v", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher([]string{t.TempDir()}, nil, false, func(string) {}, zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_StaleTimerKeepsRescheduledEntry(t *testing.T) {
	rec := &recorder{}
	w := NewWatcher(nil, []string{"png"}, false, rec.add, nil)
	w.debounce = time.Hour
	path := "/inbox/a.png"

	w.schedule(path)
	first := w.pending[path]
	w.schedule(path)
	second := w.pending[path]
	defer second.Stop()

	// the first timer firing after the reschedule must not drop the second
	w.fire(path, &first)
	w.mu.Lock()
	current, ok := w.pending[path]
	w.mu.Unlock()
	if !ok || current != second {
		t.Fatal("rescheduled timer was removed by the stale one")
	}

	w.fire(path, &second)
	w.mu.Lock()
	_, ok = w.pending[path]
	w.mu.Unlock()
	if ok {
		t.Error("pending entry should be removed when its own timer fires")
	}
	if got := rec.snapshot(); len(got) != 2 {
		t.Errorf("expected both firings reported, got %v", got)
	}
}
