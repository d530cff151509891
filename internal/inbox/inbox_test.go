package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/ocrdown/internal/config"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeConverter) Convert(ctx context.Context, filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filename)
	if f.err != nil {
		return "", f.err
	}
	return "# " + filename + "\n\n" + string(data), nil
}

func (f *fakeConverter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestInbox(t *testing.T, conv Converter) (*Inbox, string, string) {
	t.Helper()
	in := filepath.Join(t.TempDir(), "in")
	out := filepath.Join(t.TempDir(), "out")
	cfg := config.InboxConfig{Directories: []string{in}, OutputDir: out}
	return New(cfg, []string{"png", "pdf"}, conv, nil), in, out
}

func waitForFile(t *testing.T, path string) []byte {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil {
			return data
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
	return nil
}

func TestInbox_ConvertFile(t *testing.T) {
	conv := &fakeConverter{}
	inbox, _, out := newTestInbox(t, conv)
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(src, []byte("body"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := inbox.ConvertFile(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(out, "scan.md") {
		t.Errorf("output path = %s", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# scan.pdf\n\nbody" {
		t.Errorf("output = %q", data)
	}

	again, err := inbox.ConvertFile(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if again != "" || conv.count() != 1 {
		t.Errorf("up-to-date output should be skipped, got %q after %d calls", again, conv.count())
	}
}

func TestInbox_ConvertFileError(t *testing.T) {
	conv := &fakeConverter{err: errors.New("ocr down")}
	inbox, _, out := newTestInbox(t, conv)
	_ = os.MkdirAll(out, 0755)
	src := filepath.Join(t.TempDir(), "scan.png")
	_ = os.WriteFile(src, []byte("x"), 0644)

	if _, err := inbox.ConvertFile(context.Background(), src); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(out, "scan.md")); !os.IsNotExist(err) {
		t.Error("no output should be written on failure")
	}
}

func TestInbox_StartConvertsExistingAndNewFiles(t *testing.T) {
	conv := &fakeConverter{}
	inbox, in, out := newTestInbox(t, conv)
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "old.png"), []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := inbox.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer inbox.Stop()

	if data := waitForFile(t, filepath.Join(out, "old.md")); string(data) != "# old.png\n\nold" {
		t.Errorf("old.md = %q", data)
	}

	if err := os.WriteFile(filepath.Join(in, "new.pdf"), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if data := waitForFile(t, filepath.Join(out, "new.md")); string(data) != "# new.pdf\n\nnew" {
		t.Errorf("new.md = %q", data)
	}
	if _, err := os.Stat(filepath.Join(out, "ignored.md")); !os.IsNotExist(err) {
		t.Error("files with other extensions must be ignored")
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.png", []string{"png"}, true},
		{"/a/b.PDF", []string{"pdf"}, true},
		{"/a/b.png", []string{".png"}, true},
		{"/a/b.md", []string{"png", "pdf"}, false},
		{"/a/b", []string{"png"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInbox_ConvertFileReleasesPathLocks(t *testing.T) {
	conv := &fakeConverter{}
	inbox, _, out := newTestInbox(t, conv)
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	var srcs []string
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		src := filepath.Join(dir, name)
		if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		srcs = append(srcs, src)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		src := srcs[i%len(srcs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := inbox.ConvertFile(context.Background(), src); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	inbox.mu.Lock()
	n := len(inbox.inflight)
	inbox.mu.Unlock()
	if n != 0 {
		t.Errorf("expected no path locks after conversions, got %d", n)
	}
	if conv.count() != 4 {
		t.Errorf("each path should be converted once, got %d conversions", conv.count())
	}
}
