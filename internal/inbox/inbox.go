// Package inbox converts files dropped into watched directories to Markdown.
package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/ocrdown/internal/config"
	"github.com/hyperjump/ocrdown/internal/models"
	"github.com/hyperjump/ocrdown/pkg/utils"
)

// Converter turns a file into Markdown.
type Converter interface {
	Convert(ctx context.Context, filename string, data []byte) (string, error)
}

// Inbox watches directories and writes <output_dir>/<stem>.md for each
// settled input file.
type Inbox struct {
	converter Converter
	outputDir string
	watcher   *Watcher
	logger    *zap.Logger

	mu  sync.Mutex
	ctx context.Context
	// inflight serializes conversions of the same path
	inflight map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// New creates an inbox for cfg accepting files with the given extensions.
func New(cfg config.InboxConfig, extensions []string, converter Converter, logger *zap.Logger) *Inbox {
	logger = utils.OrNop(logger)
	in := &Inbox{
		converter: converter,
		outputDir: cfg.OutputDir,
		logger:    logger,
		ctx:       context.Background(),
		inflight:  make(map[string]*pathLock),
	}
	in.watcher = NewWatcher(cfg.Directories, extensions, cfg.RecursiveOrDefault(), in.handleFile, logger.Named("watcher"))
	return in
}

// Start begins watching and converts files already present in the inbox.
func (in *Inbox) Start(ctx context.Context) error {
	if err := os.MkdirAll(in.outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	in.mu.Lock()
	in.ctx = ctx
	in.mu.Unlock()
	if err := in.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	go in.watcher.SyncExisting()
	return nil
}

// Stop stops watching.
func (in *Inbox) Stop() {
	in.watcher.Stop()
}

func (in *Inbox) handleFile(path string) {
	in.mu.Lock()
	ctx := in.ctx
	in.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	out, err := in.ConvertFile(ctx, path)
	if err != nil {
		in.logger.Error("conversion failed", zap.String("path", path), zap.Error(err))
		return
	}
	if out != "" {
		in.logger.Info("converted file", zap.String("path", path), zap.String("output", out))
	}
}

// OutputPath returns where the Markdown for path is written.
func (in *Inbox) OutputPath(path string) string {
	return filepath.Join(in.outputDir, models.MarkdownName(filepath.Base(path)))
}

// ConvertFile converts path and writes the result, returning the output
// path. It returns "" without converting when the output is already newer
// than the input.
func (in *Inbox) ConvertFile(ctx context.Context, path string) (string, error) {
	lock := in.acquire(path)
	defer in.release(path, lock)

	src, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	out := in.OutputPath(path)
	if dst, err := os.Stat(out); err == nil && !dst.ModTime().Before(src.ModTime()) {
		in.logger.Debug("output up to date", zap.String("path", path), zap.String("output", out))
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	md, err := in.converter.Convert(ctx, filepath.Base(path), data)
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(out, []byte(md)); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}

func (in *Inbox) acquire(path string) *pathLock {
	in.mu.Lock()
	l, ok := in.inflight[path]
	if !ok {
		l = &pathLock{}
		in.inflight[path] = l
	}
	l.refs++
	in.mu.Unlock()
	l.mu.Lock()
	return l
}

// release unlocks l and forgets it once no other conversion of path holds a reference.
func (in *Inbox) release(path string, l *pathLock) {
	l.mu.Unlock()
	in.mu.Lock()
	defer in.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(in.inflight, path)
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ocrdown-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
