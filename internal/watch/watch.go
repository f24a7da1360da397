// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch runs the intake pipeline for ZIP files dropped into a
// folder. Archives are processed one at a time, in the order their
// writes settle.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/pkg/types"
)

const defaultDebounce = 2 * time.Second

// Runner processes one archive.
type Runner interface {
	Run(ctx context.Context, zipPath string) types.Outcome
}

// Watcher feeds archives from a drop folder to a Runner.
type Watcher struct {
	cfg    types.WatchConfig
	runner Runner
	log    *zap.SugaredLogger

	mu     sync.Mutex
	timers map[string]*time.Timer
	ready  chan string
	done   chan struct{}
}

// New validates cfg and creates the processed and failed folders when set.
func New(cfg types.WatchConfig, runner Runner, log *zap.SugaredLogger) (*Watcher, error) {
	if cfg.DropFolder == "" {
		return nil, errors.New("watch requires a drop folder")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if log == nil {
		log = logger.ComponentLogger("watch")
	}
	for _, dir := range []string{cfg.DropFolder, cfg.ProcessedFolder, cfg.FailedFolder} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating folder %s", dir)
		}
	}
	return &Watcher{
		cfg:    cfg,
		runner: runner,
		log:    log,
		timers: make(map[string]*time.Timer),
		ready:  make(chan string, 64),
	}, nil
}

// Run watches the drop folder until ctx is cancelled. Archives already in
// the folder are queued at startup.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating fsnotify watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.DropFolder); err != nil {
		return errors.Wrapf(err, "watching %s", w.cfg.DropFolder)
	}

	w.done = make(chan struct{})
	defer w.stop()

	existing, err := w.existingArchives()
	if err != nil {
		return err
	}
	for _, p := range existing {
		w.schedule(p)
	}
	w.log.Infow("Watching drop folder",
		logger.FieldPath, w.cfg.DropFolder,
		logger.FieldCount, len(existing))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isArchive(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				w.schedule(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.cancel(event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("Watcher error", logger.FieldError, err)

		case p := <-w.ready:
			w.handle(ctx, p)
		}
	}
}

// schedule (re)starts the quiet-period timer for p.
func (w *Watcher) schedule(p string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[p]; ok {
		t.Stop()
	}
	done := w.done
	w.timers[p] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, p)
		w.mu.Unlock()
		select {
		case w.ready <- p:
		case <-done:
		}
	})
}

func (w *Watcher) cancel(p string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[p]; ok {
		t.Stop()
		delete(w.timers, p)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	close(w.done)
}

func (w *Watcher) handle(ctx context.Context, p string) {
	if info, err := os.Stat(p); err != nil || info.IsDir() {
		w.log.Debugw("Skipping vanished archive", logger.FieldPath, p)
		return
	}

	out := w.runner.Run(ctx, p)

	dir := w.cfg.ProcessedFolder
	if !out.Success {
		dir = w.cfg.FailedFolder
	}
	if dir == "" {
		return
	}
	dest, err := move(p, dir)
	if err != nil {
		w.log.Errorw("Unable to move archive", logger.FieldPath, p, logger.FieldError, err)
		return
	}
	w.log.Debugw("Moved archive", logger.FieldPath, p, "to", dest)
}

func (w *Watcher) existingArchives() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.DropFolder)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", w.cfg.DropFolder)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isArchive(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.cfg.DropFolder, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// move renames p into dir, adding a timestamp suffix if the name is taken.
func move(p, dir string) (string, error) {
	base := filepath.Base(p)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(base, ext), time.Now().UnixNano(), ext))
	}
	if err := os.Rename(p, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func isArchive(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".zip")
}
