package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitgud/internal/debounce"
)

const DefaultWatchDelay = 350 * time.Millisecond

// Watcher refreshes derived state when the repository changes on disk, for
// example when someone runs git in another terminal.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}
}

// Watch starts watching the repository at root. refresh runs after events
// have been quiet for delay.
func Watch(ctx context.Context, root string, delay time.Duration, refresh func(context.Context) error) (*Watcher, error) {
	if root == "" {
		return nil, errors.New("watch: repository has no path on disk")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	path := watchPath(root)
	slog.Debug("adding path to FS watcher", slog.String("path", path))
	if err := fw.Add(path); err != nil {
		err := errors.Join(err, fw.Close())
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	ctx = context.WithoutCancel(ctx)
	w := &Watcher{
		watcher: fw,
		done:    make(chan struct{}),
		debounce: debounce.New(delay, func() {
			if err := refresh(ctx); err != nil {
				slog.Warn("refresh after repository change", slog.Any("error", err))
			}
		}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.debounce.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	w.debounce.Stop()
	err := w.watcher.Close()
	<-w.done
	w.watcher = nil
	return err
}

// watchPath prefers the .git directory: HEAD, index and refs changes all land
// there, while worktree edits alone do not affect the graph.
func watchPath(root string) string {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		return gitDir
	}
	return root
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
