package server

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the server when the config file or a seed file changes.
type Watcher struct {
	watcher    *fsnotify.Watcher
	server     *Server
	configPath string
	stdout     io.Writer
	stderr     io.Writer

	// Track last change time to debounce rapid changes
	mu         sync.Mutex
	lastChange time.Time
	reloads    uint64
}

// NewWatcher creates a file watcher for dev mode
func NewWatcher(s *Server, configPath string, stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:    fsWatcher,
		server:     s,
		configPath: configPath,
		stdout:     stdout,
		stderr:     stderr,
	}, nil
}

// watchedFiles returns the absolute paths that trigger a reload.
func (w *Watcher) watchedFiles() map[string]bool {
	files := make(map[string]bool)
	if abs, err := filepath.Abs(w.configPath); err == nil {
		files[abs] = true
	}
	for _, path := range w.server.Config().SeedFiles {
		if abs, err := filepath.Abs(path); err == nil {
			files[abs] = true
		}
	}
	return files
}

// Start watches the directories of the config and seed files. Editors
// often replace files, so directories are watched rather than files.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range w.watchedFiles() {
		dirs[filepath.Dir(path)] = true
	}

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logError("failed to watch %s: %v", dir, err)
		} else {
			w.logInfo("watching %s", dir)
		}
	}

	go w.eventLoop(ctx)
	return nil
}

// eventLoop processes file system events
func (w *Watcher) eventLoop(ctx context.Context) {
	// Debounce duration - wait for rapid changes to settle
	const debounce = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.mu.Lock()
			if time.Since(w.lastChange) < debounce {
				w.mu.Unlock()
				continue
			}
			w.lastChange = time.Now()
			w.mu.Unlock()

			w.handleFileChange(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// handleFileChange reloads the server if path is a watched file.
func (w *Watcher) handleFileChange(path string) {
	abs, err := filepath.Abs(path)
	if err != nil || !w.watchedFiles()[abs] {
		return
	}

	w.logInfo("changed: %s", path)
	if err := w.server.Reload(); err != nil {
		w.logError("reload failed, keeping the running engine: %v", err)
		return
	}

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	w.logInfo("engine rebuilt (%d table(s))", len(w.server.Engine().Tables()))
}

// Reloads returns how many successful reloads the watcher has triggered.
func (w *Watcher) Reloads() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
