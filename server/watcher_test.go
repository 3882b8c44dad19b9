package server

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sambeau/tabula/config"
)

func newWatchedServer(t *testing.T) (*Server, string, string) {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.sql")
	path := filepath.Join(dir, "tabula.yaml")
	os.WriteFile(seed, []byte("CREATE TABLE a (x INT);"), 0644)
	os.WriteFile(path, []byte("seed_files: [seed.sql]\n"), 0644)

	cfg, err := config.Load(path, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s, err := New(cfg, path, nil, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, path, seed
}

func TestWatcherFiles(t *testing.T) {
	s, path, seed := newWatchedServer(t)
	w, err := NewWatcher(s, path, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	files := w.watchedFiles()
	if len(files) != 2 || !files[path] || !files[seed] {
		t.Errorf("wrong watched files: %v", files)
	}
}

func TestWatcherHandleFileChange(t *testing.T) {
	s, path, seed := newWatchedServer(t)
	var logs strings.Builder
	w, err := NewWatcher(s, path, &logs, io.Discard)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	w.handleFileChange(filepath.Join(filepath.Dir(path), "notes.txt"))
	if w.Reloads() != 0 {
		t.Error("unwatched file triggered a reload")
	}

	os.WriteFile(seed, []byte("CREATE TABLE a (x INT); CREATE TABLE b (y TEXT);"), 0644)
	w.handleFileChange(seed)
	if w.Reloads() != 1 {
		t.Fatalf("expected one reload, got %d", w.Reloads())
	}
	if tables := s.Engine().Tables(); len(tables) != 2 {
		t.Errorf("engine not rebuilt: %v", tables)
	}
	if !strings.Contains(logs.String(), "engine rebuilt (2 table(s))") {
		t.Errorf("wrong log: %s", logs.String())
	}

	os.WriteFile(seed, []byte("CREATE TABLE (;"), 0644)
	w.handleFileChange(seed)
	if w.Reloads() != 1 || len(s.Engine().Tables()) != 2 {
		t.Error("failed reload replaced the engine")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	s, path, seed := newWatchedServer(t)
	w, err := NewWatcher(s, path, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	os.WriteFile(seed, []byte("CREATE TABLE a (x INT); CREATE TABLE c (z DATE);"), 0644)

	deadline := time.Now().Add(5 * time.Second)
	for w.Reloads() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if w.Reloads() == 0 {
		t.Fatal("no reload after writing the seed file")
	}
}
