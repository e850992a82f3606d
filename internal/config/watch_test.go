package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/deadline/pkg/logger"
)

func TestWatcherReloadDetectsChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/deadline.yaml"
	if err := afero.WriteFile(fs, path, []byte("listen: 127.0.0.1:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(fs, path, nil, nil)

	cfg, err := w.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:1" {
		t.Fatalf("Listen = %q", cfg.Listen)
	}

	if _, changed, err := w.reload(); err != nil || changed {
		t.Fatalf("reload of identical file: changed=%v err=%v", changed, err)
	}

	if err := afero.WriteFile(fs, path, []byte("listen: 127.0.0.1:2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, changed, err := w.reload()
	if err != nil || !changed {
		t.Fatalf("reload after edit: changed=%v err=%v", changed, err)
	}
	if cfg.Listen != "127.0.0.1:2" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestWatcherAppliesEnv(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/c.yaml", []byte("rpc_secret: file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(fs, "/c.yaml", func(string) string { return "env" }, nil)
	cfg, err := w.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RPCSecret != "env" {
		t.Errorf("RPCSecret = %q, want env override", cfg.RPCSecret)
	}
}

func TestWatchFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deadline.yaml")
	if err := os.WriteFile(path, []byte("listen: 127.0.0.1:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := logger.NewMockLogger()
	w := NewWatcher(afero.NewOsFs(), path, nil, log)
	w.debounce = 50 * time.Millisecond
	if _, err := w.Load(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	errc := make(chan error, 1)
	go func() { errc <- w.Watch(ctx, func(c *Config) { got <- c }) }()

	// Give fsnotify time to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("listen: 127.0.0.1:2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-got:
		if cfg.Listen != "127.0.0.1:2" {
			t.Errorf("Listen = %q", cfg.Listen)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	// A broken edit is logged and not published.
	if err := os.WriteFile(path, []byte("listen: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !log.Contains("config reload failed") {
		if time.Now().After(deadline) {
			t.Fatal("parse failure was not logged")
		}
		time.Sleep(10 * time.Millisecond)
	}
	select {
	case cfg := <-got:
		t.Fatalf("invalid file published: %+v", cfg)
	default:
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
