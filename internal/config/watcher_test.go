package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "listener.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestWatcherLoadsInitialConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "lang: en-US\nstt:\n  module: google\n")

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if w.Current().Lang != "en-US" {
		t.Errorf("Current().Lang = %q, want en-US", w.Current().Lang)
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "lang: en-US\nstt:\n  module: google\n")

	changed := make(chan Diff, 1)
	w, err := NewWatcher(path, func(old, new *Config, d Diff) {
		changed <- d
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond) // ensure distinct mtime
	writeConfigFile(t, dir, "lang: fr-FR\nstt:\n  module: google\n")

	select {
	case d := <-changed:
		if !d.LangChanged {
			t.Errorf("expected LangChanged=true, got %+v", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for watcher to detect change")
	}

	if w.Current().Lang != "fr-FR" {
		t.Errorf("Current().Lang = %q, want fr-FR", w.Current().Lang)
	}
}

func TestWatcherIgnoresTouchWithoutContentChange(t *testing.T) {
	dir := t.TempDir()
	doc := "lang: en-US\nstt:\n  module: google\n"
	path := writeConfigFile(t, dir, doc)

	calls := make(chan struct{}, 4)
	w, err := NewWatcher(path, func(old, new *Config, d Diff) {
		calls <- struct{}{}
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfigFile(t, dir, doc) // same content, new mtime

	select {
	case <-calls:
		t.Fatalf("onChange should not fire when file content is unchanged")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "lang: en-US\nstt:\n  module: google\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop() // must not panic
}
