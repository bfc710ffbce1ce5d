package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func TestWatch_ReportsExternalWrite(t *testing.T) {
	s := tempFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx, slog.Default(), func(key string) {
			mu.Lock()
			seen[key]++
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(s.Root(), "codex-manuscripts"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 3*time.Second, 25*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["codex-manuscripts"] > 0
	}, "external write not reported")

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	for key := range seen {
		if key != "codex-manuscripts" {
			t.Errorf("unexpected key reported: %s", key)
		}
	}
}
