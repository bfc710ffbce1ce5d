package internal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/codex/internal/apperr"
	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/storage"
)

func fileConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	dir := t.TempDir()
	cfg.Storage = StorageConfig{Driver: storage.DriverFile, Path: filepath.Join(dir, "data")}
	cfg.Attachments.Path = filepath.Join(dir, "attachments")
	cfg.App.LogLevel = slog.LevelError
	return cfg
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestExport(t *testing.T) {
	cfg := fileConfig(t)

	var out bytes.Buffer
	if err := Export(context.Background(), "2", "whatsapp", WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "📜 *O VAZIO ENTRE OS CÓDIGOS*") || !strings.Contains(out.String(), "https://api.whatsapp.com/send?text=") {
		t.Errorf("export output = %q", out.String())
	}

	out.Reset()
	if err := Export(context.Background(), "2", "pdf", WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "<html") {
		t.Errorf("pdf export should be a document: %q", out.String())
	}

	err := Export(context.Background(), "missing", "email", WithConfig(cfg), WithOutput(&out))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestReset(t *testing.T) {
	cfg := fileConfig(t)
	var out bytes.Buffer

	err := Reset(context.Background(), false, WithConfig(cfg), WithOutput(&out))
	if !errors.Is(err, apperr.ErrConfirmationRequired) {
		t.Fatalf("err = %v, want confirmation required", err)
	}

	if err := Reset(context.Background(), true, WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatal(err)
	}
	if out.String() != "archive reset: 2 manuscripts\n" {
		t.Errorf("output = %q", out.String())
	}

	provider, err := storage.NewFS(cfg.Storage.Path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := provider.Get(manuscript.ManuscriptsKey); err != nil {
		t.Errorf("reset should persist the seed: %v", err)
	}
}
