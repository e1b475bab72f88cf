package app

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/config"
	"github.com/hamed0406/sitewatch/internal/repo/memory"
	"github.com/hamed0406/sitewatch/internal/repo/sqlite"
)

func TestNew_MemoryStore(t *testing.T) {
	c, err := New(context.Background(), config.Config{DatabaseURL: "memory://"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, ok := c.Store.(*memory.Store); !ok {
		t.Fatalf("want memory store, got %T", c.Store)
	}
	if _, ok := c.Lock.(*memory.Lock); !ok {
		t.Fatalf("want in-process lock without redis, got %T", c.Lock)
	}
	if c.Alerter.Enabled() {
		t.Fatalf("email should be disabled without credentials")
	}
	if c.Reconciler == nil || c.Reconciler.Lock == nil {
		t.Fatalf("reconciler not wired")
	}
}

func TestNew_SQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sw.db")
	cfg := config.Config{
		DatabaseURL:  "sqlite://" + path,
		FromEmail:    "alerts@example.com",
		ResendAPIKey: "re_test",
	}
	c, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.Store.(*sqlite.Store); !ok {
		t.Fatalf("want sqlite store, got %T", c.Store)
	}
	if !c.Alerter.Enabled() {
		t.Fatalf("email should be enabled with resend credentials")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNew_UnknownScheme(t *testing.T) {
	if _, err := New(context.Background(), config.Config{DatabaseURL: "mysql://x"}, zap.NewNop()); err == nil {
		t.Fatalf("want error for unsupported scheme")
	}
}

func TestStoreKind(t *testing.T) {
	cases := map[string]string{
		"postgres://u@h/db":   "postgres",
		"postgresql://u@h/db": "postgres",
		"sqlite://data.db":    "sqlite",
		"file:data.db?_fk=1":  "sqlite",
		"memory://":           "memory",
		"redis://x":           "unknown",
	}
	for in, want := range cases {
		if got := storeKind(in); got != want {
			t.Fatalf("storeKind(%q)=%q want %q", in, got, want)
		}
	}
}
