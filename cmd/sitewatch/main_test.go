package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "sitewatch dev") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCycle_EmptyMemoryStore(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("LOG_DIR", t.TempDir())

	out, err := run(t, "cycle")
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if !strings.Contains(out, "total=0 up=0 down=0 errors=0") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCycle_MissingDatastore(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_DIR", t.TempDir())

	if _, err := run(t, "cycle"); err == nil {
		t.Fatalf("want error without DATABASE_URL")
	}
}
