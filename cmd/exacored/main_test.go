package main

import (
	"log/slog"
	"testing"

	"github.com/exacore/exacore/kv"
)

func TestOpenStore_Memory(t *testing.T) {
	store, err := openStore("memory", "")
	if err != nil {
		t.Fatalf("openStore(memory): %v", err)
	}
	defer store.Close()
	if _, ok := store.(*kv.MemoryStore); !ok {
		t.Fatalf("expected *kv.MemoryStore, got %T", store)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, err := openStore("bogus", "."); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestRun_UnknownBackendReturnsErrorExitCode(t *testing.T) {
	code := run([]string{"exacored", "--backend", "bogus"})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRun_VersionFlagExitsCleanly(t *testing.T) {
	code := run([]string{"exacored", "--version"})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}
