package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValOr(t *testing.T) {
	if got := valOr(0, 10); got != 10 {
		t.Fatalf("valOr(0, 10) = %d", got)
	}
	if got := valOr(-1, 10); got != 10 {
		t.Fatalf("valOr(-1, 10) = %d", got)
	}
	if got := valOr(5, 10); got != 5 {
		t.Fatalf("valOr(5, 10) = %d", got)
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcpherd.log")
	log := New(Config{Level: "debug", File: path})
	log.Info("hello", "k", "v")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("log file empty")
	}
}

func TestNewConsoleOnlyDoesNotPanic(t *testing.T) {
	log := New(Config{})
	log.Debug("suppressed at default level")
	log.Info("visible")
}
