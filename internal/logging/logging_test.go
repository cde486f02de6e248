package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestOptionsFromEnv_VerbosityAndOverride(t *testing.T) {
	t.Setenv(EnvLevel, "")
	t.Setenv(EnvJSON, "")
	if got := OptionsFromEnv(0).Level; got != "error" {
		t.Fatalf("want error by default, got %s", got)
	}
	if got := OptionsFromEnv(2).Level; got != "info" {
		t.Fatalf("want info for -vv, got %s", got)
	}

	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvJSON, "true")
	opts := OptionsFromEnv(0)
	if opts.Level != "debug" || !opts.JSON {
		t.Fatalf("env must win, got %+v", opts)
	}
}

func TestNew_JSONHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", JSON: true, Out: &buf})
	l.Info("hidden")
	l.Warn("shown", "kind", "sink")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["msg"] != "shown" || rec["kind"] != "sink" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARNING") != slog.LevelWarn {
		t.Fatal("want warn")
	}
	if ParseLevel("") != slog.LevelInfo {
		t.Fatal("want info by default")
	}
}
