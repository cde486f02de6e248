package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestResolve_BaseOnly(t *testing.T) {
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	debug, ok := cfg.Sinks["debug"]
	if !ok {
		t.Fatal("want sink debug in baseline")
	}
	if debug.IsEnabled() {
		t.Fatal("want sink debug disabled by default")
	}
	if debug.Type != "debug" {
		t.Fatalf("want type debug, got %q", debug.Type)
	}
	if cfg.Bus.Capacity != DefaultBusCapacity {
		t.Fatalf("want capacity %d, got %d", DefaultBusCapacity, cfg.Bus.Capacity)
	}
	if len(cfg.EnabledSinks()) != 0 || len(cfg.EnabledSources()) != 0 {
		t.Fatal("want nothing enabled in baseline")
	}
}

func TestResolve_EnvOverridesBase(t *testing.T) {
	t.Setenv("CDVIZ_COLLECTOR__SINKS__DEBUG__ENABLED", "true")
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !cfg.Sinks["debug"].IsEnabled() {
		t.Fatal("want sink debug enabled via env")
	}
	if cfg.Sinks["debug"].Type != "debug" {
		t.Fatal("env override must keep the other keys of the entry")
	}
}

func TestResolve_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "collector.toml", `
[sinks.debug]
enabled = true

[sources.cdevents_local_json]
enabled = true
path = "./from-file"
`)
	t.Setenv("CDVIZ_COLLECTOR__SINKS__DEBUG__ENABLED", "false")
	t.Setenv("CDVIZ_COLLECTOR__SOURCES__CDEVENTS_LOCAL_JSON__PATH", "./from-env")

	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Sinks["debug"].IsEnabled() {
		t.Fatal("env must win over file")
	}
	src := cfg.Sources["cdevents_local_json"]
	if !src.IsEnabled() {
		t.Fatal("want source enabled via file")
	}
	if got := src.Settings["path"]; got != "./from-env" {
		t.Fatalf("want path from env, got %v", got)
	}
	if got := src.Settings["pattern"]; got != "*.json" {
		t.Fatalf("want pattern kept from base, got %v", got)
	}
}

func TestResolve_FileMergesPerEntry(t *testing.T) {
	path := writeFile(t, "collector.toml", `
[sinks.archive]
type = "folder"
path = "./archive"
`)
	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := cfg.Sinks["debug"]; !ok {
		t.Fatal("file layer must not replace the whole sinks map")
	}
	archive := cfg.Sinks["archive"]
	if !archive.IsEnabled() {
		t.Fatal("entry without enabled flag defaults to enabled")
	}
	if archive.Settings["path"] != "./archive" {
		t.Fatalf("unexpected settings: %v", archive.Settings)
	}
}

func TestResolve_YAMLFile(t *testing.T) {
	path := writeFile(t, "collector.yaml", `
bus:
  capacity: 7
sinks:
  debug:
    enabled: true
`)
	cfg, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Bus.Capacity != 7 {
		t.Fatalf("want capacity 7, got %d", cfg.Bus.Capacity)
	}
	if !cfg.Sinks["debug"].IsEnabled() {
		t.Fatal("want debug enabled from yaml")
	}
}

func TestResolve_NotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	_, err := Resolve(missing)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Path != missing {
		t.Fatalf("want NotFoundError carrying path, got %v", err)
	}
}

func TestResolve_NotFoundIgnoresBrokenEnv(t *testing.T) {
	t.Setenv("CDVIZ_COLLECTOR__BUS__CAPACITY", "not-a-number")
	_, err := Resolve(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing file must be reported before any merge, got %v", err)
	}
}

func TestResolve_ParseErrors(t *testing.T) {
	cases := map[string]string{
		"syntax.toml":   "[sinks.debug\nenabled = true",
		"badtype.toml":  "[sinks.debug]\nenabled = \"sometimes\"",
		"notype.toml":   "[sinks.orphan]\nenabled = true",
		"capacity.toml": "[bus]\ncapacity = 0",
		"upper.toml":    "[sinks.MyDebug]\ntype = \"debug\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(writeFile(t, name, body))
			if !errors.Is(err, ErrParse) {
				t.Fatalf("want ErrParse, got %v", err)
			}
		})
	}
}

func TestResolve_EnvParseError(t *testing.T) {
	t.Setenv("CDVIZ_COLLECTOR__BUS__CAPACITY", "lots")
	if _, err := Resolve(""); !errors.Is(err, ErrParse) {
		t.Fatalf("want ErrParse, got %v", err)
	}
}

func TestResolve_UppercaseEntryRejected(t *testing.T) {
	p := writeFile(t, "collector.yaml", "sources:\n  Hook:\n    type: noop\n")
	_, err := Resolve(p)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("want ErrParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "sources.Hook: entry names must be lowercase") {
		t.Fatalf("unexpected error %v", err)
	}
}
