package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix selects the environment overrides, e.g.
	// CDVIZ_COLLECTOR__SINKS__DEBUG__ENABLED=true. Variable names are
	// lowercased into keys, which is why entry names must be lowercase.
	EnvPrefix = "CDVIZ_COLLECTOR__"
	envDelim  = "__"
)

//go:embed assets/collector.base.toml
var baseConfig []byte

// Resolve merges, lowest to highest precedence: compiled-in defaults, the
// embedded baseline, the optional file at path and the environment.
// Named entries merge per key, so a higher layer only overrides the keys it
// defines.
func Resolve(path string) (Config, error) {
	if path != "" {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			return Config{}, &NotFoundError{Path: path}
		}
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, &ParseError{Layer: "defaults", Err: err}
	}
	if err := k.Load(rawbytes.Provider(baseConfig), toml.Parser()); err != nil {
		return Config{}, &ParseError{Layer: "base", Err: err}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return Config{}, &ParseError{Layer: path, Err: err}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, &ParseError{Layer: "env", Err: err}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, &ParseError{Layer: "extract", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, &ParseError{Layer: "validate", Err: err}
	}
	return cfg, nil
}

// envKey maps CDVIZ_COLLECTOR__SINKS__DEBUG__ENABLED to sinks.debug.enabled.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, envDelim, ".")
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

func (c *Config) validate() error {
	if c.Sources == nil {
		c.Sources = map[string]SourceConfig{}
	}
	if c.Sinks == nil {
		c.Sinks = map[string]SinkConfig{}
	}
	if c.Bus.Capacity < 1 {
		return fmt.Errorf("bus.capacity must be positive, got %d", c.Bus.Capacity)
	}
	var errs []error
	for name, s := range c.Sources {
		errs = append(errs, checkEntry("sources", name, s.Type))
	}
	for name, s := range c.Sinks {
		errs = append(errs, checkEntry("sinks", name, s.Type))
	}
	return errors.Join(errs...)
}

func checkEntry(section, name, typ string) error {
	var errs []error
	if name != strings.ToLower(name) {
		errs = append(errs, fmt.Errorf("%s.%s: entry names must be lowercase", section, name))
	}
	if typ == "" {
		errs = append(errs, fmt.Errorf("%s.%s: missing type", section, name))
	}
	return errors.Join(errs...)
}
