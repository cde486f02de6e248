package config

// Enabler is the capability every source and sink entry exposes to the
// supervisor, independent of its other fields.
type Enabler interface {
	IsEnabled() bool
}

// Config is the resolved configuration tree. It is built once at startup and
// treated as read-only afterwards.
type Config struct {
	Sources   map[string]SourceConfig `koanf:"sources" yaml:"sources"`
	Sinks     map[string]SinkConfig   `koanf:"sinks" yaml:"sinks"`
	Bus       BusConfig               `koanf:"bus" yaml:"bus"`
	Telemetry TelemetryConfig         `koanf:"telemetry" yaml:"telemetry"`
}

type BusConfig struct {
	Capacity int `koanf:"capacity" yaml:"capacity"`
}

// TelemetryConfig holds listen addresses; an empty address disables the
// corresponding endpoint.
type TelemetryConfig struct {
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr"`
	GRPCAddr    string `koanf:"grpc_addr" yaml:"grpc_addr"`
}

// SourceConfig is one named entry under [sources]. Type selects the adapter
// kind; every other key is kept in Settings and decoded by that kind.
type SourceConfig struct {
	Enabled  *bool          `koanf:"enabled" yaml:"enabled,omitempty"`
	Type     string         `koanf:"type" yaml:"type"`
	Settings map[string]any `koanf:",remain" yaml:",inline"`
}

// IsEnabled reports whether the entry should be started. An entry without an
// explicit flag is enabled.
func (c SourceConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// SinkConfig is one named entry under [sinks].
type SinkConfig struct {
	Enabled  *bool          `koanf:"enabled" yaml:"enabled,omitempty"`
	Type     string         `koanf:"type" yaml:"type"`
	Settings map[string]any `koanf:",remain" yaml:",inline"`
}

func (c SinkConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

const DefaultBusCapacity = 100

// Default returns the compiled-in lowest layer.
func Default() Config {
	return Config{
		Sources: map[string]SourceConfig{},
		Sinks:   map[string]SinkConfig{},
		Bus:     BusConfig{Capacity: DefaultBusCapacity},
	}
}

// EnabledSources returns the subset of sources whose IsEnabled is true.
func (c Config) EnabledSources() map[string]SourceConfig {
	return enabled(c.Sources)
}

func (c Config) EnabledSinks() map[string]SinkConfig {
	return enabled(c.Sinks)
}

func enabled[E Enabler](in map[string]E) map[string]E {
	out := make(map[string]E, len(in))
	for name, e := range in {
		if e.IsEnabled() {
			out[name] = e
		}
	}
	return out
}
