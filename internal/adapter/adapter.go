// Package adapter holds what source and sink implementations share: the
// runtime environment handed to them and the decoding of their settings.
package adapter

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"

	"cdviz-collector/internal/telemetry"
)

// Settings are the keys of a config entry other than enabled and type.
type Settings = map[string]any

// Env is built once at startup and passed to every adapter.
type Env struct {
	Name    string
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	// WorkDir anchors relative paths found in settings. Empty means the
	// process working directory.
	WorkDir string
}

// Path resolves p against WorkDir unless it is already absolute.
func (e Env) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || e.WorkDir == "" {
		return p
	}
	return filepath.Join(e.WorkDir, p)
}

func (e Env) Log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Decode copies settings into out, a pointer to a struct using koanf tags.
// String values are converted where needed, since environment overrides
// always arrive as strings.
func Decode(settings Settings, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "koanf",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}
