// Package folder is a sink writing each event as <uuid>.json into a
// directory.
package folder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/sink"
)

type Config struct {
	Path string `koanf:"path"`
}

type driver struct {
	dir string
}

func (d *driver) Configure(env adapter.Env, s adapter.Settings) error {
	var cfg Config
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	if cfg.Path == "" {
		return errors.New("folder sink: path is required")
	}
	d.dir = env.Path(cfg.Path)
	return nil
}

func (d *driver) Open(context.Context) error {
	return os.MkdirAll(d.dir, 0o755)
}

// Push writes through a temporary name and renames, so a folder source
// watching the same directory never reads a partial file.
func (d *driver) Push(_ context.Context, m message.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	name := uuid.NewString()
	tmp := filepath.Join(d.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, filepath.Join(d.dir, name+".json"))
}

func (d *driver) Close() error { return nil }

func init() { sink.Register("folder", func() sink.Adapter { return &driver{} }) }
