// Package folder is a source reading one CloudEvent per JSON file from a
// directory: files present at start, then files created or rewritten later.
package folder

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/source"
)

type Config struct {
	Path    string `koanf:"path"`
	Pattern string `koanf:"pattern"`
}

type driver struct {
	cfg  Config
	dir  string
	name string
	log  *slog.Logger
	// seen holds the digest of the content last emitted per file, so the
	// Create and Write events of one write publish once.
	seen map[string][sha256.Size]byte
}

func (d *driver) Configure(env adapter.Env, s adapter.Settings) error {
	cfg := Config{Pattern: "*.json"}
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	if cfg.Path == "" {
		return errors.New("folder source: path is required")
	}
	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return fmt.Errorf("folder source: pattern %q: %w", cfg.Pattern, err)
	}
	d.cfg, d.dir, d.name, d.log = cfg, env.Path(cfg.Path), env.Name, env.Log()
	d.seen = map[string][sha256.Size]byte{}
	return nil
}

func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("folder source: %w", err)
	}
	defer w.Close()
	// watch first so files created during the scan are not missed
	if err := w.Add(d.dir); err != nil {
		return fmt.Errorf("folder source: watch %s: %w", d.dir, err)
	}

	if err := d.scan(emit); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if err := d.handle(ev.Name, emit); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("watch error", "kind", "source", "name", d.name, "err", err)
		}
	}
}

func (d *driver) scan(emit source.EmitFunc) error {
	files, err := filepath.Glob(filepath.Join(d.dir, d.cfg.Pattern))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		if err := d.handle(f, emit); err != nil {
			return err
		}
	}
	return nil
}

// handle emits the event stored in path unless that exact content was
// already emitted. Unreadable or invalid files are logged and skipped; only
// an emit failure stops the source.
func (d *driver) handle(path string, emit source.EmitFunc) error {
	if ok, _ := filepath.Match(d.cfg.Pattern, filepath.Base(path)); !ok {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		d.log.Warn("read failed", "kind", "source", "name", d.name, "file", path, "err", err)
		return nil
	}
	if len(b) == 0 {
		// created but not written yet; a Write event follows
		return nil
	}
	sum := sha256.Sum256(b)
	if prev, done := d.seen[path]; done && prev == sum {
		return nil
	}
	m, err := message.Parse(b)
	if err != nil {
		d.log.Warn("skipping invalid event", "kind", "source", "name", d.name, "file", path, "err", err)
		return nil
	}
	if err := emit(m); err != nil {
		return err
	}
	d.seen[path] = sum
	return nil
}

func (d *driver) Close() error { return nil }

func init() { source.Register("folder", func() source.Adapter { return &driver{} }) }
