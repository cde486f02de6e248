// Package debug is a sink that only reports what it would send: through the
// logger by default, or as JSON lines on stdout.
package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/sink"
)

type Config struct {
	JSON         bool `koanf:"json"`          // print the event instead of logging it
	PrintCounter bool `koanf:"print_counter"` // prepend seq#
}

type driver struct {
	cfg  Config
	name string
	log  *slog.Logger

	mu  sync.Mutex // guards out
	out io.Writer
	seq atomic.Uint64
}

func (d *driver) Configure(env adapter.Env, s adapter.Settings) error {
	var cfg Config
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	d.cfg, d.name, d.log = cfg, env.Name, env.Log()
	if d.out == nil {
		d.out = os.Stdout
	}
	return nil
}

func (d *driver) Open(context.Context) error { return nil }

func (d *driver) Push(_ context.Context, m message.Message) error {
	n := d.seq.Add(1)
	if !d.cfg.JSON {
		attrs := []any{"kind", "sink", "name", d.name, "id", m.ID(), "type", m.Type(), "source", m.Source()}
		if d.cfg.PrintCounter {
			attrs = append(attrs, "seq", n)
		}
		d.log.Info("mock sending", attrs...)
		return nil
	}

	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.PrintCounter {
		_, err = fmt.Fprintf(d.out, "[sink %06d] %s\n", n, b)
	} else {
		_, err = fmt.Fprintf(d.out, "%s\n", b)
	}
	return err
}

func (d *driver) Close() error { return nil }

func init() {
	sink.Register("debug", func() sink.Adapter { return &driver{} })
}
