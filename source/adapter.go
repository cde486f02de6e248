package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/config"
	"cdviz-collector/internal/message"
)

// EmitFunc hands one message to the collector.
type EmitFunc func(message.Message) error

// Adapter is the behaviour every source kind exposes. Configure only decodes
// and validates; connections are opened in Run, which blocks until ctx is
// done or the source fails.
type Adapter interface {
	Configure(adapter.Env, adapter.Settings) error
	Run(context.Context, EmitFunc) error
	Close() error
}

/*──────── registry ───────*/

// Factory builds an unconfigured Adapter.
type Factory func() Adapter

var (
	mu  sync.RWMutex
	reg = map[string]Factory{}
)

// Register is called from each kind's init().
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	reg[kind] = f
}

func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewAdapter returns a configured adapter for the entry.
func NewAdapter(env adapter.Env, cfg config.SourceConfig) (Adapter, error) {
	mu.RLock()
	f, ok := reg[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
	a := f()
	if err := a.Configure(env, cfg.Settings); err != nil {
		return nil, fmt.Errorf("source %s (%s): %w", env.Name, cfg.Type, err)
	}
	return a, nil
}

// Run builds the adapter and runs it, publishing every emitted message on
// pub. The adapter is closed when Run returns; a cancelled ctx is a normal
// stop.
func Run(ctx context.Context, env adapter.Env, cfg config.SourceConfig, pub *bus.Publisher[message.Message]) error {
	a, err := NewAdapter(env, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			env.Log().Warn("close failed", "kind", "source", "name", env.Name, "err", cerr)
		}
	}()

	log := env.Log()
	emit := func(m message.Message) error {
		n := pub.Publish(m)
		log.Debug("published", "kind", "source", "name", env.Name, "id", m.ID(), "receivers", n)
		return nil
	}
	err = a.Run(ctx, emit)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
