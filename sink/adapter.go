package sink

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

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(adapter.Env, adapter.Settings) error // decode + validate, no I/O
	Open(context.Context) error                    // connect
	Push(context.Context, message.Message) error   // deliver one message
	Close() error                                  // idempotent
}

/*──────── registry ───────*/

type Factory func() Adapter

var (
	mu  sync.RWMutex
	reg = map[string]Factory{}
)

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

// NewAdapter returns a configured, not yet opened adapter for the entry.
func NewAdapter(env adapter.Env, cfg config.SinkConfig) (Adapter, error) {
	mu.RLock()
	f, ok := reg[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
	a := f()
	if err := a.Configure(env, cfg.Settings); err != nil {
		return nil, fmt.Errorf("sink %s (%s): %w", env.Name, cfg.Type, err)
	}
	return a, nil
}

// Run opens the adapter and pushes every message read from sub until the bus
// closes or ctx is done. A failed Push is logged and counted; the loop keeps
// going, as does falling behind the bus.
func Run(ctx context.Context, env adapter.Env, cfg config.SinkConfig, sub *bus.Subscriber[message.Message]) error {
	a, err := NewAdapter(env, cfg)
	if err != nil {
		return err
	}
	if err := a.Open(ctx); err != nil {
		_ = a.Close()
		return fmt.Errorf("sink %s (%s): open: %w", env.Name, cfg.Type, err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			env.Log().Warn("close failed", "kind", "sink", "name", env.Name, "err", cerr)
		}
	}()
	return consume(ctx, env, a, sub)
}

func consume(ctx context.Context, env adapter.Env, a Adapter, sub *bus.Subscriber[message.Message]) error {
	log := env.Log()
	for {
		m, err := sub.Recv(ctx)
		var lag *bus.LaggedError
		switch {
		case err == nil:
		case errors.As(err, &lag):
			log.Warn("sink lagged behind the bus", "kind", "sink", "name", env.Name, "skipped", lag.Count)
			env.Metrics.Lagged(env.Name, lag.Count)
			continue
		case errors.Is(err, bus.ErrClosed):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}

		perr := a.Push(ctx, m)
		env.Metrics.Delivered(env.Name, perr)
		if perr != nil {
			log.Warn("send failed", "kind", "sink", "name", env.Name, "id", m.ID(), "err", perr)
		}
	}
}
