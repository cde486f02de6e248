// Package noop is a source that never emits. It keeps a collector running
// when only push-style sinks are being tried out.
package noop

import (
	"context"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/source"
)

type driver struct{}

func (driver) Configure(adapter.Env, adapter.Settings) error { return nil }

func (driver) Run(ctx context.Context, _ source.EmitFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func (driver) Close() error { return nil }

func init() { source.Register("noop", func() source.Adapter { return driver{} }) }
