// Package engine wires the configured adapters to the supervisor and owns
// the side endpoints (metrics, health).
package engine

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/config"
	"cdviz-collector/internal/message"
	"cdviz-collector/internal/supervisor"
	"cdviz-collector/internal/telemetry"
	"cdviz-collector/internal/transport"
	"cdviz-collector/sink"
	"cdviz-collector/source"
)

type Engine struct {
	cfg     config.Config
	log     *slog.Logger
	workDir string

	metrics    *telemetry.Metrics
	metricsSrv *http.Server
	transport  *transport.Server
}

// Run blocks until every source and sink has stopped, then closes the side
// endpoints.
func (e *Engine) Run(ctx context.Context) error {
	defer e.shutdown()

	obs := supervisor.Observers{e.metrics}
	if e.transport != nil {
		obs = append(obs, e.transport)
		go func() {
			if err := e.transport.Serve(); err != nil {
				e.log.Error("health service stopped", "err", err)
			}
		}()
	}
	return supervisor.Run(ctx, e.cfg, e,
		supervisor.WithLogger(e.log),
		supervisor.WithObserver(obs),
	)
}

// HealthAddr is empty when the health service is disabled.
func (e *Engine) HealthAddr() string {
	if e.transport == nil {
		return ""
	}
	return e.transport.Addr()
}

func (e *Engine) env(name string) adapter.Env {
	return adapter.Env{
		Name:    name,
		Logger:  e.log,
		Metrics: e.metrics,
		WorkDir: e.workDir,
	}
}

func (e *Engine) StartSource(name string, cfg config.SourceConfig, pub *bus.Publisher[message.Message]) supervisor.Task {
	env := e.env(name)
	return func(ctx context.Context) error { return source.Run(ctx, env, cfg, pub) }
}

func (e *Engine) StartSink(name string, cfg config.SinkConfig, sub *bus.Subscriber[message.Message]) supervisor.Task {
	env := e.env(name)
	return func(ctx context.Context) error { return sink.Run(ctx, env, cfg, sub) }
}

func (e *Engine) shutdown() {
	if e.transport != nil {
		e.transport.Stop()
	}
	if e.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.metricsSrv.Shutdown(ctx)
	}
}
