package engine

import (
	"fmt"
	"log/slog"

	"cdviz-collector/internal/config"
	"cdviz-collector/internal/telemetry"
	"cdviz-collector/internal/transport"
)

type Options struct {
	Config config.Config
	Logger *slog.Logger
	// WorkDir anchors relative paths in adapter settings.
	WorkDir string
}

// Bootstrap opens the optional side endpoints. Adapters are only built once
// Run is called.
func Bootstrap(opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		cfg:     opts.Config,
		log:     log,
		workDir: opts.WorkDir,
		metrics: telemetry.New(),
	}

	// 1. transport server
	if addr := e.cfg.Telemetry.GRPCAddr; addr != "" {
		srv, err := transport.StartServer(addr)
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		e.transport = srv
		log.Info("health service listening", "addr", srv.Addr())
	}

	// 2. metrics
	if addr := e.cfg.Telemetry.MetricsAddr; addr != "" {
		srv, err := telemetry.Expose(addr, e.metrics, log)
		if err != nil {
			e.shutdown()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		e.metricsSrv = srv
		log.Info("metrics listening", "addr", srv.Addr)
	}
	return e, nil
}
