// Package webhook is the "http" source: it accepts CloudEvents posted in
// structured or binary mode.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/source"
)

type Config struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	Path string `koanf:"path"`
}

const shutdownTimeout = 5 * time.Second

type driver struct {
	cfg  Config
	name string
	log  *slog.Logger
}

func (d *driver) Configure(env adapter.Env, s adapter.Settings) error {
	cfg := Config{Host: "0.0.0.0", Port: 8080, Path: "/cdevents"}
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("http source: invalid port %d", cfg.Port)
	}
	if cfg.Path == "" || cfg.Path[0] != '/' {
		return fmt.Errorf("http source: path must start with '/', got %q", cfg.Path)
	}
	d.cfg, d.name, d.log = cfg, env.Name, env.Log()
	return nil
}

// Handler routes POST <path> to emit.
func (d *driver) Handler(emit source.EmitFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post(d.cfg.Path, func(w http.ResponseWriter, req *http.Request) {
		ev, err := cehttp.NewEventFromHTTPRequest(req)
		if err != nil {
			d.log.Debug("rejected request", "kind", "source", "name", d.name, "err", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := ev.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := emit(message.New(*ev)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http source: listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: d.Handler(emit), ReadHeaderTimeout: 10 * time.Second}
	d.log.Info("listening", "kind", "source", "name", d.name, "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (d *driver) Close() error { return nil }

func init() { source.Register("http", func() source.Adapter { return &driver{} }) }
