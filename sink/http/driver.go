// Package http is a sink posting every event to a CloudEvents HTTP endpoint.
package http

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/sink"
)

type Config struct {
	Destination string        `koanf:"destination"`
	Structured  bool          `koanf:"structured"` // default binary mode
	Timeout     time.Duration `koanf:"timeout"`
}

type driver struct {
	cfg    Config
	client cloudevents.Client
}

func (d *driver) Configure(_ adapter.Env, s adapter.Settings) error {
	cfg := Config{Timeout: 10 * time.Second}
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	if cfg.Destination == "" {
		return errors.New("http sink: destination is required")
	}
	u, err := url.Parse(cfg.Destination)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("http sink: destination %q is not an http(s) url", cfg.Destination)
	}
	d.cfg = cfg
	return nil
}

func (d *driver) Open(context.Context) error {
	c, err := cloudevents.NewClientHTTP(
		cloudevents.WithTarget(d.cfg.Destination),
		cehttp.WithClient(nethttp.Client{Timeout: d.cfg.Timeout}),
	)
	if err != nil {
		return err
	}
	d.client = c
	return nil
}

func (d *driver) Push(ctx context.Context, m message.Message) error {
	if d.cfg.Structured {
		ctx = cloudevents.WithEncodingStructured(ctx)
	} else {
		ctx = cloudevents.WithEncodingBinary(ctx)
	}
	if res := d.client.Send(ctx, m.Event()); !cloudevents.IsACK(res) {
		return fmt.Errorf("send %s: %w", m.ID(), res)
	}
	return nil
}

func (d *driver) Close() error { return nil }

func init() { sink.Register("http", func() sink.Adapter { return &driver{} }) }
