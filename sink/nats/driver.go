// Package nats is a sink publishing every event, structured JSON, on a NATS
// subject.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/sink"
)

type Config struct {
	URL     string        `koanf:"url"`
	Subject string        `koanf:"subject"`
	Timeout time.Duration `koanf:"timeout"`
}

// publisher is the part of *nats.Conn the sink needs.
type publisher interface {
	PublishMsg(*nats.Msg) error
	FlushTimeout(time.Duration) error
	Close()
}

type driver struct {
	cfg  Config
	name string
	log  *slog.Logger
	conn publisher

	connect func(Config) (publisher, error)
}

func (d *driver) Configure(env adapter.Env, s adapter.Settings) error {
	cfg := Config{URL: nats.DefaultURL, Timeout: 5 * time.Second}
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	if cfg.Subject == "" {
		return errors.New("nats sink: subject is required")
	}
	d.cfg, d.name, d.log = cfg, env.Name, env.Log()
	if d.connect == nil {
		d.connect = d.dial
	}
	return nil
}

func (d *driver) dial(cfg Config) (publisher, error) {
	return nats.Connect(cfg.URL,
		nats.Name("cdviz-collector"),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			d.log.Warn("nats disconnected", "kind", "sink", "name", d.name, "err", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			d.log.Info("nats reconnected", "kind", "sink", "name", d.name, "url", c.ConnectedUrl())
		}),
	)
}

func (d *driver) Open(context.Context) error {
	c, err := d.connect(d.cfg)
	if err != nil {
		return err
	}
	d.conn = c
	return nil
}

func (d *driver) Push(_ context.Context, m message.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(d.cfg.Subject)
	msg.Header.Set("Content-Type", "application/cloudevents+json")
	msg.Header.Set(nats.MsgIdHdr, m.ID())
	msg.Data = b
	return d.conn.PublishMsg(msg)
}

func (d *driver) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.FlushTimeout(d.cfg.Timeout)
	d.conn.Close()
	d.conn = nil
	return err
}

func init() { sink.Register("nats", func() sink.Adapter { return &driver{} }) }
