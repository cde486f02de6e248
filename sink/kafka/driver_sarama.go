// Package kafka is a sink producing every event to one Kafka topic, keyed by
// event id, through the CloudEvents Kafka binding (binary mode unless
// structured is set).
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cloudevents/sdk-go/protocol/kafka_sarama/v2"
	"github.com/cloudevents/sdk-go/v2/binding"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/sink"
)

type Config struct {
	Brokers    []string      `koanf:"brokers"`
	Topic      string        `koanf:"topic"`
	Acks       int16         `koanf:"required_acks"` // 0,1,-1
	Structured bool          `koanf:"structured"`    // default binary mode
	Timeout    time.Duration `koanf:"timeout"`
}

type driver struct {
	cfg Config
	sc  *sarama.Config
	p   sarama.SyncProducer

	// newProducer is swapped by tests.
	newProducer func([]string, *sarama.Config) (sarama.SyncProducer, error)
}

func (d *driver) Configure(_ adapter.Env, s adapter.Settings) error {
	cfg := Config{Acks: int16(sarama.WaitForAll), Timeout: 10 * time.Second}
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka sink: brokers and topic are required")
	}
	switch sarama.RequiredAcks(cfg.Acks) {
	case sarama.NoResponse, sarama.WaitForLocal, sarama.WaitForAll:
	default:
		return fmt.Errorf("kafka sink: required_acks %d: want 0, 1 or -1", cfg.Acks)
	}

	sc := sarama.NewConfig()
	sc.ClientID = "cdviz-collector"
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Timeout = cfg.Timeout
	sc.Producer.Return.Successes = true
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("kafka sink: %w", err)
	}
	d.cfg, d.sc = cfg, sc
	if d.newProducer == nil {
		d.newProducer = sarama.NewSyncProducer
	}
	return nil
}

func (d *driver) Open(context.Context) error {
	p, err := d.newProducer(d.cfg.Brokers, d.sc)
	if err != nil {
		return err
	}
	d.p = p
	return nil
}

func (d *driver) Push(ctx context.Context, m message.Message) error {
	enc := binding.EncodingBinary
	if d.cfg.Structured {
		enc = binding.EncodingStructured
	}
	ctx = binding.WithPreferredEventEncoding(ctx, enc)

	e := m.Event()
	pm := &sarama.ProducerMessage{Topic: d.cfg.Topic}
	if err := kafka_sarama.WriteProducerMessage(ctx, binding.ToMessage(&e), pm); err != nil {
		return fmt.Errorf("encode %s: %w", m.ID(), err)
	}
	pm.Key = sarama.StringEncoder(m.ID())
	_, _, err := d.p.SendMessage(pm)
	return err
}

func (d *driver) Close() error {
	if d.p == nil {
		return nil
	}
	err := d.p.Close()
	d.p = nil
	return err
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
