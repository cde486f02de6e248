// Package kafka is a source consuming CloudEvents from Kafka topics through a
// sarama consumer group. Records may carry the event in structured mode (the
// whole JSON event as value) or binary mode (ce_* headers plus data), decoded
// with the CloudEvents Kafka binding.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/cloudevents/sdk-go/protocol/kafka_sarama/v2"
	"github.com/cloudevents/sdk-go/v2/binding"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
	"cdviz-collector/source"
)

type SaramaDriver struct {
	cfg  Config
	sc   *sarama.Config
	name string
	log  *slog.Logger

	cl    sarama.Client
	group sarama.ConsumerGroup
}

func (d *SaramaDriver) Configure(env adapter.Env, s adapter.Settings) error {
	var cfg Config
	if err := adapter.Decode(s, &cfg); err != nil {
		return err
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("kafka source: %w", err)
	}
	sc, err := cfg.saramaConfig()
	if err != nil {
		return fmt.Errorf("kafka source: %w", err)
	}
	d.cfg, d.sc, d.name, d.log = cfg, sc, env.Name, env.Log()
	return nil
}

func (d *SaramaDriver) Run(ctx context.Context, emit source.EmitFunc) error {
	var err error
	if d.cl, err = sarama.NewClient(d.cfg.Brokers, d.sc); err != nil {
		return fmt.Errorf("kafka source: %w", err)
	}
	if d.group, err = sarama.NewConsumerGroupFromClient(d.cfg.GroupID, d.cl); err != nil {
		return fmt.Errorf("kafka source: %w", err)
	}
	go func() {
		for err := range d.group.Errors() {
			d.log.Warn("consumer group error", "kind", "source", "name", d.name, "err", err)
		}
	}()

	handler := &groupHandler{emit: emit, name: d.name, log: d.log}
	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	var errs []error
	if d.group != nil {
		errs = append(errs, d.group.Close())
	}
	if d.cl != nil && !d.cl.Closed() {
		errs = append(errs, d.cl.Close())
	}
	return errors.Join(errs...)
}

type groupHandler struct {
	emit source.EmitFunc
	name string
	log  *slog.Logger
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim emits every decodable record and marks it. Records that are
// not CloudEvents are logged and marked too, so they are not redelivered.
func (h *groupHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			m, err := decodeRecord(sess.Context(), msg)
			if err != nil {
				h.log.Warn("skipping record", "kind", "source", "name", h.name,
					"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
				sess.MarkMessage(msg, "")
				continue
			}
			if err := h.emit(m); err != nil {
				return err
			}
			sess.MarkMessage(msg, "")
		}
	}
}

// decodeRecord reads a record through the CloudEvents Kafka binding. A record
// without binding headers is taken as a bare structured JSON event.
func decodeRecord(ctx context.Context, msg *sarama.ConsumerMessage) (message.Message, error) {
	bm := kafka_sarama.NewMessageFromConsumerMessage(msg)
	defer bm.Finish(nil)
	if bm.ReadEncoding() == binding.EncodingUnknown {
		return message.Parse(msg.Value)
	}
	e, err := binding.ToEvent(ctx, bm)
	if err != nil {
		return message.Message{}, err
	}
	if err := e.Validate(); err != nil {
		return message.Message{}, err
	}
	return message.New(*e), nil
}

func init() { source.Register("kafka", func() source.Adapter { return &SaramaDriver{} }) }
