package sink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/config"
	"cdviz-collector/internal/message"
	"cdviz-collector/internal/telemetry"
)

type recorder struct {
	mu     sync.Mutex
	ids    []string
	failOn string
	opened bool
	closed bool
}

func (r *recorder) Configure(adapter.Env, adapter.Settings) error { return nil }
func (r *recorder) Open(context.Context) error                    { r.opened = true; return nil }
func (r *recorder) Close() error                                  { r.closed = true; return nil }
func (r *recorder) Push(_ context.Context, m message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, m.ID())
	if m.ID() == r.failOn {
		return errors.New("refused")
	}
	return nil
}

func msg(t *testing.T, id string) message.Message {
	t.Helper()
	m, err := message.Parse([]byte(`{"specversion":"1.0","id":"` + id + `","source":"/ci","type":"t"}`))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRun_PushFailureDoesNotStop(t *testing.T) {
	r := &recorder{failOn: "b"}
	Register("test-recorder", func() Adapter { return r })

	pub, b := bus.New[message.Message](8)
	sub := b.Subscribe()
	for _, id := range []string{"a", "b", "c"} {
		pub.Publish(msg(t, id))
	}
	pub.Close()

	m := telemetry.New()
	env := adapter.Env{Name: "rec", Metrics: m}
	if err := Run(context.Background(), env, config.SinkConfig{Type: "test-recorder"}, sub); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.ids) != 3 || r.ids[2] != "c" {
		t.Fatalf("unexpected pushes %v", r.ids)
	}
	if !r.opened || !r.closed {
		t.Fatal("adapter must be opened and closed")
	}
	if n, err := testutil.GatherAndCount(m.Registry(), "cdviz_collector_sink_messages_total"); err != nil || n != 2 {
		t.Fatalf("want ok and error series, got %d (%v)", n, err)
	}
}

func TestRun_LagIsSkipped(t *testing.T) {
	r := &recorder{}
	Register("test-lag", func() Adapter { return r })

	pub, b := bus.New[message.Message](2)
	sub := b.Subscribe()
	for _, id := range []string{"x", "y", "z"} {
		pub.Publish(msg(t, id))
	}
	pub.Close()

	m := telemetry.New()
	if err := Run(context.Background(), adapter.Env{Name: "lag", Metrics: m}, config.SinkConfig{Type: "test-lag"}, sub); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.ids) != 2 || r.ids[0] != "y" || r.ids[1] != "z" {
		t.Fatalf("want [y z], got %v", r.ids)
	}
	const want = `
# HELP cdviz_collector_sink_lagged_messages_total Messages a sink skipped because it fell behind the bus.
# TYPE cdviz_collector_sink_lagged_messages_total counter
cdviz_collector_sink_lagged_messages_total{sink="lag"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "cdviz_collector_sink_lagged_messages_total"); err != nil {
		t.Fatal(err)
	}
}

func TestRun_CancelIsNormalStop(t *testing.T) {
	Register("test-idle", func() Adapter { return &recorder{} })
	_, b := bus.New[message.Message](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, adapter.Env{}, config.SinkConfig{Type: "test-idle"}, b.Subscribe()); err != nil {
		t.Fatalf("want nil on cancel, got %v", err)
	}
}

func TestNewAdapter_UnknownType(t *testing.T) {
	if _, err := NewAdapter(adapter.Env{Name: "x"}, config.SinkConfig{Type: "carrier-pigeon"}); err == nil {
		t.Fatal("want error for unknown type")
	}
}
