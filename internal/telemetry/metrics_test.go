package telemetry

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/message"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Delivered("debug", nil)
	m.Lagged("debug", 3)
	m.TaskStarted("sink", "debug")
	m.TaskStopped("sink", "debug", errors.New("x"))
}

func TestMetrics_TaskLifecycle(t *testing.T) {
	m := New()
	m.TaskStarted("sink", "debug")
	m.TaskStarted("source", "webhook")
	m.TaskStopped("source", "webhook", errors.New("boom"))

	if got := testutil.ToFloat64(m.tasks.WithLabelValues("sink")); got != 1 {
		t.Fatalf("want 1 running sink, got %v", got)
	}
	if got := testutil.ToFloat64(m.tasks.WithLabelValues("source")); got != 0 {
		t.Fatalf("want 0 running sources, got %v", got)
	}
	if got := testutil.ToFloat64(m.failed.WithLabelValues("source")); got != 1 {
		t.Fatalf("want 1 source failure, got %v", got)
	}
}

func TestExpose_ServesBusCounters(t *testing.T) {
	m := New()
	pub, b := bus.New[message.Message](4)
	m.BusCreated(b)
	sub := pub.Subscribe()
	defer sub.Close()
	pub.Publish(message.Message{})
	m.Lagged("debug", 2)

	srv, err := Expose("127.0.0.1:0", m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Expose: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"cdviz_collector_bus_published_total 1",
		"cdviz_collector_bus_receivers 1",
		`cdviz_collector_sink_lagged_messages_total{sink="debug"} 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("missing %q in:\n%s", want, body)
		}
	}
}
