package telemetry

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/message"
)

const namespace = "cdviz_collector"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	reg      *prometheus.Registry
	received *prometheus.CounterVec
	lagged   *prometheus.CounterVec
	failed   *prometheus.CounterVec
	tasks    *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_messages_total",
			Help:      "Messages handed to a sink, by outcome.",
		}, []string{"sink", "outcome"}),
		lagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_lagged_messages_total",
			Help:      "Messages a sink skipped because it fell behind the bus.",
		}, []string{"sink"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_failures_total",
			Help:      "Adapter tasks that stopped with an error.",
		}, []string{"kind"}),
		tasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Adapter tasks currently running.",
		}, []string{"kind"}),
	}
	m.reg.MustRegister(
		m.received, m.lagged, m.failed, m.tasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Delivered counts one message pushed to sink; err nil means success.
func (m *Metrics) Delivered(sink string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.received.WithLabelValues(sink, outcome).Inc()
}

func (m *Metrics) Lagged(sink string, n uint64) {
	if m == nil {
		return
	}
	m.lagged.WithLabelValues(sink).Add(float64(n))
}

// BusCreated exports the bus publish counter and subscriber count.
func (m *Metrics) BusCreated(b *bus.Bus[message.Message]) {
	if m == nil {
		return
	}
	m.reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_published_total",
			Help:      "Messages published on the bus.",
		}, func() float64 { return float64(b.Published()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_receivers",
			Help:      "Subscribers attached to the bus.",
		}, func() float64 { return float64(b.ReceiverCount()) }),
	)
}

func (m *Metrics) TaskStarted(kind, _ string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(kind).Inc()
}

func (m *Metrics) TaskStopped(kind, _ string, err error) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(kind).Dec()
	if err != nil {
		m.failed.WithLabelValues(kind).Inc()
	}
}

// Expose serves /metrics on addr in the background until the returned
// server is closed.
func Expose(addr string, m *Metrics, log *slog.Logger) (*http.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: lis.Addr().String(), Handler: mux}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	return srv, nil
}
