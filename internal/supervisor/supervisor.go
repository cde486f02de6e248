// Package supervisor starts every enabled source and sink around one bus and
// joins them into a single outcome.
package supervisor

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"cdviz-collector/internal/bus"
	"cdviz-collector/internal/config"
	"cdviz-collector/internal/message"
)

const (
	KindSource = "source"
	KindSink   = "sink"
)

// Task is one running adapter. It returns nil only when the adapter finished
// normally; adapters are expected to run until ctx is done.
type Task func(ctx context.Context) error

// Starter turns a named config entry plus its bus endpoint into a Task.
type Starter interface {
	StartSource(name string, cfg config.SourceConfig, pub *bus.Publisher[message.Message]) Task
	StartSink(name string, cfg config.SinkConfig, sub *bus.Subscriber[message.Message]) Task
}

// Observer is notified about the bus and the task lifecycle.
type Observer interface {
	BusCreated(b *bus.Bus[message.Message])
	TaskStarted(kind, name string)
	TaskStopped(kind, name string, err error)
}

type options struct {
	logger   *slog.Logger
	observer Observer
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// Run validates that at least one sink and one source are enabled, subscribes
// every sink before any source is started, then waits for all tasks.
//
// The first task to fail cancels the context shared by its siblings; Run
// returns that failure, wrapped in a *TaskFailureError, once every task has
// returned.
func Run(ctx context.Context, cfg config.Config, starter Starter, opts ...Option) error {
	o := options{logger: slog.Default(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	sinks := cfg.EnabledSinks()
	if len(sinks) == 0 {
		log.Error("no sink configured or started")
		return ErrNoSink
	}
	sources := cfg.EnabledSources()
	if len(sources) == 0 {
		log.Error("no source configured or started")
		return ErrNoSource
	}

	capacity := cfg.Bus.Capacity
	if capacity < 1 {
		capacity = config.DefaultBusCapacity
	}
	pub, b := bus.New[message.Message](capacity)
	o.observer.BusCreated(b)

	g, gctx := errgroup.WithContext(ctx)
	run := func(kind, name string, task Task, release func()) {
		o.observer.TaskStarted(kind, name)
		g.Go(func() error {
			defer release()
			err := task(gctx)
			o.observer.TaskStopped(kind, name, err)
			if err != nil {
				log.Error("task failed", "kind", kind, "name", name, "err", err)
				return &TaskFailureError{Kind: kind, Name: name, Err: err}
			}
			log.Info("task finished", "kind", kind, "name", name)
			return nil
		})
	}

	for _, name := range sortedKeys(sinks) {
		log.Info("starting", "kind", KindSink, "name", name)
		sub := b.Subscribe()
		run(KindSink, name, starter.StartSink(name, sinks[name], sub), sub.Close)
	}
	for _, name := range sortedKeys(sources) {
		log.Info("starting", "kind", KindSource, "name", name)
		p := pub.Clone()
		run(KindSource, name, starter.StartSource(name, sources[name], p), p.Close)
	}
	// Only the sources hold the bus open from here on: once they are all
	// done the sinks drain the backlog and see bus.ErrClosed.
	pub.Close()

	return g.Wait()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type nopObserver struct{}

func (nopObserver) BusCreated(*bus.Bus[message.Message]) {}
func (nopObserver) TaskStarted(string, string)          {}
func (nopObserver) TaskStopped(string, string, error)   {}

// Observers fans notifications out to several observers.
type Observers []Observer

func (obs Observers) BusCreated(b *bus.Bus[message.Message]) {
	for _, o := range obs {
		o.BusCreated(b)
	}
}

func (obs Observers) TaskStarted(kind, name string) {
	for _, o := range obs {
		o.TaskStarted(kind, name)
	}
}

func (obs Observers) TaskStopped(kind, name string, err error) {
	for _, o := range obs {
		o.TaskStopped(kind, name, err)
	}
}
