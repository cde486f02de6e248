package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
)

func msg(t *testing.T, id string) message.Message {
	t.Helper()
	m, err := message.Parse([]byte(`{"specversion":"1.0","id":"` + id + `","source":"/ci","type":"dev.cdevents.test","data":{"k":"v"}}`))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func open(t *testing.T, s adapter.Settings) *driver {
	t.Helper()
	d := &driver{}
	if err := d.Configure(adapter.Env{}, s); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := d.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return d
}

func TestPush_Binary(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("Ce-Id"))
		mu.Unlock()
		w.WriteHeader(nethttp.StatusAccepted)
	}))
	defer srv.Close()

	d := open(t, adapter.Settings{"destination": srv.URL})
	if err := d.Push(context.Background(), msg(t, "e1")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(ids) != 1 || ids[0] != "e1" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestPush_Structured(t *testing.T) {
	var ct string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ct = r.Header.Get("Content-Type")
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer srv.Close()

	d := open(t, adapter.Settings{"destination": srv.URL, "structured": true})
	if err := d.Push(context.Background(), msg(t, "e1")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if ct != "application/cloudevents+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestPush_ServerErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusInternalServerError)
	}))
	defer srv.Close()

	d := open(t, adapter.Settings{"destination": srv.URL})
	if err := d.Push(context.Background(), msg(t, "e1")); err == nil {
		t.Fatal("want error on 500")
	}
}

func TestConfigure_Destination(t *testing.T) {
	for _, dest := range []string{"", "ftp://x", "not a url"} {
		if err := (&driver{}).Configure(adapter.Env{}, adapter.Settings{"destination": dest}); err == nil {
			t.Fatalf("want error for %q", dest)
		}
	}
}
