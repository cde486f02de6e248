package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"cdviz-collector/internal/adapter"
	"cdviz-collector/internal/message"
)

type fakeConn struct {
	msgs    []*nats.Msg
	flushed bool
	closed  bool
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error       { f.msgs = append(f.msgs, m); return nil }
func (f *fakeConn) FlushTimeout(time.Duration) error { f.flushed = true; return nil }
func (f *fakeConn) Close()                           { f.closed = true }

func TestPush_PublishesOnSubject(t *testing.T) {
	fc := &fakeConn{}
	d := &driver{connect: func(Config) (publisher, error) { return fc, nil }}
	if err := d.Configure(adapter.Env{Name: "nats"}, adapter.Settings{"subject": "cdevents.raw"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	m, _ := message.Parse([]byte(`{"specversion":"1.0","id":"e1","source":"/ci","type":"t"}`))
	if err := d.Push(context.Background(), m); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if len(fc.msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(fc.msgs))
	}
	got := fc.msgs[0]
	if got.Subject != "cdevents.raw" || got.Header.Get(nats.MsgIdHdr) != "e1" {
		t.Fatalf("unexpected msg %+v", got)
	}
	if _, err := message.Parse(got.Data); err != nil {
		t.Fatalf("payload is not an event: %v", err)
	}
	if !fc.flushed || !fc.closed {
		t.Fatal("Close must flush then close the connection")
	}
}

func TestConfigure_RequiresSubject(t *testing.T) {
	if err := (&driver{}).Configure(adapter.Env{}, adapter.Settings{}); err == nil {
		t.Fatal("want error without subject")
	}
}
