package natsx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

func runServer(t *testing.T) string {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

type event struct {
	ID string `json:"_id"`
}

func TestPublishSubscribe(t *testing.T) {
	url := runServer(t)
	c, err := NewNatsxClient(NatsxConfig{Servers: []string{url}, Name: "test"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{}, 4)
	cons := NewNatsxConsumer(c, NatsxRecover(), NatsxIdemMiddleware(NewMemIdem(ctx, time.Minute), 0))
	err = cons.Subscribe("chat.message.created", "", JSONHandler(func(_ context.Context, e *event, m NatsxMessage) error {
		mu.Lock()
		got = append(got, e.ID+"/"+m.MsgID())
		mu.Unlock()
		done <- struct{}{}
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	p := NewNatsxProducer(c, "chat.message.created")
	for _, id := range []string{"m1", "m1", "m2"} {
		if err := p.Publish(ctx, event{ID: id}, id); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	// the duplicate m1 must not show up late
	select {
	case <-done:
		t.Fatal("duplicate delivered")
	case <-time.After(200 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "m1/m1" || got[1] != "m2/m2" {
		t.Errorf("got %v", got)
	}
}

func TestPublishCanceled(t *testing.T) {
	url := runServer(t)
	c, err := NewNatsxClient(NatsxConfig{Servers: []string{url}})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewNatsxProducer(c, "x").Publish(ctx, event{}, ""); err == nil {
		t.Error("canceled context must fail")
	}
}

func TestNewClientNeedsServers(t *testing.T) {
	if _, err := NewNatsxClient(NatsxConfig{}); err == nil {
		t.Error("expected error without servers")
	}
}

func TestRecoverAndDecodeErrors(t *testing.T) {
	boom := NatsxChain(func(context.Context, NatsxMessage) error { panic("boom") }, NatsxRecover())
	if err := boom(context.Background(), NatsxMessage{}); err == nil {
		t.Error("panic not converted to error")
	}

	called := false
	h := JSONHandler(func(context.Context, *event, NatsxMessage) error {
		called = true
		return nil
	})
	if err := h(context.Background(), NatsxMessage{Subject: "s", Data: []byte("{")}); err == nil || called {
		t.Errorf("bad json: err=%v called=%v", err, called)
	}
}
