package chat

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"DMChat/tools/security"

	"github.com/gorilla/websocket"
)

func startGateway(t *testing.T, opts Options, obs PresenceObserver) (*Gateway, string) {
	t.Helper()
	g := NewGateway(NewRegistry(), opts, obs)
	srv := httptest.NewServer(g)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = g.Shutdown(ctx)
		srv.Close()
	})
	return g, "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
}

func dial(t *testing.T, base, userID string, extra ...string) *websocket.Conn {
	t.Helper()
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	ws, _, err := websocket.DefaultDialer.Dial(base+"?"+q.Encode(), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) *Frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func readOnline(t *testing.T, ws *websocket.Conn) []string {
	t.Helper()
	f := readFrame(t, ws)
	if f.Event != EventOnlineUsers {
		t.Fatalf("event = %q, want %q", f.Event, EventOnlineUsers)
	}
	var ids []string
	if err := json.Unmarshal(f.Data, &ids); err != nil {
		t.Fatal(err)
	}
	return ids
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPresenceBroadcast(t *testing.T) {
	g, base := startGateway(t, Options{}, nil)

	a := dial(t, base, "alice")
	if got := readOnline(t, a); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("alice first list = %v", got)
	}

	b := dial(t, base, "bob")
	want := []string{"alice", "bob"}
	if got := readOnline(t, b); !reflect.DeepEqual(got, want) {
		t.Errorf("bob list = %v", got)
	}
	if got := readOnline(t, a); !reflect.DeepEqual(got, want) {
		t.Errorf("alice second list = %v", got)
	}

	// invisible socket hears presence but is not listed
	anon := dial(t, base, "")
	if got := readOnline(t, anon); !reflect.DeepEqual(got, want) {
		t.Errorf("anonymous list = %v", got)
	}
	readOnline(t, a)
	readOnline(t, b)

	_ = b.Close()
	if got := readOnline(t, a); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("after bob left = %v", got)
	}
	if got := readOnline(t, anon); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("anonymous after bob left = %v", got)
	}
	waitUntil(t, func() bool { return g.Connections() == 2 })
}

func TestStaleDisconnectKeepsNewerConnection(t *testing.T) {
	g, base := startGateway(t, Options{}, nil)

	first := dial(t, base, "alice")
	readOnline(t, first)
	second := dial(t, base, "alice")
	readOnline(t, second)
	readOnline(t, first)

	_ = first.Close()
	if got := readOnline(t, second); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("alice dropped by stale disconnect: %v", got)
	}
	waitUntil(t, func() bool { return g.Connections() == 1 })
	if _, ok := g.Registry().Lookup("alice"); !ok {
		t.Fatal("registry lost alice")
	}

	_ = second.Close()
	waitUntil(t, func() bool { return g.Registry().Len() == 0 })
}

func TestKickSuperseded(t *testing.T) {
	_, base := startGateway(t, Options{KickSuperseded: true}, nil)

	first := dial(t, base, "alice")
	readOnline(t, first)
	second := dial(t, base, "alice")
	readOnline(t, second)

	// the old socket may get the last list before the close frame
	_ = first.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected normal close, got %v", err)
			}
			break
		}
	}
	if got := readOnline(t, second); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("after kick = %v", got)
	}
}

type recordingObserver struct {
	events chan string
}

func (o *recordingObserver) Online(u string)  { o.events <- "+" + u }
func (o *recordingObserver) Offline(u string) { o.events <- "-" + u }

func TestObserverAndToken(t *testing.T) {
	jwt := security.DefaultOptions([]byte("k"))
	obs := &recordingObserver{events: make(chan string, 8)}
	_, base := startGateway(t, Options{RequireToken: true, JWT: jwt}, obs)

	if _, resp, err := websocket.DefaultDialer.Dial(base+"?userId=alice&token=bad", nil); err == nil {
		t.Fatal("bad token accepted")
	} else if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("want 401, got %v", resp)
	}

	token, _, _ := security.Generate(jwt, "alice", "alice")
	a := dial(t, base, "alice", "token", token)
	readOnline(t, a)
	_ = a.Close()

	for _, want := range []string{"+alice", "-alice"} {
		select {
		case got := <-obs.events:
			if got != want {
				t.Errorf("observer event = %q, want %q", got, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("missing observer event %q", want)
		}
	}
}

func TestShutdownRejectsNewConnections(t *testing.T) {
	g, base := startGateway(t, Options{}, nil)
	a := dial(t, base, "alice")
	readOnline(t, a)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := g.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if g.Connections() != 0 || g.Registry().Len() != 0 {
		t.Errorf("state after shutdown: conns=%d online=%d", g.Connections(), g.Registry().Len())
	}
	late := dial(t, base, "bob")
	_ = late.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("late connection: %v", err)
	}
}
