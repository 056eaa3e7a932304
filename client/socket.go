package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"DMChat/logger"
	"DMChat/service/chat"
	"DMChat/tools/decode"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ListenerID identifies one On registration.
type ListenerID uint64

// Listener receives the raw payload of one event.
type Listener func(data json.RawMessage)

type listener struct {
	id    ListenerID
	event string
	fn    Listener
}

// Socket is the client end of the /socket gateway. Events are delivered to
// listeners one at a time, in arrival order, on the socket's read goroutine.
// Reading begins at Start, so listeners bound before it see every frame.
type Socket struct {
	ws     *websocket.Conn
	userID string

	mu        sync.Mutex
	nextID    ListenerID
	listeners []listener
	started   bool

	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens /socket?userId=... against an http(s) base URL. token is sent as
// the `token` query param when non-empty.
func Dial(ctx context.Context, baseURL, userID, token string) (*Socket, error) {
	u, err := socketURL(baseURL, userID, token)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u, http.Header{})
	if err != nil {
		return nil, errors.Wrap(err, "dial socket")
	}
	return &Socket{ws: ws, userID: userID, done: make(chan struct{})}, nil
}

// Start begins delivering events. Calling it again is a no-op.
func (s *Socket) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.readLoop()
}

func socketURL(baseURL, userID, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket"
	q := url.Values{}
	if userID != "" {
		q.Set("userId", userID)
	}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Socket) UserID() string { return s.userID }

// On registers fn for event and returns an id for Off.
func (s *Socket) On(event string, fn Listener) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners = append(s.listeners, listener{id: s.nextID, event: event, fn: fn})
	return s.nextID
}

// Off removes one registration; unknown ids are ignored.
func (s *Socket) Off(id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount reports how many listeners are bound to event.
func (s *Socket) ListenerCount(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.listeners {
		if l.event == event {
			n++
		}
	}
	return n
}

// Done is closed once the read loop ends.
func (s *Socket) Done() <-chan struct{} { return s.done }

// Disconnect sends a close frame and tears the connection down. It waits for
// the read loop, so it must not be called from a listener.
func (s *Socket) Disconnect() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = s.ws.Close()
	})
	s.mu.Lock()
	if !s.started {
		// nothing will close done for us
		s.started = true
		close(s.done)
	}
	s.mu.Unlock()
	<-s.done
	return err
}

func (s *Socket) readLoop() {
	defer close(s.done)
	defer s.closeOnce.Do(func() { _ = s.ws.Close() })
	for {
		_, raw, err := s.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("socket read ended", zap.String("user", s.userID), zap.Error(err))
			}
			return
		}
		f, err := chat.DecodeFrame(raw)
		if err != nil {
			logger.Warn("bad frame", zap.Error(err))
			continue
		}
		s.emit(f)
	}
}

func (s *Socket) emit(f *chat.Frame) {
	s.mu.Lock()
	var fns []Listener
	for _, l := range s.listeners {
		if l.event == f.Event {
			fns = append(fns, l.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(f.Data)
	}
}

// DecodePayload turns an event payload into T via the generic decoder, so
// loosely typed fields (numbers, RFC3339 times) are converted.
func DecodePayload[T any](data json.RawMessage) (*T, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, errors.Wrap(err, "payload json")
	}
	return decode.Decode[T](generic)
}
