package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"DMChat/logger"
	"DMChat/tools/ids"
	"DMChat/tools/safe"
	"DMChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Options struct {
	SendQueue int
	PongWait  time.Duration
	WriteWait time.Duration
	// KickSuperseded closes the older socket when a user connects again.
	KickSuperseded bool
	// RequireToken makes the handshake carry a `token` whose subject is userId.
	RequireToken bool
	JWT          security.Options
	CheckOrigin  func(r *http.Request) bool
}

func (o *Options) norm() {
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
}

// PresenceObserver hears registry changes. Calls happen while the gateway
// lock is held and must not block.
type PresenceObserver interface {
	Online(userID string)
	Offline(userID string)
}

// Gateway accepts websocket connections on /socket?userId=..., keeps the
// presence registry in step with them and broadcasts the online list on
// every connect and disconnect.
type Gateway struct {
	opts     Options
	registry *Registry
	observer PresenceObserver
	upgrader websocket.Upgrader

	// mu serializes registry mutation plus broadcast so each connect or
	// disconnect is observed as one step by every client.
	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewGateway(reg *Registry, opts Options, observer PresenceObserver) *Gateway {
	safe.MustNotNil(reg, "registry")
	opts.norm()
	return &Gateway{
		opts:     opts,
		registry: reg,
		observer: observer,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: opts.CheckOrigin},
		conns:    make(map[*Conn]struct{}),
	}
}

func (g *Gateway) Registry() *Registry { return g.registry }

// HandleWS is the gin entry point.
func (g *Gateway) HandleWS(c *gin.Context) {
	g.ServeHTTP(c.Writer, c.Request)
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if g.opts.RequireToken && userID != "" {
		claims, err := security.Verify(g.opts.JWT, q.Get("token"))
		if err != nil || claims.Subject != userID {
			http.Error(w, "Token is not valid.", http.StatusUnauthorized)
			return
		}
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Info("[HandleWS] upgrade websocket error", zap.Error(err))
		return
	}
	c := newConn(ids.GenerateString(), userID, ws, g.opts.SendQueue)
	if !g.open(c) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(g.opts.WriteWait))
		_ = ws.Close()
		return
	}
	defer g.wg.Done()

	go c.writePump(g.pingPeriod(), g.opts.WriteWait)
	c.readPump(g.opts.PongWait)

	g.close(c)
	c.Close()
	<-c.writerEnd
}

func (g *Gateway) pingPeriod() time.Duration {
	return g.opts.PongWait * 9 / 10
}

// open moves c to OPEN: track, register, broadcast. False once the gateway is shut down.
func (g *Gateway) open(c *Conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	g.conns[c] = struct{}{}

	var prev *Conn
	if c.userID != "" {
		prev = g.registry.Register(c.userID, c)
		if g.observer != nil {
			g.observer.Online(c.userID)
		}
	}
	g.broadcastLocked()

	logger.Info("[WS] user connected", zap.String("conn", c.id), zap.String("user", c.userID), zap.Int("online", g.registry.Len()))
	if prev != nil {
		logger.Info("[WS] connection superseded", zap.String("user", c.userID), zap.String("old", prev.id), zap.String("new", c.id))
		if g.opts.KickSuperseded {
			prev.Close()
		}
	}
	return true
}

// close moves c to CLOSED: untrack, unregister if still current, broadcast.
func (g *Gateway) close(c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.conns[c]; !ok {
		return
	}
	delete(g.conns, c)
	if c.userID != "" && g.registry.Unregister(c.userID, c) && g.observer != nil {
		g.observer.Offline(c.userID)
	}
	g.broadcastLocked()
	logger.Info("[WS] user disconnected", zap.String("conn", c.id), zap.String("user", c.userID), zap.Int("online", g.registry.Len()))
}

func (g *Gateway) broadcastLocked() {
	payload, err := EncodeFrame(EventOnlineUsers, g.registry.Snapshot())
	if err != nil {
		logger.Error("encode online users failed", zap.Error(err))
		return
	}
	for c := range g.conns {
		c.enqueue(payload)
	}
}

// Connections returns the number of open sockets, visible or not.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Shutdown closes every socket and waits for their handlers to return.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	for c := range g.conns {
		c.Close()
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
