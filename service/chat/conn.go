package chat

import (
	"net"
	"sync"
	"time"

	"DMChat/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxInboundFrame = 4096

// Conn is one gateway websocket. Writes go through the send queue and are
// performed only by the writer goroutine.
type Conn struct {
	id        string
	userID    string
	ws        *websocket.Conn
	send      chan []byte
	createdAt time.Time

	closeOnce sync.Once
	closed    chan struct{}
	writerEnd chan struct{}
}

func newConn(id, userID string, ws *websocket.Conn, queue int) *Conn {
	return &Conn{
		id:        id,
		userID:    userID,
		ws:        ws,
		send:      make(chan []byte, queue),
		createdAt: time.Now(),
		closed:    make(chan struct{}),
		writerEnd: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// UserID is the handshake user id, empty for an invisible connection.
func (c *Conn) UserID() string { return c.userID }

// Emit encodes and queues one event. It never blocks.
func (c *Conn) Emit(event string, data any) bool {
	payload, err := EncodeFrame(event, data)
	if err != nil {
		logger.Error("encode frame failed", zap.String("event", event), zap.Error(err))
		return false
	}
	return c.enqueue(payload)
}

// enqueue drops the payload when the connection is closed or its queue is full.
func (c *Conn) enqueue(payload []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		logger.Warn("send queue full, event dropped", zap.String("conn", c.id), zap.String("user", c.userID))
		return false
	}
}

// Close asks the writer to send a close frame and tear the socket down.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Conn) writePump(pingPeriod, writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.ws.Close()
		close(c.writerEnd)
	}()
	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Info("[WS] write err", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Info("[WS] ping err", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		}
	}
}

// readPump blocks until the peer goes away. Clients have nothing to send
// over the socket, so inbound frames are only logged.
func (c *Conn) readPump(pongWait time.Duration) {
	c.ws.SetReadLimit(maxInboundFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				logger.Debug("[WS] peer closed", zap.String("conn", c.id), zap.String("user", c.userID))
			case isTimeout(err):
				logger.Info("[WS] read timeout", zap.String("conn", c.id), zap.String("user", c.userID))
			default:
				logger.Debug("[WS] read err", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
			}
			return
		}
		logger.Debug("[WS] inbound frame ignored", zap.String("conn", c.id), zap.Int("len", len(data)))
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
