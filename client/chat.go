package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"DMChat/logger"
	msgmodel "DMChat/module/message/model"
	usermodel "DMChat/module/user/model"
	"DMChat/service/chat"
	"DMChat/tools/safe"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNoPeerSelected = errors.New("no conversation selected")

// MarkReadFunc acknowledges peer's messages to the server.
type MarkReadFunc func(ctx context.Context, peer string) error

// ChatSession is the per-view conversation state: sidebar users, unread
// counters, the selected peer and its messages. It keeps exactly one
// newMessage listener bound to the current socket; every rebind removes the
// previous listener first.
type ChatSession struct {
	api      *API
	markRead MarkReadFunc

	mu       sync.Mutex
	socket   *Socket
	bound    ListenerID
	hasBound bool
	selected string
	messages []*msgmodel.Message
	users    []*usermodel.User
	unread   map[string]int64
	closed   bool
	updates  chan struct{}
}

func NewChatSession(api *API) *ChatSession {
	safe.MustNotNil(api, "api")
	return &ChatSession{
		api:      api,
		markRead: api.MarkRead,
		unread:   map[string]int64{},
		updates:  make(chan struct{}, 1),
	}
}

// Attach follows the auth session's socket for the lifetime of the session.
func (cs *ChatSession) Attach(a *AuthSession) {
	a.OnSocket(cs.SetSocket)
	if s := a.Socket(); s != nil {
		cs.SetSocket(s)
	}
}

// Updates receives a signal after every state change caused by a push.
func (cs *ChatSession) Updates() <-chan struct{} { return cs.updates }

// SetSocket moves the listener to s (nil only unbinds).
func (cs *ChatSession) SetSocket(s *Socket) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	cs.unbindLocked()
	cs.socket = s
	cs.bindLocked()
}

// SelectPeer opens the conversation with peer: the listener is rebound for
// the new selection, then the history is loaded, which marks it read server side.
// An empty peer clears the selection.
func (cs *ChatSession) SelectPeer(ctx context.Context, peer string) error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.unbindLocked()
	cs.selected = peer
	cs.messages = nil
	cs.bindLocked()
	cs.mu.Unlock()

	if peer == "" {
		return nil
	}
	msgs, err := cs.api.Messages(ctx, peer)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.selected != peer {
		return nil
	}
	// pushes that raced the fetch are already in the returned history
	cs.messages = mergeMessages(msgs, cs.messages)
	delete(cs.unread, peer)
	return nil
}

// LoadUsers refreshes the sidebar list and resyncs unread counters from the server.
func (cs *ChatSession) LoadUsers(ctx context.Context) error {
	users, unread, err := cs.api.Users(ctx)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.users = users
	cs.unread = make(map[string]int64, len(unread))
	for k, v := range unread {
		if k != cs.selected {
			cs.unread[k] = v
		}
	}
	return nil
}

// Send posts to the selected peer and appends the stored message.
func (cs *ChatSession) Send(ctx context.Context, text string, atts []Attachment) (*msgmodel.Message, error) {
	cs.mu.Lock()
	peer := cs.selected
	cs.mu.Unlock()
	if peer == "" {
		return nil, ErrNoPeerSelected
	}
	msg, err := cs.api.Send(ctx, peer, text, atts)
	if err != nil {
		return nil, err
	}
	cs.mu.Lock()
	if cs.selected == peer {
		cs.messages = append(cs.messages, msg)
	}
	cs.mu.Unlock()
	return msg, nil
}

// Close removes the listener; the session is inert afterwards.
func (cs *ChatSession) Close() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.unbindLocked()
	cs.socket = nil
	cs.closed = true
}

func (cs *ChatSession) Selected() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.selected
}

func (cs *ChatSession) Messages() []*msgmodel.Message {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]*msgmodel.Message(nil), cs.messages...)
}

func (cs *ChatSession) Users() []*usermodel.User {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]*usermodel.User(nil), cs.users...)
}

func (cs *ChatSession) Unread(peer string) int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.unread[peer]
}

func (cs *ChatSession) UnreadCounts() map[string]int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make(map[string]int64, len(cs.unread))
	for k, v := range cs.unread {
		out[k] = v
	}
	return out
}

func (cs *ChatSession) unbindLocked() {
	if cs.hasBound && cs.socket != nil {
		cs.socket.Off(cs.bound)
	}
	cs.hasBound = false
}

// bindLocked registers the handler for the current (socket, selection) pair.
func (cs *ChatSession) bindLocked() {
	if cs.socket == nil {
		return
	}
	s, peer := cs.socket, cs.selected
	cs.bound = s.On(chat.EventNewMessage, func(data json.RawMessage) {
		cs.onNewMessage(s, peer, data)
	})
	cs.hasBound = true
}

func (cs *ChatSession) onNewMessage(s *Socket, peer string, data json.RawMessage) {
	msg, err := DecodePayload[msgmodel.Message](data)
	if err != nil {
		logger.Warn("bad newMessage payload", zap.Error(err))
		return
	}

	cs.mu.Lock()
	// a listener removed after the frame was picked up must not act
	if cs.closed || cs.socket != s || cs.selected != peer {
		cs.mu.Unlock()
		return
	}
	ack := peer != "" && msg.SenderID == peer
	if ack {
		msg.IsRead = true
		cs.messages = append(cs.messages, msg)
	} else {
		cs.unread[msg.SenderID]++
	}
	cs.mu.Unlock()

	if ack {
		cs.ackAsync(msg.SenderID)
	}
	select {
	case cs.updates <- struct{}{}:
	default:
	}
}

func (cs *ChatSession) ackAsync(peer string) {
	safe.SafeGo("mark read", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cs.markRead(ctx, peer); err != nil {
			logger.Warn("mark read failed", zap.String("peer", peer), zap.Error(err))
		}
	})
}

// mergeMessages appends the pushed messages missing from history.
func mergeMessages(history, pushed []*msgmodel.Message) []*msgmodel.Message {
	if len(pushed) == 0 {
		return history
	}
	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
	}
	for _, m := range pushed {
		if _, ok := seen[m.ID]; !ok {
			history = append(history, m)
		}
	}
	return history
}
