package client

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"

	"DMChat/logger"
	usermodel "DMChat/module/user/model"
	"DMChat/service/chat"

	"go.uber.org/zap"
)

// Dialer opens the realtime socket for a user; Dial is the default.
type Dialer func(ctx context.Context, baseURL, userID, token string) (*Socket, error)

// AuthSession owns the logged-in user, the token and the one live socket.
// Every login tears the previous socket down before a new one is opened.
type AuthSession struct {
	api  *API
	dial Dialer
	// SendToken passes the bearer token on the socket handshake.
	SendToken bool

	mu       sync.RWMutex
	user     *usermodel.User
	socket   *Socket
	online   []string
	watchers []func(*Socket)
}

func NewAuthSession(api *API) *AuthSession {
	return &AuthSession{api: api, dial: Dial}
}

func (a *AuthSession) API() *API { return a.api }

// OnSocket calls fn with every new socket (nil after logout).
func (a *AuthSession) OnSocket(fn func(*Socket)) {
	a.mu.Lock()
	a.watchers = append(a.watchers, fn)
	a.mu.Unlock()
}

func (a *AuthSession) User() *usermodel.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *AuthSession) Socket() *Socket {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.socket
}

// OnlineUsers is the latest getOnlineUsers payload.
func (a *AuthSession) OnlineUsers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.online...)
}

func (a *AuthSession) IsOnline(userID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i := sort.SearchStrings(a.online, userID)
	return i < len(a.online) && a.online[i] == userID
}

func (a *AuthSession) Login(ctx context.Context, identifier, password string) (*usermodel.User, error) {
	u, token, err := a.api.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	return a.start(ctx, u, token)
}

func (a *AuthSession) Signup(ctx context.Context, in SignupRequest) (*usermodel.User, error) {
	u, token, err := a.api.Signup(ctx, in)
	if err != nil {
		return nil, err
	}
	return a.start(ctx, u, token)
}

// Restore resumes a session from a saved token.
func (a *AuthSession) Restore(ctx context.Context, token string) (*usermodel.User, error) {
	a.api.SetToken(token)
	u, err := a.api.AuthCheck(ctx)
	if err != nil {
		a.api.SetToken("")
		return nil, err
	}
	if err := a.connect(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (a *AuthSession) start(ctx context.Context, u *usermodel.User, token string) (*usermodel.User, error) {
	a.api.SetToken(token)
	if u.Status == usermodel.StatusOffline {
		if nu, err := a.api.SetStatus(ctx, usermodel.StatusOnline); err != nil {
			logger.Warn("set status online failed", zap.Error(err))
		} else {
			u = nu
		}
	}
	if err := a.connect(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// connect replaces the socket: the old one is fully closed first.
func (a *AuthSession) connect(ctx context.Context, u *usermodel.User) error {
	a.mu.Lock()
	prev := a.socket
	a.socket = nil
	a.user = u
	a.online = nil
	a.mu.Unlock()
	if prev != nil {
		_ = prev.Disconnect()
	}

	token := ""
	if a.SendToken {
		token = a.api.Token()
	}
	s, err := a.dial(ctx, a.api.BaseURL(), u.ID, token)
	if err != nil {
		return err
	}
	s.On(chat.EventOnlineUsers, func(data json.RawMessage) {
		ids, err := DecodePayload[[]string](data)
		if err != nil {
			logger.Warn("bad getOnlineUsers payload", zap.Error(err))
			return
		}
		list := append([]string(nil), (*ids)...)
		sort.Strings(list)
		a.mu.Lock()
		if a.socket == s {
			a.online = list
		}
		a.mu.Unlock()
	})

	a.mu.Lock()
	a.socket = s
	watchers := slices.Clone(a.watchers)
	a.mu.Unlock()
	for _, fn := range watchers {
		fn(s)
	}
	s.Start()
	return nil
}

// SetStatus changes the status server side and keeps the cached user in step,
// so Logout sees the latest choice.
func (a *AuthSession) SetStatus(ctx context.Context, status string) (*usermodel.User, error) {
	u, err := a.api.SetStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	if a.user != nil && a.user.ID == u.ID {
		a.user = u
	}
	a.mu.Unlock()
	return u, nil
}

// Logout sets the status offline unless the user is invisible, then drops the socket.
func (a *AuthSession) Logout(ctx context.Context) {
	a.mu.Lock()
	u, s := a.user, a.socket
	a.user, a.socket, a.online = nil, nil, nil
	watchers := slices.Clone(a.watchers)
	a.mu.Unlock()

	if u != nil && u.Status != usermodel.StatusInvisible {
		if _, err := a.api.SetStatus(ctx, usermodel.StatusOffline); err != nil {
			logger.Warn("failed to update status before logout", zap.Error(err))
		}
	}
	a.api.SetToken("")
	for _, fn := range watchers {
		fn(nil)
	}
	if s != nil {
		_ = s.Disconnect()
	}
}
