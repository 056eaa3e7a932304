package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	msgmodel "DMChat/module/message/model"
	usermodel "DMChat/module/user/model"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// envelope is the {success, message} pair every response carries.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authResp struct {
	envelope
	User  *usermodel.User `json:"user"`
	Token string          `json:"token"`
}

type userResp struct {
	envelope
	User *usermodel.User `json:"user"`
}

type usersResp struct {
	envelope
	Users  []*usermodel.User `json:"users"`
	Unread map[string]int64  `json:"unreadMessages"`
}

type historyResp struct {
	envelope
	Messages []*msgmodel.Message `json:"messages"`
}

type sendResp struct {
	envelope
	NewMessage *msgmodel.Message `json:"newMessage"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

// ProfileUpdate is the body of PUT /api/auth/updateUser; empty fields are left alone.
type ProfileUpdate struct {
	Username       string `json:"username,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Attachment is an outgoing attachment: data URI or base64 payload plus kind.
type Attachment struct {
	Data string `json:"data"`
	Type string `json:"type"`
}

// API talks to the REST surface under /api. Safe for concurrent use.
type API struct {
	base string
	rc   *resty.Client

	mu    sync.RWMutex
	token string
}

// NewAPI builds a client for baseURL (for example "http://localhost:3000").
// hc may be nil.
func NewAPI(baseURL string, hc *http.Client) *API {
	var rc *resty.Client
	if hc != nil {
		rc = resty.NewWithClient(hc)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).SetHeader("Content-Type", "application/json")
	return &API{base: baseURL, rc: rc}
}

func (a *API) BaseURL() string { return a.base }

func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) request(ctx context.Context) *resty.Request {
	r := a.rc.R().SetContext(ctx)
	if t := a.Token(); t != "" {
		r.SetAuthToken(t)
	}
	return r
}

// do runs the request and turns non-2xx answers into *APIError.
func (a *API) do(r *resty.Request, method, path string, out any) error {
	var fail envelope
	r.SetError(&fail)
	if out != nil {
		r.SetResult(out)
	}
	resp, err := r.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := fail.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

func (a *API) Signup(ctx context.Context, in SignupRequest) (*usermodel.User, string, error) {
	var out authResp
	if err := a.do(a.request(ctx).SetBody(in), http.MethodPost, "/api/auth/signup", &out); err != nil {
		return nil, "", err
	}
	return out.User, out.Token, nil
}

func (a *API) Login(ctx context.Context, identifier, password string) (*usermodel.User, string, error) {
	var out authResp
	body := map[string]string{"identifier": identifier, "password": password}
	if err := a.do(a.request(ctx).SetBody(body), http.MethodPost, "/api/auth/login", &out); err != nil {
		return nil, "", err
	}
	return out.User, out.Token, nil
}

// AuthCheck returns the user behind the current token.
func (a *API) AuthCheck(ctx context.Context) (*usermodel.User, error) {
	var out userResp
	if err := a.do(a.request(ctx), http.MethodGet, "/api/auth/auth-check", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (a *API) UpdateProfile(ctx context.Context, in ProfileUpdate) (*usermodel.User, error) {
	var out userResp
	if err := a.do(a.request(ctx).SetBody(in), http.MethodPut, "/api/auth/updateUser", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (a *API) SetStatus(ctx context.Context, status string) (*usermodel.User, error) {
	var out userResp
	body := map[string]string{"status": status}
	if err := a.do(a.request(ctx).SetBody(body), http.MethodPut, "/api/auth/set-status", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Users lists the sidebar users and the unread count per sender.
func (a *API) Users(ctx context.Context) ([]*usermodel.User, map[string]int64, error) {
	var out usersResp
	if err := a.do(a.request(ctx), http.MethodGet, "/api/messages/users", &out); err != nil {
		return nil, nil, err
	}
	if out.Unread == nil {
		out.Unread = map[string]int64{}
	}
	return out.Users, out.Unread, nil
}

// Messages fetches the conversation with peer; the server marks peer's messages read.
func (a *API) Messages(ctx context.Context, peer string) ([]*msgmodel.Message, error) {
	var out historyResp
	if err := a.do(a.request(ctx), http.MethodGet, "/api/messages/"+url.PathEscape(peer), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (a *API) Send(ctx context.Context, peer, text string, atts []Attachment) (*msgmodel.Message, error) {
	var out sendResp
	body := map[string]any{"text": text, "attachments": atts}
	if err := a.do(a.request(ctx).SetBody(body), http.MethodPost, "/api/messages/send/"+url.PathEscape(peer), &out); err != nil {
		return nil, err
	}
	return out.NewMessage, nil
}

// MarkRead marks every unread message from peer to me as read.
func (a *API) MarkRead(ctx context.Context, peer string) error {
	return a.do(a.request(ctx), http.MethodPut, "/api/messages/mark/"+url.PathEscape(peer), nil)
}
