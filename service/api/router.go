package api

import (
	"net/http"
	"strings"

	"DMChat/global"
	mid "DMChat/middleware"
	midsec "DMChat/middleware/security"
	"DMChat/module/message"
	msgservice "DMChat/module/message/service"
	msgstore "DMChat/module/message/store"
	"DMChat/module/upload"
	"DMChat/module/user"
	userservice "DMChat/module/user/service"
	userstore "DMChat/module/user/store"
	"DMChat/service/chat"
	"DMChat/tools/safe"
	"DMChat/tools/security"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config   *global.AppConfig
	Users    userstore.Store
	Messages msgstore.Store
	Uploader upload.Uploader

	Presence   chat.PresenceObserver     // optional
	Events     msgservice.EventPublisher // optional
	Middleware *mid.MiddlewareManager    // optional global chain
}

// Server is the assembled engine plus the gateway it serves on /socket.
type Server struct {
	Engine   *gin.Engine
	Gateway  *chat.Gateway
	Users    *userservice.Service
	Messages *msgservice.Service
}

// New wires services, handlers and the websocket gateway onto one gin engine:
//
//	GET  /api/status
//	/api/auth/*      signup, login, auth-check, updateUser, set-status
//	/api/messages/*  users, history, mark, send
//	GET  /socket     websocket handshake
func New(d Deps) *Server {
	safe.MustNotNil(d.Config, "config")
	cfg := d.Config

	jwt := security.DefaultOptions([]byte(cfg.Auth.JWTSecret))
	jwt.TTL = cfg.Auth.TokenTTL

	gw := chat.NewGateway(chat.NewRegistry(), chat.Options{
		SendQueue:      cfg.Gateway.SendQueue,
		PongWait:       cfg.Gateway.PongWait,
		WriteWait:      cfg.Gateway.WriteWait,
		KickSuperseded: cfg.Gateway.KickSuperseded,
		RequireToken:   cfg.Auth.RequireSocketToken,
		JWT:            jwt,
		CheckOrigin:    originChecker(cfg.Server.CORSOrigins),
	}, d.Presence)

	users := userservice.NewService(d.Users, d.Uploader, jwt)
	messages := msgservice.NewService(d.Messages, d.Uploader, chat.NewDispatcher(gw.Registry()), users, d.Events)

	userHandler := user.NewHandler(users)
	msgHandler := message.NewHandler(messages)

	r := gin.New()
	if d.Middleware != nil {
		r.Use(d.Middleware.Handlers()...)
	}

	auth := midsec.Middleware(midsec.Options{JWT: jwt, Loader: userHandler.LoadUser})

	api := r.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is working")
	})
	userHandler.Register(mid.NewRoutes(api.Group("/auth"), auth))
	msgHandler.Register(mid.NewRoutes(api.Group("/messages"), auth))

	r.GET("/socket", gw.HandleWS)

	if strings.HasPrefix(cfg.Upload.PublicURL, "/") && cfg.Upload.Dir != "" {
		r.Static(cfg.Upload.PublicURL, cfg.Upload.Dir)
	}

	return &Server{Engine: r, Gateway: gw, Users: users, Messages: messages}
}

// originChecker applies the CORS allow list to websocket handshakes.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
