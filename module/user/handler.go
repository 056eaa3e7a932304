package user

import (
	"context"
	"net/http"

	"DMChat/middleware"
	midsec "DMChat/middleware/security"
	"DMChat/module/user/service"
	"DMChat/tools/apiresp"
	"DMChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the /api/auth routes.
func (h *Handler) Register(r *middleware.Routes) {
	r.POST("/signup", h.Signup, middleware.RouteOpt{})
	r.POST("/login", h.Login, middleware.RouteOpt{})
	r.GET("/auth-check", h.AuthCheck, middleware.RouteOpt{IsAuth: true})
	r.PUT("/updateUser", h.UpdateUser, middleware.RouteOpt{IsAuth: true})
	r.PUT("/set-status", h.SetStatus, middleware.RouteOpt{IsAuth: true})
}

// LoadUser is the auth middleware loader.
func (h *Handler) LoadUser(ctx context.Context, id string) (any, error) {
	return h.svc.Get(ctx, id)
}

func (h *Handler) Signup(c *gin.Context) {
	var in service.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	res, err := h.svc.Signup(c.Request.Context(), in)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusCreated, gin.H{"message": "User created successfully.", "user": res.User, "token": res.Token})
}

type loginReq struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), in.Identifier, in.Password)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusOK, gin.H{"message": "Login successful.", "user": res.User, "token": res.Token})
}

func (h *Handler) AuthCheck(c *gin.Context) {
	u, ok := c.Get(midsec.CtxUserKey)
	if !ok {
		apiresp.Fail(c, errs.ErrTokenInvalid.WrapMsg("User is not authenticated."))
		return
	}
	apiresp.OK(c, http.StatusOK, gin.H{"message": "User is authenticated.", "user": u})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var in service.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), midsec.UserID(c), in)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusOK, gin.H{"message": "User updated successfully.", "user": u})
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c *gin.Context) {
	var in statusReq
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	u, err := h.svc.SetStatus(c.Request.Context(), midsec.UserID(c), in.Status)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusOK, gin.H{"message": "Status updated.", "user": u})
}
