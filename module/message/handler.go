package message

import (
	"net/http"

	"DMChat/middleware"
	midsec "DMChat/middleware/security"
	"DMChat/module/message/service"
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

// Register mounts the /api/messages routes; all of them require auth.
func (h *Handler) Register(r *middleware.Routes) {
	auth := middleware.RouteOpt{IsAuth: true}
	r.GET("/users", h.Users, auth)
	r.GET("/:id", h.History, auth)
	r.PUT("/mark/:id", h.MarkRead, auth)
	r.POST("/send/:id", h.Send, auth)
}

func (h *Handler) Users(c *gin.Context) {
	users, unread, err := h.svc.UsersWithUnread(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusOK, gin.H{"users": users, "unreadMessages": unread})
}

func (h *Handler) History(c *gin.Context) {
	msgs, err := h.svc.History(c.Request.Context(), midsec.UserID(c), c.Param("id"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) MarkRead(c *gin.Context) {
	if _, err := h.svc.MarkRead(c.Request.Context(), midsec.UserID(c), c.Param("id")); err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusOK, nil)
}

type sendReq struct {
	Text        string                    `json:"text"`
	Attachments []service.AttachmentInput `json:"attachments"`
}

func (h *Handler) Send(c *gin.Context) {
	var in sendReq
	if err := c.ShouldBindJSON(&in); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), midsec.UserID(c), c.Param("id"), in.Text, in.Attachments)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, http.StatusCreated, gin.H{"newMessage": msg})
}
