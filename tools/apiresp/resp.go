package apiresp

import (
	"net/http"

	"DMChat/logger"
	"DMChat/tools/errs"
	"DMChat/tools/specialerror"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OK writes body with success=true.
func OK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

// Fail maps err to a status and writes {"success": false, "message": ...}.
// Errors without a code are logged and answered with a generic 500.
func Fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(failure(c, err))
}

func failure(c *gin.Context, err error) (int, gin.H) {
	ce, ok := specialerror.ErrCode(err)
	if !ok {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		return http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"}
	}
	status := errs.Status(ce)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	return status, gin.H{"success": false, "message": ce.Msg}
}
