package security

import (
	"context"
	"strings"

	"DMChat/tools/apiresp"
	"DMChat/tools/errs"
	toolsec "DMChat/tools/security"

	"github.com/gin-gonic/gin"
)

// context keys set for authenticated requests
const (
	CtxUserIDKey = "userId"
	CtxUserKey   = "user"
)

// UserLoader resolves the token subject to the current user record.
type UserLoader func(ctx context.Context, userID string) (any, error)

type Options struct {
	JWT    toolsec.Options
	Loader UserLoader // optional; without it only the id is stored
}

// Middleware requires "Authorization: Bearer <jwt>", verifies it and loads the user.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			apiresp.Fail(c, errs.ErrTokenMissing)
			return
		}
		token := strings.TrimSpace(authz[len("bearer "):])

		claims, err := toolsec.Verify(opts.JWT, token)
		if err != nil {
			apiresp.Fail(c, errs.ErrTokenInvalid.WrapMsg(err.Error()))
			return
		}
		c.Set(CtxUserIDKey, claims.Subject)

		if opts.Loader != nil {
			u, err := opts.Loader(c.Request.Context(), claims.Subject)
			if err != nil {
				apiresp.Fail(c, err)
				return
			}
			c.Set(CtxUserKey, u)
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" outside an auth route.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
