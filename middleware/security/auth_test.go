package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"DMChat/tools/errs"
	toolsec "DMChat/tools/security"

	"github.com/gin-gonic/gin"
)

func newTestRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Middleware(opts), func(c *gin.Context) {
		u, _ := c.Get(CtxUserKey)
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "user": u})
	})
	return r
}

func TestMiddleware(t *testing.T) {
	jwtOpts := toolsec.DefaultOptions([]byte("k"))
	good, _, err := toolsec.Generate(jwtOpts, "u1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	ghost, _, _ := toolsec.Generate(jwtOpts, "ghost", "nobody")

	r := newTestRouter(Options{
		JWT: jwtOpts,
		Loader: func(_ context.Context, id string) (any, error) {
			if id == "u1" {
				return map[string]string{"username": "alice"}, nil
			}
			return nil, errs.ErrUserNotFound
		},
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"unknown user", "Bearer " + ghost, http.StatusNotFound},
		{"ok", "Bearer " + good, http.StatusOK},
		{"lowercase scheme", "bearer " + good, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}
