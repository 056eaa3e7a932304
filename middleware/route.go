package middleware

import (
	"github.com/gin-gonic/gin"
)

// 配置选项
type RouteOpt struct {
	IsAuth bool
}

// Routes registers handlers on a group, prepending the auth handler for
// routes marked IsAuth.
type Routes struct {
	r    gin.IRoutes
	auth gin.HandlerFunc
}

func NewRoutes(r gin.IRoutes, auth gin.HandlerFunc) *Routes {
	return &Routes{r: r, auth: auth}
}

func (g *Routes) chain(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if opt.IsAuth && g.auth != nil {
		return []gin.HandlerFunc{g.auth, handler}
	}
	return []gin.HandlerFunc{handler}
}

// 封装 POST
func (g *Routes) POST(path string, handler gin.HandlerFunc, opt RouteOpt) {
	g.r.POST(path, g.chain(handler, opt)...)
}

// 封装 GET
func (g *Routes) GET(path string, handler gin.HandlerFunc, opt RouteOpt) {
	g.r.GET(path, g.chain(handler, opt)...)
}

// 封装 PUT
func (g *Routes) PUT(path string, handler gin.HandlerFunc, opt RouteOpt) {
	g.r.PUT(path, g.chain(handler, opt)...)
}
