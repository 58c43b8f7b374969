package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-opinions-api/internal/core/token"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/service"
	mdw "go-opinions-api/internal/transport/http/middleware"
)

// Deps 路由层的依赖集合，两个引擎共用
type Deps struct {
	Tokens   *token.Service
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Posts    *service.PostService
	Comments *service.CommentService
	Roles    *service.RoleService
	Users    domain.UserRepository
}

func NewAPIEngine(l *zap.Logger, d Deps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		cors.Default(),
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	api := r.Group("/api/v1")

	// 鉴权分组（⚠️ /me 和写操作必须挂这里，才能拿到 userId）
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.Tokens, ""))

	mountAuthActions(api, authed, d)
	mountProfileActions(api, authed, d)
	mountContentActions(api, authed, d)

	return r
}
