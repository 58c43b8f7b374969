package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-opinions-api/internal/domain"
	mdw "go-opinions-api/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, d Deps) *gin.Engine {
	r := gin.New()

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

	// 管理端 v1（统一要求 ADMIN_ROLE）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.Tokens, domain.RoleAdmin))

	mountAdminActions(admin, d)

	return r
}
