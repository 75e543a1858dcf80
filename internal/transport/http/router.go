package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davidwuwu001/vmail/internal/auth"
	"github.com/davidwuwu001/vmail/internal/config"
	"github.com/davidwuwu001/vmail/internal/health"
	"github.com/davidwuwu001/vmail/internal/middleware"
	"github.com/davidwuwu001/vmail/internal/monitoring"
	"github.com/davidwuwu001/vmail/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	AuthService    *auth.Service
	TokenManager   *auth.TokenManager
	MailboxService *service.MailboxService
	Metrics        *monitoring.Metrics   // 可为 nil
	HealthChecker  *health.HealthChecker // 可为 nil
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20))

	if deps.Metrics != nil {
		router.Use(middleware.NewMonitoringMiddleware(deps.Metrics).HTTPMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时需关闭凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenManager, deps.Metrics, deps.Logger)
	mailboxHandler := NewMailboxHandler(deps.MailboxService, deps.Metrics, deps.Logger)
	publicHandler := NewPublicHandler(deps.Config.Mailbox.AllowedDomains)

	jwtAuth := middleware.NewJWTAuth(deps.TokenManager, deps.Logger)

	// 健康检查与监控
	if deps.HealthChecker != nil {
		router.GET("/live", gin.WrapH(deps.HealthChecker.Handler()))
		router.GET("/ready", gin.WrapH(deps.HealthChecker.Handler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		publicRoutes := v1.Group("/public")
		{
			publicRoutes.GET("/domains", publicHandler.GetAvailableDomains)
		}

		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
		}

		mailboxRoutes := v1.Group("/mailboxes")
		mailboxRoutes.Use(jwtAuth.RequireAuth())
		{
			mailboxRoutes.POST("", mailboxHandler.Create)
			mailboxRoutes.GET("", mailboxHandler.List)
			mailboxRoutes.DELETE("/:id", mailboxHandler.Delete)
			mailboxRoutes.GET("/:id/emails", mailboxHandler.ListEmails)
			mailboxRoutes.DELETE("/:id/emails", mailboxHandler.DeleteEmails)
		}
	}

	return router
}
