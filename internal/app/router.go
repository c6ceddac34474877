package app

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/middleware"
	"abyas_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 测验模块：可选认证，未登录按匿名用户记录
	a.registerQuizRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/auth/profile", middleware.AuthMiddleware(cfg), c.auth.Profile)
		public.POST("/chat", c.chat.Ask)
	}
}

func (a *App) registerQuizRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	quiz := router.Group("/api/quiz")
	quiz.Use(middleware.TryAuthMiddleware(cfg))
	{
		quiz.GET("/topics", c.quiz.Topics)
		quiz.POST("/generate", c.quiz.Generate)
		quiz.POST("/quiz", c.quiz.Generate) // 旧版接口
		quiz.POST("/submit", c.quiz.Submit)
		quiz.GET("/history", c.quiz.History)
		quiz.GET("/analytics", c.quiz.Analytics)
		quiz.POST("/bookmark", c.quiz.Bookmark)
		quiz.GET("/bookmarks", c.quiz.Bookmarks)
	}
}
