package controller

import (
	"abyas_backend/internal/util"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger 会话存储等外部依赖的健康检查
type Pinger func(ctx context.Context) error

type HealthController struct {
	DB           *gorm.DB
	SessionStore string
	PingSessions Pinger
}

func NewHealthController(db *gorm.DB, sessionStore string, pingSessions Pinger) *HealthController {
	return &HealthController{DB: db, SessionStore: sessionStore, PingSessions: pingSessions}
}

// @Summary 健康检查
// @Description 检查数据库与会话存储状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	if c.PingSessions != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := c.PingSessions(pingCtx); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Session store unavailable")
			return
		}
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"database":      "up",
			"session_store": c.SessionStore,
		},
	})
}
