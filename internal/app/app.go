package app

import (
	"abyas_backend/internal/config"
	"abyas_backend/internal/controller"
	"abyas_backend/internal/repository"
	"abyas_backend/internal/service"
	"abyas_backend/internal/util"
	"abyas_backend/pkg/configwatcher"
	"abyas_backend/pkg/database"
	"abyas_backend/pkg/logger"
	"abyas_backend/pkg/monitoring"
	"abyas_backend/pkg/security"
	"abyas_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionSweepInterval = time.Minute

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)

	// 后台任务（限流清理、会话清理、配置监听）随 ctx 结束
	ctx            context.Context
	cancel         context.CancelFunc
	tracerProvider *sdktrace.TracerProvider
}

type repositories struct {
	user      *repository.UserRepository
	history   *repository.QuizHistoryRepository
	bookmarks *repository.QuizBookmarkRepository
	sessions  repository.QuizSessionStore
}

type services struct {
	ai     *service.AIService
	auth   *service.AuthService
	chat   *service.ChatService
	parser *service.QuizParser
	quiz   *service.QuizService
}

type controllers struct {
	auth   *controller.AuthController
	chat   *controller.ChatController
	quiz   *controller.QuizController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(newCfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(newCfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		user:      repository.NewUserRepository(db),
		history:   repository.NewQuizHistoryRepository(db),
		bookmarks: repository.NewQuizBookmarkRepository(db),
	}

	if cfg.Quiz.SessionStore == util.SessionStoreRedis {
		repos.sessions = repository.NewRedisQuizSessionStore(rdb, cfg.Quiz.SessionTTL)
	} else {
		mem := repository.NewMemoryQuizSessionStore(cfg.Quiz.SessionTTL, cfg.Quiz.MaxSessions)
		mem.StartSweeper(a.ctx, sessionSweepInterval)
		repos.sessions = mem
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.ai = service.NewAIService(cfg.AI)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.chat = service.NewChatService(s.ai)
	s.parser = service.NewQuizParser()
	s.quiz = service.NewQuizService(cfg.Quiz, s.ai, s.parser, repos.sessions, repos.history, repos.bookmarks)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.ai.UpdateConfig(newCfg.AI)
		s.quiz.UpdateConfig(newCfg.Quiz)
	})

	if !s.ai.Enabled() {
		logger.Log.Warn("AI completion service not configured",
			zap.Bool("fallback_enabled", cfg.Quiz.AllowFallback))
	}
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	var ping controller.Pinger
	if a.Redis != nil {
		ping = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}

	return &controllers{
		auth:   controller.NewAuthController(s.auth),
		chat:   controller.NewChatController(s.chat),
		quiz:   controller.NewQuizController(s.quiz),
		health: controller.NewHealthController(db, a.Config.Quiz.SessionStore, ping),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(cfg *config.Config) {
	if !cfg.Server.WatchConfig || cfg.File == "" {
		return
	}
	go func() {
		if err := configwatcher.WatchConfig(a.ctx, cfg.File, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := logger.InitLogger(cfg.Log, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Quiz.SessionStore == util.SessionStoreRedis {
		rdb, err := database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("initialize redis: %w", err)
		}
		app.Redis = rdb
	}

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("abyas-backend", cfg.Tracing)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracerProvider = tp
	}

	repos := app.initRepositories(db, app.Redis, cfg)
	app.services = app.initServices(repos, cfg)
	controllers := app.initControllers(app.services, db)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.startBackgroundTasks(cfg)
	return app, nil
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放外部连接
func (a *App) Close(ctx context.Context) {
	a.cancel()

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Log.Error("Failed to close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Sync()
}
