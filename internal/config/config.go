package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	AI        AIConfig
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 配置文件路径（非配置项，由 LoadConfig 填充，供热更新监听使用）
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Port        string
	Mode        string
	WatchConfig bool `mapstructure:"watch_config"`
}

type DatabaseConfig struct {
	Driver    string // mysql, postgres, sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"ssl_mode"`
	Path      string // sqlite 文件路径
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int `mapstructure:"pool_size"`
}

type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout_seconds"`
}

// Enabled reports whether an upstream completion service is configured.
func (c AIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != "" && c.APIKey != "your_api_key_here"
}

type QuizConfig struct {
	Topics             []string       `mapstructure:"topics"`
	SessionStore       string         `mapstructure:"session_store"` // memory, redis
	SessionTTL         time.Duration  `mapstructure:"session_ttl_minutes"`
	MaxSessions        int            `mapstructure:"max_sessions"`
	MaxCustomQuestions int            `mapstructure:"max_custom_questions"`
	SecondsPerQuestion int            `mapstructure:"seconds_per_question"`
	SourceMaxChars     int            `mapstructure:"source_max_chars"`
	AllowFallback      bool           `mapstructure:"allow_fallback"`
	DifficultyLimits   map[string]int `mapstructure:"difficulty_limits"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"` // 为空时按 server.mode 决定
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Exporter          string  `mapstructure:"exporter"` // jaeger, otlp, stdout
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

var defaultTopics = []string{
	"NCC General",
	"National Integration",
	"Drill",
	"Weapon Training",
	"Map Reading",
	"Field Craft Battle Craft",
	"Civil Defence",
	"First Aid",
	"Leadership",
	"Social Service",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/abyas.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("jwt.secret", "abyas-dev-secret")
	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.temperature", 0.5)
	v.SetDefault("ai.max_tokens", 2500)
	v.SetDefault("ai.timeout_seconds", 60)

	v.SetDefault("quiz.topics", defaultTopics)
	v.SetDefault("quiz.session_store", "memory")
	v.SetDefault("quiz.session_ttl_minutes", 120)
	v.SetDefault("quiz.max_sessions", 10000)
	v.SetDefault("quiz.max_custom_questions", 15)
	v.SetDefault("quiz.seconds_per_question", 120)
	v.SetDefault("quiz.source_max_chars", 8000)
	v.SetDefault("quiz.allow_fallback", true)
	v.SetDefault("quiz.difficulty_limits", map[string]int{"easy": 10, "medium": 5, "hard": 5})

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("tracing.exporter", "jaeger")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ABYAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// AI
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "AI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")

	// Quiz
	v.BindEnv("quiz.session_store", "QUIZ_SESSION_STORE")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.exporter", "TRACING_EXPORTER")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时使用默认值 + 环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.AI.Timeout = cfg.AI.Timeout * time.Second
	cfg.Quiz.SessionTTL = cfg.Quiz.SessionTTL * time.Minute

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.Path); dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				os.MkdirAll(dir, 0755)
			}
		}
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Quiz.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported quiz.session_store %q (want memory or redis)", c.Quiz.SessionStore)
	}

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	if c.Quiz.SessionTTL <= 0 {
		return fmt.Errorf("quiz.session_ttl_minutes must be positive")
	}
	if len(c.Quiz.Topics) == 0 {
		return fmt.Errorf("quiz.topics must not be empty")
	}
	return nil
}

// DifficultyLimit returns the question cap for a predefined topic at the given difficulty.
func (q QuizConfig) DifficultyLimit(difficulty string) int {
	if n, ok := q.DifficultyLimits[strings.ToLower(difficulty)]; ok && n > 0 {
		return n
	}
	return q.MaxCustomQuestions
}
