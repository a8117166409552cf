package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Predict  PredictConfig  `toml:"predict"`
	Session  SessionConfig  `toml:"session"`
	Redis    RedisConfig    `toml:"redis"`
	Database DatabaseConfig `toml:"database"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	History  HistoryConfig  `toml:"history"`
	Log      LogConfig      `toml:"log"`
}

type AppConfig struct {
	Name        string `toml:"name"`
	Env         string `toml:"env"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	GinMode     string `toml:"gin_mode"`
	MaxUploadMB int    `toml:"max_upload_mb"`
	Workspaces  int    `toml:"workspaces"`
}

// PredictConfig points at the external inference service.
type PredictConfig struct {
	Origin         string `toml:"origin"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type SessionConfig struct {
	Store        string `toml:"store"` // "redis" or "memory"
	CookieName   string `toml:"cookie_name"`
	JWTSecret    string `toml:"jwt_secret"`
	TTLMinutes   int    `toml:"ttl_minutes"`
	SecureCookie bool   `toml:"secure_cookie"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

type DatabaseConfig struct {
	Driver   string `toml:"driver"` // "mysql" or "sqlite"
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
	Path     string `toml:"path"`
}

// RabbitMQConfig enables asynchronous history writes. An empty URL writes directly.
type RabbitMQConfig struct {
	URL                 string `toml:"url"`
	AnalysisRecordQueue string `toml:"analysis_record_queue"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
	Limit   int  `toml:"limit"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DB,
		c.Database.Params,
	)
}

// DatabaseDSN is the connection string for the configured history driver.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "mysql" {
		return c.MySQLDSN()
	}
	return c.Database.Path
}

func (c *Config) validate() error {
	switch c.Session.Store {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Predict.Origin) == "" {
		return fmt.Errorf("predict origin is empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "cropcare",
			Env:         "dev",
			Host:        "0.0.0.0",
			Port:        3000,
			GinMode:     "debug",
			MaxUploadMB: 32,
			Workspaces:  1024,
		},
		Predict: PredictConfig{
			Origin:         "http://localhost:5000",
			TimeoutSeconds: 0,
		},
		Session: SessionConfig{
			Store:      "memory",
			CookieName: "cropcare_session",
			JWTSecret:  "change-me-in-production",
			TTLMinutes: 7 * 24 * 60,
		},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			Password:  "",
			DB:        0,
			KeyPrefix: "cropcare:session:",
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Host:     "127.0.0.1",
			Port:     3306,
			User:     "root",
			Password: "",
			DB:       "cropcare",
			Params:   "parseTime=true&loc=Local&charset=utf8mb4",
			Path:     "data/cropcare.db",
		},
		RabbitMQ: RabbitMQConfig{
			URL:                 "",
			AnalysisRecordQueue: "cropcare.analysis.record",
		},
		History: HistoryConfig{
			Enabled: false,
			Limit:   20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.MaxUploadMB = getEnvAsInt("APP_MAX_UPLOAD_MB", cfg.App.MaxUploadMB)
	cfg.App.Workspaces = getEnvAsInt("APP_WORKSPACES", cfg.App.Workspaces)

	cfg.Predict.Origin = strings.TrimRight(getEnv("PREDICT_ORIGIN", cfg.Predict.Origin), "/")
	cfg.Predict.TimeoutSeconds = getEnvAsInt("PREDICT_TIMEOUT_SECONDS", cfg.Predict.TimeoutSeconds)

	cfg.Session.Store = getEnv("SESSION_STORE", cfg.Session.Store)
	cfg.Session.CookieName = getEnv("SESSION_COOKIE_NAME", cfg.Session.CookieName)
	cfg.Session.JWTSecret = getEnv("SESSION_JWT_SECRET", cfg.Session.JWTSecret)
	cfg.Session.TTLMinutes = getEnvAsInt("SESSION_TTL_MINUTES", cfg.Session.TTLMinutes)
	cfg.Session.SecureCookie = getEnvAsBool("SESSION_SECURE_COOKIE", cfg.Session.SecureCookie)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Redis.KeyPrefix)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("MYSQL_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("MYSQL_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("MYSQL_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("MYSQL_PASSWORD", cfg.Database.Password)
	cfg.Database.DB = getEnv("MYSQL_DB", cfg.Database.DB)
	cfg.Database.Params = getEnv("MYSQL_PARAMS", cfg.Database.Params)
	cfg.Database.Path = getEnv("SQLITE_PATH", cfg.Database.Path)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.AnalysisRecordQueue = getEnv("RABBITMQ_ANALYSIS_RECORD_QUEUE", cfg.RabbitMQ.AnalysisRecordQueue)

	cfg.History.Enabled = getEnvAsBool("HISTORY_ENABLED", cfg.History.Enabled)
	cfg.History.Limit = getEnvAsInt("HISTORY_LIMIT", cfg.History.Limit)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
