package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config конфигурация приложения
type Config struct {
	ServerPort      string
	LogLevel        string
	HistorySize     int
	ShutdownTimeout time.Duration
	RateLimit       RateLimitConfig
	Redis           RedisConfig
	Archive         ArchiveConfig
	DB              DBConfig
}

// RateLimitConfig ограничение частоты запросов. RPS <= 0 выключает лимит.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ArchiveConfig настройки архива событий в Redis
type ArchiveConfig struct {
	Retention time.Duration
	Workers   int
	QueueSize int
}

// DBConfig настройки каталога микроконтроллеров. Пустой DBSource выключает каталог.
type DBConfig struct {
	DBSource         string
	MaxDBConnections int
	MinDBConnections int
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
}

// LoadConfig загружает конфигурацию из environment
func LoadConfig() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HistorySize:     getEnvAsInt("HISTORY_SIZE", 50),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 0),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Archive: ArchiveConfig{
			Retention: time.Duration(getEnvAsInt("ARCHIVE_RETENTION_HOURS", 24)) * time.Hour,
			Workers:   getEnvAsInt("ARCHIVE_WORKERS", 4),
			QueueSize: getEnvAsInt("ARCHIVE_QUEUE_SIZE", 1000),
		},
		DB: DBConfig{
			DBSource:         getEnv("DB_SOURCE", ""),
			MaxDBConnections: getEnvAsInt("MAX_DB_CONNECTIONS", 10),
			MinDBConnections: getEnvAsInt("MIN_DB_CONNECTIONS", 2),
			MaxConnLifetime:  time.Duration(getEnvAsInt("MAX_CONN_LIFETIME", 3600)) * time.Second,
			MaxConnIdleTime:  time.Duration(getEnvAsInt("MAX_CONN_IDLE_TIME", 1800)) * time.Second,
		},
	}
}

// Validate проверяет значения, с которыми сервис не сможет работать
func (c *Config) Validate() error {
	var errs []error

	if c.ServerPort == "" {
		errs = append(errs, errors.New("SERVER_PORT must not be empty"))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_SIZE must be positive, got %d", c.HistorySize))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be positive when rate limiting is on, got %d", c.RateLimit.Burst))
	}
	if c.Redis.Enabled {
		if c.Archive.Workers <= 0 {
			errs = append(errs, fmt.Errorf("ARCHIVE_WORKERS must be positive, got %d", c.Archive.Workers))
		}
		if c.Archive.QueueSize <= 0 {
			errs = append(errs, fmt.Errorf("ARCHIVE_QUEUE_SIZE must be positive, got %d", c.Archive.QueueSize))
		}
		if c.Archive.Retention <= 0 {
			errs = append(errs, fmt.Errorf("ARCHIVE_RETENTION_HOURS must be positive, got %s", c.Archive.Retention))
		}
	}
	if c.DB.DBSource != "" && c.DB.MinDBConnections > c.DB.MaxDBConnections {
		errs = append(errs, fmt.Errorf("MIN_DB_CONNECTIONS (%d) exceeds MAX_DB_CONNECTIONS (%d)",
			c.DB.MinDBConnections, c.DB.MaxDBConnections))
	}

	return errors.Join(errs...)
}

// getEnv получает environment variable или возвращает default
func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsDuration принимает "30s", "1m" или число секунд
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
