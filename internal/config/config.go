package config

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	BotToken      string
	ServerBaseURL string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	APITimeout      time.Duration // short timeout for read/write calls
	GradeTimeout    time.Duration // long timeout for a single grading request
	PollInterval    time.Duration // backoff between grading polls
	PollMaxWait     time.Duration // overall grading deadline
	AdminSessionTTL time.Duration

	LogLevel  string
	LogFormat string
	LogOutput string
}

// Load returns application config populated from environment variables with
// sensible defaults. BOT_TOKEN and SERVER_BASE_URL have no defaults; the
// caller decides whether their absence is fatal.
func Load() App {
	return App{
		BotToken:      os.Getenv("BOT_TOKEN"),
		ServerBaseURL: os.Getenv("SERVER_BASE_URL"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "gradebot"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "gradebot"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		APITimeout:      durationEnv("API_TIMEOUT", 10*time.Second),
		GradeTimeout:    durationEnv("GRADE_TIMEOUT", 2*time.Minute),
		PollInterval:    durationEnv("POLL_INTERVAL", 15*time.Second),
		PollMaxWait:     durationEnv("POLL_MAX_WAIT", 30*time.Minute),
		AdminSessionTTL: durationEnv("ADMIN_SESSION_TTL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogOutput: getEnv("LOG_OUTPUT", "stdout"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		zap.L().Warn("invalid duration, using fallback",
			zap.String("key", key), zap.Duration("fallback", fallback))
		return fallback
	}
	return d
}
