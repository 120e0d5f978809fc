package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string

	// JWTTTL bounds access token lifetime.
	JWTTTL time.Duration

	CORSAllowAll bool
	CORSOrigins  []string

	// Redis / asynq deadline scheduling. Empty RedisURL disables the
	// at-deadline expiration tasks; the periodic sweeper still covers SLA
	// enforcement on its own.
	RedisURL         string
	AsynqQueue       string
	AsynqConcurrency int

	// Sweeper cadence (cron spec, e.g. "@every 30s").
	SweepSpec      string
	SweepBatchSize int

	// Outbound integration events. Empty AMQPURL disables publishing.
	AMQPURL      string
	AMQPExchange string

	// Notification email. Disabled unless SMTPHost is set.
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	// AdminEmail receives escalation-exhausted alerts.
	AdminEmail string

	// Address brokers use to open an offered lead; embedded in notifications.
	AppBaseURL string

	IntakeRatePerMinute int
	IntakeRateBurst     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTTTL:              getDurationEnv("JWT_TTL", 12*time.Hour),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		RedisURL:            getEnv("REDIS_URL", ""),
		AsynqQueue:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    getIntEnv("ASYNQ_CONCURRENCY", 10),
		SweepSpec:           getEnv("SWEEP_SPEC", "@every 30s"),
		SweepBatchSize:      getIntEnv("SWEEP_BATCH_SIZE", 50),
		AMQPURL:             getEnv("AMQP_URL", ""),
		AMQPExchange:        getEnv("AMQP_EXCHANGE", "leaddesk.events"),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getIntEnv("SMTP_PORT", 587),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "LeadDesk"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		AdminEmail:          getEnv("ADMIN_EMAIL", ""),
		AppBaseURL:          strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:4200"), "/"),
		IntakeRatePerMinute: getIntEnv("INTAKE_RATE_PER_MINUTE", 30),
		IntakeRateBurst:     getIntEnv("INTAKE_RATE_BURST", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SMTPHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when SMTP_HOST is set")
	}

	return cfg, nil
}

// EmailEnabled reports whether the notification module should send email.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

// SweepInterval parses "@every <duration>" specs for components that need a
// plain duration; other cron specs fall back to 30 seconds.
func (c *Config) SweepInterval() time.Duration {
	const prefix = "@every "
	if strings.HasPrefix(c.SweepSpec, prefix) {
		if d, err := time.ParseDuration(strings.TrimPrefix(c.SweepSpec, prefix)); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
