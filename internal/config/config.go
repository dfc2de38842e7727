package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Discord      DiscordConfig
	Tickets      TicketsConfig
	HTTP         HTTPConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// DiscordConfig holds gateway credentials. Token is required at startup.
type DiscordConfig struct {
	Token string
}

// TicketsConfig identifies where ticket channels are provisioned. Any of
// these may be absent at startup; the handler reports missing values
// per-request instead of refusing to boot.
type TicketsConfig struct {
	GuildID      string
	CategoryID   string
	StaffRoleIDs []string
	EmbedFooter  string
}

// HTTPConfig tunes the inbound surface: CORS origins, body cap, rate limit.
type HTTPConfig struct {
	AllowedOrigins   []string
	BodyLimitBytes   int
	RateLimitMax     int
	RateLimitWindowS int
}

// RedisConfig holds optional rate-limiter storage values. Empty Addr keeps
// the limiter on its in-memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig holds the optional webhook notification endpoint.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults
// where possible. A missing DISCORD_TOKEN is the one fatal condition.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, errors.New("DISCORD_TOKEN is required")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-bridge"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			Token: token,
		},
		Tickets: TicketsConfig{
			GuildID:      os.Getenv("GUILD_ID"),
			CategoryID:   os.Getenv("TICKETS_CATEGORY_ID"),
			StaffRoleIDs: splitList(os.Getenv("STAFF_ROLE_IDS")),
			EmbedFooter:  getEnv("TICKET_EMBED_FOOTER", "MNS OPTI"),
		},
		HTTP: HTTPConfig{
			AllowedOrigins:   splitList(os.Getenv("SITE_ORIGINS")),
			BodyLimitBytes:   getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 50*1024),
			RateLimitMax:     getEnvAsInt("HTTP_RATE_LIMIT_MAX", 30),
			RateLimitWindowS: getEnvAsInt("HTTP_RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Missing lists the env keys a complete ticket configuration still needs.
func (t TicketsConfig) Missing() []string {
	var missing []string
	if t.GuildID == "" {
		missing = append(missing, "GUILD_ID")
	}
	if t.CategoryID == "" {
		missing = append(missing, "TICKETS_CATEGORY_ID")
	}
	if len(t.StaffRoleIDs) == 0 {
		missing = append(missing, "STAFF_ROLE_IDS")
	}
	return missing
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
