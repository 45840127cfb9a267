package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel       OTelConfig
	Bot        BotConfig
	Reminder   ReminderConfig
	DeadLetter DeadLetterConfig
	Env        string
	Port       string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// BotConfig holds the Bot Framework identity of this bot.
// An empty AppID runs the bot anonymously (Bot Framework Emulator).
type BotConfig struct {
	AppID             string
	AppPassword       string
	TenantID          string
	TokenURL          string
	OpenIDMetadataURL string
	Issuer            string
}

type ReminderConfig struct {
	BaseURL        string        // where the card submit handler posts /api/remind
	MaxAttempts    int           // delivery attempts before dead-lettering
	InitialBackoff time.Duration // first retry delay, doubled per attempt
	SendTimeout    time.Duration // per-attempt deadline for the proactive send
}

type DeadLetterConfig struct {
	RedisURL string
	Stream   string
}

type ServiceType string

const (
	ServiceTypeServer      ServiceType = "server"
	ServiceTypeDeadLetters ServiceType = "deadletters"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files
// (.env.server, .env.deadletters) and falls back to .env.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("BOT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	port := getEnv("PORT", getEnv("port", "3978"))
	tenantID := getEnv("BOT_TENANT_ID", "botframework.com")

	cfg := Config{
		Env:  getEnv("BOT_ENV", "development"),
		Port: port,
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "reminder-bot"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Bot: BotConfig{
			AppID:             getEnv("BOT_ID", ""),
			AppPassword:       getEnv("BOT_PASSWORD", ""),
			TenantID:          tenantID,
			TokenURL:          getEnv("BOT_TOKEN_URL", fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID)),
			OpenIDMetadataURL: getEnv("BOT_OPENID_METADATA_URL", "https://login.botframework.com/v1/.well-known/openidconfiguration"),
			Issuer:            getEnv("BOT_TOKEN_ISSUER", "https://api.botframework.com"),
		},
		Reminder: ReminderConfig{
			BaseURL:        getEnv("REMINDER_BASE_URL", "http://localhost:"+port),
			MaxAttempts:    getEnvInt("REMINDER_MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvDuration("REMINDER_INITIAL_BACKOFF", 500*time.Millisecond),
			SendTimeout:    getEnvDuration("REMINDER_SEND_TIMEOUT", 15*time.Second),
		},
		DeadLetter: DeadLetterConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			Stream:   getEnv("REDIS_DLQ_STREAM", "reminder_dlq"),
		},
	}

	if cfg.Bot.AppID != "" && cfg.Bot.AppPassword == "" {
		return Config{}, fmt.Errorf("BOT_PASSWORD is required when BOT_ID is set")
	}
	if cfg.Reminder.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("REMINDER_MAX_ATTEMPTS must be at least 1")
	}
	if serviceType == ServiceTypeDeadLetters && !cfg.DeadLetter.Enabled() {
		return Config{}, fmt.Errorf("REDIS_URL is required to read dead letters")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Enabled reports whether the bot authenticates with Bot Framework.
func (c BotConfig) Enabled() bool {
	return c.AppID != ""
}

func (c DeadLetterConfig) Enabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
