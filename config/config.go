package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MattermostConfig configures the HTTP client that talks to the target
// Mattermost server's import/REST API.
type MattermostConfig struct {
	BaseURL          string
	AdminToken       string
	TeamID           string // MM_TEAM_ID; if empty, resolved at startup via TeamName
	TeamName         string // MM_TEAM; used to resolve a team id when TeamID is unset
	MaxConnections   int
	MaxIdleKeepalive int
	HTTP2            bool
	RequestTimeout   time.Duration
}

// IsConfigured returns true if all required Mattermost configuration is
// present. TeamID is intentionally not required here - it can be resolved
// at startup from TeamName via the Mattermost API (see
// mattermost.ResolveTeamID).
func (c MattermostConfig) IsConfigured() bool {
	return c.BaseURL != "" && c.AdminToken != ""
}

// NotifyConfig configures the optional ops webhook that reports job
// completion (spec.md supplemented feature, adapted from the teacher's
// sales-notification webhook).
type NotifyConfig struct {
	WebhookURL  string
	Environment string
}

func (c NotifyConfig) IsConfigured() bool {
	return c.WebhookURL != ""
}

// ExportConfig carries the concurrency/resource bounds from spec.md 5.
type ExportConfig struct {
	Workers             int
	AttachmentWorkers   int
	ChannelConcurrency  int
	QueuePollInterval   time.Duration
	AttachmentMaxMB     int  // 0 means unbounded
	AttachmentMultipart bool // false falls back to the legacy base64 /attachment path
}

// SlackConfig configures the narrow Slack API surface the importer/exporter
// still depends on post-extraction: file downloads and emoji.list.
type SlackConfig struct {
	BotToken string
}

func (c SlackConfig) IsConfigured() bool {
	return c.BotToken != ""
}

// AppConfig is the fully-resolved process configuration, built once in
// cmd/main.go and threaded explicitly into every collaborator (spec.md 9's
// "runtime value passed explicitly" guidance).
type AppConfig struct {
	DatabaseURL        string
	DatabaseSchema     string
	Port               string
	CORSAllowedOrigins string
	Environment        string
	RunMode            string // "test" skips migrations, matching the teacher's PYTEST_RUN bypass
	UseStrictConfig    bool
	APIKey             string // bearer token the HTTP boundary expects on privileged endpoints
	UploadDir          string

	MattermostConfig MattermostConfig
	NotifyConfig     NotifyConfig
	ExportConfig     ExportConfig
	SlackConfig      SlackConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	databaseURL, err := getEnvRequired("DB_URL")
	if err != nil {
		return nil, err
	}

	databaseSchema, err := getEnvRequired("DB_SCHEMA")
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		DatabaseURL:        databaseURL,
		DatabaseSchema:     databaseSchema,
		Port:               getEnvWithDefault("PORT", "8080"),
		CORSAllowedOrigins: getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
		Environment:        getEnvWithDefault("ENVIRONMENT", "dev"),
		RunMode:            getEnvWithDefault("RUN_MODE", ""),
		UseStrictConfig:    getEnvWithDefault("USE_STRICT_CONFIG", "true") == "true",
		APIKey:             os.Getenv("API_KEY"),
		UploadDir:          getEnvWithDefault("UPLOAD_DIR", "/tmp/slack-export-uploads"),

		MattermostConfig: MattermostConfig{
			BaseURL:          os.Getenv("MM_BASE_URL"),
			AdminToken:       os.Getenv("MM_ADMIN_TOKEN"),
			TeamID:           os.Getenv("MM_TEAM_ID"),
			TeamName:         getEnvWithDefault("MM_TEAM", "test"),
			MaxConnections:   getEnvInt("MM_MAX_CONNECTIONS", 16),
			MaxIdleKeepalive: getEnvInt("MM_MAX_KEEPALIVE", 8),
			HTTP2:            getEnvWithDefault("MM_HTTP2", "true") == "true",
			RequestTimeout:   getEnvDuration("MM_REQUEST_TIMEOUT", 30*time.Second),
		},

		NotifyConfig: NotifyConfig{
			WebhookURL:  os.Getenv("OPS_WEBHOOK_URL"),
			Environment: getEnvWithDefault("ENVIRONMENT", "dev"),
		},

		ExportConfig: ExportConfig{
			Workers:             getEnvInt("EXPORT_WORKERS", 5),
			AttachmentWorkers:   getEnvInt("ATTACHMENT_WORKERS", getEnvInt("EXPORT_WORKERS", 5)),
			ChannelConcurrency:  getEnvInt("EXPORT_CHANNEL_CONCURRENCY", getEnvInt("EXPORT_WORKERS", 5)),
			QueuePollInterval:   getEnvDuration("EXPORT_QUEUE_POLL", time.Minute),
			AttachmentMaxMB:     getEnvInt("ATTACHMENT_MAX_MB", 0),
			AttachmentMultipart: getEnvWithDefault("ATTACHMENT_MULTIPART", "1") != "0",
		},

		SlackConfig: SlackConfig{
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
		},
	}

	if cfg.MattermostConfig.IsConfigured() {
		log.Printf("✅ Mattermost integration configured against %s", cfg.MattermostConfig.BaseURL)
	} else {
		log.Printf("⚠️ Mattermost integration not configured - export phase will be disabled")
		if cfg.UseStrictConfig {
			return nil, fmt.Errorf("mattermost integration is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if cfg.NotifyConfig.IsConfigured() {
		log.Printf("✅ Ops notification webhook configured")
	} else {
		log.Printf("⚠️ Ops notification webhook not configured - job-completion notifications will be disabled")
	}

	return cfg, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️ invalid duration for %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
