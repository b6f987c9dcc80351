// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	PortalBaseURL   string
	AuthBaseURL     string
	UpstreamTimeout time.Duration
	AllowedOrigins  []string
	AdminAPIToken   string
	WhatsApp        WhatsAppConfig
	Session         SessionConfig
	Journal         JournalConfig
	RateLimit       RateLimitConfig
	Telemetry       TelemetryConfig
}

// WhatsAppConfig holds the Cloud API credentials.
type WhatsAppConfig struct {
	APIURL        string
	PhoneNumberID string
	AuthToken     string
	VerifyToken   string
	AppSecret     string
}

// SessionConfig controls in-memory session expiry.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// JournalConfig controls the SQLite conversation journal.
type JournalConfig struct {
	Enabled   bool
	DBPath    string
	Retention time.Duration
}

// RateLimitConfig controls the per-IP request limiter.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// TelemetryConfig controls OpenTelemetry export and log files.
type TelemetryConfig struct {
	Enabled bool
	Dir     string
	LogFile string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		PortalBaseURL:   strings.TrimRight(getEnv("PORTAL_BASE_URL", "https://elearning.cut.ac.zw/portal/index.php/cut_elearning"), "/"),
		AuthBaseURL:     strings.TrimRight(getEnv("AUTH_BASE_URL", "https://elearning.cut.ac.zw"), "/"),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		AdminAPIToken:   getEnv("ADMIN_API_TOKEN", ""),
		WhatsApp: WhatsAppConfig{
			APIURL:        strings.TrimRight(getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v22.0"), "/"),
			PhoneNumberID: getEnv("PHONE_NUMBER_ID", ""),
			AuthToken:     getEnv("WHATSAPP_AUTH_TOKEN", ""),
			VerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
			AppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		},
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 30*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute),
		},
		Journal: JournalConfig{
			Enabled:   getEnvBool("JOURNAL_ENABLED", true),
			DBPath:    getEnv("JOURNAL_DB_PATH", "./data/journal.db"),
			Retention: getEnvDuration("JOURNAL_RETENTION", 7*24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Telemetry: TelemetryConfig{
			Enabled: getEnvBool("TELEMETRY_ENABLED", false),
			Dir:     getEnv("TELEMETRY_DIR", "./data/telemetry"),
			LogFile: getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.PortalBaseURL == "" {
		return fmt.Errorf("PORTAL_BASE_URL cannot be empty")
	}
	if c.AuthBaseURL == "" {
		return fmt.Errorf("AUTH_BASE_URL cannot be empty")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.MessagingConfigured() && c.WhatsApp.AppSecret == "" {
		return fmt.Errorf("WHATSAPP_APP_SECRET is required when WhatsApp credentials are set")
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("JOURNAL_DB_PATH cannot be empty when the journal is enabled")
	}
	if c.Journal.Retention <= 0 {
		return fmt.Errorf("JOURNAL_RETENTION must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.Telemetry.Enabled && c.Telemetry.Dir == "" {
		return fmt.Errorf("TELEMETRY_DIR cannot be empty when telemetry is enabled")
	}
	return nil
}

// MessagingConfigured reports whether outbound WhatsApp credentials are present.
func (c *Config) MessagingConfigured() bool {
	return c.WhatsApp.PhoneNumberID != "" && c.WhatsApp.AuthToken != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
