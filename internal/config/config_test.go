package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadParsesEnvironment(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("PORT", "3000")
	t.Setenv("PORTAL_BASE_URL", "https://elearning.cut.ac.zw/portal/index.php/cut_elearning/")
	t.Setenv("AUTH_BASE_URL", "https://elearning.cut.ac.zw")
	t.Setenv("UPSTREAM_TIMEOUT", "30s")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SESSION_SWEEP_INTERVAL", "15m")
	t.Setenv("JOURNAL_ENABLED", "true")
	t.Setenv("JOURNAL_DB_PATH", "./data/journal.db")
	t.Setenv("JOURNAL_RETENTION", "168h")
	t.Setenv("RATE_LIMIT_REQUESTS", "100")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("TELEMETRY_ENABLED", "false")
	t.Setenv("ADMIN_API_TOKEN", "ops-token")
	t.Setenv("WHATSAPP_APP_SECRET", "app-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if strings.HasSuffix(cfg.PortalBaseURL, "/") {
		t.Errorf("PortalBaseURL kept trailing slash: %q", cfg.PortalBaseURL)
	}
	if cfg.Session.TTL != 30*time.Minute || cfg.Session.SweepInterval != 15*time.Minute {
		t.Errorf("session config = %+v", cfg.Session)
	}
	if cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("UpstreamTimeout = %v", cfg.UpstreamTimeout)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Retention != 168*time.Hour {
		t.Errorf("journal config = %+v", cfg.Journal)
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("rate limit config = %+v", cfg.RateLimit)
	}
	if cfg.AdminAPIToken != "ops-token" || cfg.WhatsApp.AppSecret != "app-secret" {
		t.Errorf("admin token = %q, app secret = %q", cfg.AdminAPIToken, cfg.WhatsApp.AppSecret)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DUR", "45")
	if got := getEnvDuration("X_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("bare seconds = %v", got)
	}
	t.Setenv("X_DUR", "2m")
	if got := getEnvDuration("X_DUR", time.Second); got != 2*time.Minute {
		t.Fatalf("duration = %v", got)
	}
	t.Setenv("X_DUR", "soon")
	if got := getEnvDuration("X_DUR", time.Second); got != time.Second {
		t.Fatalf("fallback = %v", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("X_LIST", " https://a.example , ,https://b.example")
	got := getEnvList("X_LIST")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("getEnvList = %v", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		Port:            "3000",
		PortalBaseURL:   "http://portal",
		AuthBaseURL:     "http://auth",
		UpstreamTimeout: time.Second,
		Session:         SessionConfig{TTL: time.Minute, SweepInterval: time.Minute},
		Journal:         JournalConfig{Enabled: true, DBPath: "x.db", Retention: time.Hour},
		RateLimit:       RateLimitConfig{Requests: 1, Window: time.Second},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := base
	bad.Session.TTL = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero SESSION_TTL accepted")
	}

	bad = base
	bad.RateLimit.Requests = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("zero RATE_LIMIT_REQUESTS accepted")
	}

	bad = base
	bad.Journal.DBPath = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("empty JOURNAL_DB_PATH accepted with journal enabled")
	}

	bad = base
	bad.WhatsApp = WhatsAppConfig{PhoneNumberID: "123", AuthToken: "tok"}
	if err := bad.Validate(); err == nil {
		t.Fatal("outbound credentials accepted without WHATSAPP_APP_SECRET")
	}
	bad.WhatsApp.AppSecret = "app-secret"
	if err := bad.Validate(); err != nil {
		t.Fatalf("signed messaging config rejected: %v", err)
	}
}

func TestMessagingConfigured(t *testing.T) {
	c := Config{}
	if c.MessagingConfigured() {
		t.Fatal("empty credentials reported as configured")
	}
	c.WhatsApp = WhatsAppConfig{PhoneNumberID: "123", AuthToken: "tok"}
	if !c.MessagingConfigured() {
		t.Fatal("credentials not detected")
	}
}
