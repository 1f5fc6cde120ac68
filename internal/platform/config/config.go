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

var (
	errInvalidPort           = errors.New("config: invalid PORT number")
	errRateLimitOutOfRange   = errors.New("config: RATE_LIMIT_PER_HOUR must be 1-1000")
	errConcurrencyOutOfRange = errors.New("config: MAX_CONCURRENT_SCANS must be 1-100")
	errInvalidCacheTTL       = errors.New("config: CACHE_TTL must be positive")
	errInvalidDNSCacheTTL    = errors.New("config: DNS_CACHE_TTL must be positive")
	errUnknownAuditEngine    = errors.New("config: AUDIT_ENGINE must be \"local\" or \"pagespeed\"")
	errMissingPageSpeedKey   = errors.New("config: PAGESPEED_API_KEY is required for the pagespeed engine")
)

// Audit engines selectable through AUDIT_ENGINE.
const (
	EngineLocal     = "local"
	EnginePageSpeed = "pagespeed"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port               string
	MetricsAddr        string
	LogLevel           string
	DBPath             string
	RateLimitPerHour   int
	CacheTTL           time.Duration
	MaxConcurrentScans int
	AuditEngine        string
	PageSpeedAPIKey    string
	ResendAPIKey       string
	MailFrom           string
	SlackWebhookURL    string
	AllowedOrigins     []string
	DNSCacheTTL        time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory, when present, is loaded first; values
// already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
		LogLevel:           getEnv("LOG_LEVEL", "ERROR"),
		DBPath:             getEnv("DB_PATH", "comply.db"),
		RateLimitPerHour:   getEnvAsInt("RATE_LIMIT_PER_HOUR", 5),
		CacheTTL:           getEnvAsDuration("CACHE_TTL", time.Hour),
		MaxConcurrentScans: getEnvAsInt("MAX_CONCURRENT_SCANS", 4),
		AuditEngine:        strings.ToLower(getEnv("AUDIT_ENGINE", EngineLocal)),
		PageSpeedAPIKey:    os.Getenv("PAGESPEED_API_KEY"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		MailFrom:           getEnv("MAIL_FROM", "Comply <hello@getcomply.tech>"),
		SlackWebhookURL:    os.Getenv("SLACK_WEBHOOK_URL"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "https://getcomply.tech,http://localhost:*")),
		DNSCacheTTL:        getEnvAsDuration("DNS_CACHE_TTL", 5*time.Minute),
	}
	if _, set := os.LookupEnv("METRICS_ADDR"); !set {
		cfg.MetricsAddr = ":9091"
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.RateLimitPerHour < 1 || c.RateLimitPerHour > 1000 {
		return fmt.Errorf("%w: got %d", errRateLimitOutOfRange, c.RateLimitPerHour)
	}

	if c.MaxConcurrentScans < 1 || c.MaxConcurrentScans > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.MaxConcurrentScans)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidCacheTTL, c.CacheTTL)
	}

	if c.DNSCacheTTL <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidDNSCacheTTL, c.DNSCacheTTL)
	}

	switch c.AuditEngine {
	case EngineLocal:
	case EnginePageSpeed:
		if c.PageSpeedAPIKey == "" {
			return errMissingPageSpeedKey
		}
	default:
		return fmt.Errorf("%w: got %q", errUnknownAuditEngine, c.AuditEngine)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
