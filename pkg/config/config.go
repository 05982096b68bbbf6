package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ScrapeWorkers        int    `mapstructure:"SCRAPE_WORKERS"`
	ScrapeTimeoutSeconds int    `mapstructure:"SCRAPE_TIMEOUT_SECONDS"`
	DeduplicationHours   int    `mapstructure:"DEDUPLICATION_HOURS"`
	QueuePollIntervalMS  int    `mapstructure:"QUEUE_POLL_INTERVAL_MS"`
	ProxyURLs            string `mapstructure:"PROXY_URLS"`

	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	SupabaseKey string `mapstructure:"SUPABASE_KEY"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	CallProvider        string `mapstructure:"CALL_PROVIDER"`
	RetellAPIKey        string `mapstructure:"RETELL_API_KEY"`
	RetellAgentID       string `mapstructure:"RETELL_AGENT_ID"`
	RetellFromNumber    string `mapstructure:"RETELL_FROM_NUMBER"`
	RetellWebhookSecret string `mapstructure:"RETELL_WEBHOOK_SECRET"`
	MakecomWebhookURL   string `mapstructure:"MAKECOM_WEBHOOK_URL"`

	GHLWebhookURL       string `mapstructure:"GHL_WEBHOOK_URL"`
	GHLMaxAttempts      int    `mapstructure:"GHL_MAX_ATTEMPTS"`
	GHLInitialBackoffMS int    `mapstructure:"GHL_INITIAL_BACKOFF_MS"`
	SheetsWebhookURL    string `mapstructure:"SHEETS_WEBHOOK_URL"`

	StripeSecretKey    string `mapstructure:"STRIPE_SECRET_KEY"`
	SquareAccessToken  string `mapstructure:"SQUARE_ACCESS_TOKEN"`
	SquareLocationID   string `mapstructure:"SQUARE_LOCATION_ID"`
	SquareBaseURL      string `mapstructure:"SQUARE_BASE_URL"`
	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`

	DoHEndpoint        string `mapstructure:"DOH_ENDPOINT"`
	ComplianceTimezone string `mapstructure:"COMPLIANCE_TIMEZONE"`
	DNCNumbers         string `mapstructure:"DNC_NUMBERS"`

	RateLimitRPS          float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int     `mapstructure:"RATE_LIMIT_BURST"`
	WebhookTimeoutSeconds int     `mapstructure:"WEBHOOK_TIMEOUT_SECONDS"`
}

var keys = []string{
	"SERVER_PORT", "LOG_LEVEL", "POSTGRES_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"SCRAPE_WORKERS", "SCRAPE_TIMEOUT_SECONDS", "DEDUPLICATION_HOURS", "QUEUE_POLL_INTERVAL_MS", "PROXY_URLS",
	"SUPABASE_URL", "SUPABASE_KEY", "GEMINI_API_KEY", "GEMINI_MODEL",
	"CALL_PROVIDER", "RETELL_API_KEY", "RETELL_AGENT_ID", "RETELL_FROM_NUMBER", "RETELL_WEBHOOK_SECRET", "MAKECOM_WEBHOOK_URL",
	"GHL_WEBHOOK_URL", "GHL_MAX_ATTEMPTS", "GHL_INITIAL_BACKOFF_MS", "SHEETS_WEBHOOK_URL",
	"STRIPE_SECRET_KEY", "SQUARE_ACCESS_TOKEN", "SQUARE_LOCATION_ID", "SQUARE_BASE_URL",
	"CHECKOUT_SUCCESS_URL", "CHECKOUT_CANCEL_URL",
	"DOH_ENDPOINT", "COMPLIANCE_TIMEZONE", "DNC_NUMBERS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "WEBHOOK_TIMEOUT_SECONDS",
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// The .env file is optional; production is configured purely through the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SCRAPE_WORKERS", 5)
	v.SetDefault("SCRAPE_TIMEOUT_SECONDS", 30)
	v.SetDefault("DEDUPLICATION_HOURS", 48)
	v.SetDefault("QUEUE_POLL_INTERVAL_MS", 2000)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("CALL_PROVIDER", "simulated")
	v.SetDefault("GHL_MAX_ATTEMPTS", 3)
	v.SetDefault("GHL_INITIAL_BACKOFF_MS", 1000)
	v.SetDefault("SQUARE_BASE_URL", "https://connect.squareup.com")
	v.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/billing/success")
	v.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/billing/cancel")
	v.SetDefault("DOH_ENDPOINT", "https://dns.google/resolve")
	v.SetDefault("COMPLIANCE_TIMEZONE", "America/New_York")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 10)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the API server cannot start without.
func (c *Config) Validate() error {
	if c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.ScrapeWorkers < 1 {
		return fmt.Errorf("SCRAPE_WORKERS must be a positive integer, got %d", c.ScrapeWorkers)
	}
	if c.GHLMaxAttempts < 1 {
		return fmt.Errorf("GHL_MAX_ATTEMPTS must be a positive integer, got %d", c.GHLMaxAttempts)
	}
	switch c.CallProvider {
	case "retell", "makecom", "simulated":
	default:
		return fmt.Errorf("CALL_PROVIDER must be one of retell, makecom, simulated, got %q", c.CallProvider)
	}
	return nil
}

func (c *Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.ScrapeTimeoutSeconds) * time.Second
}

func (c *Config) DeduplicationWindow() time.Duration {
	return time.Duration(c.DeduplicationHours) * time.Hour
}

func (c *Config) QueuePollInterval() time.Duration {
	return time.Duration(c.QueuePollIntervalMS) * time.Millisecond
}

func (c *Config) GHLInitialBackoff() time.Duration {
	return time.Duration(c.GHLInitialBackoffMS) * time.Millisecond
}

func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

// Proxies splits PROXY_URLS on commas.
func (c *Config) Proxies() []string {
	return splitList(c.ProxyURLs)
}

// DoNotCallNumbers splits DNC_NUMBERS on commas.
func (c *Config) DoNotCallNumbers() []string {
	return splitList(c.DNCNumbers)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
