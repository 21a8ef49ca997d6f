package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the storefront.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Resend   ResendConfig   `yaml:"resend"`
	Prodigi  ProdigiConfig  `yaml:"prodigi"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Storage  StorageConfig  `yaml:"storage"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	SessionSecret  string   `yaml:"session_secret"`
	CookieName     string   `yaml:"cookie_name"`
	CookieMaxAge   int      `yaml:"cookie_max_age"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_mins"`
}

// RedisConfig holds Redis settings for locks and caching.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// StripeConfig holds payment processor API configuration.
type StripeConfig struct {
	SecretKey      string `yaml:"secret_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c StripeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResendConfig holds transactional email provider configuration.
type ResendConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	FromAddress    string `yaml:"from_address"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration.
func (c ResendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ProdigiConfig holds print fulfillment partner configuration.
type ProdigiConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	WebhookSecret  string `yaml:"webhook_secret"`
	SandboxMode    bool   `yaml:"sandbox_mode"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c ProdigiConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GeminiConfig holds generative AI service configuration.
type GeminiConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	TextModel      string  `yaml:"text_model"`
	ImageModel     string  `yaml:"image_model"`
	MaxConcurrent  int     `yaml:"max_concurrent"`
	RequestsPerMin float64 `yaml:"requests_per_min"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c GeminiConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig holds object storage configuration. Type is "s3" or
// "local"; local keeps blobs on disk for development.
type StorageConfig struct {
	Type         string `yaml:"type"`
	LocalPath    string `yaml:"local_path"`
	S3Bucket     string `yaml:"s3_bucket"`
	AWSRegion    string `yaml:"aws_region"`
	AWSProfile   string `yaml:"aws_profile"`    // Empty string uses default credential chain
	AWSAccessKey string `yaml:"aws_access_key"` // Static credentials take precedence over profile
	AWSSecretKey string `yaml:"aws_secret_key"`
	PublicURL    string `yaml:"public_url"` // CDN or bucket URL prefix for serving
}

// GetAWSProfile returns the AWS profile, with environment variable override.
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "" // Running in a container, use the IAM role
	}
	return c.AWSProfile
}

// PricingConfig holds product price points in cents.
type PricingConfig struct {
	DigitalCents  int64 `yaml:"digital_cents"`
	Print6x9Cents int64 `yaml:"print_6x9_cents"`
	Print8x8Cents int64 `yaml:"print_8x8_cents"`
	ShippingCents int64 `yaml:"shipping_cents"`
}

// SweepConfig holds stuck-order sweep settings.
type SweepConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"interval_minutes"`
	StuckAfterMins  int  `yaml:"stuck_after_mins"`
}

// Interval returns the sweep interval as a duration.
func (c SweepConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// StuckAfter returns the stuck threshold as a duration.
func (c SweepConfig) StuckAfter() time.Duration {
	return time.Duration(c.StuckAfterMins) * time.Minute
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.CookieName == "" {
		cfg.Server.CookieName = "vesabooks_session"
	}
	if cfg.Server.CookieMaxAge == 0 {
		cfg.Server.CookieMaxAge = 86400 * 30
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 5
	}
	if cfg.Stripe.BaseURL == "" {
		cfg.Stripe.BaseURL = "https://api.stripe.com/v1"
	}
	if cfg.Stripe.TimeoutSeconds == 0 {
		cfg.Stripe.TimeoutSeconds = 30
	}
	if cfg.Resend.BaseURL == "" {
		cfg.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Resend.TimeoutSeconds == 0 {
		cfg.Resend.TimeoutSeconds = 30
	}
	if cfg.Resend.FromAddress == "" {
		cfg.Resend.FromAddress = "orders@vesabooks.com"
	}
	if cfg.Prodigi.BaseURL == "" {
		cfg.Prodigi.BaseURL = "https://api.prodigi.com/v4.0"
	}
	if cfg.Prodigi.TimeoutSeconds == 0 {
		cfg.Prodigi.TimeoutSeconds = 60
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Gemini.TextModel == "" {
		cfg.Gemini.TextModel = "gemini-2.0-flash"
	}
	if cfg.Gemini.ImageModel == "" {
		cfg.Gemini.ImageModel = "gemini-2.0-flash-exp-image-generation"
	}
	if cfg.Gemini.MaxConcurrent == 0 {
		cfg.Gemini.MaxConcurrent = 20
	}
	if cfg.Gemini.RequestsPerMin == 0 {
		cfg.Gemini.RequestsPerMin = 60
	}
	if cfg.Gemini.TimeoutSeconds == 0 {
		cfg.Gemini.TimeoutSeconds = 120
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/storage"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Pricing.DigitalCents == 0 {
		cfg.Pricing.DigitalCents = 999
	}
	if cfg.Pricing.Print6x9Cents == 0 {
		cfg.Pricing.Print6x9Cents = 3499
	}
	if cfg.Pricing.Print8x8Cents == 0 {
		cfg.Pricing.Print8x8Cents = 3999
	}
	if cfg.Pricing.ShippingCents == 0 {
		cfg.Pricing.ShippingCents = 599
	}
	if cfg.Sweep.IntervalMinutes == 0 {
		cfg.Sweep.IntervalMinutes = 60
	}
	if cfg.Sweep.StuckAfterMins == 0 {
		cfg.Sweep.StuckAfterMins = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Resend.APIKey = v
		cfg.Resend.Enabled = true
	}
	if v := os.Getenv("PRODIGI_API_KEY"); v != "" {
		cfg.Prodigi.APIKey = v
	}
	if v := os.Getenv("PRODIGI_WEBHOOK_SECRET"); v != "" {
		cfg.Prodigi.WebhookSecret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Server.SessionSecret = v
	}
	if v := os.Getenv("STORAGE_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "s3"
	}
	if v := os.Getenv("STORAGE_PUBLIC_URL"); v != "" {
		cfg.Storage.PublicURL = v
	}
	if v := os.Getenv("STORAGE_AWS_ACCESS_KEY"); v != "" {
		cfg.Storage.AWSAccessKey = v
	}
	if v := os.Getenv("STORAGE_AWS_SECRET_KEY"); v != "" {
		cfg.Storage.AWSSecretKey = v
	}

	return cfg, nil
}
