package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the campaign engine.
type Config struct {
	Delivery DeliveryConfig `yaml:"delivery"`
	Segments SegmentsConfig `yaml:"segments"`
	Tracking TrackingConfig `yaml:"tracking"`
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Poller   PollerConfig   `yaml:"poller"`
	Content  ContentConfig  `yaml:"content"`
}

// DeliveryConfig controls batching against the ESP.
type DeliveryConfig struct {
	BatchSize    int `yaml:"batch_size"`
	BatchDelayMs int `yaml:"batch_delay_ms"`
}

// BatchDelay returns the inter-batch pause as a duration.
func (d DeliveryConfig) BatchDelay() time.Duration {
	return time.Duration(d.BatchDelayMs) * time.Millisecond
}

// SegmentsConfig controls segment cache freshness.
type SegmentsConfig struct {
	CacheTTLMs int `yaml:"cache_ttl_ms"`
}

// CacheTTL returns the segment cache TTL as a duration.
func (s SegmentsConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMs) * time.Millisecond
}

// TrackingConfig holds the public base URL used to build tracking and
// unsubscribe links. An empty base yields relative URLs.
type TrackingConfig struct {
	BaseURL    string `yaml:"base_url"`
	ListenAddr string `yaml:"listen_addr"`
}

// ProviderConfig selects and configures the ESP adapters.
type ProviderConfig struct {
	Name           string    `yaml:"name"`
	From           string    `yaml:"from"`
	SendGridAPIKey string    `yaml:"sendgrid_api_key"`
	ResendAPIKey   string    `yaml:"resend_api_key"`
	SMTPURL        string    `yaml:"smtp_url"`
	SES            SESConfig `yaml:"ses"`
}

// SESConfig holds AWS SES credentials.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// StorageConfig selects the campaign store backend.
type StorageConfig struct {
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
}

// RedisConfig configures the optional analytics stream sink.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// PollerConfig controls the due-campaign poll loop.
type PollerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// Interval returns the poll interval as a duration.
func (p PollerConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// ContentConfig describes an optional feed-driven digest campaign. A
// non-empty FeedURL enables it; the digest is created for Shop and
// addressed via Segment.
type ContentConfig struct {
	FeedURL  string `yaml:"feed_url"`
	Shop     string `yaml:"shop"`
	Segment  string `yaml:"segment"`
	Subject  string `yaml:"subject"`
	MaxItems int    `yaml:"max_items"`
}

// Default returns a config with all defaults applied and no file read.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Delivery.BatchSize == 0 {
		c.Delivery.BatchSize = 100
	}
	if c.Delivery.BatchDelayMs == 0 {
		c.Delivery.BatchDelayMs = 1000
	}
	if c.Segments.CacheTTLMs == 0 {
		c.Segments.CacheTTLMs = 60000
	}
	if c.Tracking.ListenAddr == "" {
		c.Tracking.ListenAddr = ":8085"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "sendgrid"
	}
	if c.Provider.SES.Region == "" {
		c.Provider.SES.Region = "us-west-2"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data/shops"
	}
	if c.Poller.IntervalSeconds == 0 {
		c.Poller.IntervalSeconds = 30
	}
	if c.Content.MaxItems == 0 {
		c.Content.MaxItems = 5
	}
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML file (when path is non-empty) and overlays
// environment variables. A .env file is honored when present.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env if present; missing files are not an error.
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = Default()
	}

	if v := envInt("EMAIL_BATCH_SIZE"); v > 0 {
		cfg.Delivery.BatchSize = v
	}
	if v, ok := envIntOK("EMAIL_BATCH_DELAY_MS"); ok && v >= 0 {
		cfg.Delivery.BatchDelayMs = v
	}
	if v := envInt("SEGMENT_CACHE_TTL"); v > 0 {
		cfg.Segments.CacheTTLMs = v
	}
	if v := os.Getenv("NEXT_PUBLIC_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = v
	}
	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("CAMPAIGN_FROM"); v != "" {
		cfg.Provider.From = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.Provider.SendGridAPIKey = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Provider.ResendAPIKey = v
	}
	if v := os.Getenv("SMTP_URL"); v != "" {
		cfg.Provider.SMTPURL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Provider.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Provider.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Provider.SES.Region = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TRACKING_LISTEN_ADDR"); v != "" {
		cfg.Tracking.ListenAddr = v
	}
	if v := envInt("POLL_INTERVAL_SECONDS"); v > 0 {
		cfg.Poller.IntervalSeconds = v
	}
	if v := os.Getenv("RSS_FEED_URL"); v != "" {
		cfg.Content.FeedURL = v
	}
	if v := os.Getenv("RSS_SHOP"); v != "" {
		cfg.Content.Shop = v
	}
	if v := os.Getenv("RSS_SEGMENT"); v != "" {
		cfg.Content.Segment = v
	}
	if v := os.Getenv("RSS_SUBJECT"); v != "" {
		cfg.Content.Subject = v
	}
	if v := envInt("RSS_MAX_ITEMS"); v > 0 {
		cfg.Content.MaxItems = v
	}

	return cfg, nil
}

func envInt(key string) int {
	v, _ := envIntOK(key)
	return v
}

func envIntOK(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
