package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Black-And-White-Club/ringside/pkg/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	JWT           JWTConfig           `yaml:"jwt"`
	HTTP          HTTPConfig          `yaml:"http"`
	Live          LiveConfig          `yaml:"live"`
	Community     CommunityConfig     `yaml:"community"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL      string `yaml:"url"`
	NKeySeed string `yaml:"nkey_seed"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// HTTPConfig holds the public listener settings.
type HTTPConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
}

// LiveConfig tunes scoring windows and polling hints.
type LiveConfig struct {
	GracePeriod         time.Duration `yaml:"grace_period"`
	HotPollInterval     time.Duration `yaml:"hot_poll_interval"`
	IdlePollInterval    time.Duration `yaml:"idle_poll_interval"`
	DefaultPollInterval time.Duration `yaml:"default_poll_interval"`
	ReconcileInterval   time.Duration `yaml:"reconcile_interval"`
}

// CommunityConfig tunes the community percentage read path.
type CommunityConfig struct {
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	MinSampleSize        int           `yaml:"min_sample_size"`
	RetryMaxAttempts     int           `yaml:"retry_max_attempts"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment  string  `yaml:"environment"`
	LogLevel     string  `yaml:"log_level"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	OTLPInsecure bool    `yaml:"otlp_insecure"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// LoadConfig loads the configuration from a YAML file, then applies
// environment overrides. A missing file falls back to the environment alone.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		return nil, errors.New("DATABASE_URL environment variable not set")
	}
	if cfg.NATS.URL == "" {
		return nil, errors.New("NATS_URL environment variable not set")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.NKeySeed, "NATS_NKEY_SEED")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setString(&cfg.Observability.Environment, "ENV")
	setString(&cfg.Observability.LogLevel, "LOG_LEVEL")
	setString(&cfg.Observability.OTLPEndpoint, "OTLP_ENDPOINT")
	if v := os.Getenv("OTLP_INSECURE"); v != "" {
		cfg.Observability.OTLPInsecure = v == "true"
	}

	var errs []error
	errs = append(errs,
		setFloat(&cfg.HTTP.RateLimit, "HTTP_RATE_LIMIT"),
		setInt(&cfg.HTTP.RateBurst, "HTTP_RATE_BURST"),
		setDuration(&cfg.Live.GracePeriod, "LIVE_GRACE_PERIOD"),
		setDuration(&cfg.Live.HotPollInterval, "LIVE_HOT_POLL_INTERVAL"),
		setDuration(&cfg.Live.IdlePollInterval, "LIVE_IDLE_POLL_INTERVAL"),
		setDuration(&cfg.Live.DefaultPollInterval, "LIVE_DEFAULT_POLL_INTERVAL"),
		setDuration(&cfg.Live.ReconcileInterval, "LIVE_RECONCILE_INTERVAL"),
		setDuration(&cfg.Community.CacheTTL, "COMMUNITY_CACHE_TTL"),
		setInt(&cfg.Community.MinSampleSize, "COMMUNITY_MIN_SAMPLE_SIZE"),
		setInt(&cfg.Community.RetryMaxAttempts, "COMMUNITY_RETRY_MAX_ATTEMPTS"),
		setDuration(&cfg.Community.RetryInitialInterval, "COMMUNITY_RETRY_INITIAL_INTERVAL"),
		setFloat(&cfg.Observability.SampleRate, "OTLP_SAMPLE_RATE"),
	)
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimit <= 0 {
		c.HTTP.RateLimit = 20
	}
	if c.HTTP.RateBurst <= 0 {
		c.HTTP.RateBurst = 40
	}
	if c.Live.GracePeriod <= 0 {
		c.Live.GracePeriod = 90 * time.Second
	}
	if c.Live.HotPollInterval <= 0 {
		c.Live.HotPollInterval = 5 * time.Second
	}
	if c.Live.IdlePollInterval <= 0 {
		c.Live.IdlePollInterval = 60 * time.Second
	}
	if c.Live.DefaultPollInterval <= 0 {
		c.Live.DefaultPollInterval = 120 * time.Second
	}
	if c.Live.ReconcileInterval <= 0 {
		c.Live.ReconcileInterval = 30 * time.Second
	}
	if c.Community.CacheTTL <= 0 {
		c.Community.CacheTTL = 10 * time.Second
	}
	if c.Community.MinSampleSize <= 0 {
		c.Community.MinSampleSize = 5
	}
	if c.Community.RetryMaxAttempts <= 0 {
		c.Community.RetryMaxAttempts = 3
	}
	if c.Observability.SampleRate <= 0 {
		c.Observability.SampleRate = 0.1
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToObsConfig maps the observability section onto observability.Init.
func ToObsConfig(appCfg *Config, version string) observability.Config {
	return observability.Config{
		ServiceName:  "ringside",
		Environment:  appCfg.Observability.Environment,
		Version:      version,
		LogLevel:     appCfg.Observability.LogLevel,
		OTLPEndpoint: appCfg.Observability.OTLPEndpoint,
		OTLPInsecure: appCfg.Observability.OTLPInsecure,
		SampleRate:   appCfg.Observability.SampleRate,
	}
}
