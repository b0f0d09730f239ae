package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Agent orchestration service
	RaworcAPIURL     string        `json:"raworc_api_url" envconfig:"RAWORC_API_URL"`
	RaworcAPIKey     string        `json:"-" envconfig:"RAWORC_API_KEY"`
	RaworcCoreAgent  string        `json:"raworc_core_agent" envconfig:"RAWORC_CORE_AGENT"`
	RaworcContentURL string        `json:"raworc_content_url" envconfig:"RAWORC_CONTENT_URL"`
	RaworcTimeout    time.Duration `json:"raworc_timeout" envconfig:"RAWORC_TIMEOUT"`
	RaworcRateLimit  float64       `json:"raworc_rate_limit" envconfig:"RAWORC_RATE_LIMIT"`

	// Report polling
	PollInterval       time.Duration `json:"poll_interval" envconfig:"REPORT_POLL_INTERVAL"`
	MaxTicks           int           `json:"max_ticks" envconfig:"REPORT_MAX_TICKS"`
	StreamPollInterval time.Duration `json:"stream_poll_interval" envconfig:"REPORT_STREAM_POLL_INTERVAL"`
	StreamMaxTicks     int           `json:"stream_max_ticks" envconfig:"REPORT_STREAM_MAX_TICKS"`
	FreshnessWindow    time.Duration `json:"freshness_window" envconfig:"REPORT_FRESHNESS_WINDOW"`

	// Market data
	MarketSymbols     []string      `json:"market_symbols" envconfig:"MARKET_SYMBOLS"`
	MarketCacheTTL    time.Duration `json:"market_cache_ttl" envconfig:"MARKET_CACHE_TTL"`
	MarketConcurrency int           `json:"market_concurrency" envconfig:"MARKET_FETCH_CONCURRENCY"`

	// HTTP server
	ServerHost         string        `json:"server_host" envconfig:"SERVER_HOST"`
	ServerPort         int           `json:"server_port" envconfig:"SERVER_PORT"`
	ServerCORS         bool          `json:"server_cors" envconfig:"SERVER_CORS"`
	ServerWriteTimeout time.Duration `json:"server_write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`

	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL"`
	Env      string `json:"env" envconfig:"APP_ENV"`
}

// DefaultMarketSymbols is the quote board shown on the dashboard home page.
var DefaultMarketSymbols = []string{
	"^GSPC", "^IXIC", "^DJI",
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "TSLA", "META",
	"AMD", "NFLX", "BABA", "JPM", "V", "WMT", "DIS", "COIN", "INTC", "BA",
}

// Defaults returns the built-in configuration without consulting the environment.
func Defaults() *Config {
	return &Config{
		RaworcAPIURL:     "https://ra-hyp-1.raworc.com/api/v0",
		RaworcCoreAgent:  "Stockapi-Agent-Core",
		RaworcContentURL: "https://ra-hyp-1.raworc.com/content",
		RaworcTimeout:    30 * time.Second,

		PollInterval:       5 * time.Second,
		MaxTicks:           0,
		StreamPollInterval: 2 * time.Second,
		StreamMaxTicks:     150,
		FreshnessWindow:    5 * time.Minute,

		MarketSymbols:     append([]string(nil), DefaultMarketSymbols...),
		MarketCacheTTL:    30 * time.Second,
		MarketConcurrency: 8,

		ServerHost: "0.0.0.0",
		ServerPort: 8080,
		ServerCORS: true,

		LogLevel: "info",
		Env:      "development",
	}
}

// DefaultConfig returns the defaults overridden by .env and process environment.
func DefaultConfig() *Config {
	cfg := Defaults()

	// Load environment variables from .env file
	_ = godotenv.Load()

	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Printf("config: keeping defaults for malformed variables: %v\n", err)
	}
	return cfg
}

// LoadFromEnv overrides fields whose environment variable is set. A value
// that does not parse leaves its own field untouched and is reported in the
// returned error; every other variable still applies.
func (c *Config) LoadFromEnv() error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	var errs []error
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("envconfig")
		if key == "" {
			continue
		}
		if _, ok := os.LookupEnv(key); !ok {
			continue
		}
		// envconfig stops at the first bad field, so decode each one alone.
		single := reflect.New(reflect.StructOf([]reflect.StructField{{
			Name: field.Name,
			Type: field.Type,
			Tag:  field.Tag,
		}}))
		if err := envconfig.Process("", single.Interface()); err != nil {
			errs = append(errs, err)
			continue
		}
		v.Field(i).Set(single.Elem().Field(0))
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.RaworcAPIURL) == "" {
		errs = append(errs, errors.New("raworc api url is required"))
	}
	if strings.TrimSpace(c.RaworcCoreAgent) == "" {
		errs = append(errs, errors.New("raworc core agent is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.StreamPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("stream poll interval must be positive, got %s", c.StreamPollInterval))
	}
	if c.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max ticks must not be negative, got %d", c.MaxTicks))
	}
	if c.StreamMaxTicks < 0 {
		errs = append(errs, fmt.Errorf("stream max ticks must not be negative, got %d", c.StreamMaxTicks))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.ServerPort))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.RaworcAPIKey != "" {
		c.RaworcAPIKey = "****"
	}
	return c
}
