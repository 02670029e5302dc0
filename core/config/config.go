package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot connection settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	// DebugSampleComponents overrides DebugSample per component, e.g. {"tg": "1/10"}.
	DebugSampleComponents map[string]string `yaml:"debug_sample_components" envconfig:"LOG_DEBUG_SAMPLE_COMPONENTS"`
	Dir                   string            `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile               string            `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RatesConfig points the bot at the PrivatBank archive endpoint.
type RatesConfig struct {
	BaseURL        string   `yaml:"base_url" envconfig:"RATES_BASE_URL"`
	Currencies     []string `yaml:"currencies" envconfig:"RATES_CURRENCIES"`
	TimeoutSeconds int      `yaml:"timeout_seconds" envconfig:"RATES_TIMEOUT_SECONDS"`
}

// Timeout converts TimeoutSeconds into a duration.
func (c RatesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LocaleConfig controls the default language and the clock used for /today.
type LocaleConfig struct {
	Default  string `yaml:"default" envconfig:"LOCALE_DEFAULT"`
	Timezone string `yaml:"timezone" envconfig:"LOCALE_TIMEZONE"`
}

// Location resolves Timezone, falling back to time.Local.
func (c LocaleConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
	Path   string `yaml:"path" envconfig:"METRICS_PATH"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	// DefaultRatesURL is the PrivatBank archive rates endpoint.
	DefaultRatesURL = "https://api.privatbank.ua/p24api/exchange_rates"
	// DefaultRatesTimeoutSeconds bounds a single rate lookup.
	DefaultRatesTimeoutSeconds = 10
	// DefaultLanguage is used when a chat has no language yet.
	DefaultLanguage = "en"
	// DefaultMetricsPath is served when metrics.listen is set without a path.
	DefaultMetricsPath = "/metrics"
)

// DefaultCurrencies is the allow-list used when none is configured.
var DefaultCurrencies = []string{"USD", "EUR"}

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Rates     RatesConfig     `yaml:"rates"`
	Locale    LocaleConfig    `yaml:"locale"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CoreConfig returns the config itself so Config satisfies cmd.ConfigCarrier.
func (c *Config) CoreConfig() *Config { return c }

// Load reads an optional .env file, the YAML file at path and environment overrides.
// A missing YAML file is tolerated so the bot can run from environment alone.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if key != UpdateCallback && key != UpdateMessage {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := normalizeRates(&cfg.Rates); err != nil {
		return err
	}

	lang := strings.ToLower(strings.TrimSpace(cfg.Locale.Default))
	if lang == "" {
		lang = DefaultLanguage
	}
	cfg.Locale.Default = lang
	if tz := strings.TrimSpace(cfg.Locale.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid locale.timezone %q: %w", tz, err)
		}
		cfg.Locale.Timezone = tz
	}

	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	return nil
}

func normalizeRates(rc *RatesConfig) error {
	rc.BaseURL = strings.TrimSpace(rc.BaseURL)
	if rc.BaseURL == "" {
		rc.BaseURL = DefaultRatesURL
	}
	if rc.TimeoutSeconds < 0 {
		return fmt.Errorf("rates.timeout_seconds must be >= 0")
	}
	if rc.TimeoutSeconds == 0 {
		rc.TimeoutSeconds = DefaultRatesTimeoutSeconds
	}

	src := rc.Currencies
	if len(src) == 0 {
		src = DefaultCurrencies
	}
	seen := make(map[string]struct{}, len(src))
	codes := make([]string, 0, len(src))
	for _, raw := range src {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		if !isCurrencyCode(code) {
			return fmt.Errorf("invalid rates.currencies value %q; expected a 3-letter code", raw)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return fmt.Errorf("rates.currencies must contain at least one code")
	}
	rc.Currencies = codes
	return nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
