package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	StoreBackend     string // "in_memory" or "postgres"
	PostgresDSN      string
	PostgresMaxConns int
	PostgresMaxIdle  int

	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	IngestInterval    time.Duration
	DeriveInterval    time.Duration

	ChatAPIURL        string
	ChatModel         string
	ChatAPIKey        string
	ChatTemperature   float64
	ChatTimeout       time.Duration
	ChatMaxMessageLen int

	RequestTimeout time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	ShutdownTimeout time.Duration

	DegradedWindow     time.Duration
	DegradedErrorPct   int
	DegradedMinSamples int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Store struct {
		Backend  string `yaml:"backend"`
		Postgres struct {
			DSN          string `yaml:"dsn"`
			MaxConns     int    `yaml:"max_conns"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"postgres"`
	} `yaml:"store"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Sync struct {
		IngestInterval string `yaml:"ingest_interval"`
		DeriveInterval string `yaml:"derive_interval"`
	} `yaml:"sync"`

	Chat struct {
		URL              string  `yaml:"url"`
		Model            string  `yaml:"model"`
		Temperature      float64 `yaml:"temperature"`
		Timeout          string  `yaml:"timeout"`
		MaxMessageLength int     `yaml:"max_message_length"`
	} `yaml:"chat"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RetryMaxAttempts        int    `yaml:"retry_max_attempts"`
		RetryBaseDelay          string `yaml:"retry_base_delay"`
		RetryMaxDelay           string `yaml:"retry_max_delay"`
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerSuccessThreshold int    `yaml:"breaker_success_threshold"`
		BreakerTimeout          string `yaml:"breaker_timeout"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		DegradedWindow     string `yaml:"degraded_window"`
		DegradedErrorPct   int    `yaml:"degraded_error_pct"`
		DegradedMinSamples int    `yaml:"degraded_min_samples"`
	} `yaml:"lifecycle"`
}

type secretsFile struct {
	LLMAPIKey   string `yaml:"llm_api_key"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. The completion credential comes from LLM_API_KEY env or
// the secrets file; the postgres DSN from POSTGRES_DSN env, secrets file, or
// the config file, in that order. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var sec secretsFile
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read secrets file: %w", err)
		}
	} else if err := yaml.Unmarshal(secretsData, &sec); err != nil {
		return nil, fmt.Errorf("parse secrets file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.StoreBackend = strings.TrimSpace(strings.ToLower(os.Getenv("STORE_BACKEND")))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = strings.TrimSpace(strings.ToLower(fc.Store.Backend))
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "in_memory"
	}
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = strings.TrimSpace(sec.PostgresDSN)
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = strings.TrimSpace(fc.Store.Postgres.DSN)
	}
	cfg.PostgresMaxConns = fc.Store.Postgres.MaxConns
	if cfg.PostgresMaxConns <= 0 {
		cfg.PostgresMaxConns = 10
	}
	cfg.PostgresMaxIdle = fc.Store.Postgres.MaxIdleConns
	if cfg.PostgresMaxIdle <= 0 {
		cfg.PostgresMaxIdle = 2
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.open-meteo.com/v1/forecast"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 2*time.Second)

	cfg.IngestInterval = parseDuration(fc.Sync.IngestInterval, 10*time.Minute)
	cfg.DeriveInterval = parseDuration(fc.Sync.DeriveInterval, 5*time.Minute)

	cfg.ChatAPIKey = os.Getenv("LLM_API_KEY")
	if cfg.ChatAPIKey == "" {
		cfg.ChatAPIKey = sec.LLMAPIKey
	}
	cfg.ChatAPIURL = fc.Chat.URL
	if cfg.ChatAPIURL == "" {
		cfg.ChatAPIURL = "https://ai.gateway.lovable.dev/v1/chat/completions"
	}
	cfg.ChatModel = fc.Chat.Model
	if cfg.ChatModel == "" {
		cfg.ChatModel = "google/gemini-2.5-flash"
	}
	cfg.ChatTemperature = fc.Chat.Temperature
	if cfg.ChatTemperature == 0 {
		cfg.ChatTemperature = 0.7
	}
	cfg.ChatTimeout = parseDuration(fc.Chat.Timeout, 30*time.Second)
	cfg.ChatMaxMessageLen = fc.Chat.MaxMessageLength
	if cfg.ChatMaxMessageLen <= 0 {
		cfg.ChatMaxMessageLen = 2000
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 35*time.Second)

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Reliability.BreakerSuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerTimeout = parseDuration(fc.Reliability.BreakerTimeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	cfg.DegradedMinSamples = fc.Lifecycle.DegradedMinSamples
	if cfg.DegradedMinSamples <= 0 {
		cfg.DegradedMinSamples = 5
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. The chat
// credential is deliberately not checked here; the chat client fails fast on
// it with a clearer error.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	switch cfg.StoreBackend {
	case "in_memory":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN required when store.backend is postgres")
		}
	default:
		return fmt.Errorf("store.backend must be in_memory or postgres, got %q", cfg.StoreBackend)
	}
	if cfg.ChatTemperature < 0 || cfg.ChatTemperature > 2 {
		return fmt.Errorf("chat.temperature must be in [0,2], got %v", cfg.ChatTemperature)
	}
	if cfg.RequestTimeout <= cfg.ChatTimeout {
		cfg.RequestTimeout = cfg.ChatTimeout + 5*time.Second
	}
	return nil
}
