// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Extract ExtractConfig `mapstructure:"extract"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int     `mapstructure:"port"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	RateLimitRPS          float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst        int     `mapstructure:"rate_limit_burst"`
}

// FetchConfig configures the page fetcher and its retry policy.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	RetryDelayMs   int    `mapstructure:"retry_delay_ms"`
	UserAgent      string `mapstructure:"user_agent"`
	Accept         string `mapstructure:"accept"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

// ExtractConfig bounds the page text handed to the model.
type ExtractConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

// LLMConfig selects the completion endpoint and model presets.
type LLMConfig struct {
	BaseURL     string   `mapstructure:"base_url"`
	Models      []string `mapstructure:"models"`
	Temperature float64  `mapstructure:"temperature"`
}

// ExportConfig controls how timestamps are rendered in the CSV.
type ExportConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBANALYST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.rate_limit_rps", 1.0)
	v.SetDefault("server.rate_limit_burst", 5)
	v.SetDefault("fetch.timeout_seconds", 10)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.retry_delay_ms", 2000)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("fetch.accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	v.SetDefault("fetch.accept_language", "en-US,en;q=0.5")
	v.SetDefault("extract.max_chars", 4000)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.models", []string{"llama-3.3-70b-versatile", "llama-3.3-70b-instruct"})
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("export.timezone", "Local")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("server.rate_limit_rps and server.rate_limit_burst must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.RetryDelayMs < 0 {
		return fmt.Errorf("fetch.retry_delay_ms must be >= 0")
	}
	if c.Extract.MaxChars <= 0 {
		return fmt.Errorf("extract.max_chars must be > 0")
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return fmt.Errorf("llm.base_url must be set")
	}
	if len(c.LLM.Models) == 0 {
		return fmt.Errorf("llm.models must list at least one model")
	}
	for i, m := range c.LLM.Models {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("llm.models[%d] must not be empty", i)
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("export.timezone: %w", err)
	}
	return nil
}

// FetchTimeout returns the per-attempt fetch timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RetryDelay returns the constant wait between fetch attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Fetch.RetryDelayMs) * time.Millisecond
}

// RequestTimeout bounds one HTTP request to the service.
func (c Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// Location resolves the export timezone. An empty value means local time.
func (c Config) Location() (*time.Location, error) {
	if c.Export.Timezone == "" || c.Export.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.Export.Timezone, err)
	}
	return loc, nil
}
