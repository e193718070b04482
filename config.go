// config.go loads service configuration: defaults, then an optional yaml
// file, then environment overrides for the knobs operators already export
// for the browser bridge and the Associates login.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Agent       AgentConfig      `yaml:"agent"`
	Amazon      AmazonConfig     `yaml:"amazon"`
	Summarizer  SummarizerConfig `yaml:"summarizer"`
	Log         LogConfig        `yaml:"log"`
	Marketplace string           `yaml:"marketplace"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address      string `yaml:"address"`
	ReadTimeout  int    `yaml:"read_timeout"`  // seconds
	WriteTimeout int    `yaml:"write_timeout"` // seconds
	EnableCORS   bool   `yaml:"enable_cors"`
}

// AgentConfig points at the browser-use bridge.
type AgentConfig struct {
	URL    string `yaml:"url"`
	CDPURL string `yaml:"cdp_url"`
	// TimeoutSeconds bounds one bridge call. 0 means no client timeout;
	// agent runs are legitimately minutes long.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the configured bridge-call timeout.
func (c AgentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AmazonConfig holds the optional stored Associates login.
type AmazonConfig struct {
	LoginEmail    string `yaml:"login_email"`
	LoginPassword string `yaml:"login_password"`
	TOTPSecret    string `yaml:"totp_secret"`
}

// SummarizerConfig configures the optional trace summarizer. Empty model
// disables it.
type SummarizerConfig struct {
	Host           string `yaml:"host"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// DefaultConfig returns the configuration used when no file is provided.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8700",
			ReadTimeout:  30,
			WriteTimeout: 30,
			EnableCORS:   true,
		},
		Agent: AgentConfig{
			URL:    "http://127.0.0.1:9800",
			CDPURL: "http://127.0.0.1:9222",
		},
		Summarizer: SummarizerConfig{
			TimeoutSeconds: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Marketplace: "https://www.amazon.com",
	}
}

// LoadConfig reads path (optional) on top of defaults, then applies
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setFromEnv(&cfg.Agent.URL, "BROWSERBOT_AGENT_URL")
	setFromEnv(&cfg.Agent.CDPURL, "BROWSERBOT_CDP_URL")
	setFromEnv(&cfg.Marketplace, "BROWSERBOT_MARKETPLACE")
	setFromEnv(&cfg.Amazon.LoginEmail, "AMAZON_LOGIN_EMAIL")
	setFromEnv(&cfg.Amazon.LoginPassword, "AMAZON_LOGIN_PASSWORD")
	setFromEnv(&cfg.Amazon.TOTPSecret, "AMAZON_LOGIN_TOTP_SECRET")
	setFromEnv(&cfg.Summarizer.Host, "OLLAMA_HOST")
	setFromEnv(&cfg.Summarizer.Model, "BROWSERBOT_SUMMARY_MODEL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
