package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Oracle struct {
		Provider    string  `yaml:"provider" validate:"omitempty,oneof=openai anthropic gemini static"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
		Timeout     string  `yaml:"timeout"`
		RateLimit   float64 `yaml:"rate_limit" validate:"gte=0"`
		Burst       int     `yaml:"burst" validate:"gte=0"`
		StaticLabel string  `yaml:"static_label" validate:"omitempty,oneof=Sticos SupportAI Other"`
	} `yaml:"oracle"`
	Scoring struct {
		MaxTries  int    `yaml:"max_tries" validate:"gte=1"`
		CheckBank string `yaml:"check_bank" validate:"required"`
		TestBank  string `yaml:"test_bank" validate:"required"`
		TestCount int    `yaml:"test_count" validate:"gte=1"`
		LogDir    string `yaml:"log_dir"`
		Workers   int    `yaml:"workers" validate:"gte=0"`
	} `yaml:"scoring"`
	Auth struct {
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"password_hash"`
	} `yaml:"auth"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "10m"
	cfg.Redis.LockTTL = "2m"
	cfg.Oracle.Provider = "openai"
	cfg.Oracle.Timeout = "30s"
	cfg.Scoring.MaxTries = 10
	cfg.Scoring.CheckBank = "data/check_questions.csv"
	cfg.Scoring.TestBank = "data/test_questions.csv"
	cfg.Scoring.TestCount = 50
	cfg.Scoring.LogDir = "logs"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error. Secrets fall back to the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Oracle.APIKey == "" {
		switch c.Oracle.Provider {
		case "openai", "":
			c.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			c.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		c.Auth.Password = os.Getenv("ARENA_PASSWORD")
	}
}

var validate = validator.New()

// Validate checks field constraints and that every duration parses.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, raw := range map[string]string{
		"redis.ttl":      c.Redis.TTL,
		"redis.lock_ttl": c.Redis.LockTTL,
		"oracle.timeout": c.Oracle.Timeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// Duration parses a duration string or returns the fallback if empty.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
