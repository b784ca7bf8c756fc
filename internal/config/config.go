// Package config loads the bot's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Storage  StorageConfig  `yaml:"storage"`
	Grammar  GrammarConfig  `yaml:"grammar"`
	Review   ReviewConfig   `yaml:"review"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type TelegramConfig struct {
	Token       string        `yaml:"token"`
	BotName     string        `yaml:"bot_name"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type DiscordConfig struct {
	Token  string `yaml:"token"`
	Prefix string `yaml:"prefix"`
}

type StorageConfig struct {
	// Driver is sqlite, postgres or memory.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type GrammarConfig struct {
	LanguageToolURL string        `yaml:"languagetool_url"`
	DatamuseURL     string        `yaml:"datamuse_url"`
	YandexURL       string        `yaml:"yandex_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

type ReviewConfig struct {
	Workers int `yaml:"workers"`
	Queue   int `yaml:"queue"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads path, expands ${ENV} references and applies defaults. A missing
// file is not an error: environment variables and defaults are enough to run.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 10 * time.Second
	}
	if cfg.Discord.Prefix == "" {
		cfg.Discord.Prefix = "!"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "./grammarbot.db"
	}
	if cfg.Grammar.Timeout == 0 {
		cfg.Grammar.Timeout = 10 * time.Second
	}
	if cfg.Review.Workers == 0 {
		cfg.Review.Workers = 4
	}
	if cfg.Review.Queue == 0 {
		cfg.Review.Queue = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 50
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 28
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "sqlite3", "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.Review.Workers < 0 || c.Review.Queue < 0 {
		return errors.New("review.workers and review.queue must be positive")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.Telegram.Token = redact(c.Telegram.Token)
	c.Discord.Token = redact(c.Discord.Token)
	if strings.Contains(c.Storage.DSN, "@") {
		c.Storage.DSN = "[redacted]"
	}
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}
