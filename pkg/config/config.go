// Package config loads splitledger configuration.
//
// Sources, later ones winning:
//
//  1. built-in defaults
//  2. a YAML file named by LEDGER_CONFIG (or passed to Load)
//  3. environment variables, after loading .env from the working directory
//
// Environment variables:
//
//	PORT              HTTP listen port (default: 8080)
//	DB_PATH           SQLite database file (default: ./data/ledger.db)
//	LOG_LEVEL         debug, info, warn, error (default: info)
//	LOG_FORMAT        text or json (default: text)
//	LOCK_TIMEOUT      wait for a busy receipt or group, e.g. 5s (default: 10s)
//	REMAINDER_POLICY  none, payer, largest_claimant (default: none)
//	LOCALE            BCP 47 tag for number formatting (default: en)
//	LEDGER_CONFIG     path to a YAML config file
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/money"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`

	// Currencies overrides minor-unit decimals per ISO 4217 code. Changing
	// an entry for a database that already holds amounts requires the
	// migrate-precision command.
	Currencies map[string]int `yaml:"currencies"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type LedgerConfig struct {
	Remainder   string        `yaml:"remainder_policy"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	Locale      string        `yaml:"locale"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "./data/ledger.db", BusyTimeout: 5 * time.Second},
		Log:      LogConfig{Level: "info", Format: "text"},
		Ledger: LedgerConfig{
			Remainder:   string(calculator.RemainderNone),
			LockTimeout: 10 * time.Second,
			Locale:      "en",
		},
	}
}

// Load builds the configuration. It loads .env from the current directory
// if present; yamlPath, when given, takes precedence over LEDGER_CONFIG.
func Load(yamlPath ...string) (*Config, error) {
	// Try to load .env from current directory (ignore error if not found)
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("LEDGER_CONFIG")
	if len(yamlPath) > 0 && yamlPath[0] != "" {
		path = yamlPath[0]
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LOCK_TIMEOUT: %w", err)
		}
		c.Ledger.LockTimeout = d
	}
	c.Database.Path = getEnvOrDefault("DB_PATH", c.Database.Path)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)
	c.Ledger.Remainder = getEnvOrDefault("REMAINDER_POLICY", c.Ledger.Remainder)
	c.Ledger.Locale = getEnvOrDefault("LOCALE", c.Ledger.Locale)
	return nil
}

// Validate checks that every value parses.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Ledger.LockTimeout < 0 {
		return fmt.Errorf("lock timeout must not be negative")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if _, err := c.RemainderPolicy(); err != nil {
		return err
	}
	if _, err := c.Locale(); err != nil {
		return err
	}
	if _, err := c.PrecisionTable(); err != nil {
		return err
	}
	return nil
}

// RemainderPolicy parses Ledger.Remainder.
func (c *Config) RemainderPolicy() (calculator.RemainderPolicy, error) {
	return calculator.ParseRemainderPolicy(c.Ledger.Remainder)
}

// Locale parses Ledger.Locale.
func (c *Config) Locale() (language.Tag, error) {
	tag, err := language.Parse(c.Ledger.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", c.Ledger.Locale, err)
	}
	return tag, nil
}

// PrecisionTable returns the default precision table with Currencies applied.
func (c *Config) PrecisionTable() (money.Table, error) {
	return money.DefaultTable().WithOverrides(c.Currencies)
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
