// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is a startup condition: nothing may call the model without a key.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable is not set")

type Config struct {
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScannerConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	StrictValidation  bool    `mapstructure:"strict_validation"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads .env (if present), the optional YAML file at path, and environment
// overrides (gemini.api_key <- GEMINI_API_KEY, etc.), then validates.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Gemini.APIKey = strings.TrimSpace(os.ExpandEnv(cfg.Gemini.APIKey))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("scanner.requests_per_minute", 0)
	v.SetDefault("scanner.strict_validation", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8011)
	v.SetDefault("storage.db_path", "food-scanner.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// loadEnvFile is a no-op when path does not exist. Existing environment
// variables win over .env entries.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		return errors.New("gemini.model is required")
	}
	if strings.TrimSpace(c.Gemini.BaseURL) == "" {
		return errors.New("gemini.base_url is required")
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be positive, got %s", c.Gemini.Timeout)
	}
	if c.Scanner.RequestsPerMinute < 0 {
		return errors.New("scanner.requests_per_minute cannot be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
