package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/lu-zhengda/sendersweep/internal/scoring"
)

const appName = "sendersweep"

// Config holds all sendersweep configuration.
type Config struct {
	Gmail   GmailConfig    `toml:"gmail"`
	Scan    ScanConfig     `toml:"scan"`
	Clean   CleanConfig    `toml:"clean"`
	Retry   RetryConfig    `toml:"retry"`
	Scoring scoring.Config `toml:"scoring"`
	Metrics MetricsConfig  `toml:"metrics"`
}

// GmailConfig holds Gmail OAuth credentials.
// Users can override them via environment variables.
type GmailConfig struct {
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	CredentialsFile string `toml:"credentials_file"`
	Account         string `toml:"account"`
}

// ScanConfig controls how messages are listed and fetched.
type ScanConfig struct {
	PageSize          int     `toml:"page_size"`
	FetchBatchSize    int     `toml:"fetch_batch_size"`
	MaxMessages       int     `toml:"max_messages"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CleanConfig controls the cleanup workflow.
type CleanConfig struct {
	MinScore       float64 `toml:"min_score"`
	TrashBatchSize int     `toml:"trash_batch_size"`
	ConfirmToken   string  `toml:"confirm_token"`
}

// RetryConfig bounds retries of transient API errors.
type RetryConfig struct {
	MaxAttempts     int      `toml:"max_attempts"`
	InitialInterval Duration `toml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval"`
}

// MetricsConfig points at an optional Prometheus textfile.
type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// Duration is a time.Duration written as a string such as "1s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func defaults() Config {
	return Config{
		Gmail: GmailConfig{
			Account: "default",
		},
		Scan: ScanConfig{
			PageSize:          500,
			FetchBatchSize:    50,
			RequestsPerSecond: 10,
		},
		Clean: CleanConfig{
			MinScore:       0.5,
			TrashBatchSize: 1000,
			ConfirmToken:   "TRASH",
		},
		Retry: RetryConfig{
			MaxAttempts:     5,
			InitialInterval: Duration{time.Second},
			MaxInterval:     Duration{time.Minute},
		},
		Scoring: scoring.DefaultConfig(),
	}
}

// Load reads config from path. If path is empty or missing, returns defaults.
// Gmail credentials fall back to GMAIL_CLIENT_ID / GMAIL_CLIENT_SECRET when
// the file sets none.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if cfg.Gmail.ClientID == "" && cfg.Gmail.ClientSecret == "" {
		cfg.Gmail.ClientID = os.Getenv("GMAIL_CLIENT_ID")
		cfg.Gmail.ClientSecret = os.Getenv("GMAIL_CLIENT_SECRET")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if c.Scan.PageSize <= 0 || c.Scan.PageSize > 500 {
		return fmt.Errorf("scan.page_size = %d, must be within 1-500", c.Scan.PageSize)
	}
	if c.Scan.FetchBatchSize <= 0 || c.Scan.FetchBatchSize > 1000 {
		return fmt.Errorf("scan.fetch_batch_size = %d, must be within 1-1000", c.Scan.FetchBatchSize)
	}
	if c.Scan.MaxMessages < 0 {
		return errors.New("scan.max_messages must not be negative")
	}
	if c.Clean.TrashBatchSize <= 0 || c.Clean.TrashBatchSize > 1000 {
		return fmt.Errorf("clean.trash_batch_size = %d, must be within 1-1000", c.Clean.TrashBatchSize)
	}
	if c.Clean.MinScore < 0 || c.Clean.MinScore > 1 {
		return fmt.Errorf("clean.min_score = %v, must be within [0, 1]", c.Clean.MinScore)
	}
	if c.Clean.ConfirmToken == "" {
		return errors.New("clean.confirm_token must not be empty")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts = %d, must be at least 1", c.Retry.MaxAttempts)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// ConfigDir returns the sendersweep config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the sendersweep data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}
