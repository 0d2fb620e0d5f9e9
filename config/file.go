package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/presscorner/browser"
	"github.com/pevans/presscorner/logging"
	"github.com/pevans/presscorner/scraper"
	"gopkg.in/yaml.v3"
)

// DefaultPolicies are the policy areas scraped when none are configured.
var DefaultPolicies = []string{
	"Banking and financial services",
	"Digital Economy and Society",
	"Economy, finance and the euro",
	"Fraud prevention",
}

// SourceConfig describes what to scrape. Selectors left out of the file
// keep their default values.
type SourceConfig struct {
	Host         string            `yaml:"host"`
	Policies     []string          `yaml:"policies"`
	MaxDocuments int               `yaml:"max_documents"`
	Selectors    scraper.Selectors `yaml:"selectors"`
}

// BrowserConfig describes the browser and its waits. Durations use Go
// duration syntax (e.g., 20s, 250ms).
type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	WindowWidth   int    `yaml:"window_width"`
	WindowHeight  int    `yaml:"window_height"`
	UserAgent     string `yaml:"user_agent"`
	ExecPath      string `yaml:"exec_path"`
	DetailTimeout string `yaml:"detail_timeout"`
	SettleTimeout string `yaml:"settle_timeout"`
	PollInterval  string `yaml:"poll_interval"`
}

// StorageConfig describes the optional document archive.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig describes logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// FileConfig represents the structure of ~/.presscorner/config.yaml.
type FileConfig struct {
	Source  SourceConfig  `yaml:"source"`
	Browser BrowserConfig `yaml:"browser"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *FileConfig {
	opts := browser.DefaultOptions()

	return &FileConfig{
		Source: SourceConfig{
			Host:         scraper.DefaultHost,
			Policies:     append([]string(nil), DefaultPolicies...),
			MaxDocuments: scraper.DefaultMaxDocuments,
			Selectors:    scraper.DefaultSelectors(),
		},
		Browser: BrowserConfig{
			Headless:      opts.Headless,
			WindowWidth:   opts.WindowWidth,
			WindowHeight:  opts.WindowHeight,
			UserAgent:     opts.UserAgent,
			DetailTimeout: scraper.DefaultDetailTimeout.String(),
			SettleTimeout: scraper.DefaultSettleTimeout.String(),
			PollInterval:  scraper.DefaultPollInterval.String(),
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.presscorner/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".presscorner", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path on top of Default. A
// missing file is not an error: the defaults are returned. An empty path
// returns the defaults.
func LoadConfigFile(path string) (*FileConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that cannot be applied as given.
func (c *FileConfig) Validate() error {
	if c.Source.MaxDocuments < 0 {
		return fmt.Errorf("max_documents must not be negative")
	}

	for name, value := range map[string]string{
		"detail_timeout": c.Browser.DetailTimeout,
		"settle_timeout": c.Browser.SettleTimeout,
		"poll_interval":  c.Browser.PollInterval,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// LogLevel returns the configured log level.
func (c *FileConfig) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// BrowserOptions returns the options for starting Chrome.
func (c *FileConfig) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:     c.Browser.Headless,
		WindowWidth:  c.Browser.WindowWidth,
		WindowHeight: c.Browser.WindowHeight,
		UserAgent:    c.Browser.UserAgent,
		ExecPath:     c.Browser.ExecPath,
	}
}

// ScraperConfig returns the scraper configuration. LastDocument is left
// for the caller to fill in.
func (c *FileConfig) ScraperConfig() (scraper.Config, error) {
	cfg := scraper.DefaultConfig()

	if c.Source.Host != "" {
		cfg.Host = c.Source.Host
	}
	cfg.Policies = append([]string(nil), c.Source.Policies...)
	if c.Source.MaxDocuments > 0 {
		cfg.MaxDocuments = c.Source.MaxDocuments
	}
	if c.Source.Selectors != (scraper.Selectors{}) {
		cfg.Selectors = c.Source.Selectors
	}

	var err error
	if cfg.DetailTimeout, err = durationOr(c.Browser.DetailTimeout, cfg.DetailTimeout); err != nil {
		return cfg, fmt.Errorf("invalid detail_timeout: %w", err)
	}
	if cfg.SettleTimeout, err = durationOr(c.Browser.SettleTimeout, cfg.SettleTimeout); err != nil {
		return cfg, fmt.Errorf("invalid settle_timeout: %w", err)
	}
	if cfg.PollInterval, err = durationOr(c.Browser.PollInterval, cfg.PollInterval); err != nil {
		return cfg, fmt.Errorf("invalid poll_interval: %w", err)
	}

	return cfg, nil
}

// parseDuration accepts the empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	return d, nil
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	d, err := parseDuration(s)
	if err != nil {
		return def, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
