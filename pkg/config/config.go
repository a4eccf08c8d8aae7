package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the feed crawler
type Config struct {
	// Browser/driver settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Crawl session settings
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Scroll tuning
	Scroll ScrollConfig `yaml:"scroll" json:"scroll"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Detail-page visit settings
	Detail DetailConfig `yaml:"detail" json:"detail"`

	// Storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig holds browser-automation configuration
type BrowserConfig struct {
	Headless        bool          `yaml:"headless" json:"headless"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout" json:"page_load_timeout"`
}

// CrawlConfig holds per-session crawl configuration
type CrawlConfig struct {
	FeedURL            string        `yaml:"feed_url" json:"feed_url"`
	Source             string        `yaml:"source" json:"source"`
	ContainerQuery     string        `yaml:"container_query" json:"container_query"`
	ExpandQuery        string        `yaml:"expand_query" json:"expand_query"`
	MaxItems           int           `yaml:"max_items" json:"max_items"`
	StopAfter          string        `yaml:"stop_after" json:"stop_after"`
	ContinueOnSeen     bool          `yaml:"continue_on_seen" json:"continue_on_seen"`
	MaxNoNewItems      int           `yaml:"max_no_new_items" json:"max_no_new_items"`
	InitialWaitTimeout time.Duration `yaml:"initial_wait_timeout" json:"initial_wait_timeout"`
}

// ScrollConfig holds adaptive-scroll tuning
type ScrollConfig struct {
	TurboThreshold      int     `yaml:"turbo_threshold" json:"turbo_threshold"`
	StuckThreshold      int     `yaml:"stuck_threshold" json:"stuck_threshold"`
	BottomJumpThreshold int     `yaml:"bottom_jump_threshold" json:"bottom_jump_threshold"`
	MaxMultiplier       float64 `yaml:"max_multiplier" json:"max_multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Threshold     int           `yaml:"threshold" json:"threshold"`
	BaseCooldown  time.Duration `yaml:"base_cooldown" json:"base_cooldown"`
	MaxCooldown   time.Duration `yaml:"max_cooldown" json:"max_cooldown"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
}

// DetailConfig holds detail-page visit configuration
type DetailConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	ContentQuery    string        `yaml:"content_query" json:"content_query"`
	FallbackQuery   string        `yaml:"fallback_query" json:"fallback_query"`
	WaitTimeout     time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	MaxRetries      int           `yaml:"max_retries" json:"max_retries"`
	RestoreAttempts int           `yaml:"restore_attempts" json:"restore_attempts"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        true,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			PageLoadTimeout: 30 * time.Second,
		},
		Crawl: CrawlConfig{
			MaxItems:           100,
			ContinueOnSeen:     true,
			MaxNoNewItems:      3,
			InitialWaitTimeout: 15 * time.Second,
		},
		Scroll: ScrollConfig{
			TurboThreshold:      5,
			StuckThreshold:      3,
			BottomJumpThreshold: 3,
			MaxMultiplier:       5.0,
		},
		RateLimit: RateLimitConfig{
			Threshold:     3,
			BaseCooldown:  5 * time.Second,
			MaxCooldown:   60 * time.Second,
			BackoffFactor: 2.0,
		},
		Detail: DetailConfig{
			Enabled:         false,
			FallbackQuery:   "body",
			WaitTimeout:     10 * time.Second,
			MaxRetries:      2,
			RestoreAttempts: 3,
		},
		Storage: StorageConfig{
			DatabasePath: "./feedcrawl.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if feedURL := os.Getenv("FEEDCRAWL_FEED_URL"); feedURL != "" {
		c.Crawl.FeedURL = feedURL
	}
	if source := os.Getenv("FEEDCRAWL_SOURCE"); source != "" {
		c.Crawl.Source = source
	}
	if query := os.Getenv("FEEDCRAWL_CONTAINER_QUERY"); query != "" {
		c.Crawl.ContainerQuery = query
	}

	if maxItems := os.Getenv("FEEDCRAWL_MAX_ITEMS"); maxItems != "" {
		var val int
		fmt.Sscanf(maxItems, "%d", &val)
		if val > 0 {
			c.Crawl.MaxItems = val
		}
	}

	if headless := os.Getenv("FEEDCRAWL_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}

	if continueOnSeen := os.Getenv("FEEDCRAWL_CONTINUE_ON_SEEN"); continueOnSeen != "" {
		c.Crawl.ContinueOnSeen = strings.ToLower(continueOnSeen) == "true"
	}

	if dbPath := os.Getenv("FEEDCRAWL_DB_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}

	if logLevel := os.Getenv("FEEDCRAWL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".feedcrawl.yaml",
		".feedcrawl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "feedcrawl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "feedcrawl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".feedcrawl.yaml"),
		filepath.Join(os.Getenv("HOME"), ".feedcrawl.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// StopAfterTime parses the stop_after date, or returns nil when unset.
func (c *Config) StopAfterTime() (*time.Time, error) {
	if c.Crawl.StopAfter == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, c.Crawl.StopAfter); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable stop_after date: %q", c.Crawl.StopAfter)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate crawl settings
	if c.Crawl.FeedURL == "" {
		errs = append(errs, errors.New("feed URL is required"))
	}
	if c.Crawl.ContainerQuery == "" {
		errs = append(errs, errors.New("item container query is required"))
	}
	if c.Crawl.MaxItems < 0 {
		errs = append(errs, errors.New("max items cannot be negative"))
	}
	if c.Crawl.MaxNoNewItems <= 0 {
		errs = append(errs, errors.New("max no-new-items must be positive"))
	}
	if c.Crawl.InitialWaitTimeout <= 0 {
		errs = append(errs, errors.New("initial wait timeout must be positive"))
	}
	if _, err := c.StopAfterTime(); err != nil {
		errs = append(errs, err)
	}

	// Validate scroll tuning
	if c.Scroll.TurboThreshold <= 0 {
		errs = append(errs, errors.New("turbo threshold must be positive"))
	}
	if c.Scroll.StuckThreshold <= 0 {
		errs = append(errs, errors.New("stuck threshold must be positive"))
	}
	if c.Scroll.BottomJumpThreshold <= 0 {
		errs = append(errs, errors.New("bottom jump threshold must be positive"))
	}
	if c.Scroll.MaxMultiplier < 1.0 {
		errs = append(errs, errors.New("max multiplier must be at least 1.0"))
	}

	// Validate rate limiting
	if c.RateLimit.Threshold <= 0 {
		errs = append(errs, errors.New("rate limit threshold must be positive"))
	}
	if c.RateLimit.BaseCooldown <= 0 {
		errs = append(errs, errors.New("base cooldown must be positive"))
	}
	if c.RateLimit.MaxCooldown < c.RateLimit.BaseCooldown {
		errs = append(errs, errors.New("max cooldown cannot be below base cooldown"))
	}
	if c.RateLimit.BackoffFactor < 1.0 {
		errs = append(errs, errors.New("backoff factor must be at least 1.0"))
	}

	// Validate detail settings
	if c.Detail.Enabled {
		if c.Detail.ContentQuery == "" && c.Detail.FallbackQuery == "" {
			errs = append(errs, errors.New("detail visits need a content or fallback query"))
		}
		if c.Detail.WaitTimeout <= 0 {
			errs = append(errs, errors.New("detail wait timeout must be positive"))
		}
		if c.Detail.MaxRetries < 0 {
			errs = append(errs, errors.New("detail max retries cannot be negative"))
		}
	}

	// Validate storage
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if feedURL, ok := flags["url"].(string); ok && feedURL != "" {
		c.Crawl.FeedURL = feedURL
	}
	if source, ok := flags["source"].(string); ok && source != "" {
		c.Crawl.Source = source
	}
	if query, ok := flags["container-query"].(string); ok && query != "" {
		c.Crawl.ContainerQuery = query
	}
	if maxItems, ok := flags["max-items"].(int); ok && maxItems > 0 {
		c.Crawl.MaxItems = maxItems
	}
	if stopAfter, ok := flags["stop-after"].(string); ok && stopAfter != "" {
		c.Crawl.StopAfter = stopAfter
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if continueOnSeen, ok := flags["continue-on-seen"].(bool); ok {
		c.Crawl.ContinueOnSeen = continueOnSeen
	}
	if dbPath, ok := flags["db"].(string); ok && dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".feedcrawl.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
