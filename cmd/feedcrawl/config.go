package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"feedcrawl/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage feedcrawl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (FEEDCRAWL_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	RunE:  runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "feedcrawl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	exampleConfig := `# feedcrawl configuration file
#
# Every option can also be set through environment variables prefixed
# with FEEDCRAWL_, e.g. FEEDCRAWL_FEED_URL, FEEDCRAWL_MAX_ITEMS.

# Browser settings
browser:
  headless: true
  page_load_timeout: 30s

# Crawl session settings
crawl:
  # Feed page to crawl (required)
  feed_url: ""

  # Source label stored with each item
  source: ""

  # CSS query selecting item anchors in the feed (required)
  container_query: ""

  # Optional CSS query for "see more" controls clicked before extraction
  expand_query: ""

  # Stop after this many items (0 means unlimited)
  max_items: 100

  # Stop at items older than this date (RFC3339 or YYYY-MM-DD, empty disables)
  stop_after: ""

  # Keep scrolling through already-collected items to reach new ones
  continue_on_seen: true

  # End the crawl after this many consecutive iterations without a new item
  max_no_new_items: 3

  # How long to wait for the first item container
  initial_wait_timeout: 15s

# Adaptive scroll tuning
scroll:
  turbo_threshold: 5
  stuck_threshold: 3
  bottom_jump_threshold: 3
  max_multiplier: 5.0

# Rate limiting
rate_limit:
  # Consecutive failures before the crawler assumes it is rate limited
  threshold: 3
  base_cooldown: 5s
  max_cooldown: 60s
  backoff_factor: 2.0

# Detail-page visits (full content per item)
detail:
  enabled: false
  content_query: ""
  fallback_query: "body"
  wait_timeout: 10s
  max_retries: 2
  restore_attempts: 3

# Storage
storage:
  database_path: "./feedcrawl.db"

# Logging
logging:
  level: "info"
  # Log file path (empty logs to stdout only); rotated automatically
  file: ""
  max_size: 100
  max_backups: 3
  max_age: 7
  compress: false
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set crawl.feed_url and crawl.container_query")
	fmt.Println("2. Run 'feedcrawl config validate' to check the configuration")
	fmt.Println("3. Start crawling with 'feedcrawl crawl <feed-url>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Show whatever is configured without insisting it is complete.
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (FEEDCRAWL_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (auto-detected)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		possiblePaths := []string{
			"feedcrawl.yaml",
			"feedcrawl.yml",
			".feedcrawl.yaml",
			".feedcrawl.yml",
			filepath.Join(os.Getenv("HOME"), ".feedcrawl.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "feedcrawl", "config.yaml"),
		}

		for _, p := range possiblePaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}

		if path == "" {
			return fmt.Errorf("no configuration file found; specify one with --config")
		}
	}

	fmt.Println("Validating configuration:", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed:\n%w", err)
	}

	fmt.Println("Configuration is valid")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Feed URL: %s\n", cfg.Crawl.FeedURL)
	fmt.Printf("  Container query: %s\n", cfg.Crawl.ContainerQuery)
	fmt.Printf("  Max items: %d\n", cfg.Crawl.MaxItems)
	fmt.Printf("  Database: %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
