package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/spf13/cobra"

	"feedcrawl/internal/runner"
	"feedcrawl/pkg/clock"
	"feedcrawl/pkg/config"
	"feedcrawl/pkg/crawl"
	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/logger"
	"feedcrawl/pkg/models"
	"feedcrawl/pkg/ratelimit"
	"feedcrawl/pkg/retry"
	"feedcrawl/pkg/scroll"
	"feedcrawl/pkg/store"
)

var (
	// Crawl command flags
	source         string
	containerQuery string
	dateAttribute  string
	expandQuery    string
	maxItems       int
	stopAfter      string
	headless       bool
	continueOnSeen bool
	dbPath         string
	detailEnabled  bool
	detailQuery    string
	concurrency    int
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl <feed-url> [feed-url...]",
	Short: "Crawl infinite-scroll feeds and store discovered items",
	Long: `Crawl one or more infinite-scroll feeds, yielding each newly
discovered item once.

The crawler scrolls like a person, accelerates through stretches of
already-collected items, and stops on the item limit, the date cutoff,
or when the feed runs dry. Multiple feeds are crawled concurrently,
each in its own browser tab with independent scroll and rate-limit
state. Discovered items are stored in the local database and printed
as JSON lines.`,
	Example: `  # Collect up to 50 items from a feed
  feedcrawl crawl https://example.com/feed --container-query "article a.title" --max-items 50

  # Stop at items older than a date, visiting each item's page for full text
  feedcrawl crawl https://example.com/feed --container-query "a.post" \
    --stop-after 2026-01-01 --detail --detail-query "div.article-body"

  # Crawl three feeds, two at a time
  feedcrawl crawl https://a.example/feed https://b.example/feed https://c.example/feed \
    --container-query "a.item" --concurrency 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&source, "source", "s", "", "source label stored with each item (default: feed host)")
	crawlCmd.Flags().StringVar(&containerQuery, "container-query", "", "CSS query selecting item anchors")
	crawlCmd.Flags().StringVar(&dateAttribute, "date-attribute", "", "element attribute holding the item date")
	crawlCmd.Flags().StringVar(&expandQuery, "expand-query", "", "CSS query for 'see more' controls to click before extraction")
	crawlCmd.Flags().IntVar(&maxItems, "max-items", 0, "stop after this many items per feed (0 uses config)")
	crawlCmd.Flags().StringVar(&stopAfter, "stop-after", "", "stop at items older than this date (RFC3339 or YYYY-MM-DD)")
	crawlCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	crawlCmd.Flags().BoolVar(&continueOnSeen, "continue-on-seen", true, "scroll past already-collected items to reach new ones")
	crawlCmd.Flags().StringVar(&dbPath, "db", "", "item database path")
	crawlCmd.Flags().BoolVar(&detailEnabled, "detail", false, "visit each item's own page for full content")
	crawlCmd.Flags().StringVar(&detailQuery, "detail-query", "", "CSS query for the detail page's content node")
	crawlCmd.Flags().IntVar(&concurrency, "concurrency", 1, "feeds crawled at the same time")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"url":              args[0],
		"source":           source,
		"container-query":  containerQuery,
		"max-items":        maxItems,
		"stop-after":       stopAfter,
		"headless":         headless,
		"continue-on-seen": continueOnSeen,
		"db":               dbPath,
		"log-level":        logLevel,
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if expandQuery != "" {
		cfg.Crawl.ExpandQuery = expandQuery
	}
	if detailEnabled {
		cfg.Detail.Enabled = true
	}
	if detailQuery != "" {
		cfg.Detail.ContentQuery = detailQuery
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return crawlFeeds(ctx, cfg, args, logger.GetLogger())
}

func crawlFeeds(ctx context.Context, cfg *config.Config, urls []string, log logger.Logger) error {
	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening item store: %w", err)
	}
	defer db.Close()

	browser, err := driver.Launch(cfg.Browser.Headless, cfg.Browser.UserAgent)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer browser.Close()

	factory := &browserSessions{cfg: cfg, browser: browser, db: db}
	sink := &printingSink{db: db, enc: json.NewEncoder(os.Stdout)}

	pool := runner.NewPool(ctx, concurrency, factory, sink, log)
	pool.Start()

	go func() {
		for _, feedURL := range urls {
			job := runner.FeedJob{URL: feedURL, Source: sourceFor(feedURL, cfg)}
			if err := pool.Submit(job); err != nil {
				log.WithError(err).WithField("url", feedURL).Error("Could not submit feed")
			}
		}
		pool.Stop()
	}()

	var firstErr error
	for res := range pool.Results() {
		if res.Err != nil {
			log.WithError(res.Err).WithField("source", res.Job.Source).Error("Crawl session failed")
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		logger.LogCrawlComplete(res.Job.Source, res.Items, res.Duration)
	}
	return firstErr
}

// sourceFor labels a feed: the explicit --source flag when crawling one
// feed, otherwise the feed's host.
func sourceFor(feedURL string, cfg *config.Config) string {
	if cfg.Crawl.Source != "" {
		return cfg.Crawl.Source
	}
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return feedURL
}

// browserSessions builds crawl sessions as browser tabs on one shared
// browser.
type browserSessions struct {
	cfg     *config.Config
	browser *rod.Browser
	db      *store.ItemStore
}

func (s *browserSessions) NewSession(ctx context.Context, job runner.FeedJob) (runner.Session, func(), error) {
	seen, err := s.db.SeenIdentifiers(ctx, job.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("loading seen identifiers: %w", err)
	}

	// Slow sites intermittently time out the initial load; retry before
	// failing the whole job.
	retryCfg := retry.DefaultConfig()
	retryCfg.Context = ctx
	retryCfg.MaxAttempts = 3
	page, err := retry.DoWithResult(func() (*driver.RodPage, error) {
		return driver.OpenPage(s.browser, job.URL, s.cfg.Browser.PageLoadTimeout)
	}, retryCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening feed page: %w", err)
	}

	sessionCfg := *s.cfg
	sessionCfg.Crawl.FeedURL = job.URL
	sessionCfg.Crawl.Source = job.Source

	loop, err := buildLoop(&sessionCfg, page, s.db, seen)
	if err != nil {
		_ = page.Close()
		return nil, nil, err
	}
	return loop, func() { _ = page.Close() }, nil
}

// printingSink saves items and echoes them to stdout as JSON lines.
type printingSink struct {
	db  *store.ItemStore
	mu  sync.Mutex
	enc *json.Encoder
}

func (s *printingSink) SaveItem(ctx context.Context, src string, item models.Item) error {
	if err := s.db.SaveItem(ctx, src, item); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(item.Fields)
	return nil
}

func buildLoop(cfg *config.Config, page driver.PageDriver, db *store.ItemStore, seen map[string]struct{}) (*crawl.Loop, error) {
	stopAfterTime, err := cfg.StopAfterTime()
	if err != nil {
		return nil, err
	}

	gen := scroll.NewGenerator(rand.NewSource(time.Now().UnixNano()))
	clk := clock.Real{}
	rlCfg := ratelimit.Config{
		Threshold:     cfg.RateLimit.Threshold,
		BaseCooldown:  cfg.RateLimit.BaseCooldown,
		MaxCooldown:   cfg.RateLimit.MaxCooldown,
		BackoffFactor: cfg.RateLimit.BackoffFactor,
	}
	tracker := ratelimit.NewTracker(rlCfg)

	crawlCfg := crawl.Config{
		Source:             cfg.Crawl.Source,
		MaxItems:           cfg.Crawl.MaxItems,
		StopAfter:          stopAfterTime,
		ContinueOnSeen:     cfg.Crawl.ContinueOnSeen,
		MaxNoNewItems:      cfg.Crawl.MaxNoNewItems,
		InitialWaitTimeout: cfg.Crawl.InitialWaitTimeout,
		ExpandQuery:        cfg.Crawl.ExpandQuery,
		Scroll: scroll.OrchestratorConfig{
			TurboThreshold:      cfg.Scroll.TurboThreshold,
			StuckThreshold:      cfg.Scroll.StuckThreshold,
			BottomJumpThreshold: cfg.Scroll.BottomJumpThreshold,
			MaxMultiplier:       cfg.Scroll.MaxMultiplier,
		},
		RateLimit: rlCfg,
		Detail: crawl.DetailConfig{
			Enabled:         cfg.Detail.Enabled,
			ContentQuery:    cfg.Detail.ContentQuery,
			FallbackQuery:   cfg.Detail.FallbackQuery,
			WaitTimeout:     cfg.Detail.WaitTimeout,
			MaxRetries:      cfg.Detail.MaxRetries,
			RestoreAttempts: cfg.Detail.RestoreAttempts,
		},
	}

	extractor := crawl.LinkExtractor{
		Query:         cfg.Crawl.ContainerQuery,
		DateAttribute: dateAttribute,
	}

	var detail *crawl.DetailNavigator
	if crawlCfg.Detail.Enabled {
		detail = crawl.NewDetailNavigator(page, tracker, db, clk, crawlCfg.Detail)
	}

	return crawl.NewLoop(page, gen, tracker, detail, extractor, seen, clk, crawlCfg), nil
}
