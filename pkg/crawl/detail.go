package crawl

import (
	"context"
	"time"

	"feedcrawl/pkg/clock"
	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/logger"
	"feedcrawl/pkg/merge"
	"feedcrawl/pkg/ratelimit"
	"feedcrawl/pkg/scroll"
)

// DetailConfig tunes detail-page visits.
type DetailConfig struct {
	// Enabled turns detail visits on. Feeds whose containers already
	// carry full content leave this off.
	Enabled bool `yaml:"enabled"`
	// ContentQuery is the CSS query for the detail page's content node.
	ContentQuery string `yaml:"content_query"`
	// FallbackQuery is tried when ContentQuery never appears. Defaults
	// to "body", which always exists.
	FallbackQuery string `yaml:"fallback_query"`
	// WaitTimeout bounds the wait for the content node.
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	// MaxRetries is how many extra attempts the crawl loop gives one
	// identifier after a recoverable failure.
	MaxRetries int `yaml:"max_retries"`
	// RestoreAttempts bounds scroll-position recovery strategies after
	// navigating back to the feed.
	RestoreAttempts int `yaml:"restore_attempts"`
}

// DefaultDetailConfig returns the detail-visit tuning used in production.
func DefaultDetailConfig() DetailConfig {
	return DetailConfig{
		Enabled:         false,
		FallbackQuery:   "body",
		WaitTimeout:     10 * time.Second,
		MaxRetries:      2,
		RestoreAttempts: 3,
	}
}

// DetailNavigator visits an item's own page to obtain its full content,
// merging what it finds with any previously stored content for the same
// identifier. It cools down when the rate-limit tracker says the page is
// pushing back, and it restores the feed's scroll position afterwards so
// the crawl resumes where it left off.
type DetailNavigator struct {
	driver   driver.PageDriver
	tracker  *ratelimit.Tracker
	restorer *scroll.Restorer
	store    PriorContentSource
	clock    clock.Clock
	log      logger.Logger
	cfg      DetailConfig
}

// NewDetailNavigator returns a navigator bound to the feed's page.
func NewDetailNavigator(d driver.PageDriver, tracker *ratelimit.Tracker, st PriorContentSource, clk clock.Clock, cfg DetailConfig) *DetailNavigator {
	if cfg.FallbackQuery == "" {
		cfg.FallbackQuery = "body"
	}
	return &DetailNavigator{
		driver:   d,
		tracker:  tracker,
		restorer: scroll.NewRestorer(d, clk),
		store:    st,
		clock:    clk,
		log:      logger.GetLogger(),
		cfg:      cfg,
	}
}

// FetchDetail navigates to identifier's page and extracts its content.
// It returns nil content on a recoverable failure (timeout or extraction
// problem); the caller decides whether to retry the identifier later. A
// non-nil error means the page surface is unusable and the session must
// end. The feed's scroll offset is saved before navigating and restored
// best-effort after coming back, even on the failure paths.
func (n *DetailNavigator) FetchDetail(ctx context.Context, identifier string) (*string, error) {
	if n.tracker.LikelyRateLimited() {
		cooldown := n.tracker.Cooldown()
		logger.LogRateLimit(identifier, n.tracker.Timeouts(), cooldown)
		if err := n.clock.Sleep(ctx, cooldown); err != nil {
			return nil, err
		}
	}

	savedOffset, err := n.driver.CurrentScrollOffset()
	if err != nil {
		n.log.WithError(err).Debug("Could not save scroll offset before detail visit")
		savedOffset = 0
	}

	if err := n.driver.Navigate(ctx, identifier); err != nil {
		if driver.IsFatal(err) {
			return nil, err
		}
		return n.failAndReturn(ctx, identifier, savedOffset, err)
	}

	content, err := n.extractContent(ctx)
	if err != nil {
		if driver.IsFatal(err) {
			return nil, err
		}
		return n.failAndReturn(ctx, identifier, savedOffset, err)
	}

	n.tracker.RecordOutcome(true, false)

	prior, err := n.store.PriorContent(ctx, identifier)
	if err != nil {
		n.log.WithError(err).WithField("identifier", identifier).Warn("Prior content lookup failed, merging against nothing")
		prior = nil
	}

	result := merge.Merge(prior, &content)
	n.log.DebugWithFields("Detail content fetched", map[string]interface{}{
		"identifier": identifier,
		"merge":      result.Type.String(),
	})

	if err := n.returnToFeed(ctx, savedOffset); err != nil {
		return nil, err
	}
	return result.Content, nil
}

// extractContent waits for the content node and extracts it as markdown,
// falling back to the whole body when the primary locator never shows up
// but the page did load something.
func (n *DetailNavigator) extractContent(ctx context.Context) (string, error) {
	query := n.cfg.ContentQuery
	if query == "" {
		query = n.cfg.FallbackQuery
	}

	err := n.driver.WaitForLocator(ctx, query, n.cfg.WaitTimeout)
	if driver.IsTimeout(err) && query != n.cfg.FallbackQuery {
		n.log.WithField("query", query).Debug("Content locator timed out, trying fallback")
		query = n.cfg.FallbackQuery
		err = n.driver.WaitForLocator(ctx, query, n.cfg.WaitTimeout)
	}
	if err != nil {
		return "", err
	}

	els, err := n.driver.QueryAll(query)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", driver.NewTimeout("query content", context.DeadlineExceeded)
	}
	return els[0].Markdown()
}

// failAndReturn records the failure, applies the timeout cooldown when
// one is due, and brings the session back to the feed.
func (n *DetailNavigator) failAndReturn(ctx context.Context, identifier string, savedOffset int, cause error) (*string, error) {
	wasTimeout := driver.IsTimeout(cause)
	n.tracker.RecordOutcome(false, wasTimeout)

	n.log.WarnWithFields("Detail visit failed", map[string]interface{}{
		"identifier": identifier,
		"timeout":    wasTimeout,
		"failures":   n.tracker.Failures(),
		"error":      cause.Error(),
	})

	if wasTimeout {
		if err := n.clock.Sleep(ctx, n.tracker.Cooldown()); err != nil {
			return nil, err
		}
	}

	if err := n.returnToFeed(ctx, savedOffset); err != nil {
		return nil, err
	}
	return nil, nil
}

// returnToFeed navigates back and restores the saved scroll offset.
// Restoration is best-effort; only a fatal navigation error propagates.
func (n *DetailNavigator) returnToFeed(ctx context.Context, savedOffset int) error {
	if err := n.driver.GoBack(ctx); err != nil {
		if driver.IsFatal(err) {
			return err
		}
		n.log.WithError(err).Warn("Navigating back to feed failed")
		return nil
	}

	outcome := n.restorer.Restore(ctx, savedOffset, n.cfg.RestoreAttempts)
	if outcome.Status != scroll.Restored {
		n.log.WithFields(map[string]interface{}{
			"status": outcome.Status.String(),
			"offset": outcome.Offset,
			"target": savedOffset,
		}).Debug("Scroll position not fully restored after detail visit")
	}
	return nil
}
