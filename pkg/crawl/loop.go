package crawl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"feedcrawl/pkg/clock"
	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/logger"
	"feedcrawl/pkg/models"
	"feedcrawl/pkg/ratelimit"
	"feedcrawl/pkg/scroll"
)

// Config holds the runtime knobs for one crawl session.
type Config struct {
	// Source labels where the items come from (feed name or platform).
	Source string
	// MaxItems stops the crawl after yielding this many items (0 means
	// unlimited).
	MaxItems int
	// StopAfter terminates the crawl when an item older than this date
	// is encountered. Nil disables the cutoff.
	StopAfter *time.Time
	// ContinueOnSeen keeps scrolling through runs of already-known items
	// to reach new ones instead of stopping at the first all-seen
	// stretch.
	ContinueOnSeen bool
	// MaxNoNewItems bounds consecutive iterations without a new item.
	MaxNoNewItems int
	// InitialWaitTimeout bounds the wait for the first item container.
	InitialWaitTimeout time.Duration
	// ExpandQuery, when set, is clicked on every visible match before
	// extraction to unfold truncated items ("see more" buttons).
	ExpandQuery string

	Scroll    scroll.OrchestratorConfig
	RateLimit ratelimit.Config
	Detail    DetailConfig
}

// DefaultConfig returns crawl defaults matching production tuning.
func DefaultConfig() Config {
	return Config{
		MaxItems:           100,
		ContinueOnSeen:     true,
		MaxNoNewItems:      3,
		InitialWaitTimeout: 15 * time.Second,
		Scroll:             scroll.DefaultOrchestratorConfig(),
		RateLimit:          ratelimit.DefaultConfig(),
		Detail:             DefaultDetailConfig(),
	}
}

// seenSafetyFactor relaxes the no-new-items bound while ContinueOnSeen is
// scrolling through known content, so long seen runs do not end the crawl
// but a feed that truly ran dry still does.
const seenSafetyFactor = 3

// Loop is one crawl session over one feed page. It yields newly
// discovered items lazily, at most once per identifier, in the order they
// appear while scrolling. A Loop is not restartable; create a new one per
// session.
type Loop struct {
	driver    driver.PageDriver
	orch      *scroll.Orchestrator
	gen       *scroll.Generator
	tracker   *ratelimit.Tracker
	detail    *DetailNavigator
	extractor ItemExtractor
	seen      SeenSet
	clock     clock.Clock
	log       logger.Logger
	cfg       Config

	items   chan models.Item
	yielded map[string]struct{}
	state   scroll.State
	err     error
}

// NewLoop assembles a crawl session. seen is the store's identifier
// snapshot; detail may be nil when the feed's containers already carry
// full content.
func NewLoop(d driver.PageDriver, gen *scroll.Generator, tracker *ratelimit.Tracker, detail *DetailNavigator, extractor ItemExtractor, seen SeenSet, clk clock.Clock, cfg Config) *Loop {
	sessionID := uuid.NewString()[:8]
	return &Loop{
		driver:    d,
		orch:      scroll.NewOrchestrator(d, gen, clk, cfg.Scroll),
		gen:       gen,
		tracker:   tracker,
		detail:    detail,
		extractor: extractor,
		seen:      seen,
		clock:     clk,
		log:       logger.GetLogger().WithField("session", sessionID),
		cfg:       cfg,
		items:     make(chan models.Item),
		yielded:   make(map[string]struct{}),
	}
}

// Run starts the session and returns the item channel. The channel is
// closed when the crawl ends, cleanly or not; check Err afterwards. Run
// must be called once.
func (l *Loop) Run(ctx context.Context) <-chan models.Item {
	go func() {
		defer close(l.items)
		l.err = l.run(ctx)
	}()
	return l.items
}

// Err reports why the session ended. It is valid only after the channel
// returned by Run has been closed. A nil error covers both full and early
// completion; only an unusable page surface or cancellation is an error.
func (l *Loop) Err() error {
	return l.err
}

func (l *Loop) run(ctx context.Context) error {
	l.log.InfoWithFields("Starting feed crawl", map[string]interface{}{
		"source":           l.cfg.Source,
		"max_items":        l.cfg.MaxItems,
		"continue_on_seen": l.cfg.ContinueOnSeen,
		"seen_known":       len(l.seen),
	})

	if err := l.driver.WaitForLocator(ctx, l.extractor.ContainerQuery(), l.cfg.InitialWaitTimeout); err != nil {
		if driver.IsTimeout(err) {
			l.log.Warn("No item containers appeared, ending crawl with no items")
			return nil
		}
		return err
	}

	total := 0
	noNewStreak := 0

	for iteration := 1; ; iteration++ {
		// Cancellation is honored here, at the iteration boundary.
		if err := ctx.Err(); err != nil {
			return err
		}

		if l.persistentlyRateLimited() {
			l.log.ErrorWithFields("Persistent rate limiting, aborting crawl", map[string]interface{}{
				"failures": l.tracker.Failures(),
			})
			return nil
		}

		l.expandTruncatedItems()

		visible, err := l.extractVisible()
		if err != nil {
			return err
		}

		newItems := l.partitionNew(visible)
		allSeen := len(visible) > 0 && len(newItems) == 0

		for _, item := range newItems {
			if l.pastDateCutoff(item) {
				l.log.InfoWithFields("Date cutoff reached, ending crawl", map[string]interface{}{
					"identifier": item.URL(),
					"total":      total,
				})
				return nil
			}

			if l.detail != nil && l.cfg.Detail.Enabled {
				if err := l.attachDetailContent(ctx, item); err != nil {
					return err
				}
			}

			select {
			case l.items <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
			l.yielded[item.URL()] = struct{}{}
			total++

			if l.cfg.MaxItems > 0 && total >= l.cfg.MaxItems {
				l.log.InfoWithFields("Item limit reached, ending crawl", map[string]interface{}{
					"total": total,
				})
				return nil
			}
		}

		if len(newItems) == 0 {
			noNewStreak++
		} else {
			noNewStreak = 0
		}
		if l.exhausted(noNewStreak, allSeen) {
			l.log.InfoWithFields("No new items appearing, ending crawl", map[string]interface{}{
				"streak": noNewStreak,
				"total":  total,
			})
			return nil
		}

		// An occasional longer pause keeps the cadence from looking
		// mechanical.
		if !l.state.TurboActive && l.gen.Chance(0.05) {
			if err := l.clock.Sleep(ctx, l.gen.Jitter(1500*time.Millisecond, 3*time.Second)); err != nil {
				return err
			}
		}

		if err := l.orch.Step(ctx, &l.state, len(newItems), allSeen); err != nil {
			return err
		}
	}
}

// extractVisible pulls every currently rendered candidate item. Items the
// extractor rejects or that carry no identifier are dropped here.
func (l *Loop) extractVisible() ([]models.Item, error) {
	els, err := l.driver.QueryAll(l.extractor.ContainerQuery())
	if err != nil {
		if driver.IsFatal(err) {
			return nil, err
		}
		l.log.WithError(err).Debug("Container query failed this iteration")
		return nil, nil
	}

	items := make([]models.Item, 0, len(els))
	for _, el := range els {
		item, err := l.extractor.Extract(el)
		if err != nil {
			l.log.WithError(err).Debug("Extractor rejected a container")
			continue
		}
		if item.URL() == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// partitionNew filters out items already in the seen snapshot or already
// yielded this session, preserving render order. Duplicates inside one
// extraction (the same URL rendered as thumbnail and title anchors) keep
// only their first occurrence.
func (l *Loop) partitionNew(visible []models.Item) []models.Item {
	var fresh []models.Item
	inBatch := make(map[string]struct{}, len(visible))
	for _, item := range visible {
		id := item.URL()
		if l.seen.Contains(id) {
			continue
		}
		if _, done := l.yielded[id]; done {
			continue
		}
		if _, dup := inBatch[id]; dup {
			continue
		}
		inBatch[id] = struct{}{}
		fresh = append(fresh, item)
	}
	return fresh
}

// exhausted decides whether the no-new-items streak should end the crawl.
// While ContinueOnSeen is skipping known content the bound is relaxed by
// seenSafetyFactor so the crawl can reach new items past a long seen run.
func (l *Loop) exhausted(noNewStreak int, allSeen bool) bool {
	if l.cfg.MaxNoNewItems <= 0 {
		return false
	}
	bound := l.cfg.MaxNoNewItems
	if l.cfg.ContinueOnSeen && allSeen {
		bound *= seenSafetyFactor
	}
	return noNewStreak >= bound
}

// pastDateCutoff reports whether the item is older than the configured
// stop date. Items without a parseable date never trigger the cutoff.
func (l *Loop) pastDateCutoff(item models.Item) bool {
	if l.cfg.StopAfter == nil {
		return false
	}
	created, ok := item.CreatedAt()
	if !ok {
		return false
	}
	return created.Before(*l.cfg.StopAfter)
}

// attachDetailContent fetches the item's full content, retrying the
// identifier a bounded number of times on recoverable failures.
func (l *Loop) attachDetailContent(ctx context.Context, item models.Item) error {
	for attempt := 0; attempt <= l.cfg.Detail.MaxRetries; attempt++ {
		content, err := l.detail.FetchDetail(ctx, item.URL())
		if err != nil {
			return err
		}
		if content != nil {
			item.SetContent(*content)
			return nil
		}
	}
	l.log.WithField("identifier", item.URL()).Warn("Giving up on detail content for item")
	return nil
}

// persistentlyRateLimited reports whether consecutive failures have gone
// far enough past the rate-limit threshold that continuing is pointless.
func (l *Loop) persistentlyRateLimited() bool {
	return l.tracker.Failures() >= 2*l.cfg.RateLimit.Threshold
}

// expandTruncatedItems clicks "see more" style controls so extraction
// sees full text. Skipped in turbo mode, where the session is racing past
// known content anyway.
func (l *Loop) expandTruncatedItems() {
	if l.cfg.ExpandQuery == "" || l.state.TurboActive {
		return
	}

	els, err := l.driver.QueryAll(l.cfg.ExpandQuery)
	if err != nil {
		l.log.WithError(err).Debug("Expand control query failed")
		return
	}
	for _, el := range els {
		visible, err := el.Visible()
		if err != nil || !visible {
			continue
		}
		if err := el.Click(); err != nil {
			l.log.WithError(err).Debug("Expand control click failed")
		}
	}
}
