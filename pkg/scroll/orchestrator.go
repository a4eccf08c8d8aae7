package scroll

import (
	"context"
	"time"

	"feedcrawl/pkg/clock"
	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/logger"
)

// State is the rolling scroll state for one crawl session. It is owned by
// the crawl loop, mutated once per iteration by Step, and discarded when
// the session ends.
type State struct {
	// LastPageExtent is the scrollable document height observed on the
	// previous iteration.
	LastPageExtent int
	// ConsecutiveSameExtent counts iterations where the extent did not
	// change; it resets the instant the extent moves.
	ConsecutiveSameExtent int
	// ConsecutiveAllSeen counts iterations where every visible item was
	// already known; it resets when a new item appears.
	ConsecutiveAllSeen int
	// TurboActive marks that the session is skipping through known
	// content with aggressive jumps.
	TurboActive bool
}

// OrchestratorConfig tunes when the orchestrator escalates from ordinary
// scrolling to jumps and recovery actions.
type OrchestratorConfig struct {
	// TurboThreshold is the all-seen streak length that enters turbo mode.
	TurboThreshold int `yaml:"turbo_threshold"`
	// StuckThreshold is the same-extent streak length that triggers a
	// recovery action.
	StuckThreshold int `yaml:"stuck_threshold"`
	// BottomJumpThreshold is the all-seen streak length that switches
	// from pattern scrolling to bottom jumps.
	BottomJumpThreshold int `yaml:"bottom_jump_threshold"`
	// MaxMultiplier caps the adaptive scroll-distance multiplier.
	MaxMultiplier float64 `yaml:"max_multiplier"`
}

// DefaultOrchestratorConfig returns the tuning used in production crawls.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		TurboThreshold:      5,
		StuckThreshold:      3,
		BottomJumpThreshold: 3,
		MaxMultiplier:       5.0,
	}
}

// Orchestrator performs one scroll step per crawl iteration, choosing
// among pattern scrolling, bottom jumps, turbo escalation and stuck
// recovery based on the session's State. It never inspects extracted
// items; the loop feeds it only counts.
type Orchestrator struct {
	driver driver.PageDriver
	gen    *Generator
	clock  clock.Clock
	cfg    OrchestratorConfig
	log    logger.Logger
}

// NewOrchestrator returns an Orchestrator bound to one page.
func NewOrchestrator(d driver.PageDriver, gen *Generator, clk clock.Clock, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		driver: d,
		gen:    gen,
		clock:  clk,
		cfg:    cfg,
		log:    logger.GetLogger(),
	}
}

// Step advances the page by one scroll iteration. newItems is how many
// previously unknown items the caller just extracted; allSeen reports
// whether every visible item was already known. The returned error is
// non-nil only when ctx is cancelled; scroll failures are absorbed and
// recorded in State as if the iteration were a no-op scroll.
func (o *Orchestrator) Step(ctx context.Context, st *State, newItems int, allSeen bool) error {
	if newItems > 0 {
		if st.TurboActive {
			o.log.Debug("New item found, leaving turbo mode")
		}
		st.ConsecutiveAllSeen = 0
		st.TurboActive = false
	} else if allSeen {
		st.ConsecutiveAllSeen++
	}

	extentChanged := true
	if height, err := o.driver.DocumentHeight(); err != nil {
		o.log.WithError(err).Debug("Could not read document height")
	} else {
		if height == st.LastPageExtent {
			st.ConsecutiveSameExtent++
			extentChanged = false
		} else {
			st.ConsecutiveSameExtent = 0
		}
		st.LastPageExtent = height
	}

	recovered := false
	switch {
	case st.TurboActive || st.ConsecutiveAllSeen >= o.cfg.TurboThreshold:
		if !st.TurboActive {
			o.log.WithField("all_seen_streak", st.ConsecutiveAllSeen).Info("Entering turbo mode")
		}
		st.TurboActive = true
		if err := o.turbo(ctx); err != nil {
			return err
		}
	case st.ConsecutiveSameExtent >= o.cfg.StuckThreshold:
		recovered = true
		if err := o.recoverStuck(ctx, st, allSeen); err != nil {
			return err
		}
		st.ConsecutiveSameExtent = 0
	case st.ConsecutiveAllSeen >= o.cfg.BottomJumpThreshold:
		if err := o.bottomJump(ctx, st); err != nil {
			return err
		}
	default:
		if err := o.patternScroll(ctx, st, allSeen, extentChanged); err != nil {
			return err
		}
	}

	return o.clock.Sleep(ctx, o.postDelay(st, newItems, allSeen, recovered))
}

// turbo skips through a run of already-seen content with two hard bottom
// jumps and minimal pauses.
func (o *Orchestrator) turbo(ctx context.Context) error {
	o.try("turbo_jump", func() error { return o.driver.ScrollToFraction(1.0, false) })
	if err := o.clock.Sleep(ctx, 100*time.Millisecond); err != nil {
		return err
	}
	o.try("turbo_jump", func() error { return o.driver.ScrollToFraction(1.0, false) })
	return o.clock.Sleep(ctx, 200*time.Millisecond)
}

// recoverStuck reacts to a page whose extent stopped growing, alternating
// between a bottom jump and a fast pattern scroll so the two mechanisms
// that usually unblock lazy feeds both get exercised.
func (o *Orchestrator) recoverStuck(ctx context.Context, st *State, allSeen bool) error {
	o.log.WithField("same_extent_streak", st.ConsecutiveSameExtent).Warn("Page extent stuck, running recovery")
	if st.ConsecutiveSameExtent%2 == 0 {
		o.try("stuck_bottom_jump", func() error { return o.driver.ScrollToFraction(1.0, false) })
		return nil
	}
	return o.scrollWithPattern(ctx, PatternFast, o.multiplier(st, allSeen))
}

// bottomJump jumps straight to the bottom of the document and waits for
// lazy content to load, verifying the jump actually arrived.
func (o *Orchestrator) bottomJump(ctx context.Context, st *State) error {
	o.try("bottom_jump", func() error { return o.driver.ScrollToFraction(1.0, false) })

	if o.arrivedAtBottom() {
		pause := time.Second
		if st.ConsecutiveAllSeen >= 6 {
			pause = 300 * time.Millisecond
		}
		if err := o.clock.Sleep(ctx, pause); err != nil {
			return err
		}
	}

	// Every third iteration in this regime, nudge up and back down. Some
	// lazy loaders only fire on an upward movement crossing the trigger.
	if st.ConsecutiveAllSeen%3 == 0 {
		vh, err := o.driver.ViewportHeight()
		if err != nil {
			o.log.WithError(err).Debug("Could not read viewport height for lazy nudge")
			return nil
		}
		o.try("lazy_nudge_up", func() error { return o.driver.ScrollBy(-vh / 3) })
		if err := o.clock.Sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
		o.try("lazy_nudge_down", func() error { return o.driver.ScrollToFraction(1.0, false) })
	}
	return nil
}

// patternScroll performs an ordinary randomized scroll, switching to a
// deterministic fast pattern once the all-seen streak is sustained.
func (o *Orchestrator) patternScroll(ctx context.Context, st *State, allSeen, extentChanged bool) error {
	pattern := o.gen.Pick()
	if allSeen {
		streak := st.ConsecutiveAllSeen
		if (extentChanged && streak > 2) || (!extentChanged && streak > 1) {
			pattern = PatternFast
		}
	}
	return o.scrollWithPattern(ctx, pattern, o.multiplier(st, allSeen))
}

func (o *Orchestrator) scrollWithPattern(ctx context.Context, p Pattern, multiplier float64) error {
	vh, err := o.driver.ViewportHeight()
	if err != nil {
		o.log.WithError(err).Debug("Could not read viewport height, skipping scroll")
		return nil
	}

	down, up := o.gen.Delta(p, vh, multiplier)
	o.log.DebugWithFields("Scrolling", map[string]interface{}{
		"pattern":    p.String(),
		"down":       down,
		"up":         up,
		"multiplier": multiplier,
	})

	if !o.try("scroll_down", func() error { return o.driver.ScrollBy(down) }) {
		return nil
	}
	if up > 0 {
		if err := o.clock.Sleep(ctx, o.gen.BouncePause()); err != nil {
			return err
		}
		o.try("scroll_up", func() error { return o.driver.ScrollBy(-up) })
	}
	return nil
}

// multiplier returns the adaptive distance multiplier: 1 while new
// content is still appearing, growing with the all-seen streak up to the
// configured cap.
func (o *Orchestrator) multiplier(st *State, allSeen bool) float64 {
	if !allSeen {
		return 1.0
	}
	m := 1.5 + float64(st.ConsecutiveAllSeen)*0.5
	if m > o.cfg.MaxMultiplier {
		m = o.cfg.MaxMultiplier
	}
	return m
}

// postDelay computes the pause after a scroll action: short when new
// content is flowing, shrinking while skipping seen content, longer right
// after a stuck recovery.
func (o *Orchestrator) postDelay(st *State, newItems int, allSeen, recovered bool) time.Duration {
	switch {
	case newItems > 0:
		return 300 * time.Millisecond
	case allSeen:
		d := 200*time.Millisecond - time.Duration(st.ConsecutiveAllSeen)*20*time.Millisecond
		if d < 50*time.Millisecond {
			d = 50 * time.Millisecond
		}
		return d
	case recovered:
		return o.gen.Jitter(400*time.Millisecond, 600*time.Millisecond)
	default:
		return o.gen.Jitter(250*time.Millisecond, 350*time.Millisecond)
	}
}

// arrivedAtBottom reports whether the viewport bottom is within 200px of
// the document end.
func (o *Orchestrator) arrivedAtBottom() bool {
	offset, err := o.driver.CurrentScrollOffset()
	if err != nil {
		return false
	}
	vh, err := o.driver.ViewportHeight()
	if err != nil {
		return false
	}
	dh, err := o.driver.DocumentHeight()
	if err != nil {
		return false
	}
	return dh-(offset+vh) < 200
}

// try runs a scroll action, retrying once on failure. A second failure is
// logged and absorbed; scrolling failures never end a crawl.
func (o *Orchestrator) try(op string, fn func() error) bool {
	err := fn()
	if err == nil {
		return true
	}
	o.log.WithError(err).WithField("op", op).Debug("Scroll action failed, retrying once")
	if err = fn(); err != nil {
		o.log.WithError(err).WithField("op", op).Warn("Scroll action failed twice, treating as no-op")
		return false
	}
	return true
}
