package scroll

import (
	"context"
	"time"

	"feedcrawl/pkg/clock"
	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/logger"
)

// RestoreTolerance is how close (in pixels) the final offset must be to
// the saved one for restoration to count as exact. Feed layouts reflow
// between visits, so pixel-perfect restoration is not achievable.
const RestoreTolerance = 500

// RestoreStatus classifies how well a saved scroll position was recovered.
type RestoreStatus int

const (
	// Restored means the offset landed within RestoreTolerance of the target.
	Restored RestoreStatus = iota
	// Approximate means the target was missed but the page is scrolled to
	// a useful depth.
	Approximate
	// RestoreFailed means the page ended up near the top; the caller
	// should expect to re-walk already seen content.
	RestoreFailed
)

func (s RestoreStatus) String() string {
	switch s {
	case Restored:
		return "restored"
	case Approximate:
		return "approximate"
	case RestoreFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RestoreOutcome reports the result of a restoration attempt along with
// the offset the page actually settled at.
type RestoreOutcome struct {
	Status RestoreStatus
	Offset int
}

// Restorer recovers a saved scroll offset after navigation away and back,
// escalating through progressively blunter strategies when the direct
// jump does not stick.
type Restorer struct {
	driver driver.PageDriver
	clock  clock.Clock
	log    logger.Logger

	// settle is how long to wait after a movement before trusting the
	// reported offset.
	settle time.Duration
}

// NewRestorer returns a Restorer for the given page.
func NewRestorer(d driver.PageDriver, clk clock.Clock) *Restorer {
	return &Restorer{
		driver: d,
		clock:  clk,
		log:    logger.GetLogger(),
		settle: 500 * time.Millisecond,
	}
}

// Restore moves the page back to target, a previously saved scroll offset
// in pixels. It tries a direct jump first and falls back to at most
// maxAttempts recovery strategies: a smooth scroll, a stepped walk, and a
// bottom-anchored jump. When every strategy misses it reports Approximate
// if the page is still meaningfully scrolled, otherwise it parks the page
// at mid-document and reports RestoreFailed. Driver errors abort the
// current strategy, never the whole restoration.
func (r *Restorer) Restore(ctx context.Context, target, maxAttempts int) RestoreOutcome {
	if target <= 0 {
		return RestoreOutcome{Status: Restored, Offset: 0}
	}

	strategies := []struct {
		name string
		run  func(ctx context.Context, target int) error
	}{
		{"direct", r.direct},
		{"smooth", r.smooth},
		{"stepped", r.stepped},
		{"bottom_anchor", r.bottomAnchor},
	}
	// The direct jump is always tried; maxAttempts bounds the recovery
	// strategies after it.
	limit := 1 + maxAttempts
	if limit < 1 {
		limit = 1
	}
	if limit > len(strategies) {
		limit = len(strategies)
	}

	lastOffset := 0
	for _, s := range strategies[:limit] {
		if err := s.run(ctx, target); err != nil {
			r.log.WithError(err).WithField("strategy", s.name).Debug("Scroll restoration strategy failed")
			continue
		}
		if err := r.clock.Sleep(ctx, r.settle); err != nil {
			return RestoreOutcome{Status: RestoreFailed, Offset: lastOffset}
		}

		offset, err := r.driver.CurrentScrollOffset()
		if err != nil {
			r.log.WithError(err).WithField("strategy", s.name).Debug("Could not read scroll offset")
			continue
		}
		lastOffset = offset

		if within(offset, target, RestoreTolerance) {
			r.log.DebugWithFields("Scroll position restored", map[string]interface{}{
				"strategy": s.name,
				"target":   target,
				"offset":   offset,
			})
			return RestoreOutcome{Status: Restored, Offset: offset}
		}
	}

	if lastOffset >= RestoreTolerance {
		r.log.WarnWithFields("Scroll restoration approximate", map[string]interface{}{
			"target": target,
			"offset": lastOffset,
		})
		return RestoreOutcome{Status: Approximate, Offset: lastOffset}
	}

	// Everything left us near the top. Jump to mid-document so the crawl
	// does not restart from scratch.
	if err := r.driver.ScrollToFraction(0.5, false); err != nil {
		r.log.WithError(err).Warn("Emergency mid-document jump failed")
		return RestoreOutcome{Status: RestoreFailed, Offset: lastOffset}
	}
	offset, err := r.driver.CurrentScrollOffset()
	if err != nil {
		offset = lastOffset
	}
	r.log.WarnWithFields("Scroll restoration failed", map[string]interface{}{
		"target": target,
		"offset": offset,
	})
	return RestoreOutcome{Status: RestoreFailed, Offset: offset}
}

func (r *Restorer) direct(_ context.Context, target int) error {
	return r.driver.ScrollTo(target)
}

func (r *Restorer) smooth(_ context.Context, target int) error {
	height, err := r.driver.DocumentHeight()
	if err != nil {
		return err
	}
	if height <= 0 {
		height = target
	}
	fraction := float64(target) / float64(height)
	if fraction > 1 {
		fraction = 1
	}
	return r.driver.ScrollToFraction(fraction, true)
}

// stepped walks to the target in four equal jumps, giving lazy loading a
// chance to fill in content that anchors the offset.
func (r *Restorer) stepped(ctx context.Context, target int) error {
	const steps = 4
	for i := 1; i <= steps; i++ {
		if err := r.driver.ScrollTo(target * i / steps); err != nil {
			return err
		}
		if err := r.clock.Sleep(ctx, 300*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// bottomAnchor jumps to the bottom to force the page to its full height,
// then backs off to 80% unless the target itself is near the bottom.
func (r *Restorer) bottomAnchor(ctx context.Context, target int) error {
	if err := r.driver.ScrollToFraction(1.0, false); err != nil {
		return err
	}
	if err := r.clock.Sleep(ctx, 300*time.Millisecond); err != nil {
		return err
	}

	height, err := r.driver.DocumentHeight()
	if err != nil {
		return err
	}
	if target >= height-RestoreTolerance {
		return nil
	}
	return r.driver.ScrollToFraction(0.8, false)
}

func within(offset, target, tolerance int) bool {
	d := offset - target
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
