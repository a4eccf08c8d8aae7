package scroll

import (
	"fmt"
	"math/rand"
	"time"
)

// Pattern selects the shape of a single scroll movement.
type Pattern int

const (
	// PatternNormal is an ordinary downward scroll near one viewport.
	PatternNormal Pattern = iota
	// PatternFast covers ground quickly, up to several viewports.
	PatternFast
	// PatternSlow moves less than a viewport, mimicking careful reading.
	PatternSlow
	// PatternBounce scrolls down then partway back up.
	PatternBounce
)

// patterns holds every valid pattern for random selection.
var patterns = [...]Pattern{PatternNormal, PatternFast, PatternSlow, PatternBounce}

func (p Pattern) String() string {
	switch p {
	case PatternNormal:
		return "normal"
	case PatternFast:
		return "fast"
	case PatternSlow:
		return "slow"
	case PatternBounce:
		return "bounce"
	default:
		return fmt.Sprintf("pattern(%d)", int(p))
	}
}

// viewportRange returns the pattern's distance range as fractions of the
// viewport height.
func (p Pattern) viewportRange() (min, max float64) {
	switch p {
	case PatternNormal:
		return 0.8, 1.2
	case PatternFast:
		return 1.5, 2.5
	case PatternSlow:
		return 0.5, 0.8
	case PatternBounce:
		return 1.2, 1.5
	default:
		panic(fmt.Sprintf("scroll: unknown pattern %d", int(p)))
	}
}

// Generator produces randomized scroll movements. It is not safe for
// concurrent use; the crawl session that owns it is single-threaded.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from src. Tests pass a seeded
// source to make movement sequences reproducible.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Pick returns a uniformly random pattern.
func (g *Generator) Pick() Pattern {
	return patterns[g.rng.Intn(len(patterns))]
}

// Delta computes the pixel movement for one scroll of the given pattern.
// down is always positive; up is positive only for PatternBounce, where
// the movement goes down pixels and then back up by up pixels. multiplier
// stretches the distance and must be at least 1. Delta panics on an
// unknown pattern.
func (g *Generator) Delta(p Pattern, viewportHeight int, multiplier float64) (down, up int) {
	lo, hi := p.viewportRange()
	if multiplier < 1 {
		multiplier = 1
	}

	fraction := g.uniform(lo, hi) * multiplier
	down = int(float64(viewportHeight) * fraction)
	if down < 1 {
		down = 1
	}

	if p == PatternBounce {
		up = int(float64(down) * g.uniform(0.3, 0.5))
	}
	return down, up
}

// BouncePause returns the pause between the down and up legs of a bounce.
func (g *Generator) BouncePause() time.Duration {
	return time.Duration(g.uniform(0.2, 0.4) * float64(time.Second))
}

// Jitter returns a random duration in [lo, hi), used for human-looking
// pauses between movements.
func (g *Generator) Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(g.rng.Int63n(int64(hi-lo)))
}

// Chance reports true with probability p.
func (g *Generator) Chance(p float64) bool {
	return g.rng.Float64() < p
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
