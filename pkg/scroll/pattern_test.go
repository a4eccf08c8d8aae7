package scroll

import (
	"math/rand"
	"testing"
	"time"
)

func TestDeltaRanges(t *testing.T) {
	g := NewGenerator(rand.NewSource(42))
	const vh = 1000

	tests := []struct {
		pattern Pattern
		lo, hi  float64
	}{
		{PatternNormal, 0.8, 1.2},
		{PatternFast, 1.5, 2.5},
		{PatternSlow, 0.5, 0.8},
		{PatternBounce, 1.2, 1.5},
	}

	for _, tt := range tests {
		for i := 0; i < 200; i++ {
			down, up := g.Delta(tt.pattern, vh, 1.0)
			if down < int(tt.lo*vh)-1 || down > int(tt.hi*vh) {
				t.Fatalf("%v: down = %d, want %v to %v viewports of %d", tt.pattern, down, tt.lo, tt.hi, vh)
			}
			if tt.pattern == PatternBounce {
				if up < int(0.3*float64(down))-1 || up > int(0.5*float64(down)) {
					t.Fatalf("bounce: up = %d, want 30%% to 50%% of down %d", up, down)
				}
			} else if up != 0 {
				t.Fatalf("%v: up = %d, want 0", tt.pattern, up)
			}
		}
	}
}

func TestDeltaMultiplier(t *testing.T) {
	g := NewGenerator(rand.NewSource(7))
	const vh = 1000

	for i := 0; i < 100; i++ {
		down, _ := g.Delta(PatternNormal, vh, 3.0)
		if down < int(0.8*3.0*vh)-1 {
			t.Fatalf("down = %d, multiplier 3.0 not applied", down)
		}
		if down > int(1.2*3.0*vh) {
			t.Fatalf("down = %d exceeds 1.2 viewports at multiplier 3.0", down)
		}
	}

	// Sub-unit multipliers are clamped up to 1: the distance never
	// shrinks below the pattern's own range.
	for i := 0; i < 100; i++ {
		down, _ := g.Delta(PatternNormal, vh, 0.1)
		if down < int(0.8*vh)-1 {
			t.Fatalf("down = %d, sub-unit multiplier was not clamped", down)
		}
	}
}

func TestDeltaMinimumMovement(t *testing.T) {
	g := NewGenerator(rand.NewSource(3))
	down, _ := g.Delta(PatternSlow, 0, 1.0)
	if down < 1 {
		t.Errorf("down = %d with zero viewport, want at least 1", down)
	}
}

func TestDeltaPanicsOnUnknownPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown pattern")
		}
	}()
	NewGenerator(rand.NewSource(1)).Delta(Pattern(99), 1000, 1.0)
}

func TestPickCoversAllPatterns(t *testing.T) {
	g := NewGenerator(rand.NewSource(11))
	seen := make(map[Pattern]bool)
	for i := 0; i < 500; i++ {
		p := g.Pick()
		switch p {
		case PatternNormal, PatternFast, PatternSlow, PatternBounce:
			seen[p] = true
		default:
			t.Fatalf("Pick returned invalid pattern %v", p)
		}
	}
	if len(seen) != 4 {
		t.Errorf("500 picks covered %d patterns, want 4", len(seen))
	}
}

func TestBouncePauseRange(t *testing.T) {
	g := NewGenerator(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		pause := g.BouncePause()
		if pause < 200*time.Millisecond || pause > 400*time.Millisecond {
			t.Fatalf("BouncePause = %v, want 200ms to 400ms", pause)
		}
	}
}

func TestJitter(t *testing.T) {
	g := NewGenerator(rand.NewSource(9))
	lo, hi := 250*time.Millisecond, 350*time.Millisecond
	for i := 0; i < 100; i++ {
		d := g.Jitter(lo, hi)
		if d < lo || d >= hi {
			t.Fatalf("Jitter = %v, want [%v, %v)", d, lo, hi)
		}
	}

	if d := g.Jitter(hi, lo); d != hi {
		t.Errorf("Jitter with inverted bounds = %v, want %v", d, hi)
	}
}

func TestChanceExtremes(t *testing.T) {
	g := NewGenerator(rand.NewSource(13))
	for i := 0; i < 100; i++ {
		if g.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !g.Chance(1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}
