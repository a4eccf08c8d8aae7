package scroll

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func newTestOrchestrator(d *fakeDriver) (*Orchestrator, *fakeClock) {
	clk := newFakeClock()
	gen := NewGenerator(rand.NewSource(21))
	return NewOrchestrator(d, gen, clk, DefaultOrchestratorConfig()), clk
}

func TestStepResetsStreakOnNewItems(t *testing.T) {
	d := newFakeDriver(800, 10000)
	o, _ := newTestOrchestrator(d)

	st := &State{ConsecutiveAllSeen: 7, TurboActive: true}
	if err := o.Step(context.Background(), st, 2, false); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if st.ConsecutiveAllSeen != 0 {
		t.Errorf("ConsecutiveAllSeen = %d, want 0", st.ConsecutiveAllSeen)
	}
	if st.TurboActive {
		t.Error("TurboActive still set after new items")
	}
}

func TestStepEntersTurbo(t *testing.T) {
	d := newFakeDriver(800, 10000)
	o, clk := newTestOrchestrator(d)

	st := &State{ConsecutiveAllSeen: 4}
	if err := o.Step(context.Background(), st, 0, true); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if !st.TurboActive {
		t.Fatal("TurboActive not set at threshold streak")
	}
	if st.ConsecutiveAllSeen != 5 {
		t.Errorf("ConsecutiveAllSeen = %d, want 5", st.ConsecutiveAllSeen)
	}
	if len(d.fractionCalls) != 2 {
		t.Fatalf("turbo made %d jumps, want 2", len(d.fractionCalls))
	}
	for _, f := range d.fractionCalls {
		if f != 1.0 {
			t.Errorf("turbo jump fraction = %v, want 1.0", f)
		}
	}
	if !clk.slept(100*time.Millisecond) || !clk.slept(200*time.Millisecond) {
		t.Errorf("turbo pauses = %v, want 100ms and 200ms", clk.sleeps)
	}
}

func TestStepStaysInTurboBelowThreshold(t *testing.T) {
	d := newFakeDriver(800, 10000)
	o, _ := newTestOrchestrator(d)

	// Once active, turbo persists regardless of the streak count until a
	// new item shows up.
	st := &State{ConsecutiveAllSeen: 1, TurboActive: true}
	if err := o.Step(context.Background(), st, 0, true); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !st.TurboActive {
		t.Error("turbo dropped without new items")
	}
	if len(d.fractionCalls) != 2 {
		t.Errorf("turbo made %d jumps, want 2", len(d.fractionCalls))
	}
}

func TestStepStuckRecoveryResetsCounter(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, _ := newTestOrchestrator(d)

	// Two prior same-extent iterations; this one makes three and must
	// trigger exactly one recovery, then reset the counter.
	st := &State{LastPageExtent: 5000, ConsecutiveSameExtent: 2}
	if err := o.Step(context.Background(), st, 0, false); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if st.ConsecutiveSameExtent != 0 {
		t.Errorf("ConsecutiveSameExtent = %d after recovery, want 0", st.ConsecutiveSameExtent)
	}
	// Odd streak recovers with a fast pattern scroll, not a jump.
	if len(d.scrollByCalls) == 0 {
		t.Error("recovery performed no scroll")
	}
	if len(d.fractionCalls) != 0 {
		t.Error("odd streak recovery jumped instead of scrolling")
	}

	// The next same-extent iteration is below threshold again: ordinary
	// scrolling, no second recovery.
	d.fractionCalls = nil
	if err := o.Step(context.Background(), st, 0, false); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if st.ConsecutiveSameExtent != 1 {
		t.Errorf("ConsecutiveSameExtent = %d, want 1", st.ConsecutiveSameExtent)
	}
	if len(d.fractionCalls) != 0 {
		t.Error("second recovery ran while below threshold")
	}
}

func TestStepStuckRecoveryEvenStreakJumps(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, _ := newTestOrchestrator(d)

	st := &State{LastPageExtent: 5000, ConsecutiveSameExtent: 3}
	if err := o.Step(context.Background(), st, 0, false); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if st.ConsecutiveSameExtent != 0 {
		t.Errorf("ConsecutiveSameExtent = %d after recovery, want 0", st.ConsecutiveSameExtent)
	}
	if len(d.fractionCalls) != 1 || d.fractionCalls[0] != 1.0 {
		t.Errorf("even streak recovery jumps = %v, want one jump to 1.0", d.fractionCalls)
	}
}

func TestStepExtentChangeResetsStuckCounter(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, _ := newTestOrchestrator(d)

	st := &State{LastPageExtent: 4000, ConsecutiveSameExtent: 2}
	if err := o.Step(context.Background(), st, 0, false); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if st.ConsecutiveSameExtent != 0 {
		t.Errorf("ConsecutiveSameExtent = %d after extent grew, want 0", st.ConsecutiveSameExtent)
	}
	if st.LastPageExtent != 5000 {
		t.Errorf("LastPageExtent = %d, want 5000", st.LastPageExtent)
	}
}

func TestStepBottomJumpWithLazyNudge(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, clk := newTestOrchestrator(d)

	// Streak reaches 3: bottom jump regime, and 3%3 == 0 adds the nudge.
	st := &State{ConsecutiveAllSeen: 2}
	if err := o.Step(context.Background(), st, 0, true); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if len(d.fractionCalls) < 2 {
		t.Fatalf("fraction calls = %v, want jump plus nudge return", d.fractionCalls)
	}
	if !clk.slept(time.Second) {
		t.Errorf("sleeps = %v, missing 1s bottom pause", clk.sleeps)
	}

	foundNudge := false
	for _, delta := range d.scrollByCalls {
		if delta == -(800 / 3) {
			foundNudge = true
		}
	}
	if !foundNudge {
		t.Errorf("scrollBy calls = %v, missing upward nudge of a third viewport", d.scrollByCalls)
	}
}

func TestStepBottomJumpShortPauseOnLongStreak(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, clk := newTestOrchestrator(d)

	// Streak 7 is past the turbo threshold, so pin turbo off by using a
	// config with a high turbo bar.
	cfg := DefaultOrchestratorConfig()
	cfg.TurboThreshold = 100
	o = NewOrchestrator(d, NewGenerator(rand.NewSource(21)), clk, cfg)

	st := &State{ConsecutiveAllSeen: 6}
	if err := o.Step(context.Background(), st, 0, true); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if clk.slept(time.Second) {
		t.Error("long streak still used the full 1s bottom pause")
	}
	if !clk.slept(300 * time.Millisecond) {
		t.Errorf("sleeps = %v, missing shortened 300ms pause", clk.sleeps)
	}
}

func TestMultiplier(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, _ := newTestOrchestrator(d)

	if got := o.multiplier(&State{ConsecutiveAllSeen: 10}, false); got != 1.0 {
		t.Errorf("multiplier with new content = %v, want 1.0", got)
	}
	if got := o.multiplier(&State{ConsecutiveAllSeen: 1}, true); got != 2.0 {
		t.Errorf("multiplier at streak 1 = %v, want 2.0", got)
	}
	if got := o.multiplier(&State{ConsecutiveAllSeen: 50}, true); got != 5.0 {
		t.Errorf("multiplier at streak 50 = %v, want capped 5.0", got)
	}
}

func TestPostDelay(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, _ := newTestOrchestrator(d)

	if got := o.postDelay(&State{}, 3, false, false); got != 300*time.Millisecond {
		t.Errorf("delay with new items = %v, want 300ms", got)
	}
	if got := o.postDelay(&State{ConsecutiveAllSeen: 3}, 0, true, false); got != 140*time.Millisecond {
		t.Errorf("delay at all-seen streak 3 = %v, want 140ms", got)
	}
	if got := o.postDelay(&State{ConsecutiveAllSeen: 20}, 0, true, false); got != 50*time.Millisecond {
		t.Errorf("delay at long streak = %v, want 50ms floor", got)
	}
	if got := o.postDelay(&State{}, 0, false, true); got < 400*time.Millisecond || got >= 600*time.Millisecond {
		t.Errorf("delay after recovery = %v, want [400ms, 600ms)", got)
	}
}

func TestStepCancelledContext(t *testing.T) {
	d := newFakeDriver(800, 5000)
	o, _ := newTestOrchestrator(d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := o.Step(ctx, &State{}, 0, false); err == nil {
		t.Error("Step did not report cancellation")
	}
}
