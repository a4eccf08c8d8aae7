package ratelimit

import (
	"testing"
	"time"
)

func TestCooldownMonotonicAndCapped(t *testing.T) {
	cfg := DefaultConfig()

	prev := time.Duration(0)
	for counter := 0; counter <= 20; counter++ {
		got := cfg.Cooldown(counter)
		if got < prev {
			t.Errorf("Cooldown(%d) = %v, smaller than Cooldown(%d) = %v", counter, got, counter-1, prev)
		}
		if got > cfg.MaxCooldown {
			t.Errorf("Cooldown(%d) = %v exceeds cap %v", counter, got, cfg.MaxCooldown)
		}
		prev = got
	}
}

func TestCooldownValues(t *testing.T) {
	cfg := Config{
		Threshold:     3,
		BaseCooldown:  5 * time.Second,
		MaxCooldown:   60 * time.Second,
		BackoffFactor: 2.0,
	}

	tests := []struct {
		counter int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 60 * time.Second}, // 80s capped
		{10, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.Cooldown(tt.counter); got != tt.want {
			t.Errorf("Cooldown(%d) = %v, want %v", tt.counter, got, tt.want)
		}
	}
}

func TestCooldownPanicsOnNegativeCounter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative counter")
		}
	}()
	DefaultConfig().Cooldown(-1)
}

func TestLikelyRateLimitedThreshold(t *testing.T) {
	cfg := DefaultConfig()

	for timeouts := 0; timeouts < cfg.Threshold; timeouts++ {
		if cfg.LikelyRateLimited(timeouts) {
			t.Errorf("LikelyRateLimited(%d) = true below threshold %d", timeouts, cfg.Threshold)
		}
	}
	if !cfg.LikelyRateLimited(cfg.Threshold) {
		t.Errorf("LikelyRateLimited(%d) = false at threshold", cfg.Threshold)
	}
	if !cfg.LikelyRateLimited(cfg.Threshold + 5) {
		t.Error("LikelyRateLimited above threshold = false")
	}
}

func TestRecordOutcomeCounting(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	// Non-timeout failures count toward failures only.
	if got := tracker.RecordOutcome(false, false); got != 1 {
		t.Errorf("first failure count = %d, want 1", got)
	}
	if tracker.Timeouts() != 0 {
		t.Errorf("Timeouts() = %d after non-timeout failure, want 0", tracker.Timeouts())
	}

	// Timeouts count toward both tallies.
	tracker.RecordOutcome(false, true)
	tracker.RecordOutcome(false, true)
	if tracker.Failures() != 3 {
		t.Errorf("Failures() = %d, want 3", tracker.Failures())
	}
	if tracker.Timeouts() != 2 {
		t.Errorf("Timeouts() = %d, want 2", tracker.Timeouts())
	}

	// Success resets everything.
	if got := tracker.RecordOutcome(true, false); got != 0 {
		t.Errorf("success returned %d, want 0", got)
	}
	if tracker.Failures() != 0 || tracker.Timeouts() != 0 {
		t.Errorf("counters after success = (%d, %d), want (0, 0)", tracker.Failures(), tracker.Timeouts())
	}
}

func TestTrackerClassificationUsesTimeoutsOnly(t *testing.T) {
	tracker := NewTracker(Config{
		Threshold:     2,
		BaseCooldown:  time.Second,
		MaxCooldown:   10 * time.Second,
		BackoffFactor: 2.0,
	})

	// Plenty of non-timeout failures never classify as rate limited.
	for i := 0; i < 5; i++ {
		tracker.RecordOutcome(false, false)
	}
	if tracker.LikelyRateLimited() {
		t.Error("non-timeout failures alone classified as rate limited")
	}

	tracker.RecordOutcome(false, true)
	tracker.RecordOutcome(false, true)
	if !tracker.LikelyRateLimited() {
		t.Error("two consecutive timeouts not classified as rate limited at threshold 2")
	}
}

func TestTrackerCooldownGrowsWithTimeouts(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	first := tracker.Cooldown()
	tracker.RecordOutcome(false, true)
	second := tracker.Cooldown()
	tracker.RecordOutcome(false, true)
	third := tracker.Cooldown()

	if !(first < second && second < third) {
		t.Errorf("cooldowns not increasing: %v, %v, %v", first, second, third)
	}
}

func TestTrackerCooldownIgnoresNonTimeoutFailures(t *testing.T) {
	cfg := DefaultConfig()
	tracker := NewTracker(cfg)

	tracker.RecordOutcome(false, true)
	tracker.RecordOutcome(false, false)
	tracker.RecordOutcome(false, false)

	if got, want := tracker.Cooldown(), cfg.Cooldown(1); got != want {
		t.Errorf("Cooldown() = %v after one timeout and two other failures, want %v", got, want)
	}
}
