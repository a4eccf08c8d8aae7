package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// Config holds the rate-limit detection and backoff parameters.
type Config struct {
	// Threshold is the number of consecutive timeouts after which the
	// session is considered likely rate-limited.
	Threshold int
	// BaseCooldown is the cooldown for a counter of zero.
	BaseCooldown time.Duration
	// MaxCooldown caps the computed cooldown regardless of the counter.
	MaxCooldown time.Duration
	// BackoffFactor is the exponential growth factor per failure.
	BackoffFactor float64
}

// DefaultConfig returns the backoff parameters used in production.
func DefaultConfig() Config {
	return Config{
		Threshold:     3,
		BaseCooldown:  5 * time.Second,
		MaxCooldown:   60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Cooldown computes the cooldown for the given consecutive-failure
// counter: BaseCooldown × BackoffFactor^counter, capped at MaxCooldown.
// The result is deterministic and non-decreasing in the counter; callers
// that want jitter add it themselves. A negative counter is a contract
// violation.
func (c Config) Cooldown(counter int) time.Duration {
	if counter < 0 {
		panic(fmt.Sprintf("ratelimit: negative failure counter %d", counter))
	}

	cooldown := float64(c.BaseCooldown) * math.Pow(c.BackoffFactor, float64(counter))
	if cooldown > float64(c.MaxCooldown) {
		return c.MaxCooldown
	}
	return time.Duration(cooldown)
}

// LikelyRateLimited reports whether the given consecutive-timeout counter
// has crossed the detection threshold.
func (c Config) LikelyRateLimited(timeouts int) bool {
	if timeouts < 0 {
		panic(fmt.Sprintf("ratelimit: negative timeout counter %d", timeouts))
	}
	return timeouts >= c.Threshold
}

// Tracker counts consecutive failures within one navigation sequence.
// It is scoped to a single session and never persisted; sessions running
// against different page surfaces each own their own Tracker.
type Tracker struct {
	cfg      Config
	failures int
	timeouts int
}

// NewTracker creates a tracker with the given parameters.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// RecordOutcome updates the counters for one operation and returns the
// new consecutive-failure count. Any success resets both counters to
// zero. Non-timeout failures count toward the failure tally but only
// timeouts feed the rate-limit classification.
func (t *Tracker) RecordOutcome(success, wasTimeout bool) int {
	if success {
		t.failures = 0
		t.timeouts = 0
		return 0
	}

	t.failures++
	if wasTimeout {
		t.timeouts++
	}
	return t.failures
}

// Failures returns the current consecutive-failure count.
func (t *Tracker) Failures() int {
	return t.failures
}

// Timeouts returns the current consecutive-timeout count.
func (t *Tracker) Timeouts() int {
	return t.timeouts
}

// LikelyRateLimited reports whether the current timeout run has crossed
// the detection threshold.
func (t *Tracker) LikelyRateLimited() bool {
	return t.cfg.LikelyRateLimited(t.timeouts)
}

// Cooldown returns the cooldown for the current timeout count. Only
// timeouts escalate it; other failures are not page pushback.
func (t *Tracker) Cooldown() time.Duration {
	return t.cfg.Cooldown(t.timeouts)
}
