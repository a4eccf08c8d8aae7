// Package ratelimit detects anti-scraping rate limiting from the shape of
// consecutive failures and computes cooldown windows before retrying.
//
// Feed surfaces do not announce rate limiting; the only observable signal
// is a run of consecutive timeouts while waiting for content. The Tracker
// counts consecutive failures (any success resets the run), classifies
// whether the run of timeouts has crossed the likely-rate-limited
// threshold, and the Config computes a deterministic, capped exponential
// cooldown from the counter. Jitter, if wanted, is applied by the caller.
//
// Usage:
//
//	tracker := ratelimit.NewTracker(ratelimit.DefaultConfig())
//
//	if tracker.LikelyRateLimited() {
//	    clock.Sleep(ctx, tracker.Cooldown())
//	}
//	err := waitForContent()
//	tracker.RecordOutcome(err == nil, driver.IsTimeout(err))
package ratelimit
