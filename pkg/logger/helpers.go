package logger

import (
	"time"
)

// LogRateLimit logs a rate-limit cooldown event
func LogRateLimit(identifier string, timeouts int, cooldown time.Duration) {
	GetLogger().WarnWithFields("Rate limit cooldown", map[string]interface{}{
		"identifier":  identifier,
		"timeouts":    timeouts,
		"cooldown_ms": cooldown.Milliseconds(),
	})
}

// LogCrawlComplete logs the end-of-session summary
func LogCrawlComplete(source string, yielded int, duration time.Duration) {
	GetLogger().InfoWithFields("Crawl session complete", map[string]interface{}{
		"source":   source,
		"yielded":  yielded,
		"duration": duration.Round(time.Millisecond).String(),
	})
}
