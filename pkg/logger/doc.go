// Package logger provides structured logging for the feed crawler built
// on zerolog: pretty console output for interactive use, rotating file
// output (lumberjack) when configured, and a global logger plus
// convenience functions so packages do not thread a logger through every
// constructor.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//		...
//	}
//	log := logger.GetLogger().WithField("source", "news")
//	log.InfoWithFields("Crawl starting", map[string]interface{}{"max_items": 100})
package logger
