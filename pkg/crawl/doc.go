// Package crawl is the top-level control loop for harvesting items from
// an infinite-scroll feed.
//
// A Loop alternates extracting visible items with adaptive scrolling,
// yielding each newly discovered item exactly once per session over a
// channel. Optional detail visits fetch an item's full content from its
// own page, with rate-limit cooldowns and scroll-position restoration
// around each visit. A session is single-threaded over one page surface;
// run concurrent sessions against different pages.
//
//	loop := crawl.NewLoop(page, gen, tracker, nav, extractor, seen, clock.Real{}, cfg)
//	for item := range loop.Run(ctx) {
//		if err := db.SaveItem(ctx, cfg.Source, item); err != nil {
//			...
//		}
//	}
//	if err := loop.Err(); err != nil {
//		...
//	}
package crawl
