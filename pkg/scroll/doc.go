// Package scroll drives page scrolling for feed crawls: randomized
// human-looking movement patterns, an adaptive orchestrator that
// escalates to jumps when content stops being new, and best-effort
// restoration of a saved scroll position after navigating away.
package scroll
