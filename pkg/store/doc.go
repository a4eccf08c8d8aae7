// Package store persists extracted items in SQLite and provides the
// seen-identifier and prior-content lookups the crawl loop and detail
// navigator depend on.
package store
