package crawl

import (
	"context"

	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/models"
)

// ItemExtractor turns a feed item's container element into a field map.
// Implementations are per-platform rulesets; the crawl core never knows
// what the fields mean beyond the well-known identifier field.
type ItemExtractor interface {
	// ContainerQuery returns the CSS query selecting item containers in
	// the feed.
	ContainerQuery() string
	// Extract pulls fields out of one container.
	Extract(el driver.Element) (models.Item, error)
}

// PriorContentSource answers what full content was previously stored for
// a resource identifier. *store.ItemStore satisfies it.
type PriorContentSource interface {
	PriorContent(ctx context.Context, identifier string) (*string, error)
}

// SeenSet is a snapshot of resource identifiers already known to the
// store, loaded once at crawl start. The crawl core only reads it.
type SeenSet map[string]struct{}

// Contains reports whether the identifier is in the set. A nil set
// contains nothing.
func (s SeenSet) Contains(identifier string) bool {
	_, ok := s[identifier]
	return ok
}
