package models

import "time"

// Well-known field names produced by extractors. Everything else in an
// item's field map is opaque to the crawl core.
const (
	FieldURL       = "url"
	FieldCreatedAt = "created_at"
	FieldContent   = "text_content"
)

// Date layouts accepted for the created_at field, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Item is one record harvested from a feed surface: an opaque field map
// plus a resource identifier (the url field) used for deduplication.
type Item struct {
	Fields map[string]any
}

// NewItem creates an item around an extracted field map. A nil map is
// replaced with an empty one so setters never panic.
func NewItem(fields map[string]any) Item {
	if fields == nil {
		fields = make(map[string]any)
	}
	return Item{Fields: fields}
}

// URL returns the item's resource identifier, or "" when the extractor
// produced none. Items without an identifier are never yielded.
func (it Item) URL() string {
	s, _ := it.Fields[FieldURL].(string)
	return s
}

// CreatedAt parses the item's created_at field if present. It accepts
// time.Time values directly and a handful of common string layouts.
func (it Item) CreatedAt() (time.Time, bool) {
	v, ok := it.Fields[FieldCreatedAt]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Content returns the item's full text content, if a detail visit (or the
// extractor itself) populated it.
func (it Item) Content() (string, bool) {
	s, ok := it.Fields[FieldContent].(string)
	return s, ok
}

// SetContent stores the full text content for the item.
func (it Item) SetContent(content string) {
	it.Fields[FieldContent] = content
}
