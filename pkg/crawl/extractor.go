package crawl

import (
	"errors"

	"feedcrawl/pkg/driver"
	"feedcrawl/pkg/models"
)

// ErrNoIdentifier is returned when a container yields no usable link.
var ErrNoIdentifier = errors.New("crawl: container has no identifier")

// LinkExtractor is a generic ruleset for feeds whose item containers are
// (or contain as the matched element) anchor tags: the href becomes the
// resource identifier, the element text becomes the title, and an
// optional datetime attribute becomes the created date.
//
// Real deployments usually ship their own per-platform ItemExtractor;
// this one covers ad-hoc crawls driven purely from configuration.
type LinkExtractor struct {
	// Query selects the item anchors.
	Query string
	// DateAttribute, when set, is read off the element as created_at.
	DateAttribute string
}

func (e LinkExtractor) ContainerQuery() string {
	return e.Query
}

func (e LinkExtractor) Extract(el driver.Element) (models.Item, error) {
	href, ok, err := el.Attribute("href")
	if err != nil {
		return models.Item{}, err
	}
	if !ok || href == "" {
		return models.Item{}, ErrNoIdentifier
	}

	fields := map[string]any{
		models.FieldURL: href,
	}

	if text, err := el.Text(); err == nil && text != "" {
		fields["title"] = text
	}

	if e.DateAttribute != "" {
		if date, ok, err := el.Attribute(e.DateAttribute); err == nil && ok {
			fields[models.FieldCreatedAt] = date
		}
	}

	return models.NewItem(fields), nil
}
