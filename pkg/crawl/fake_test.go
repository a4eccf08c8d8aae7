package crawl

import (
	"context"
	"time"

	"feedcrawl/pkg/driver"
)

// anchor is a scripted feed element.
type anchor struct {
	href     string
	title    string
	date     string
	markdown string
	hidden   bool
	clicks   *int
}

func (a anchor) Text() (string, error) { return a.title, nil }

func (a anchor) Markdown() (string, error) {
	if a.markdown != "" {
		return a.markdown, nil
	}
	return a.title, nil
}

func (a anchor) Attribute(name string) (string, bool, error) {
	switch name {
	case "href":
		return a.href, a.href != "", nil
	case "data-created":
		return a.date, a.date != "", nil
	}
	return "", false, nil
}

func (a anchor) Visible() (bool, error) { return !a.hidden, nil }

func (a anchor) Click() error {
	if a.clicks != nil {
		*a.clicks++
	}
	return nil
}

// feedPage is a scripted PageDriver for crawl loop tests. Each container
// query returns the next frame of the script, holding on the last frame
// once the script runs out. Expand queries return a fixed element set.
type feedPage struct {
	containerQuery string
	script         [][]driver.Element
	frame          int

	expandQuery string
	expand      []driver.Element

	waitErr  error
	queryErr error

	offset    int
	viewport  int
	docHeight int
}

func newFeedPage(containerQuery string, script ...[]driver.Element) *feedPage {
	return &feedPage{
		containerQuery: containerQuery,
		script:         script,
		viewport:       800,
		docHeight:      5000,
	}
}

func (p *feedPage) Navigate(context.Context, string) error { return nil }
func (p *feedPage) GoBack(context.Context) error           { return nil }
func (p *feedPage) CurrentURL() (string, error)            { return "https://example.test/feed", nil }
func (p *feedPage) ViewportHeight() (int, error)           { return p.viewport, nil }
func (p *feedPage) DocumentHeight() (int, error)           { return p.docHeight, nil }
func (p *feedPage) CurrentScrollOffset() (int, error)      { return p.offset, nil }

func (p *feedPage) ScrollBy(delta int) error {
	p.offset += delta
	if p.offset < 0 {
		p.offset = 0
	}
	return nil
}

func (p *feedPage) ScrollTo(offset int) error { p.offset = offset; return nil }

func (p *feedPage) ScrollToFraction(fraction float64, _ bool) error {
	p.offset = int(fraction * float64(p.docHeight))
	return nil
}

func (p *feedPage) WaitForLocator(context.Context, string, time.Duration) error {
	return p.waitErr
}

func (p *feedPage) QueryAll(query string) ([]driver.Element, error) {
	if query == p.expandQuery && p.expandQuery != "" {
		return p.expand, nil
	}
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if len(p.script) == 0 {
		return nil, nil
	}
	i := p.frame
	if i >= len(p.script) {
		i = len(p.script) - 1
	}
	p.frame++
	return p.script[i], nil
}

// detailPage is a scripted PageDriver for detail navigation tests.
type detailPage struct {
	content     string
	waitErrs    map[string]error
	navigateErr error

	navigated []string
	waitCalls []string
	backCalls int
	offset    int
}

func (p *detailPage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navigateErr
}

func (p *detailPage) GoBack(context.Context) error      { p.backCalls++; return nil }
func (p *detailPage) CurrentURL() (string, error)       { return "", nil }
func (p *detailPage) ViewportHeight() (int, error)      { return 800, nil }
func (p *detailPage) DocumentHeight() (int, error)      { return 5000, nil }
func (p *detailPage) CurrentScrollOffset() (int, error) { return p.offset, nil }
func (p *detailPage) ScrollBy(delta int) error          { p.offset += delta; return nil }
func (p *detailPage) ScrollTo(offset int) error         { p.offset = offset; return nil }

func (p *detailPage) ScrollToFraction(fraction float64, _ bool) error {
	p.offset = int(fraction * 5000)
	return nil
}

func (p *detailPage) WaitForLocator(_ context.Context, query string, _ time.Duration) error {
	p.waitCalls = append(p.waitCalls, query)
	if err, ok := p.waitErrs[query]; ok {
		return err
	}
	return nil
}

func (p *detailPage) QueryAll(string) ([]driver.Element, error) {
	return []driver.Element{anchor{markdown: p.content}}, nil
}

// fakeClock records requested sleeps and completes them instantly.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func seenOf(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func frame(items ...driver.Element) []driver.Element { return items }
