package scroll

import (
	"context"
	"time"

	"feedcrawl/pkg/driver"
)

// fakeDriver is an in-memory PageDriver whose offset snaps to whatever the
// last movement requested, clamped to the scrollable range. Hooks let a
// test simulate movements that land somewhere other than requested.
type fakeDriver struct {
	viewport  int
	docHeight int
	offset    int

	onScrollTo         func(target int) int
	onScrollToFraction func(fraction float64) int

	scrollByCalls []int
	scrollToCalls []int
	fractionCalls []float64
}

func newFakeDriver(viewport, docHeight int) *fakeDriver {
	return &fakeDriver{viewport: viewport, docHeight: docHeight}
}

func (d *fakeDriver) clamp(offset int) int {
	limit := d.docHeight - d.viewport
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > limit {
		return limit
	}
	return offset
}

func (d *fakeDriver) Navigate(context.Context, string) error { return nil }
func (d *fakeDriver) GoBack(context.Context) error           { return nil }
func (d *fakeDriver) CurrentURL() (string, error)            { return "https://example.test/feed", nil }
func (d *fakeDriver) ViewportHeight() (int, error)           { return d.viewport, nil }
func (d *fakeDriver) CurrentScrollOffset() (int, error)      { return d.offset, nil }
func (d *fakeDriver) DocumentHeight() (int, error)           { return d.docHeight, nil }

func (d *fakeDriver) ScrollBy(delta int) error {
	d.scrollByCalls = append(d.scrollByCalls, delta)
	d.offset = d.clamp(d.offset + delta)
	return nil
}

func (d *fakeDriver) ScrollTo(target int) error {
	d.scrollToCalls = append(d.scrollToCalls, target)
	if d.onScrollTo != nil {
		d.offset = d.clamp(d.onScrollTo(target))
		return nil
	}
	d.offset = d.clamp(target)
	return nil
}

func (d *fakeDriver) ScrollToFraction(fraction float64, _ bool) error {
	d.fractionCalls = append(d.fractionCalls, fraction)
	if d.onScrollToFraction != nil {
		d.offset = d.clamp(d.onScrollToFraction(fraction))
		return nil
	}
	d.offset = d.clamp(int(fraction * float64(d.docHeight)))
	return nil
}

func (d *fakeDriver) WaitForLocator(context.Context, string, time.Duration) error {
	return nil
}

func (d *fakeDriver) QueryAll(string) ([]driver.Element, error) { return nil, nil }

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

func (c *fakeClock) slept(d time.Duration) bool {
	for _, s := range c.sleeps {
		if s == d {
			return true
		}
	}
	return false
}
