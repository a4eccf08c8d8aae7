package driver

import (
	"context"
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Launch starts a browser and connects to it. A non-empty userAgent is
// passed to the browser process so every tab identifies with it.
func Launch(headless bool, userAgent string) (*rod.Browser, error) {
	l := launcher.New().Headless(headless)
	if userAgent != "" {
		l = l.Set("user-agent", userAgent)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, NewDriverError("launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, NewDriverError("connect browser", err)
	}

	return browser, nil
}

// RodPage implements PageDriver on top of a go-rod page.
type RodPage struct {
	page *rod.Page
}

// NewRodPage wraps an existing rod page.
func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

// OpenPage opens a new tab on the browser and navigates it to url. A
// positive loadTimeout bounds the initial load wait, surfacing a
// recoverable timeout past it.
func OpenPage(browser *rod.Browser, url string, loadTimeout time.Duration) (*RodPage, error) {
	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, NewDriverError("open page", err)
	}
	loading := page
	if loadTimeout > 0 {
		loading = page.Timeout(loadTimeout)
	}
	if err := loading.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, classify("wait load", err)
	}
	return &RodPage{page: page}, nil
}

// Close closes the underlying browser tab.
func (p *RodPage) Close() error {
	if err := p.page.Close(); err != nil {
		return NewDriverError("close page", err)
	}
	return nil
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return classify("navigate", err)
	}
	if err := page.WaitLoad(); err != nil {
		return classify("wait load", err)
	}
	return nil
}

func (p *RodPage) GoBack(ctx context.Context) error {
	if err := p.page.Context(ctx).NavigateBack(); err != nil {
		return classify("navigate back", err)
	}
	return nil
}

func (p *RodPage) CurrentURL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", NewDriverError("page info", err)
	}
	return info.URL, nil
}

func (p *RodPage) ViewportHeight() (int, error) {
	return p.evalInt(`() => window.innerHeight`)
}

func (p *RodPage) ScrollBy(deltaPixels int) error {
	_, err := p.page.Eval(`(d) => window.scrollBy(0, d)`, deltaPixels)
	if err != nil {
		return NewDriverError("scroll by", err)
	}
	return nil
}

func (p *RodPage) ScrollTo(offsetPixels int) error {
	_, err := p.page.Eval(`(top) => window.scrollTo(0, top)`, offsetPixels)
	if err != nil {
		return NewDriverError("scroll to", err)
	}
	return nil
}

func (p *RodPage) ScrollToFraction(fraction float64, smooth bool) error {
	js := `(f, smooth) => window.scrollTo({
		top: document.documentElement.scrollHeight * f,
		left: 0,
		behavior: smooth ? 'smooth' : 'auto',
	})`
	if _, err := p.page.Eval(js, fraction, smooth); err != nil {
		return NewDriverError("scroll to fraction", err)
	}
	return nil
}

func (p *RodPage) CurrentScrollOffset() (int, error) {
	return p.evalInt(`() => window.scrollY`)
}

func (p *RodPage) DocumentHeight() (int, error) {
	return p.evalInt(`() => document.documentElement.scrollHeight`)
}

func (p *RodPage) WaitForLocator(ctx context.Context, query string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	if _, err := page.Element(query); err != nil {
		return classify("wait for locator", err)
	}
	return nil
}

func (p *RodPage) QueryAll(query string) ([]Element, error) {
	els, err := p.page.Elements(query)
	if err != nil {
		return nil, NewDriverError("query all", err)
	}

	handles := make([]Element, 0, len(els))
	for _, el := range els {
		handles = append(handles, &rodElement{el: el})
	}
	return handles, nil
}

func (p *RodPage) evalInt(js string) (int, error) {
	res, err := p.page.Eval(js)
	if err != nil {
		return 0, NewDriverError("eval", err)
	}
	return res.Value.Int(), nil
}

// classify maps rod errors onto the crawl core's taxonomy: context
// deadline expiry is a recoverable timeout, everything else means the
// page surface is unusable.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(op, err)
	}
	return NewDriverError(op, err)
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", NewDriverError("element text", err)
	}
	return text, nil
}

// Markdown returns the element's visible text. Converting rendered HTML
// into richer markdown is owned by the per-platform extraction rulesets,
// not by the driver.
func (e *rodElement) Markdown() (string, error) {
	return e.Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	val, err := e.el.Attribute(name)
	if err != nil {
		return "", false, NewDriverError("element attribute", err)
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

func (e *rodElement) Visible() (bool, error) {
	visible, err := e.el.Visible()
	if err != nil {
		return false, NewDriverError("element visible", err)
	}
	return visible, nil
}

func (e *rodElement) Click() error {
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return NewDriverError("element click", err)
	}
	return nil
}
