package driver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies failures reported by a page driver.
type ErrorType string

const (
	// ErrorTypeTimeout marks a bounded wait that expired. Recoverable:
	// it feeds rate-limit tracking and never terminates a crawl on its own.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeDriver marks a page surface that is unusable. Fatal to the
	// session: the crawl loop surfaces it to the caller.
	ErrorTypeDriver ErrorType = "driver"
)

// Error wraps a driver failure with its classification.
type Error struct {
	Type ErrorType
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error during %s: %v", e.Type, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeout wraps err as a recoverable timeout failure.
func NewTimeout(op string, err error) *Error {
	return &Error{Type: ErrorTypeTimeout, Op: op, Err: err}
}

// NewDriverError wraps err as a fatal driver failure.
func NewDriverError(op string, err error) *Error {
	return &Error{Type: ErrorTypeDriver, Op: op, Err: err}
}

// IsTimeout reports whether err is a recoverable timeout failure.
func IsTimeout(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Type == ErrorTypeTimeout
}

// IsFatal reports whether err means the page surface is unusable.
func IsFatal(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Type == ErrorTypeDriver
}

// PageDriver is the capability the crawl core consumes to observe and
// mutate one rendered page surface. Implementations wrap a single browser
// tab and are not safe for concurrent use; each crawl session owns its
// driver exclusively.
type PageDriver interface {
	// Navigate loads the given URL and waits for the page to load.
	Navigate(ctx context.Context, url string) error
	// GoBack navigates one step back in the page's history.
	GoBack(ctx context.Context) error
	// CurrentURL returns the URL the page is currently on.
	CurrentURL() (string, error)

	// ViewportHeight returns the viewport height in pixels.
	ViewportHeight() (int, error)
	// ScrollBy scrolls vertically by the given pixel delta (negative = up).
	ScrollBy(deltaPixels int) error
	// ScrollTo jumps to an absolute vertical offset in pixels.
	ScrollTo(offsetPixels int) error
	// ScrollToFraction scrolls to fraction × document height, optionally
	// using smooth scrolling.
	ScrollToFraction(fraction float64, smooth bool) error
	// CurrentScrollOffset returns the current vertical offset in pixels.
	CurrentScrollOffset() (int, error)
	// DocumentHeight returns the full scrollable height in pixels.
	DocumentHeight() (int, error)

	// WaitForLocator blocks until an element matching query exists, the
	// timeout expires (ErrorTypeTimeout) or the context is cancelled.
	WaitForLocator(ctx context.Context, query string, timeout time.Duration) error
	// QueryAll returns handles for all elements matching query.
	QueryAll(query string) ([]Element, error)
}

// Element is an opaque handle to one rendered DOM container.
type Element interface {
	// Text returns the element's visible text.
	Text() (string, error)
	// Markdown returns the element's content as markdown-like text.
	Markdown() (string, error)
	// Attribute returns the named attribute's value, or ok=false when the
	// attribute is absent.
	Attribute(name string) (value string, ok bool, err error)
	// Visible reports whether the element is currently visible.
	Visible() (bool, error)
	// Click clicks the element.
	Click() error
}
