// Package browser defines the browser capability the scraper drives and a
// chromedp implementation of it.
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a single-element lookup matches nothing.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session is closed")
)

// Session is one browser tab. Lookups never block: a missing element is
// reported immediately with ErrNotFound and FindAll returns an empty slice.
// Waiting for asynchronous rendering is always explicit via WaitPresent.
type Session interface {
	// Navigate loads url and returns once the load event has fired.
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching sel.
	Find(ctx context.Context, sel string) (Element, error)
	// FindAll returns every element matching sel, in document order.
	FindAll(ctx context.Context, sel string) ([]Element, error)
	// WaitPresent blocks until sel matches or timeout elapses, in which
	// case the error wraps ErrTimeout.
	WaitPresent(ctx context.Context, sel string, timeout time.Duration) error
	// OpenTab opens an auxiliary tab in the same browser. The caller owns
	// the returned session and must Close it.
	OpenTab(ctx context.Context) (Session, error)
	// Close closes the tab. Closing an auxiliary tab leaves its opener
	// untouched and active.
	Close() error
}

// Element is a handle to a node in a Session's current page.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	// Attr returns the named attribute. For properties such as href the
	// resolved (absolute) value is returned. ok is false when unset.
	Attr(ctx context.Context, name string) (value string, ok bool, err error)
	// Find returns the first descendant matching the CSS selector sel.
	Find(ctx context.Context, sel string) (Element, error)
	// FindAll returns every descendant matching the CSS selector sel.
	FindAll(ctx context.Context, sel string) ([]Element, error)
	// Click activates the element from script, bypassing overlays that
	// would intercept a synthetic mouse event. The click is dispatched on
	// the element itself, never on its descendants.
	Click(ctx context.Context) error
	// MouseClick presses the left mouse button at the centre of the
	// element, scrolling it into view first. The event reaches whatever is
	// drawn there, so clicking a wrapper activates the label or control it
	// contains.
	MouseClick(ctx context.Context) error
	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView(ctx context.Context) error
}

// IsXPath reports whether sel is an XPath expression rather than a CSS
// selector. Element-relative lookups only accept CSS.
func IsXPath(sel string) bool {
	return strings.HasPrefix(sel, "/") || strings.HasPrefix(sel, "(")
}
