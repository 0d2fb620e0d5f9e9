package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeSession is a Session backed by a Chrome tab driven over the
// DevTools protocol.
type ChromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	// allocCancel is set on the primary tab only and shuts Chrome down.
	allocCancel context.CancelFunc
	logger      *slog.Logger
	closed      bool
}

// NewChromeSession starts Chrome with opts and returns its primary tab.
// Closing the returned session stops the browser.
func NewChromeSession(ctx context.Context, opts Options, logger *slog.Logger) (*ChromeSession, error) {
	if logger == nil {
		logger = slog.Default()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
	)

	// Start the browser now so that a missing binary is reported here
	// rather than on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("browser started", "headless", opts.Headless)

	return &ChromeSession{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// run executes actions in the tab. Cancelling ctx aborts the actions
// without closing the tab.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate implements Session.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	s.logger.Debug("entered web page", "url", url)
	return nil
}

// Find implements Session.
func (s *ChromeSession) Find(ctx context.Context, sel string) (Element, error) {
	nodes, err := s.query(ctx, sel, nil)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return &chromeElement{s: s, node: nodes[0]}, nil
}

// FindAll implements Session.
func (s *ChromeSession) FindAll(ctx context.Context, sel string) ([]Element, error) {
	nodes, err := s.query(ctx, sel, nil)
	if err != nil {
		return nil, err
	}
	return s.wrap(nodes), nil
}

// WaitPresent implements Session.
func (s *ChromeSession) WaitPresent(ctx context.Context, sel string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.run(waitCtx, chromedp.WaitReady(sel, by(sel)))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, sel, timeout)
	}
	return fmt.Errorf("failed to wait for %s: %w", sel, err)
}

// OpenTab implements Session. The new tab shares the browser of s.
func (s *ChromeSession) OpenTab(ctx context.Context) (Session, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(s.ctx)
	tab := &ChromeSession{
		ctx:    tabCtx,
		cancel: cancel,
		logger: s.logger,
	}

	// The target is created on first use and lives as long as the context
	// handed to that first Run, so it must be tabCtx itself.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return tab, nil
}

// Close implements Session.
func (s *ChromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if s.allocCancel != nil {
		s.allocCancel()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}

// query runs a non-blocking lookup for sel, optionally scoped to a parent
// node.
func (s *ChromeSession) query(ctx context.Context, sel string, parent *cdp.Node) ([]*cdp.Node, error) {
	var nodes []*cdp.Node

	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	if parent != nil {
		if IsXPath(sel) {
			return nil, fmt.Errorf("element lookup requires a CSS selector: %s", sel)
		}
		opts = append(opts, chromedp.ByQueryAll, chromedp.FromNode(parent))
	} else if IsXPath(sel) {
		opts = append(opts, chromedp.BySearch)
	} else {
		opts = append(opts, chromedp.ByQueryAll)
	}

	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return nodes, nil
}

func (s *ChromeSession) wrap(nodes []*cdp.Node) []Element {
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{s: s, node: n})
	}
	return elements
}

// by picks the query strategy for a single-selector wait.
func by(sel string) chromedp.QueryOption {
	if IsXPath(sel) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

type chromeElement struct {
	s    *ChromeSession
	node *cdp.Node
}

// call runs fn with this bound to the element and decodes its return value
// into res when res is non-nil.
func (e *chromeElement) call(ctx context.Context, fn string, res any) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}

		v, exp, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return exp
		}

		if res == nil || v == nil || len(v.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(v.Value), res)
	}))
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, `function() { return this.innerText || this.textContent || ""; }`, &text); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (e *chromeElement) Attr(ctx context.Context, name string) (string, bool, error) {
	var value *string
	fn := fmt.Sprintf(`function() {
		const v = this[%[1]q];
		if (typeof v === "string") { return v; }
		return this.getAttribute(%[1]q);
	}`, name)
	if err := e.call(ctx, fn, &value); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (e *chromeElement) Find(ctx context.Context, sel string) (Element, error) {
	nodes, err := e.s.query(ctx, sel, e.node)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return &chromeElement{s: e.s, node: nodes[0]}, nil
}

func (e *chromeElement) FindAll(ctx context.Context, sel string) ([]Element, error) {
	nodes, err := e.s.query(ctx, sel, e.node)
	if err != nil {
		return nil, err
	}
	return e.s.wrap(nodes), nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.call(ctx, `function() { this.click(); }`, nil); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}

func (e *chromeElement) MouseClick(ctx context.Context) error {
	if err := e.s.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}

func (e *chromeElement) ScrollIntoView(ctx context.Context) error {
	if err := e.call(ctx, `function() { this.scrollIntoView(); }`, nil); err != nil {
		return fmt.Errorf("failed to scroll into view: %w", err)
	}
	return nil
}
