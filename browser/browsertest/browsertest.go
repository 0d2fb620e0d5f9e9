// Package browsertest provides an in-memory browser.Session over static
// HTML pages, for testing code that drives a browser.
//
// Pages are parsed with goquery. Clicking an element with an href or a
// data-href attribute navigates the owning tab; any other click is
// recorded in Browser.Clicks. Clicking a checkbox input, or a label bound
// to one, toggles it. A script Click on any other element toggles nothing,
// as in a real browser; MouseClick hits the label or checkbox drawn inside
// the element. Only CSS selectors are supported.
package browsertest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/presscorner/browser"
)

// Browser holds the pages served to its sessions and records what the
// sessions did.
type Browser struct {
	pages map[string]string

	// Visits lists every navigation in order, across all tabs.
	Visits []string
	// Clicks lists the text of every clicked element that did not navigate.
	Clicks []string
	// TabsOpened counts auxiliary tabs ever opened.
	TabsOpened int

	open    int
	checked map[string]bool
}

// New creates a browser serving pages keyed by absolute URL.
func New(pages map[string]string) *Browser {
	return &Browser{pages: pages, checked: map[string]bool{}}
}

// Checked reports whether the checkbox with the given value (or id, when
// it has no value) is ticked. The state outlives navigation, the way a
// submitted form carries it to the next page.
func (b *Browser) Checked(name string) bool {
	return b.checked[name]
}

// Session returns a new primary tab with no page loaded.
func (b *Browser) Session() *Session {
	return &Session{b: b}
}

// OpenTabs returns the number of auxiliary tabs currently open.
func (b *Browser) OpenTabs() int {
	return b.open
}

// Visited reports whether url was ever navigated to.
func (b *Browser) Visited(url string) bool {
	for _, v := range b.Visits {
		if v == url {
			return true
		}
	}
	return false
}

// Clicked reports whether an element with the given text was clicked.
func (b *Browser) Clicked(text string) bool {
	for _, c := range b.Clicks {
		if c == text {
			return true
		}
	}
	return false
}

// Session is a single in-memory tab.
type Session struct {
	b      *Browser
	tab    bool
	closed bool
	url    string
	doc    *goquery.Document
}

var _ browser.Session = (*Session)(nil)

// URL returns the address of the loaded page.
func (s *Session) URL() string {
	return s.url
}

// Navigate implements browser.Session.
func (s *Session) Navigate(ctx context.Context, target string) error {
	if s.closed {
		return browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.b.Visits = append(s.b.Visits, target)

	page, ok := s.b.pages[target]
	if !ok {
		return fmt.Errorf("failed to navigate to %s: no such page", target)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", target, err)
	}

	s.url = target
	s.doc = doc
	return nil
}

// Find implements browser.Session.
func (s *Session) Find(ctx context.Context, sel string) (browser.Element, error) {
	all, err := s.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, sel)
	}
	return all[0], nil
}

// FindAll implements browser.Session.
func (s *Session) FindAll(ctx context.Context, sel string) ([]browser.Element, error) {
	if s.closed {
		return nil, browser.ErrClosed
	}
	if s.doc == nil {
		return nil, nil
	}
	return s.wrap(s.doc.Find(sel)), nil
}

// WaitPresent implements browser.Session. Pages are static, so the wait
// either succeeds immediately or times out.
func (s *Session) WaitPresent(ctx context.Context, sel string, timeout time.Duration) error {
	if _, err := s.Find(ctx, sel); err != nil {
		return fmt.Errorf("%w: %s after %s", browser.ErrTimeout, sel, timeout)
	}
	return nil
}

// OpenTab implements browser.Session.
func (s *Session) OpenTab(ctx context.Context) (browser.Session, error) {
	if s.closed {
		return nil, browser.ErrClosed
	}
	s.b.open++
	s.b.TabsOpened++
	return &Session{b: s.b, tab: true}, nil
}

// Close implements browser.Session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.tab {
		s.b.open--
	}
	return nil
}

func (s *Session) wrap(sel *goquery.Selection) []browser.Element {
	elements := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		elements = append(elements, &Element{s: s, doc: s.doc, sel: node})
	})
	return elements
}

// resolve makes ref absolute against the loaded page.
func (s *Session) resolve(ref string) string {
	base, err := url.Parse(s.url)
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// Element is a node of a Session's page.
type Element struct {
	s   *Session
	doc *goquery.Document
	sel *goquery.Selection
}

var _ browser.Element = (*Element)(nil)

func (e *Element) stale() error {
	if e.s.closed {
		return browser.ErrClosed
	}
	if e.doc != e.s.doc {
		return fmt.Errorf("stale element: page changed to %s", e.s.url)
	}
	return nil
}

// Text implements browser.Element.
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := e.stale(); err != nil {
		return "", err
	}
	return strings.TrimSpace(e.sel.Text()), nil
}

// Attr implements browser.Element. href is resolved against the page URL.
func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := e.stale(); err != nil {
		return "", false, err
	}
	value, ok := e.sel.Attr(name)
	if !ok {
		return "", false, nil
	}
	if name == "href" {
		value = e.s.resolve(value)
	}
	return value, true, nil
}

// Find implements browser.Element.
func (e *Element) Find(ctx context.Context, sel string) (browser.Element, error) {
	all, err := e.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, sel)
	}
	return all[0], nil
}

// FindAll implements browser.Element.
func (e *Element) FindAll(ctx context.Context, sel string) ([]browser.Element, error) {
	if err := e.stale(); err != nil {
		return nil, err
	}
	return e.s.wrap(e.sel.Find(sel)), nil
}

// Click implements browser.Element.
func (e *Element) Click(ctx context.Context) error {
	if err := e.stale(); err != nil {
		return err
	}

	for _, attr := range []string{"href", "data-href"} {
		if ref, ok := e.sel.Attr(attr); ok && ref != "" {
			return e.s.Navigate(ctx, e.s.resolve(ref))
		}
	}

	e.s.b.Clicks = append(e.s.b.Clicks, strings.Join(strings.Fields(e.sel.Text()), " "))
	e.toggle()
	return nil
}

// MouseClick implements browser.Element. The click lands on the first
// label or checkbox inside the element, or on the element itself.
func (e *Element) MouseClick(ctx context.Context) error {
	if err := e.stale(); err != nil {
		return err
	}

	target := e.sel
	if name := goquery.NodeName(target); name != "label" && name != "input" {
		if hit := target.Find("label, input[type=checkbox]").First(); hit.Length() > 0 {
			target = hit
		}
	}

	return (&Element{s: e.s, doc: e.doc, sel: target}).Click(ctx)
}

// toggle flips the checkbox the element controls, if any.
func (e *Element) toggle() {
	input := e.control()
	if input == nil {
		return
	}

	key, ok := input.Attr("value")
	if !ok || key == "" {
		key, _ = input.Attr("id")
	}

	e.s.b.checked[key] = !e.s.b.checked[key]
	if e.s.b.checked[key] {
		input.SetAttr("checked", "checked")
	} else {
		input.RemoveAttr("checked")
	}
}

// control returns the checkbox input activated by clicking the element: the
// element itself, or the input a label is bound to.
func (e *Element) control() *goquery.Selection {
	switch goquery.NodeName(e.sel) {
	case "input":
		if kind, _ := e.sel.Attr("type"); kind == "checkbox" {
			return e.sel
		}
	case "label":
		if id, ok := e.sel.Attr("for"); ok && id != "" {
			if input := e.doc.Find(fmt.Sprintf("input[type=checkbox][id=%q]", id)); input.Length() > 0 {
				return input.First()
			}
		}
		if input := e.sel.Find("input[type=checkbox]"); input.Length() > 0 {
			return input.First()
		}
	}
	return nil
}

// ScrollIntoView implements browser.Element.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.stale()
}
