package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pevans/presscorner/browser"
	"github.com/pevans/presscorner/document"
)

// summary holds the fields read from a listing item.
type summary struct {
	title    string
	docType  string
	rawDate  string
	link     string
	abstract *string
}

// candidate builds the document for one listing item from the listing
// alone. Its identity fields are final, so the stopping rules can be
// applied to it before the detail page is opened; Text is filled in by
// readDetail. Missing listing fields are errors.
func (s *Scraper) candidate(ctx context.Context, item browser.Element) (document.Document, error) {
	sum, err := s.readSummary(ctx, item)
	if err != nil {
		return document.Document{}, err
	}

	return document.New(document.Fields{
		Title:    sum.title,
		Abstract: sum.abstract,
		WebLink:  sum.link,
		DocType:  sum.docType,
		PubDate:  s.parseDate(sum.rawDate),
	}), nil
}

// readSummary reads title, metadata, link and abstract from a listing item.
func (s *Scraper) readSummary(ctx context.Context, item browser.Element) (summary, error) {
	sel := s.config.Selectors
	var sum summary

	title, err := textOf(ctx, item, sel.Title)
	if err != nil {
		return sum, fmt.Errorf("listing title: %w", err)
	}
	sum.title = normalizeSpace(title)

	meta, err := item.FindAll(ctx, sel.Meta)
	if err != nil {
		return sum, fmt.Errorf("listing metadata: %w", err)
	}
	if len(meta) < 2 {
		return sum, fmt.Errorf("listing metadata: %w: expected type and date in %s, found %d",
			browser.ErrNotFound, sel.Meta, len(meta))
	}
	docType, err := meta[0].Text(ctx)
	if err != nil {
		return sum, fmt.Errorf("listing document type: %w", err)
	}
	sum.docType = normalizeSpace(docType)

	rawDate, err := meta[1].Text(ctx)
	if err != nil {
		return sum, fmt.Errorf("listing date: %w", err)
	}
	sum.rawDate = normalizeSpace(rawDate)

	link, err := item.Find(ctx, sel.Link)
	if err != nil {
		return sum, fmt.Errorf("listing link: %w", err)
	}
	href, ok, err := link.Attr(ctx, "href")
	if err != nil {
		return sum, fmt.Errorf("listing link: %w", err)
	}
	if !ok || href == "" {
		return sum, fmt.Errorf("listing link: %w: no href", browser.ErrNotFound)
	}
	sum.link = href

	abstract, err := textOf(ctx, item, sel.Abstract)
	switch {
	case isNotFound(err):
		// No summary paragraph.
	case err != nil:
		return sum, fmt.Errorf("listing abstract: %w", err)
	default:
		if abstract = strings.TrimSpace(abstract); abstract != "" {
			sum.abstract = &abstract
		}
	}

	return sum, nil
}

// readDetail opens link in an auxiliary tab and reads the text body. ok is
// false when the page has no text body. The tab is always closed.
func (s *Scraper) readDetail(ctx context.Context, link string) (text string, ok bool, err error) {
	sel := s.config.Selectors

	tab, err := s.session.OpenTab(ctx)
	if err != nil {
		return "", false, err
	}
	defer func() {
		if cerr := tab.Close(); cerr != nil {
			s.logger.Warn("failed to close detail tab", "link", link, "err", cerr)
		}
	}()

	if err := tab.Navigate(ctx, link); err != nil {
		return "", false, err
	}
	if err := tab.WaitPresent(ctx, sel.DetailContainer, s.config.DetailTimeout); err != nil {
		return "", false, fmt.Errorf("detail page %s: %w", link, err)
	}

	s.logger.Debug("enter", "link", link)

	body, err := tab.Find(ctx, sel.DetailText)
	if isNotFound(err) {
		s.logger.Debug("no text, skipping", "link", link)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("detail page %s: %w", link, err)
	}

	text, err = body.Text(ctx)
	if err != nil {
		return "", false, fmt.Errorf("detail page %s: %w", link, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Debug("no text, skipping", "link", link)
		return "", false, nil
	}

	return text, true, nil
}

// parseDate parses a free-text listing date. Unparseable input yields nil.
func (s *Scraper) parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseIn(raw, s.config.Location)
	if err != nil {
		s.logger.Debug("unparseable publication date", "raw", raw, "err", err)
		return nil
	}
	return &t
}

func textOf(ctx context.Context, parent browser.Element, sel string) (string, error) {
	el, err := parent.Find(ctx, sel)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}
