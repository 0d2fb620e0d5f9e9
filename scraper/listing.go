package scraper

import (
	"context"
	"fmt"

	"github.com/pevans/presscorner/browser"
	"github.com/pevans/presscorner/document"
)

// paginate walks the result pages in order, handing every listing item to
// the detail extractor and its document to the collector, until a stop
// condition holds or no next page exists.
func (s *Scraper) paginate(ctx context.Context, collector *Collector) (Stop, error) {
	sel := s.config.Selectors

	for page := 1; ; page++ {
		items, err := s.session.FindAll(ctx, sel.ListItem)
		if err != nil {
			return StopFailed, fmt.Errorf("page %d: listing items: %w", page, err)
		}
		s.logger.Debug("result page", "page", page, "items", len(items))

		for _, item := range items {
			doc, err := s.candidate(ctx, item)
			if err != nil {
				return StopFailed, fmt.Errorf("page %d: %w", page, err)
			}

			// Stop before opening the detail page of a document that would
			// not be collected anyway.
			if outcome := collector.Admit(doc); outcome.Stopped() {
				return s.stopOn(outcome, doc), nil
			}

			text, ok, err := s.readDetail(ctx, doc.WebLink)
			if err != nil {
				return StopFailed, fmt.Errorf("page %d: %w", page, err)
			}
			if !ok {
				continue
			}
			doc.Text = text

			switch outcome := collector.Accept(doc); outcome {
			case Accepted:
				s.logger.Info("find document",
					"name", doc.Title,
					"link", doc.WebLink,
					"publication_date", doc.PubDate,
				)
			case Skipped:
				s.logger.Debug("document refused", "link", doc.WebLink)
			default:
				return s.stopOn(outcome, doc), nil
			}
		}

		if collector.Full() {
			s.logger.Info("max count articles reached", "max", s.config.MaxDocuments)
			return StopMaxReached, nil
		}

		more, err := s.nextPage(ctx, page, items)
		if err != nil {
			return StopFailed, err
		}
		if !more {
			return StopExhausted, nil
		}
	}
}

// stopOn logs a stop outcome of the collector and maps it to the scrape's
// Stop.
func (s *Scraper) stopOn(outcome Outcome, doc document.Document) Stop {
	if outcome == StoppedDuplicate {
		s.logger.Info("find already existing document", "link", doc.WebLink)
		return StopDuplicate
	}
	s.logger.Info("max count articles reached", "max", s.config.MaxDocuments)
	return StopMaxReached
}

// nextPage activates the next-page control and waits for the listing to
// change. It reports false when there is no next page, or when activating
// it did not change the listing.
func (s *Scraper) nextPage(ctx context.Context, page int, items []browser.Element) (bool, error) {
	sel := s.config.Selectors

	next, err := s.session.Find(ctx, sel.NextPage)
	if isNotFound(err) {
		s.logger.Debug("no next page", "page", page)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("page %d: next page control: %w", page, err)
	}

	marker := s.firstLink(ctx, items)

	if err := scrollAndClick(ctx, next); err != nil {
		return false, fmt.Errorf("page %d: next page control: %w", page, err)
	}

	changed := false
	err = s.settle(ctx, "next result page", func(ctx context.Context) (bool, error) {
		current, err := s.session.FindAll(ctx, sel.ListItem)
		if err != nil {
			return false, err
		}
		if len(current) == 0 {
			return false, nil
		}
		changed = marker == "" || s.firstLink(ctx, current) != marker
		return changed, nil
	})
	if err != nil {
		return false, fmt.Errorf("page %d: %w", page+1, err)
	}

	if !changed {
		s.logger.Warn("next page did not change the listing, stopping", "page", page)
		return false, nil
	}

	return true, nil
}

// firstLink returns the link of the first listing item, or "" when it
// cannot be read. It identifies a result page.
func (s *Scraper) firstLink(ctx context.Context, items []browser.Element) string {
	if len(items) == 0 {
		return ""
	}
	link, err := items[0].Find(ctx, s.config.Selectors.Link)
	if err != nil {
		return ""
	}
	href, _, err := link.Attr(ctx, "href")
	if err != nil {
		return ""
	}
	return href
}
