// Package scraper collects press releases from the European Commission
// press corner through a browser.Session.
//
// A scrape runs once: it applies the policy-area filter, walks the result
// pages in order, opens every listed article in an auxiliary tab and
// collects the extracted documents until the listing is exhausted, the
// last known document is met again, or the maximum count is reached.
package scraper

import (
	"context"
	"log/slog"

	"github.com/pevans/presscorner/browser"
	"github.com/pevans/presscorner/document"
	"github.com/pevans/presscorner/logging"
)

// SourceName identifies the portal in logs.
const SourceName = "eucommission"

// Stop tells why a scrape ended.
type Stop int

const (
	// StopExhausted means the last result page was processed.
	StopExhausted Stop = iota
	// StopDuplicate means the last known document was found again.
	StopDuplicate
	// StopMaxReached means MaxDocuments documents were collected.
	StopMaxReached
	// StopFailed means a required control was missing or the browser
	// failed; the documents collected so far are still returned.
	StopFailed
)

func (s Stop) String() string {
	switch s {
	case StopExhausted:
		return "exhausted"
	case StopDuplicate:
		return "duplicate"
	case StopMaxReached:
		return "max reached"
	case StopFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a scrape.
type Result struct {
	Documents []document.Document
	Stop      Stop
}

// Scraper drives a browser session through the press corner.
type Scraper struct {
	session browser.Session
	config  Config
	logger  *slog.Logger
}

// New creates a scraper. Zero config fields take their defaults; a nil
// logger uses slog.Default.
func New(session browser.Session, config Config, logger *slog.Logger) *Scraper {
	s := &Scraper{
		session: session,
		config:  config.withDefaults(),
		logger:  logging.Component(logger, "scraper"),
	}

	s.logger.Debug("parser init completed")
	s.logger.Info("set source", "source", SourceName)

	return s
}

// Scrape runs the scrape. The returned documents are in discovery order
// and never exceed MaxDocuments. A non-nil error comes with StopFailed and
// whatever was collected before the failure.
func (s *Scraper) Scrape(ctx context.Context) (Result, error) {
	collector := NewCollector(s.config.MaxDocuments, s.config.LastDocument)

	s.logger.Debug("parse process start")
	stop, err := s.parse(ctx, collector)

	result := Result{
		Documents: collector.Documents(),
		Stop:      stop,
	}

	if err != nil {
		result.Stop = StopFailed
		s.logger.Error("parsing stopped with error", "err", err, "collected", collector.Len())
		return result, err
	}

	s.logger.Info("parse process finished", "stop", stop.String(), "collected", collector.Len())
	return result, nil
}

// Content runs the scrape and returns the collected documents. It never
// fails: errors are logged and the partial result is returned. Use Scrape
// to tell completion from failure.
func (s *Scraper) Content(ctx context.Context) []document.Document {
	result, _ := s.Scrape(ctx)
	return result.Documents
}

func (s *Scraper) parse(ctx context.Context, collector *Collector) (Stop, error) {
	if err := s.open(ctx); err != nil {
		return StopFailed, err
	}

	if err := s.applyFilters(ctx); err != nil {
		return StopFailed, err
	}

	return s.paginate(ctx, collector)
}
