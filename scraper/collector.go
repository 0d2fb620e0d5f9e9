package scraper

import (
	"github.com/pevans/presscorner/document"
)

// Outcome is the result of offering a document to a Collector.
type Outcome int

const (
	// Accepted means the document was appended.
	Accepted Outcome = iota
	// Skipped means the document was refused but collection continues.
	Skipped
	// StoppedDuplicate means the document is the last known document of a
	// previous run; collection is over.
	StoppedDuplicate
	// StoppedMaxReached means the collector was already full; collection
	// is over.
	StoppedMaxReached
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Skipped:
		return "skipped"
	case StoppedDuplicate:
		return "stopped: duplicate"
	case StoppedMaxReached:
		return "stopped: max reached"
	default:
		return "unknown"
	}
}

// Stopped reports whether the outcome ends collection.
func (o Outcome) Stopped() bool {
	return o == StoppedDuplicate || o == StoppedMaxReached
}

// Collector accumulates documents in discovery order and enforces the
// stopping rules. Once a stop outcome has been returned, every later offer
// returns the same outcome.
type Collector struct {
	max      int
	lastHash string
	docs     []document.Document
	stopped  Outcome
}

// NewCollector creates a collector holding at most max documents. last
// may be nil.
func NewCollector(max int, last *document.Document) *Collector {
	c := &Collector{
		max:     max,
		stopped: Accepted,
	}
	if last != nil {
		c.lastHash = last.Hash()
	}
	return c
}

// Admit applies the stopping rules to doc without collecting it. Only the
// identity fields of doc are used, so it can be called before the text is
// read. It returns Accepted when doc may go on to Accept.
func (c *Collector) Admit(doc document.Document) Outcome {
	if c.stopped.Stopped() {
		return c.stopped
	}

	if c.lastHash != "" && doc.Hash() == c.lastHash {
		c.stopped = StoppedDuplicate
		return c.stopped
	}

	if c.Full() {
		c.stopped = StoppedMaxReached
		return c.stopped
	}

	return Accepted
}

// Accept offers doc to the collector. The duplicate rule is checked before
// the size rule.
func (c *Collector) Accept(doc document.Document) Outcome {
	if c.stopped.Stopped() {
		return c.stopped
	}

	if doc.Validate() != nil {
		return Skipped
	}

	if outcome := c.Admit(doc); outcome.Stopped() {
		return outcome
	}

	c.docs = append(c.docs, doc)
	return Accepted
}

// Full reports whether the collector holds its maximum.
func (c *Collector) Full() bool {
	return c.max > 0 && len(c.docs) >= c.max
}

// Len returns the number of collected documents.
func (c *Collector) Len() int {
	return len(c.docs)
}

// Documents returns a copy of the collected documents in discovery order.
func (c *Collector) Documents() []document.Document {
	out := make([]document.Document, len(c.docs))
	copy(out, c.docs)
	return out
}
