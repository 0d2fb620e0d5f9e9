package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OtherData keys.
const (
	DocTypeKey  = "doc_type"
	CategoryKey = "category"
)

// ErrEmptyText is returned by Validate for a document without a text body.
var ErrEmptyText = errors.New("document text is empty")

// Document is a single press release extracted from the portal. A document
// is built once per surviving listing item and is not modified afterwards.
type Document struct {
	ID        uuid.UUID         `json:"id"`
	Title     string            `json:"title"`
	Abstract  *string           `json:"abstract,omitempty"`
	Text      string            `json:"text"`
	WebLink   string            `json:"web_link"`
	LocalLink *string           `json:"local_link,omitempty"`
	OtherData map[string]string `json:"other_data"`
	PubDate   *time.Time        `json:"pub_date,omitempty"`
	LoadDate  time.Time         `json:"load_date"`
}

// Fields holds the extracted values a Document is built from.
type Fields struct {
	Title    string
	Abstract *string
	Text     string
	WebLink  string
	DocType  string
	PubDate  *time.Time
}

// New creates a document from extracted fields. LoadDate is set to the
// current time.
func New(f Fields) Document {
	otherData := map[string]string{}
	if f.DocType != "" {
		otherData[DocTypeKey] = f.DocType
	}

	return Document{
		ID:        uuid.New(),
		Title:     f.Title,
		Abstract:  f.Abstract,
		Text:      f.Text,
		WebLink:   f.WebLink,
		OtherData: otherData,
		PubDate:   f.PubDate,
		LoadDate:  time.Now(),
	}
}

// DocType returns the listing's document type classification, or "".
func (d Document) DocType() string {
	return d.OtherData[DocTypeKey]
}

// Hash returns a stable fingerprint over the identity fields of the
// document: title, web link and publication date. Two extractions of the
// same press release on different runs produce the same hash.
func (d Document) Hash() string {
	h := sha256.New()
	h.Write([]byte(d.Title))
	h.Write([]byte{0})
	h.Write([]byte(d.WebLink))
	h.Write([]byte{0})
	if d.PubDate != nil {
		h.Write([]byte(d.PubDate.UTC().Format(time.RFC3339)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate reports whether the document can be collected.
func (d Document) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Flatten converts the document to a flat string map for display or
// downstream storage. Dates become Unix timestamps in seconds and absent
// values become "". other_data collapses to its "category" entry.
func (d Document) Flatten() map[string]string {
	return map[string]string{
		"title":      d.Title,
		"abstract":   deref(d.Abstract),
		"text":       d.Text,
		"web_link":   d.WebLink,
		"local_link": deref(d.LocalLink),
		"other_data": d.OtherData[CategoryKey],
		"pub_date":   timestamp(d.PubDate),
		"load_date":  timestamp(&d.LoadDate),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}
