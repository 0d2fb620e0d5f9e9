package scraper

import (
	"time"

	"github.com/pevans/presscorner/document"
)

// Defaults for Config.
const (
	DefaultHost          = "https://ec.europa.eu/commission/presscorner/home/en"
	DefaultMaxDocuments  = 100
	DefaultDetailTimeout = 20 * time.Second
	DefaultSettleTimeout = 10 * time.Second
	DefaultPollInterval  = 250 * time.Millisecond
)

// Selectors locates every control and field the scraper reads. Session
// level selectors may be XPath; selectors applied inside another element
// (PolicyLabel, Title, Meta, Link, Abstract) must be CSS.
type Selectors struct {
	// Filter panel
	MoreCriteria   string `yaml:"more_criteria"`
	PolicyList     string `yaml:"policy_list"`
	PolicyCheckbox string `yaml:"policy_checkbox"`
	PolicyLabel    string `yaml:"policy_label"` // inside PolicyCheckbox
	Submit         string `yaml:"submit"`

	// Listing
	ListItem string `yaml:"list_item"`
	Title    string `yaml:"title"`
	Meta     string `yaml:"meta"` // first: document type, second: date
	Link     string `yaml:"link"`
	Abstract string `yaml:"abstract"`
	NextPage string `yaml:"next_page"`

	// Detail page
	DetailContainer string `yaml:"detail_container"`
	DetailText      string `yaml:"detail_text"`
}

// DefaultSelectors returns the selectors of the live press corner.
func DefaultSelectors() Selectors {
	return Selectors{
		MoreCriteria:    "//*[contains(text(),'More criteria')]",
		PolicyList:      "//label[@for='filter-parea']/..//div[@class='ecl-select__multiple']",
		PolicyCheckbox:  "div.ecl-checkbox",
		PolicyLabel:     "label",
		Submit:          "button[type='submit']",
		ListItem:        ".ecl-list-item",
		Title:           "h3",
		Meta:            ".ecl-meta__item",
		Link:            "a",
		Abstract:        "p",
		NextPage:        "a[title='Go to next page']",
		DetailContainer: ".ecl-container",
		DetailText:      ".ecl-paragraph-detail",
	}
}

// Config controls a single scrape.
type Config struct {
	// Host is the portal entry page.
	Host string
	// Policies are the policy-area labels to filter on. Labels must match
	// the checkbox text exactly. An empty list leaves the listing
	// unfiltered.
	Policies []string
	// MaxDocuments bounds the number of collected documents.
	MaxDocuments int
	// LastDocument, when set, is the newest document of a previous run.
	// Meeting it again ends the scrape.
	LastDocument *document.Document

	// DetailTimeout bounds the wait for a detail page's content.
	DetailTimeout time.Duration
	// SettleTimeout bounds the wait for the page to react to a
	// navigation, filter or pagination action.
	SettleTimeout time.Duration
	// PollInterval is the delay between readiness checks.
	PollInterval time.Duration

	// Location is used for publication dates that carry no zone.
	Location *time.Location

	Selectors Selectors
}

// DefaultConfig returns a configuration for the live portal with no policy
// filter.
func DefaultConfig() Config {
	return Config{
		Host:          DefaultHost,
		MaxDocuments:  DefaultMaxDocuments,
		DetailTimeout: DefaultDetailTimeout,
		SettleTimeout: DefaultSettleTimeout,
		PollInterval:  DefaultPollInterval,
		Location:      time.UTC,
		Selectors:     DefaultSelectors(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Host == "" {
		c.Host = def.Host
	}
	if c.MaxDocuments <= 0 {
		c.MaxDocuments = def.MaxDocuments
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = def.DetailTimeout
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = def.SettleTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Location == nil {
		c.Location = def.Location
	}
	if c.Selectors == (Selectors{}) {
		c.Selectors = def.Selectors
	}

	return c
}
