package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/pevans/presscorner/browser/browsertest"
	"github.com/pevans/presscorner/config"
	"github.com/pevans/presscorner/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHost = "https://press.test/home"

const testHome = `<html><body>
<button class="more-criteria">More criteria</button>
<div><label for="filter-parea">Policy area</label><div class="ecl-select__multiple">Select</div></div>
<div class="ecl-checkbox">Fraud prevention</div>
<button type="submit" data-href="https://press.test/results/1">Search</button>
</body></html>`

// Test helper: a one-page site listing the given release IDs in order
func createTestSite(ids ...string) map[string]string {
	listing := `<html><body><ul>`
	site := map[string]string{testHost: testHome}
	for _, id := range ids {
		listing += `<li class="ecl-list-item"><a href="/detail/` + id + `"><h3>Release ` + id + `</h3></a>` +
			`<span class="ecl-meta__item">Press release</span><span class="ecl-meta__item">12 March 2023</span></li>`
		site["https://press.test/detail/"+id] = `<html><body><div class="ecl-container">` +
			`<div class="ecl-paragraph-detail">Body of ` + id + `</div></div></body></html>`
	}
	site["https://press.test/results/1"] = listing + `</ul></body></html>`
	return site
}

// Test helper: a configuration pointing at the fixture site
func createTestConfig() *config.FileConfig {
	cfg := config.Default()
	cfg.Source.Host = testHost
	cfg.Source.Policies = nil
	cfg.Source.Selectors.MoreCriteria = "button.more-criteria"
	cfg.Source.Selectors.PolicyList = "label[for='filter-parea'] ~ div.ecl-select__multiple"
	cfg.Browser.DetailTimeout = "50ms"
	cfg.Browser.SettleTimeout = "50ms"
	cfg.Browser.PollInterval = "5ms"
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestStore(t *testing.T) (*store.DocumentStore, string) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	docStore, err := store.NewDocumentStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { docStore.Close() })
	return docStore, dbPath
}

type scrapeOutput struct {
	Documents []map[string]string `json:"documents"`
	Count     int                 `json:"count"`
	Stop      string              `json:"stop"`
}

// TestScrapeAndReport_JSON verifies flattened records are printed
func TestScrapeAndReport_JSON(t *testing.T) {
	b := browsertest.New(createTestSite("a", "b"))
	var out bytes.Buffer

	err := scrapeAndReport(context.Background(), b.Session(), createTestConfig(), nil, "json", &out, quietLogger())
	require.NoError(t, err)

	var got scrapeOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "exhausted", got.Stop)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "Release a", got.Documents[0]["title"])
	assert.Equal(t, "Body of a", got.Documents[0]["text"])
	assert.Equal(t, "https://press.test/detail/a", got.Documents[0]["web_link"])
	assert.Equal(t, "1678579200", got.Documents[0]["pub_date"])
}

// TestScrapeAndReport_Table verifies the table output and count line
func TestScrapeAndReport_Table(t *testing.T) {
	b := browsertest.New(createTestSite("a"))
	var out bytes.Buffer

	err := scrapeAndReport(context.Background(), b.Session(), createTestConfig(), nil, "table", &out, quietLogger())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Release a")
	assert.Contains(t, out.String(), "2023-03-12")
	assert.Contains(t, out.String(), "Collected 1 document(s), stop: exhausted")
}

// TestScrapeAndReport_StopsAtArchivedDocument verifies a second run only
// collects what is new
func TestScrapeAndReport_StopsAtArchivedDocument(t *testing.T) {
	docStore, _ := createTestStore(t)
	cfg := createTestConfig()

	first := browsertest.New(createTestSite("b", "a"))
	require.NoError(t, scrapeAndReport(context.Background(), first.Session(), cfg, docStore, "json", io.Discard, quietLogger()))

	second := browsertest.New(createTestSite("c", "b", "a"))
	var out bytes.Buffer
	require.NoError(t, scrapeAndReport(context.Background(), second.Session(), cfg, docStore, "json", &out, quietLogger()))

	var got scrapeOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "duplicate", got.Stop)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "Release c", got.Documents[0]["title"])
	assert.False(t, second.Visited("https://press.test/detail/b"), "the archived document is not opened")
	assert.False(t, second.Visited("https://press.test/detail/a"), "nothing past the archived document is opened")

	last, err := docStore.LastDocument()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "Release c", last.Title)

	runs, err := docStore.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

// TestScrapeAndReport_FailureKeepsPartialResult verifies output and storage
// happen before the error is returned
func TestScrapeAndReport_FailureKeepsPartialResult(t *testing.T) {
	docStore, _ := createTestStore(t)
	site := createTestSite("a", "b")
	delete(site, "https://press.test/detail/b")

	b := browsertest.New(site)
	var out bytes.Buffer
	err := scrapeAndReport(context.Background(), b.Session(), createTestConfig(), docStore, "json", &out, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape stopped early")

	var got scrapeOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "failed", got.Stop)
	assert.Equal(t, 1, got.Count)

	runs, err := docStore.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Stop)
}

// TestScrapeFlags_Apply verifies flags override the config file
func TestScrapeFlags_Apply(t *testing.T) {
	cfg := config.Default()
	flags := &scrapeFlags{
		policies:   []string{"Fraud prevention"},
		max:        5,
		dbPath:     "/tmp/press.db",
		verbose:    true,
		noHeadless: true,
	}

	flags.apply(cfg)

	assert.Equal(t, []string{"Fraud prevention"}, cfg.Source.Policies)
	assert.Equal(t, 5, cfg.Source.MaxDocuments)
	assert.Equal(t, "/tmp/press.db", cfg.Storage.DSN)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.False(t, cfg.Browser.Headless)
}

// TestScrapeFlags_NoFilter verifies the policy list can be cleared
func TestScrapeFlags_NoFilter(t *testing.T) {
	cfg := config.Default()
	(&scrapeFlags{noFilter: true}).apply(cfg)

	assert.Empty(t, cfg.Source.Policies)
	assert.Equal(t, config.Default().Source.MaxDocuments, cfg.Source.MaxDocuments, "unset flags change nothing")
}

// TestDocsCmd verifies archived documents are listed and shown
func TestDocsCmd(t *testing.T) {
	docStore, dbPath := createTestStore(t)
	b := browsertest.New(createTestSite("a", "b"))
	require.NoError(t, scrapeAndReport(context.Background(), b.Session(), createTestConfig(), docStore, "json", io.Discard, quietLogger()))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"docs", "--db", dbPath})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Release a")
	assert.Contains(t, out.String(), "Release b")

	docs, err := docStore.List(1)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"docs", "--db", dbPath, docs[0].ID.String()})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Body of a")
	assert.Contains(t, out.String(), "https://press.test/detail/a")
}

// TestDocsCmd_RequiresDB verifies a missing archive is reported
func TestDocsCmd_RequiresDB(t *testing.T) {
	t.Setenv("PRESSCORNER_DB", "")

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"docs"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document archive")
}

// TestRunsCmd verifies saved runs are listed
func TestRunsCmd(t *testing.T) {
	docStore, dbPath := createTestStore(t)
	b := browsertest.New(createTestSite("a"))
	require.NoError(t, scrapeAndReport(context.Background(), b.Session(), createTestConfig(), docStore, "json", io.Discard, quietLogger()))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"runs", "--db", dbPath})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "eucommission")
	assert.Contains(t, out.String(), "exhausted")
}

// TestTruncate verifies rune-safe truncation
func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Économ...", truncate("Économie et finances", 9))
}

// TestValidateFormat verifies unknown formats are rejected
func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json", "json", "table"))
	assert.Error(t, validateFormat("xml", "json", "table"))
}
