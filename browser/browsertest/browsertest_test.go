package browsertest

import (
	"context"
	"testing"
	"time"

	"github.com/pevans/presscorner/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homePage = `<html><body>
<button class="toggle">Open  panel</button>
<a class="next" href="/page/2">Next</a>
<button type="submit" data-href="https://site.test/results">Search</button>
<ul><li class="item"><h3>First</h3></li><li class="item"><h3>Second</h3></li></ul>
</body></html>`

func newTestBrowser() *Browser {
	return New(map[string]string{
		"https://site.test/":        homePage,
		"https://site.test/page/2":  `<html><body><p class="body">Page two</p></body></html>`,
		"https://site.test/results": `<html><body><p class="body">Results</p></body></html>`,
	})
}

// TestNavigate_UnknownPage verifies missing pages are errors
func TestNavigate_UnknownPage(t *testing.T) {
	b := newTestBrowser()

	err := b.Session().Navigate(context.Background(), "https://site.test/missing")

	assert.Error(t, err)
	assert.True(t, b.Visited("https://site.test/missing"), "attempts are recorded")
}

// TestFind_NotFound verifies lookups do not block and report ErrNotFound
func TestFind_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestBrowser().Session()
	require.NoError(t, s.Navigate(ctx, "https://site.test/"))

	_, err := s.Find(ctx, ".absent")
	assert.ErrorIs(t, err, browser.ErrNotFound)

	all, err := s.FindAll(ctx, ".absent")
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestFindAll_DocumentOrder verifies elements come back in page order
func TestFindAll_DocumentOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestBrowser().Session()
	require.NoError(t, s.Navigate(ctx, "https://site.test/"))

	items, err := s.FindAll(ctx, "li.item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	title, err := items[1].Find(ctx, "h3")
	require.NoError(t, err)
	text, err := title.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second", text)
}

// TestAttr_ResolvesHref verifies relative links become absolute
func TestAttr_ResolvesHref(t *testing.T) {
	ctx := context.Background()
	s := newTestBrowser().Session()
	require.NoError(t, s.Navigate(ctx, "https://site.test/"))

	next, err := s.Find(ctx, "a.next")
	require.NoError(t, err)

	href, ok, err := next.Attr(ctx, "href")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://site.test/page/2", href)

	_, ok, err = next.Attr(ctx, "title")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestClick_NavigatesOrRecords verifies both click behaviours
func TestClick_NavigatesOrRecords(t *testing.T) {
	ctx := context.Background()
	b := newTestBrowser()
	s := b.Session()
	require.NoError(t, s.Navigate(ctx, "https://site.test/"))

	toggle, err := s.Find(ctx, "button.toggle")
	require.NoError(t, err)
	require.NoError(t, toggle.Click(ctx))
	assert.True(t, b.Clicked("Open panel"), "click text is whitespace-normalised")
	assert.Equal(t, "https://site.test/", s.URL())

	submit, err := s.Find(ctx, "button[type='submit']")
	require.NoError(t, err)
	require.NoError(t, submit.Click(ctx))
	assert.Equal(t, "https://site.test/results", s.URL())

	// Elements from the previous page are stale now.
	_, err = toggle.Text(ctx)
	assert.Error(t, err)
}

// TestTabs verifies tab bookkeeping
func TestTabs(t *testing.T) {
	ctx := context.Background()
	b := newTestBrowser()
	s := b.Session()

	tab, err := s.OpenTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, b.OpenTabs())

	require.NoError(t, tab.Navigate(ctx, "https://site.test/page/2"))
	require.NoError(t, tab.WaitPresent(ctx, ".body", time.Second))

	err = tab.WaitPresent(ctx, ".absent", time.Second)
	assert.ErrorIs(t, err, browser.ErrTimeout)

	require.NoError(t, tab.Close())
	require.NoError(t, tab.Close(), "closing twice is harmless")
	assert.Equal(t, 0, b.OpenTabs())
	assert.Equal(t, 1, b.TabsOpened)

	err = tab.Navigate(ctx, "https://site.test/")
	assert.ErrorIs(t, err, browser.ErrClosed)
}

const checkboxPage = `<html><body>
<div class="ecl-checkbox">
  <input type="checkbox" id="parea-fraud" value="Fraud prevention">
  <label for="parea-fraud">Fraud prevention</label>
</div>
<div class="ecl-checkbox"><label><input type="checkbox" value="Fisheries"> Fisheries</label></div>
<a href="/next">Next</a>
</body></html>`

func newCheckboxSession(t *testing.T) (*Browser, *Session) {
	b := New(map[string]string{
		"https://site.test/form": checkboxPage,
		"https://site.test/next": `<html><body></body></html>`,
	})
	s := b.Session()
	require.NoError(t, s.Navigate(context.Background(), "https://site.test/form"))
	return b, s
}

// TestClick_WrapperDoesNotToggle verifies a script click on a checkbox
// wrapper leaves the checkbox alone
func TestClick_WrapperDoesNotToggle(t *testing.T) {
	ctx := context.Background()
	b, s := newCheckboxSession(t)

	wrapper, err := s.Find(ctx, "div.ecl-checkbox")
	require.NoError(t, err)
	require.NoError(t, wrapper.Click(ctx))

	assert.False(t, b.Checked("Fraud prevention"))
	assert.True(t, b.Clicked("Fraud prevention"), "the click itself is recorded")
}

// TestMouseClick_WrapperTicksItsCheckbox verifies the label inside the
// wrapper receives the mouse click
func TestMouseClick_WrapperTicksItsCheckbox(t *testing.T) {
	ctx := context.Background()
	b, s := newCheckboxSession(t)

	wrappers, err := s.FindAll(ctx, "div.ecl-checkbox")
	require.NoError(t, err)
	require.Len(t, wrappers, 2)

	require.NoError(t, wrappers[0].MouseClick(ctx))
	require.NoError(t, wrappers[1].MouseClick(ctx))
	assert.True(t, b.Checked("Fraud prevention"), "label bound by for")
	assert.True(t, b.Checked("Fisheries"), "label wrapping its input")

	require.NoError(t, wrappers[0].MouseClick(ctx))
	assert.False(t, b.Checked("Fraud prevention"), "a second click unticks")
}

// TestClick_CheckboxInputToggles verifies clicking the input directly
func TestClick_CheckboxInputToggles(t *testing.T) {
	ctx := context.Background()
	b, s := newCheckboxSession(t)

	input, err := s.Find(ctx, "#parea-fraud")
	require.NoError(t, err)
	require.NoError(t, input.Click(ctx))

	assert.True(t, b.Checked("Fraud prevention"))
	checked, ok, err := input.Attr(ctx, "checked")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "checked", checked)
}

// TestMouseClick_Navigates verifies a mouse click on a link follows it
func TestMouseClick_Navigates(t *testing.T) {
	ctx := context.Background()
	b, s := newCheckboxSession(t)

	link, err := s.Find(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, link.MouseClick(ctx))

	assert.Equal(t, "https://site.test/next", s.URL())
	assert.True(t, b.Visited("https://site.test/next"))
}
