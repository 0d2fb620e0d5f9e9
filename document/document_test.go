package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

// TestNew_SetsLoadDateAndDocType verifies construction defaults
func TestNew_SetsLoadDateAndDocType(t *testing.T) {
	before := time.Now()

	doc := New(Fields{
		Title:   "Commission adopts package",
		Text:    "Body",
		WebLink: "https://example.com/ip_23_1",
		DocType: "Press release",
	})

	after := time.Now()

	assert.NotEmpty(t, doc.ID, "should generate UUID")
	assert.Equal(t, "Press release", doc.DocType())
	assert.Equal(t, "Press release", doc.OtherData[DocTypeKey])
	assert.Nil(t, doc.LocalLink, "local link is never set")
	assert.False(t, doc.LoadDate.Before(before))
	assert.False(t, doc.LoadDate.After(after))
}

// TestNew_EmptyDocType verifies other_data stays empty without a type
func TestNew_EmptyDocType(t *testing.T) {
	doc := New(Fields{Title: "T", Text: "Body"})

	assert.NotNil(t, doc.OtherData)
	assert.Empty(t, doc.OtherData)
	assert.Equal(t, "", doc.DocType())
}

// TestHash_StableAcrossExtractions verifies the hash ignores per-run fields
func TestHash_StableAcrossExtractions(t *testing.T) {
	pub := time.Date(2023, 3, 12, 0, 0, 0, 0, time.UTC)
	fields := Fields{
		Title:   "Title",
		Text:    "Body one",
		WebLink: "https://example.com/a",
		PubDate: &pub,
	}

	first := New(fields)
	fields.Text = "Body two"
	second := New(fields)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Hash(), second.Hash())
}

// TestHash_IdentityFieldsMatter verifies each identity field changes the hash
func TestHash_IdentityFieldsMatter(t *testing.T) {
	pub := time.Date(2023, 3, 12, 0, 0, 0, 0, time.UTC)
	other := time.Date(2023, 3, 13, 0, 0, 0, 0, time.UTC)
	base := New(Fields{Title: "Title", Text: "x", WebLink: "https://example.com/a", PubDate: &pub})

	retitled := New(Fields{Title: "Other", Text: "x", WebLink: "https://example.com/a", PubDate: &pub})
	relinked := New(Fields{Title: "Title", Text: "x", WebLink: "https://example.com/b", PubDate: &pub})
	redated := New(Fields{Title: "Title", Text: "x", WebLink: "https://example.com/a", PubDate: &other})
	undated := New(Fields{Title: "Title", Text: "x", WebLink: "https://example.com/a"})

	assert.NotEqual(t, base.Hash(), retitled.Hash())
	assert.NotEqual(t, base.Hash(), relinked.Hash())
	assert.NotEqual(t, base.Hash(), redated.Hash())
	assert.NotEqual(t, base.Hash(), undated.Hash())
}

// TestHash_FieldBoundaries verifies concatenation ambiguity is avoided
func TestHash_FieldBoundaries(t *testing.T) {
	a := New(Fields{Title: "ab", WebLink: "c"})
	b := New(Fields{Title: "a", WebLink: "bc"})

	assert.NotEqual(t, a.Hash(), b.Hash())
}

// TestValidate verifies that text is required
func TestValidate(t *testing.T) {
	assert.NoError(t, New(Fields{Text: "Body"}).Validate())
	assert.ErrorIs(t, New(Fields{Text: ""}).Validate(), ErrEmptyText)
	assert.ErrorIs(t, New(Fields{Text: "  \n "}).Validate(), ErrEmptyText)
}

// TestFlatten_Complete verifies the flattened representation
func TestFlatten_Complete(t *testing.T) {
	pub := time.Date(2023, 3, 12, 0, 0, 0, 0, time.UTC)
	doc := New(Fields{
		Title:    "Title",
		Abstract: ptr("Summary"),
		Text:     "Body",
		WebLink:  "https://example.com/a",
		DocType:  "News article",
		PubDate:  &pub,
	})
	doc.OtherData[CategoryKey] = "Digital"

	flat := doc.Flatten()

	assert.Equal(t, "Title", flat["title"])
	assert.Equal(t, "Summary", flat["abstract"])
	assert.Equal(t, "Body", flat["text"])
	assert.Equal(t, "https://example.com/a", flat["web_link"])
	assert.Equal(t, "", flat["local_link"])
	assert.Equal(t, "Digital", flat["other_data"])
	assert.Equal(t, "1678579200", flat["pub_date"])
	assert.NotEmpty(t, flat["load_date"])
	assert.Len(t, flat, 8)
}

// TestFlatten_MissingOptionalFields verifies absent values become ""
func TestFlatten_MissingOptionalFields(t *testing.T) {
	doc := New(Fields{Title: "Title", Text: "Body", DocType: "News article"})

	flat := doc.Flatten()

	assert.Equal(t, "", flat["abstract"])
	assert.Equal(t, "", flat["pub_date"])
	assert.Equal(t, "", flat["other_data"], "doc_type is not the category entry")
}

// TestFlatten_ZeroLoadDate verifies a zero load date is rendered empty
func TestFlatten_ZeroLoadDate(t *testing.T) {
	doc := Document{Title: "T"}

	flat := doc.Flatten()
	require.Contains(t, flat, "load_date")
	assert.Equal(t, "", flat["load_date"])
}
