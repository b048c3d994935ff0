package extractor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/extractor"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
)

type failingQuerier struct{}

func (failingQuerier) QueryAll(context.Context, string) ([]dom.Node, error) {
	return nil, errors.New("target closed")
}

func substack(t *testing.T) sites.Descriptor {
	t.Helper()
	d, ok := sites.DefaultTable.Lookup(sites.Substack)
	require.True(t, ok)
	return d
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello", "Hello"},
		{"outer whitespace", "  \n\tHello world \n ", "Hello world"},
		{"nested markup indentation", "\n    Title\n\n        \n    Subtitle\n", "Title\nSubtitle"},
		{"crlf", "a\r\n\r\n\r\nb", "a\nb"},
		{"whitespace only", " \n\t \n ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, extractor.NormalizeText(tt.in))
		})
	}
}

func TestExtract_Substack(t *testing.T) {
	t.Parallel()

	doc, err := dom.Parse(`<html><body>
<div class="available-content">
  <h2>Headline</h2>
  <p>   First paragraph.  </p>
  <p>

  </p>
  <ul>
    <li>
      <p>Nested item</p>
    </li>
    <li>Second</li>
  </ul>
  <p>Headline</p>
</div>
<p>Outside the post</p>
</body></html>`)
	require.NoError(t, err)

	elements, err := extractor.Extract(context.Background(), doc, substack(t))
	require.NoError(t, err)

	assert.Equal(t, []models.Element{
		{Text: "Headline", TagName: "h2"},
		{Text: "First paragraph.", TagName: "p"},
		{Text: "Nested item", TagName: "li"},
		{Text: "Nested item", TagName: "p"},
		{Text: "Second", TagName: "li"},
		{Text: "Headline", TagName: "p"},
	}, elements)
}

func TestExtract_NeverReturnsBlankText(t *testing.T) {
	t.Parallel()

	doc, err := dom.Parse(`<html><body><h1> </h1><p>&nbsp;</p><p>	</p><li>ok</li></body></html>`)
	require.NoError(t, err)

	generic, ok := sites.DefaultTable.Lookup(sites.Generic)
	require.True(t, ok)

	elements, err := extractor.Extract(context.Background(), doc, generic)
	require.NoError(t, err)
	for _, el := range elements {
		assert.NotEmpty(t, extractor.NormalizeText(el.Text), "element %+v", el)
	}
	assert.Contains(t, elements, models.Element{Text: "ok", TagName: "li"})
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	doc, err := dom.Parse(`<html><body><h1>A</h1><p>B</p><ul><li>C</li></ul></body></html>`)
	require.NoError(t, err)

	generic, _ := sites.DefaultTable.Lookup(sites.Generic)
	first, err := extractor.Extract(context.Background(), doc, generic)
	require.NoError(t, err)
	second, err := extractor.Extract(context.Background(), doc, generic)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestExtract_EmptyPage(t *testing.T) {
	t.Parallel()

	doc, err := dom.Parse(`<html><body><div>no article here</div></body></html>`)
	require.NoError(t, err)

	elements, err := extractor.Extract(context.Background(), doc, substack(t))
	require.NoError(t, err)
	assert.NotNil(t, elements)
	assert.Empty(t, elements)
}

func TestExtract_QueryError(t *testing.T) {
	t.Parallel()

	_, err := extractor.Extract(context.Background(), failingQuerier{}, substack(t))
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeExtraction, models.ErrorCode(err))
}
