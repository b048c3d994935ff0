package sites_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
)

// countingProber records every probe so tests can assert that URL-prefix
// matches never touch the page.
type countingProber struct {
	inner  dom.Prober
	probes []string
}

func (p *countingProber) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	p.probes = append(p.probes, selector)
	return p.inner.WaitSelector(ctx, selector, timeout)
}

func mustParse(t *testing.T, html string) *dom.Static {
	t.Helper()
	doc, err := dom.Parse(html)
	require.NoError(t, err)
	return doc
}

func TestDefaultTable_Validate(t *testing.T) {
	t.Parallel()
	require.NoError(t, sites.DefaultTable.Validate())
}

func TestDefaultTable_CatchAllIsLast(t *testing.T) {
	t.Parallel()

	last := sites.DefaultTable[len(sites.DefaultTable)-1]
	assert.Equal(t, sites.Generic, last.Type)
	assert.Equal(t, "body", last.Probe)
	assert.Empty(t, last.URLPrefixes)
}

func TestDefaultTable_SingleGatedType(t *testing.T) {
	t.Parallel()

	var gated []sites.PageType
	for _, d := range sites.DefaultTable {
		if d.RequiresLogin {
			gated = append(gated, d.Type)
		}
	}
	assert.Equal(t, []sites.PageType{sites.Twitter}, gated)
}

func TestTable_Validate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table sites.Table
	}{
		{"empty", sites.Table{}},
		{"no catch-all", sites.Table{{Type: sites.Substack, Probe: ".available-content", Content: "p"}, {Type: sites.Weather, URLPrefixes: []string{"https://weather.com/"}, Content: "p"}}},
		{"bad selector", sites.Table{{Type: sites.Generic, Probe: "body[", Content: "p"}}},
		{"empty content", sites.Table{{Type: sites.Generic, Probe: "body"}}},
		{"no prefix or probe", sites.Table{{Type: sites.Ghost, Content: "p"}, {Type: sites.Generic, Probe: "body", Content: "p"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, tt.table.Validate())
		})
	}
}

func TestTable_MatchURL(t *testing.T) {
	t.Parallel()

	d, ok := sites.DefaultTable.MatchURL("https://x.com/someone/status/1")
	require.True(t, ok)
	assert.Equal(t, sites.Twitter, d.Type)
	assert.True(t, d.RequiresLogin)
	assert.True(t, d.SkipNetworkIdle)

	d, ok = sites.DefaultTable.MatchURL("https://www.ft.com/content/abc")
	require.True(t, ok)
	assert.Equal(t, sites.FinancialTimes, d.Type)

	_, ok = sites.DefaultTable.MatchURL("https://example.com/x.com/")
	assert.False(t, ok)
}

func TestTable_Classify_PrefixSkipsProbes(t *testing.T) {
	t.Parallel()

	p := &countingProber{inner: mustParse(t, `<html><body><div class="available-content"><p>x</p></div></body></html>`)}

	d, err := sites.DefaultTable.Classify(context.Background(), p, "https://weather.com/weather/today", time.Second)
	require.NoError(t, err)
	assert.Equal(t, sites.Weather, d.Type)
	assert.Empty(t, p.probes)
}

func TestTable_Classify_OrderCorrectness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		html string
		want sites.PageType
	}{
		{
			name: "twitter by prefix",
			url:  "https://twitter.com/user/status/42",
			html: `<html><body><p>login wall</p></body></html>`,
			want: sites.Twitter,
		},
		{
			name: "substack embed before substack",
			url:  "https://blog.example.com/p/post",
			html: `<html><body><div id="entry"><div id="main"><iframe src="https://x.substack.com/embed"></iframe></div></div><div class="available-content"><p>a</p></div></body></html>`,
			want: sites.SubstackEmbed,
		},
		{
			name: "substack by structure on a custom domain",
			url:  "https://xn--qv9h.s.country/p/telegram-bots",
			html: `<html><body><div id="entry"><div id="main"><div class="available-content"><h2>Intro</h2><p>Body</p></div></div></div></body></html>`,
			want: sites.Substack,
		},
		{
			name: "ghost by generator meta",
			url:  "https://self-hosted.example.org/post/",
			html: `<html><head><meta name="generator" content="Ghost 5.80"></head><body><section class="gh-content"><p>x</p></section></body></html>`,
			want: sites.Ghost,
		},
		{
			name: "notion",
			url:  "https://team.notion.site/Page-123",
			html: `<html><body><div class="notion-page-content"><div class="notion-text-block">x</div></div></body></html>`,
			want: sites.Notion,
		},
		{
			name: "tilda",
			url:  "https://landing.example.com/",
			html: `<html><body><div class="t-records"><div class="t-title">x</div></div></body></html>`,
			want: sites.Tilda,
		},
		{
			name: "generic fallback",
			url:  "https://example.com/",
			html: `<html><body><h1>Example Domain</h1><p>text</p></body></html>`,
			want: sites.Generic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := sites.DefaultTable.Classify(context.Background(), mustParse(t, tt.html), tt.url, 10*time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Type)
		})
	}
}

func TestTable_Classify_GenericMatchesEmptyDocument(t *testing.T) {
	t.Parallel()

	// The HTML parser always synthesizes <body>, so the catch-all holds
	// even for an empty string.
	d, err := sites.DefaultTable.Classify(context.Background(), mustParse(t, ""), "https://example.com/", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, sites.Generic, d.Type)
}

func TestTable_Classify_UnknownWithoutCatchAll(t *testing.T) {
	t.Parallel()

	table := sites.DefaultTable[:len(sites.DefaultTable)-1]
	_, err := table.Classify(context.Background(), mustParse(t, `<html><body><p>plain</p></body></html>`), "https://example.com/plain", time.Millisecond)
	require.Error(t, err)

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeUnknownPageType, se.Code)
	assert.Contains(t, err.Error(), "https://example.com/plain")
}

func TestTable_Classify_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sites.DefaultTable.Classify(ctx, mustParse(t, `<html><body></body></html>`), "https://example.com/", time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.ErrorCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}
