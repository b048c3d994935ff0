// Package sites holds the ordered page-type table and the classifier that
// walks it.
//
// Each Descriptor is a data-only rule: an optional URL prefix list that is
// checked without touching the page, an optional probe selector that must
// show up in the live DOM, and the content selector the extractor runs once
// the page is classified. The first descriptor that matches wins, and the
// table always ends with a catch-all that probes "body".
package sites

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// PageType names a family of pages that share markup.
type PageType string

const (
	Twitter        PageType = "Twitter"
	FinancialTimes PageType = "FinancialTimes"
	Weather        PageType = "Weather"
	SubstackEmbed  PageType = "SubstackEmbed"
	Substack       PageType = "Substack"
	Ghost          PageType = "Ghost"
	Notion         PageType = "Notion"
	Tilda          PageType = "Tilda"
	Generic        PageType = "Generic"
)

// Descriptor describes how to recognize and extract one page type.
type Descriptor struct {
	Type PageType

	// URLPrefixes match the request URL as-is. Any hit classifies the
	// page without probing.
	URLPrefixes []string

	// Probe is an existence check against the rendered DOM.
	Probe string

	// Content is the (possibly comma-joined) selector for extraction.
	Content string

	// RequiresLogin marks the gated site type.
	RequiresLogin bool

	// SkipNetworkIdle is set for sites whose pages never go quiet.
	SkipNetworkIdle bool
}

// MatchesURL reports whether rawURL starts with one of d's prefixes.
func (d Descriptor) MatchesURL(rawURL string) bool {
	for _, p := range d.URLPrefixes {
		if strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

// Table is an ordered list of descriptors. Order is significant.
type Table []Descriptor

// DefaultTable is the process-wide descriptor list.
var DefaultTable = Table{
	{
		Type:            Twitter,
		URLPrefixes:     []string{"https://x.com/", "https://twitter.com/", "https://www.twitter.com/"},
		Content:         `article [data-testid="tweetText"]`,
		RequiresLogin:   true,
		SkipNetworkIdle: true,
	},
	{
		Type:        FinancialTimes,
		URLPrefixes: []string{"https://www.ft.com/content/"},
		Content:     "#article-body h2, #article-body p, #article-body li",
	},
	{
		Type:        Weather,
		URLPrefixes: []string{"https://weather.com/"},
		Content:     `main h1, main h2, [data-testid="TemperatureValue"], [data-testid="wxPhrase"]`,
	},
	{
		Type:    SubstackEmbed,
		Probe:   "div#entry div#main iframe",
		Content: ".available-content h2, .available-content p, .available-content ul li",
	},
	{
		Type:    Substack,
		Probe:   ".available-content",
		Content: ".available-content h2, .available-content p, .available-content ul li",
	},
	{
		Type:    Ghost,
		Probe:   `meta[name="generator"][content^="Ghost"]`,
		Content: ".gh-content h2, .gh-content h3, .gh-content p, .gh-content li",
	},
	{
		Type:  Notion,
		Probe: ".notion-page-content",
		Content: ".notion-page-content .notion-header-block, .notion-page-content .notion-sub_header-block, " +
			".notion-page-content .notion-text-block, .notion-page-content .notion-bulleted_list-block",
	},
	{
		Type:    Tilda,
		Probe:   ".t-records",
		Content: ".t-records .t-title, .t-records .t-descr, .t-records .t-text",
	},
	{
		Type:    Generic,
		Probe:   "body",
		Content: "h1, h2, h3, p, li",
	},
}

// MatchURL returns the first descriptor whose prefix matches rawURL.
// It never touches the page, so callers use it before navigation.
func (t Table) MatchURL(rawURL string) (Descriptor, bool) {
	for _, d := range t {
		if d.MatchesURL(rawURL) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Lookup returns the descriptor for a page type.
func (t Table) Lookup(pt PageType) (Descriptor, bool) {
	for _, d := range t {
		if d.Type == pt {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Validate checks that every selector compiles and that the table ends
// with a probe-only catch-all.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("sites: empty table")
	}
	for i, d := range t {
		if d.Content == "" {
			return fmt.Errorf("sites: %s: empty content selector", d.Type)
		}
		if len(d.URLPrefixes) == 0 && d.Probe == "" {
			return fmt.Errorf("sites: %s: needs a URL prefix or a probe", d.Type)
		}
		for _, sel := range []string{d.Probe, d.Content} {
			if sel == "" {
				continue
			}
			if _, err := cascadia.ParseGroup(sel); err != nil {
				return fmt.Errorf("sites: %s (entry %d): bad selector %q: %w", d.Type, i, sel, err)
			}
		}
	}
	last := t[len(t)-1]
	if len(last.URLPrefixes) != 0 || last.Probe == "" {
		return fmt.Errorf("sites: last entry %s is not a catch-all", last.Type)
	}
	return nil
}
