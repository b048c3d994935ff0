// Package extractor turns the nodes matched by a descriptor's content
// selector into normalized page elements.
package extractor

import (
	"context"
	"strings"

	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
)

// Extract queries d.Content against doc and returns one element per match
// whose normalized text is non-empty, in document order. Repeated text is
// kept as-is.
func Extract(ctx context.Context, doc dom.Querier, d sites.Descriptor) ([]models.Element, error) {
	nodes, err := doc.QueryAll(ctx, d.Content)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtraction, "query "+string(d.Type)+" content", err)
	}

	elements := make([]models.Element, 0, len(nodes))
	for _, n := range nodes {
		text := NormalizeText(n.Text)
		if text == "" {
			continue
		}
		elements = append(elements, models.Element{
			Text:    text,
			TagName: strings.ToLower(n.TagName),
		})
	}
	return elements, nil
}

// NormalizeText trims s, strips indentation and trailing blanks from every
// line, and collapses runs of empty lines left behind by nested markup into
// a single line break.
func NormalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
