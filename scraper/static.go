package scraper

import (
	"context"
	"time"

	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/extractor"
	"github.com/use-agent/pagecrawl/models"
)

// ParseHTML classifies and extracts already-fetched markup without a
// browser. Gated types are extracted as-is since there is no session to
// sign in with. NetworkTraffic reports the size of html.
func (s *Service) ParseHTML(ctx context.Context, rawURL, html string) *models.ParseResult {
	start := time.Now()
	traffic := int64(len(html))

	doc, err := dom.Parse(html)
	if err != nil {
		return models.NewParseResult(start, traffic, "", nil,
			models.NewScrapeError(models.ErrCodeInvalidInput, "unparseable html", err))
	}

	d, err := s.table.Classify(ctx, doc, rawURL, s.cfg.ProbeTimeout)
	if err != nil {
		return models.NewParseResult(start, traffic, "", nil, err)
	}

	elements, err := extractor.Extract(ctx, doc, d)
	if err != nil {
		return models.NewParseResult(start, traffic, string(d.Type), nil, err)
	}

	s.logger.Info("parsed html",
		"url", rawURL,
		"pageType", d.Type,
		"elements", len(elements),
	)
	return models.NewParseResult(start, traffic, string(d.Type), elements, nil)
}
