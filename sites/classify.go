package sites

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/models"
)

// DefaultProbeTimeout bounds each DOM probe.
const DefaultProbeTimeout = 1500 * time.Millisecond

// Classify returns the first descriptor in t that matches the page.
//
// A URL prefix hit wins without touching the page. Otherwise the probe
// selector is given up to probeTimeout to appear. If nothing matches, the
// error carries ErrCodeUnknownPageType and the URL.
func (t Table) Classify(ctx context.Context, doc dom.Prober, rawURL string, probeTimeout time.Duration) (Descriptor, error) {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	for _, d := range t {
		if d.MatchesURL(rawURL) {
			return d, nil
		}
		if d.Probe == "" {
			continue
		}
		err := doc.WaitSelector(ctx, d.Probe, probeTimeout)
		if err == nil {
			return d, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Descriptor{}, models.NewScrapeError(models.ErrCodeTimeout, "classification interrupted", ctxErr)
		}
		slog.Debug("probe missed", "type", d.Type, "selector", d.Probe, "error", err)
	}
	return Descriptor{}, models.NewScrapeError(models.ErrCodeUnknownPageType, "unknown page type: "+rawURL, nil)
}
