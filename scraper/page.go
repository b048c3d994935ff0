package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/pagecrawl/browser"
	"github.com/use-agent/pagecrawl/extractor"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
)

// fetchState collects whatever a fetch got through before it stopped.
type fetchState struct {
	traffic  int64
	pageType sites.PageType
	elements []models.Element
}

// GetPageData fetches req.URL and returns its classified, extracted content.
// It never fails: any error is reported in ErrorMessage alongside the
// timing and traffic measured up to that point, with no elements.
func (s *Service) GetPageData(ctx context.Context, req models.ParseRequest) *models.ParseResult {
	start := time.Now()
	s.logger.Info("start parsing", "url", req.URL, "credentials", req.HasCredentials())

	var st fetchState
	err := s.fetch(ctx, req, &st)
	if err != nil {
		st.elements = nil
		s.logger.Error("failed to fetch page content",
			"url", req.URL,
			"code", models.ErrorCode(err),
			"error", err,
		)
	}

	res := models.NewParseResult(start, st.traffic, string(st.pageType), st.elements, err)
	s.logger.Info("parsing completed",
		"url", req.URL,
		"pageType", res.PageType,
		"elements", res.ElementsCount,
		"elapsedMs", res.ElapsedTime,
		"networkTraffic", res.NetworkTraffic,
	)
	return res
}

// fetch runs the browser sequence. Numbered steps:
//
//  1. Ensure browser   – lazy launch, retried on the next call after failure
//  2. Open tab         – seeded with a cached session for gated URLs
//  3. DEFER: close     – always, wherever the sequence stops
//  4. Track traffic    – before navigation so every response is counted
//  5. Navigate         – bounded by the navigation timeout
//  6. Settle           – absorbs client-side redirects
//  7. Network idle     – watched from before navigation, skipped for types
//     that never go quiet
//  8. Classify
//  9. Sign in          – gated type without a seeded session
//  10. Extract
//  11. Store session   – gated type that produced at least one element
func (s *Service) fetch(ctx context.Context, req models.ParseRequest, st *fetchState) error {
	// ── 1. Ensure browser ─────────────────────────────────────────────
	if err := s.tabs.EnsureBrowser(ctx); err != nil {
		return err
	}

	// ── 2. Open tab ───────────────────────────────────────────────────
	tab, seeded, err := s.newPage(ctx, req)
	if err != nil {
		return err
	}

	// ── 3. Close on every path ────────────────────────────────────────
	defer func() { _ = tab.Close() }()

	// ── 4. Traffic ────────────────────────────────────────────────────
	stop := tab.TrackTraffic()
	defer func() { st.traffic = stop() }()

	// ── 5–7. Load ─────────────────────────────────────────────────────
	prefixed, hasPrefix := s.table.MatchURL(req.URL)
	skipIdle := hasPrefix && prefixed.SkipNetworkIdle
	if err := s.load(ctx, tab, req.URL, skipIdle); err != nil {
		return err
	}

	// ── 8. Classify ───────────────────────────────────────────────────
	d, err := s.table.Classify(ctx, tab, req.URL, s.cfg.ProbeTimeout)
	if err != nil {
		return err
	}
	st.pageType = d.Type
	s.logger.Info("parsing page", "url", req.URL, "pageType", d.Type)

	// ── 9. Sign in ────────────────────────────────────────────────────
	if d.RequiresLogin && !seeded {
		if err := s.auth.SignIn(ctx, req, tab); err != nil {
			return err
		}
		if err := s.load(ctx, tab, req.URL, d.SkipNetworkIdle); err != nil {
			return err
		}
	}

	// ── 10. Extract ───────────────────────────────────────────────────
	elements, err := extractor.Extract(ctx, tab, d)
	if err != nil {
		return err
	}
	st.elements = elements

	// ── 11. Remember the session ──────────────────────────────────────
	if d.RequiresLogin && len(elements) > 0 {
		s.storeSession(ctx, tab, d)
	}
	return nil
}

// load navigates, lets the page settle and optionally waits for the
// network to go idle. The idle watch starts before navigation so requests
// fired during load are tracked.
func (s *Service) load(ctx context.Context, tab browser.Tab, url string, skipIdle bool) error {
	var waitIdle func(time.Duration) error
	if !skipIdle {
		wait, release := tab.WatchNetworkIdle(ctx, s.cfg.IdleWindow)
		defer release()
		waitIdle = wait
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err := tab.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}

	if err := sleep(ctx, s.cfg.SettleDelay); err != nil {
		return categorizeError(err, "settle interrupted")
	}

	if waitIdle == nil {
		return nil
	}
	if err := waitIdle(s.cfg.IdleTimeout); err != nil {
		return categorizeError(err, "network idle wait failed")
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// categorizeError wraps raw errors into typed ScrapeErrors.
func categorizeError(err error, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
