package scraper

import (
	"context"
	"net/url"

	"github.com/use-agent/pagecrawl/browser"
	"github.com/use-agent/pagecrawl/models"
	"github.com/use-agent/pagecrawl/sites"
	"golang.org/x/net/publicsuffix"
)

// newPage opens a tab for req. When the URL belongs to a gated site type
// and a session for it is cached, the session cookies are installed before
// navigation and seeded reports true so the login flow is skipped. A
// session the browser refuses is dropped.
func (s *Service) newPage(ctx context.Context, req models.ParseRequest) (tab browser.Tab, seeded bool, err error) {
	tab, err = s.tabs.NewTab(ctx)
	if err != nil {
		return nil, false, err
	}

	d, ok := s.table.MatchURL(req.URL)
	if !ok || !d.RequiresLogin {
		return tab, false, nil
	}
	entry, ok := s.sessions.Get(string(d.Type))
	if !ok || len(entry.Cookies) == 0 {
		return tab, false, nil
	}

	cookies := withDomain(entry.Cookies, req.URL)
	if err := tab.SetCookies(ctx, cookies); err != nil {
		s.logger.Warn("session cookies rejected, signing in again",
			"pageType", d.Type,
			"error", err,
		)
		s.sessions.Forget(string(d.Type))
		return tab, false, nil
	}
	s.logger.Info("reusing cached session",
		"pageType", d.Type,
		"cookies", len(cookies),
		"storedAt", entry.StoredAt,
	)
	return tab, true, nil
}

// storeSession caches the cookies of a signed-in gated page. Failures only
// cost the next fetch a fresh login, so they are logged and dropped.
func (s *Service) storeSession(ctx context.Context, tab browser.Tab, d sites.Descriptor) {
	cookies, err := tab.Cookies(ctx, d.URLPrefixes)
	if err != nil {
		s.logger.Warn("failed to read session cookies", "pageType", d.Type, "error", err)
		return
	}
	if len(cookies) == 0 {
		return
	}
	s.sessions.Set(string(d.Type), cookies)
	s.logger.Info("session stored", "pageType", d.Type, "cookies", len(cookies))
}

// withDomain fills in a missing cookie domain with the registrable domain
// of rawURL so the cookie covers every subdomain of the site.
func withDomain(cookies []models.Cookie, rawURL string) []models.Cookie {
	domain := cookieDomain(rawURL)
	out := make([]models.Cookie, len(cookies))
	for i, c := range cookies {
		if c.Domain == "" {
			c.Domain = domain
		}
		if c.Path == "" {
			c.Path = "/"
		}
		out[i] = c
	}
	return out
}

func cookieDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return "." + etld1
}
