// Package scraper sequences one page fetch: open a tab, navigate, classify,
// sign in when the page type is gated, extract, and report timing and
// traffic. Failures never escape; they land in the result's error message.
package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/pagecrawl/auth"
	"github.com/use-agent/pagecrawl/browser"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/sites"
)

// TabSource hands out fresh tabs on a shared browser.
type TabSource interface {
	EnsureBrowser(ctx context.Context) error
	NewTab(ctx context.Context) (browser.Tab, error)
}

// Service fetches and parses pages. It is safe for concurrent use; every
// fetch gets its own tab.
type Service struct {
	tabs     TabSource
	table    sites.Table
	auth     *auth.Authenticator
	sessions *cache.Sessions
	cfg      config.ScraperConfig
	logger   *slog.Logger
}

// New wires a Service. Zero timeouts fall back to the defaults and a nil
// logger means slog.Default().
func New(
	tabs TabSource,
	table sites.Table,
	authn *auth.Authenticator,
	sessions *cache.Sessions,
	cfg config.ScraperConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = config.Default().Scraper.NavigationTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = config.Default().Scraper.IdleTimeout
	}
	return &Service{
		tabs:     tabs,
		table:    table,
		auth:     authn,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}
