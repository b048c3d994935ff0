// Package browser owns the headless Chrome process and the tabs opened on
// it for each fetch.
package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/models"
	"github.com/ysmood/gson"
)

// Manager lazily launches one shared browser. A failed launch leaves no
// handle behind, so the next EnsureBrowser tries again.
// It is safe for concurrent use.
type Manager struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
	filter *requestFilter

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   atomic.Bool
}

// NewManager returns a Manager that has not launched anything yet.
func NewManager(cfg config.BrowserConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		filter: newRequestFilter(cfg.BlockedResources, cfg.BlockAds, logger),
	}
}

// EnsureBrowser launches and connects the browser if it is not running.
func (m *Manager) EnsureBrowser(ctx context.Context) error {
	_, err := m.ensure(ctx)
	return err
}

// Ready reports whether a browser is connected.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

func (m *Manager) ensure(ctx context.Context) (*rod.Browser, error) {
	if m.closed.Load() {
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "browser manager closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "browser launch interrupted", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return m.browser, nil
	}

	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox).
		Set(flags.Flag("disable-setuid-sandbox")).
		Set(flags.Flag("disable-features"), "site-per-process").
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("no-first-run")).
		Delete(flags.Flag("enable-automation"))
	if m.cfg.BrowserBin != "" {
		l = l.Bin(m.cfg.BrowserBin)
	}
	if m.cfg.Proxy != "" {
		l = l.Proxy(m.cfg.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		m.logger.Error("browser launch failed", "error", err)
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "failed to launch browser", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		m.logger.Error("browser connect failed", "error", err)
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "failed to connect to browser", err)
	}

	m.browser = b
	m.launcher = l
	m.logger.Info("browser launched", "controlURL", controlURL, "headless", m.cfg.Headless)
	return b, nil
}

// NewTab opens a blank tab configured with the desktop identity (user
// agent, accept language, viewport, stealth script) and the request filter.
func (m *Manager) NewTab(ctx context.Context) (Tab, error) {
	b, err := m.ensure(ctx)
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "failed to open tab", err)
	}
	p := page.Context(ctx)

	if m.cfg.Stealth {
		if _, err := p.EvalOnNewDocument(stealth.JS); err != nil {
			m.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      m.cfg.UserAgent,
		AcceptLanguage: m.cfg.AcceptLanguage,
	}); err != nil {
		_ = page.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "failed to set user agent", err)
	}

	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = page.Close()
		return nil, models.NewScrapeError(models.ErrCodeBrowserUnavailable, "failed to set viewport", err)
	}

	if len(m.cfg.ExtraHeaders) > 0 {
		err := proto.NetworkSetExtraHTTPHeaders{Headers: toNetworkHeaders(m.cfg.ExtraHeaders)}.Call(p)
		if err != nil {
			m.logger.Warn("failed to set extra headers", "error", err)
		}
	}

	t := newRodTab(page, m.logger)
	if m.filter != nil {
		t.router = m.filter.install(p)
	}
	return t, nil
}

// toNetworkHeaders converts a plain string map to the protocol header map.
func toNetworkHeaders(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// Close shuts the browser down and kills the Chrome process. It is safe to
// call more than once.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher = nil
	}
	m.logger.Info("browser closed")
	return err
}
