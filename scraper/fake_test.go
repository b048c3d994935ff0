package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/pagecrawl/browser"
	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/models"
)

// fakeBrowser serves canned HTML per URL. Unknown URLs fail navigation like
// an unresolvable host.
type fakeBrowser struct {
	mu sync.Mutex

	pages        map[string]string
	launchErr    error
	idleErr      error
	setCookieErr error

	// loginCookies are set on the jar when the password form is submitted.
	loginCookies []models.Cookie
	submitSel    string

	jar      []models.Cookie
	tabs     []*fakeTab
	visited  []string
	steps    []string
	seeded   [][]models.Cookie
	launches int
}

var _ TabSource = (*fakeBrowser)(nil)

func (b *fakeBrowser) EnsureBrowser(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.launches++
	if b.launchErr != nil {
		return models.NewScrapeError(models.ErrCodeBrowserUnavailable, "failed to launch browser", b.launchErr)
	}
	return ctx.Err()
}

func (b *fakeBrowser) NewTab(context.Context) (browser.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &fakeTab{browser: b}
	b.tabs = append(b.tabs, t)
	return t, nil
}

func (b *fakeBrowser) step(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, s)
}

func (b *fakeBrowser) closedTabs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.tabs {
		if t.closed {
			n++
		}
	}
	return n
}

type fakeTab struct {
	browser *fakeBrowser
	doc     *dom.Static
	traffic int64
	closed  bool
}

func (t *fakeTab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := t.browser
	b.mu.Lock()
	html, ok := b.pages[url]
	b.visited = append(b.visited, url)
	b.steps = append(b.steps, "navigate "+url)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("navigation failed: net::ERR_NAME_NOT_RESOLVED")
	}
	doc, err := dom.Parse(html)
	if err != nil {
		return err
	}
	t.doc = doc
	t.traffic += int64(len(html))
	return nil
}

func (t *fakeTab) WatchNetworkIdle(ctx context.Context, _ time.Duration) (func(time.Duration) error, func()) {
	b := t.browser
	b.step("watch")
	wait := func(time.Duration) error {
		b.step("idle")
		if b.idleErr != nil {
			return b.idleErr
		}
		return ctx.Err()
	}
	return wait, func() { b.step("release") }
}

func (t *fakeTab) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if t.doc == nil {
		return errors.New("no document")
	}
	return t.doc.WaitSelector(ctx, selector, timeout)
}

func (t *fakeTab) QueryAll(ctx context.Context, selector string) ([]dom.Node, error) {
	if t.doc == nil {
		return nil, errors.New("no document")
	}
	return t.doc.QueryAll(ctx, selector)
}

func (t *fakeTab) Input(context.Context, string, string) error { return nil }

func (t *fakeTab) Click(_ context.Context, selector string) error {
	b := t.browser
	b.mu.Lock()
	defer b.mu.Unlock()
	if selector == b.submitSel {
		b.jar = append(b.jar, b.loginCookies...)
	}
	return nil
}

func (t *fakeTab) Cookies(context.Context, []string) ([]models.Cookie, error) {
	b := t.browser
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Cookie(nil), b.jar...), nil
}

func (t *fakeTab) SetCookies(_ context.Context, cookies []models.Cookie) error {
	b := t.browser
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.setCookieErr != nil {
		return b.setCookieErr
	}
	b.seeded = append(b.seeded, cookies)
	b.jar = append(b.jar, cookies...)
	return nil
}

func (t *fakeTab) TrackTraffic() func() int64 {
	return func() int64 { return t.traffic }
}

func (t *fakeTab) Close() error {
	t.browser.mu.Lock()
	defer t.browser.mu.Unlock()
	t.closed = true
	return nil
}
