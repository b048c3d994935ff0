package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/pagecrawl/dom"
	"github.com/use-agent/pagecrawl/models"
)

// Tab is one browser tab used for a single fetch. It satisfies
// dom.Document for classification and extraction, and the login flow's
// page interface.
type Tab interface {
	dom.Document

	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WatchNetworkIdle starts tracking requests. Call it before Navigate:
	// requests already in flight when the watch starts are never seen.
	// wait blocks until no tracked request has been in flight for window
	// and gives up after timeout; call it at most once. release frees the
	// watch and is safe to defer unconditionally.
	WatchNetworkIdle(ctx context.Context, window time.Duration) (wait func(timeout time.Duration) error, release func())

	Input(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error

	// Cookies returns the cookies visible to urls, or to the current page
	// when urls is empty.
	Cookies(ctx context.Context, urls []string) ([]models.Cookie, error)
	SetCookies(ctx context.Context, cookies []models.Cookie) error

	// TrackTraffic starts summing the bytes received by the tab. The
	// returned func stops tracking and reports the total; it may be
	// called more than once.
	TrackTraffic() (stop func() int64)

	// Close releases the tab. It is safe to call more than once.
	Close() error
}

// queryAllJS collects text and tag of every match in one round trip.
const queryAllJS = `(selector) => Array.from(document.querySelectorAll(selector), el => ({
	text: el.textContent || "",
	tagName: el.tagName || "",
}))`

type rodTab struct {
	page   *rod.Page
	router *rod.HijackRouter
	logger *slog.Logger
	once   sync.Once
}

var _ Tab = (*rodTab)(nil)

func newRodTab(page *rod.Page, logger *slog.Logger) *rodTab {
	return &rodTab{page: page, logger: logger}
}

func (t *rodTab) Navigate(ctx context.Context, url string) error {
	p := t.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (t *rodTab) WatchNetworkIdle(ctx context.Context, window time.Duration) (func(time.Duration) error, func()) {
	watchCtx, cancel := context.WithCancel(ctx)
	idle := t.page.Context(watchCtx).WaitRequestIdle(window, nil, nil, nil)

	wait := func(timeout time.Duration) error {
		timer := time.AfterFunc(timeout, cancel)
		idle()
		fired := !timer.Stop()
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("network idle: %w", err)
		}
		if fired {
			return fmt.Errorf("network idle after %s: %w", timeout, context.DeadlineExceeded)
		}
		return nil
	}
	return wait, cancel
}

func (t *rodTab) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := t.page.Context(waitCtx).Element(selector); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %w", dom.ErrNotFound, selector, err)
		}
		return fmt.Errorf("wait %s: %w", selector, err)
	}
	return nil
}

func (t *rodTab) QueryAll(ctx context.Context, selector string) ([]dom.Node, error) {
	res, err := t.page.Context(ctx).Eval(queryAllJS, selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}

	items := res.Value.Arr()
	nodes := make([]dom.Node, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, dom.Node{
			Text:    item.Get("text").Str(),
			TagName: strings.ToLower(item.Get("tagName").Str()),
		})
	}
	return nodes, nil
}

func (t *rodTab) Input(ctx context.Context, selector, text string) error {
	el, err := t.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input %s: %w", selector, err)
	}
	return nil
}

func (t *rodTab) Click(ctx context.Context, selector string) error {
	el, err := t.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (t *rodTab) Cookies(ctx context.Context, urls []string) ([]models.Cookie, error) {
	raw, err := t.page.Context(ctx).Cookies(urls)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return cookies, nil
}

func (t *rodTab) SetCookies(ctx context.Context, cookies []models.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	if err := t.page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

func (t *rodTab) TrackTraffic() func() int64 {
	var total atomic.Int64
	p, cancel := t.page.WithCancel()

	wait := p.EachEvent(func(e *proto.NetworkLoadingFinished) {
		total.Add(int64(e.EncodedDataLength))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	var once sync.Once
	return func() int64 {
		once.Do(func() {
			cancel()
			<-done
		})
		return total.Load()
	}
}

func (t *rodTab) Close() error {
	var err error
	t.once.Do(func() {
		if t.router != nil {
			_ = t.router.Stop()
		}
		err = t.page.Close()
		if err != nil {
			t.logger.Warn("tab close failed", "error", err)
		}
	})
	return err
}
