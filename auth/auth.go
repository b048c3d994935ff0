// Package auth drives the scripted sign-in for gated site types.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pagecrawl/models"
)

// DefaultStepTimeout bounds each wait in a login flow.
const DefaultStepTimeout = 15 * time.Second

// Page is the subset of a browser tab the login flow drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error
	Input(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
}

// Flow describes a two-step username/password login form.
type Flow struct {
	LoginURL string

	UsernameSelector string
	UsernameSubmit   string
	PasswordSelector string
	PasswordSubmit   string

	// LandingSelector appears once the signed-in UI has rendered.
	LandingSelector string

	StepTimeout time.Duration
}

// TwitterFlow signs in to X (formerly Twitter).
var TwitterFlow = Flow{
	LoginURL:         "https://x.com/i/flow/login",
	UsernameSelector: `input[autocomplete="username"]`,
	UsernameSubmit:   `[role="dialog"] button[role="button"]:not([aria-label])`,
	PasswordSelector: `input[name="password"]`,
	PasswordSubmit:   `[data-testid="LoginForm_Login_Button"]`,
	LandingSelector:  `[data-testid="AppTabBar_Home_Link"]`,
	StepTimeout:      DefaultStepTimeout,
}

// Authenticator signs in with per-request credentials, falling back to the
// configured defaults.
type Authenticator struct {
	flow            Flow
	defaultUsername string
	defaultPassword string
	logger          *slog.Logger
}

// New returns an Authenticator for flow. Empty defaults mean requests must
// carry their own credentials.
func New(flow Flow, defaultUsername, defaultPassword string, logger *slog.Logger) *Authenticator {
	if flow.StepTimeout <= 0 {
		flow.StepTimeout = DefaultStepTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		flow:            flow,
		defaultUsername: defaultUsername,
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

// Credentials resolves the username and password for req. Request values
// win over configured defaults field by field.
func (a *Authenticator) Credentials(req models.ParseRequest) (username, password string, err error) {
	username, password = req.Username, req.Password
	if username == "" {
		username = a.defaultUsername
	}
	if password == "" {
		password = a.defaultPassword
	}
	if username == "" || password == "" {
		return "", "", models.NewScrapeError(models.ErrCodeLoginFailed, "no credentials configured", nil)
	}
	return username, password, nil
}

// SignIn runs the login flow on page. It leaves the page on the landing
// screen; callers navigate back to their target afterwards.
func (a *Authenticator) SignIn(ctx context.Context, req models.ParseRequest, page Page) error {
	username, password, err := a.Credentials(req)
	if err != nil {
		return err
	}

	f := a.flow
	a.logger.Info("signing in", "login_url", f.LoginURL, "username", username)

	if err := page.Navigate(ctx, f.LoginURL); err != nil {
		return models.NewScrapeError(models.ErrCodeLoginFailed, "open login page", err)
	}

	steps := []struct {
		name     string
		selector string
		run      func() error
	}{
		{"username field", f.UsernameSelector, func() error { return page.Input(ctx, f.UsernameSelector, username) }},
		{"username submit", f.UsernameSubmit, func() error { return page.Click(ctx, f.UsernameSubmit) }},
		{"password field", f.PasswordSelector, func() error { return page.Input(ctx, f.PasswordSelector, password) }},
		{"password submit", f.PasswordSubmit, func() error { return page.Click(ctx, f.PasswordSubmit) }},
		{"landing page", f.LandingSelector, nil},
	}
	for _, s := range steps {
		if err := page.WaitSelector(ctx, s.selector, f.StepTimeout); err != nil {
			return stepError(s.name, err)
		}
		if s.run == nil {
			continue
		}
		if err := s.run(); err != nil {
			return models.NewScrapeError(models.ErrCodeLoginFailed, s.name, err)
		}
	}

	a.logger.Info("signed in", "username", username)
	return nil
}

// stepError reports a wait failure as a login timeout unless the caller's
// context was canceled outright.
func stepError(step string, err error) error {
	if errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeLoginFailed, "login interrupted", err)
	}
	return models.NewScrapeError(models.ErrCodeLoginTimeout, fmt.Sprintf("login timeout: waiting for %s", step), err)
}
