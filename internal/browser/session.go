// Package browser manages isolated browser-automation sessions. Each
// session owns a chrome process and a uniquely-named temporary profile
// directory; both are torn down exactly once on release, whatever path
// the owning job exits through.
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
)

// Options is the immutable browser configuration, built once at startup
// from config and injected into the manager.
type Options struct {
	// ExecPath overrides the chrome binary location when set.
	ExecPath string
	// ProfileParent is the parent directory for temp profiles. Empty
	// means the system temp dir.
	ProfileParent string
	Headless      bool
	// SingleProcess disables the forked renderer. Required on linux
	// where renderer forks crash under the container runtime; must stay
	// off elsewhere or the devtools connection drops.
	SingleProcess bool
}

// Flags returns the chrome command-line flags for these options,
// excluding the per-session profile directory.
func (o Options) Flags() map[string]any {
	flags := map[string]any{
		"no-sandbox":            true,
		"disable-gpu":           true,
		"disable-dev-shm-usage": true,
		"disable-extensions":    true,
		"headless":              o.Headless,
	}
	if o.SingleProcess {
		flags["single-process"] = true
		flags["no-zygote"] = true
	}
	return flags
}

// Session is one exclusively-owned automation session. Nothing shares a
// session or its profile directory with another job.
type Session struct {
	ctx         context.Context
	profileDir  string
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	releaseOnce sync.Once
}

// ProfileDir returns the session's temp profile directory.
func (s *Session) ProfileDir() string { return s.profileDir }

// Manager acquires and releases sessions.
type Manager struct {
	opts   Options
	logger *logger.Logger
}

func NewManager(opts Options, logger *logger.Logger) *Manager {
	return &Manager{
		opts:   opts,
		logger: logger,
	}
}

// Acquire allocates a fresh profile directory and launches an isolated
// browser bound to it. The caller must Release the session on every
// exit path.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	profileDir, err := os.MkdirTemp(m.opts.ProfileParent, "gradewatch-profile-")
	if err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.UserDataDir(profileDir))
	if m.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(m.opts.ExecPath))
	}
	for name, value := range m.opts.Flags() {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Launch the process now so a broken binary surfaces here, not on
	// the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		if rmErr := os.RemoveAll(profileDir); rmErr != nil {
			m.logger.Error("failed to remove profile dir after launch failure", "dir", profileDir, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Session{
		ctx:         tabCtx,
		profileDir:  profileDir,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Release terminates the browser process and removes the profile
// directory. It runs at most once per session, never returns an error,
// and never panics: cleanup failures are logged only.
func (m *Manager) Release(s *Session) {
	if s == nil {
		return
	}
	s.releaseOnce.Do(func() {
		if s.cancelTab != nil {
			s.cancelTab()
		}
		if s.cancelAlloc != nil {
			// Cancelling the allocator context kills the chrome
			// process and waits for it to exit.
			s.cancelAlloc()
		}
		if s.profileDir != "" {
			if err := os.RemoveAll(s.profileDir); err != nil {
				m.logger.Error("failed to remove profile dir", "dir", s.profileDir, "error", err)
			}
		}
	})
}

// run executes chromedp actions bounded by the caller's context and
// the step timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := stepContext(s.ctx, ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// stepContext scopes one automation step: bound by the session
// lifetime, cancelled with the caller (covering both its deadline and
// explicit cancellation), and capped by the step timeout.
func stepContext(session, caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(session)
	stop := context.AfterFunc(caller, cancel)
	if timeout <= 0 {
		return ctx, func() { stop(); cancel() }
	}

	tctx, tcancel := context.WithTimeout(ctx, timeout)
	return tctx, func() { stop(); tcancel(); cancel() }
}

// Navigate loads the given URL, waiting at most timeout for the page
// load event.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.Navigate(url))
}

// WaitVisible blocks until the selector is visible or the timeout expires.
func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// SendKeys types a value into the selected element.
func (s *Session) SendKeys(ctx context.Context, sel, value string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.SendKeys(sel, value, chromedp.ByQuery))
}

// Click clicks the selected element.
func (s *Session) Click(ctx context.Context, sel string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.Click(sel, chromedp.ByQuery))
}

// OuterHTML returns the serialized markup of the selected element.
func (s *Session) OuterHTML(ctx context.Context, sel string, timeout time.Duration) (string, error) {
	var html string
	err := s.run(ctx, timeout, chromedp.OuterHTML(sel, &html, chromedp.ByQuery))
	return html, err
}

// FirstVisible polls the given selectors until one becomes visible and
// returns it. It returns ("", nil) when the budget expires with none
// visible; an error means the automation layer itself failed.
func (s *Session) FirstVisible(ctx context.Context, timeout time.Duration, sels ...string) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range sels {
			visible, err := s.isVisible(ctx, sel)
			if err != nil {
				return "", err
			}
			if visible {
				return sel, nil
			}
		}
		if time.Now().After(deadline) {
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (s *Session) isVisible(ctx context.Context, sel string) (bool, error) {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return !!(el && (el.offsetWidth || el.offsetHeight || el.getClientRects().length)); })()`,
		sel,
	)
	var visible bool
	if err := s.run(ctx, 2*time.Second, chromedp.Evaluate(script, &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// Cookies extracts the session cookies for replay as HTTP headers.
func (s *Session) Cookies(ctx context.Context) ([]model.Cookie, error) {
	var out []model.Cookie
	err := s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			out = append(out, model.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return out, nil
}
