// Package portal drives the external academic portal: the login state
// machine over a browser session, and the cookie-replay HTTP endpoints
// for grade-book data. Selectors and endpoint paths are tightly bound
// to one portal's page structure.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
)

// Driver abstracts the browser-session operations the authenticator
// needs. *browser.Session implements it.
type Driver interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	SendKeys(ctx context.Context, sel, value string, timeout time.Duration) error
	Click(ctx context.Context, sel string, timeout time.Duration) error
	OuterHTML(ctx context.Context, sel string, timeout time.Duration) (string, error)
	FirstVisible(ctx context.Context, timeout time.Duration, sels ...string) (string, error)
	Cookies(ctx context.Context) ([]model.Cookie, error)
}

// Login page selectors.
const (
	selAccountField  = "#fieldAccount"
	selPasswordField = "#fieldPassword"
	selSubmitButton  = "#btn-enter-sign-in"

	// selErrorIndicator appears when the portal rejects credentials.
	selErrorIndicator = ".feedback-alert"
	// selConsentButton is the optional "stay signed in" prompt.
	selConsentButton = "#btn-kmsi-yes"
	// selLandmark is the post-login element that confirms a session
	// with course content.
	selLandmark = "#main-menu"
)

// Alternate navigation landmarks checked as a fallback. Finding one of
// these means the session is authenticated but course content may be
// unavailable.
var altLandmarks = []string{"#nav-main", "#mobile-nav-toggle"}

// authState enumerates progress through the login state machine.
// Terminal outcomes are carried by model.AuthResult.
type authState string

const (
	stateStart                authState = "start"
	stateLoginPageLoaded      authState = "login_page_loaded"
	stateCredentialsSubmitted authState = "credentials_submitted"
)

// Authenticator runs the login state machine. It never retries; retry
// decisions belong to the queue layer.
type Authenticator struct {
	loginURL string
	wait     time.Duration
	logger   *logger.Logger
}

func NewAuthenticator(loginURL string, wait time.Duration, logger *logger.Logger) *Authenticator {
	return &Authenticator{
		loginURL: loginURL,
		wait:     wait,
		logger:   logger,
	}
}

// Login submits credentials and classifies the outcome. The returned
// result is always terminal: one of the two authenticated statuses or a
// typed error status.
func (a *Authenticator) Login(ctx context.Context, d Driver, email, password string) model.AuthResult {
	if password == "" {
		return model.AuthResult{Status: model.StatusNoPassword, Err: model.ErrNoPasswordConfigured}
	}

	state := stateStart
	fail := func(err error) model.AuthResult {
		res := classify(err)
		a.logger.Debug("login attempt terminated", "state", string(state), "status", string(res.Status), "error", err)
		return res
	}

	if err := d.Navigate(ctx, a.loginURL, a.wait); err != nil {
		return fail(err)
	}
	if err := d.WaitVisible(ctx, selAccountField, a.wait); err != nil {
		return fail(err)
	}
	state = stateLoginPageLoaded

	if err := d.SendKeys(ctx, selAccountField, email, a.wait); err != nil {
		return fail(err)
	}
	if err := d.SendKeys(ctx, selPasswordField, password, a.wait); err != nil {
		return fail(err)
	}
	if err := d.Click(ctx, selSubmitButton, a.wait); err != nil {
		return fail(err)
	}
	state = stateCredentialsSubmitted

	// Race the three post-submit conditions within one wait budget.
	sel, err := d.FirstVisible(ctx, a.wait, selErrorIndicator, selConsentButton, selLandmark)
	if err != nil {
		return fail(err)
	}

	switch sel {
	case selErrorIndicator:
		return model.AuthResult{Status: model.StatusWrongCredentials, Err: model.ErrWrongCredentials}

	case selConsentButton:
		if err := d.Click(ctx, selConsentButton, a.wait); err != nil {
			return fail(err)
		}
		confirmed, err := d.FirstVisible(ctx, a.wait, selLandmark)
		if err != nil {
			return fail(err)
		}
		if confirmed == selLandmark {
			return model.AuthResult{Status: model.StatusAuthenticated}
		}
		return model.AuthResult{Status: model.StatusTimeout, Err: model.ErrPortalTimeout}

	case selLandmark:
		return model.AuthResult{Status: model.StatusAuthenticated}
	}

	// Neither condition appeared. Some accounts land on a stripped
	// navigation variant; treat those as authenticated with degraded
	// confidence so the caller knows course content may be missing.
	alt, err := d.FirstVisible(ctx, a.wait, altLandmarks...)
	if err != nil {
		return fail(err)
	}
	if alt != "" {
		a.logger.Warn("login confirmed via alternate landmark only", "landmark", alt)
		return model.AuthResult{Status: model.StatusAuthenticatedDegraded}
	}

	return model.AuthResult{Status: model.StatusTimeout, Err: model.ErrPortalTimeout}
}

// classify maps a thrown automation error onto the terminal taxonomy by
// message content, since chromedp surfaces all of these as plain errors.
func classify(err error) model.AuthResult {
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return model.AuthResult{Status: model.StatusTimeout, Err: fmt.Errorf("%w: %v", model.ErrPortalTimeout, err)}
	case strings.Contains(msg, "could not find node") || strings.Contains(msg, "node not found") || strings.Contains(msg, "waiting for selector") || strings.Contains(msg, "no nodes"):
		return model.AuthResult{Status: model.StatusStructuralMismatch, Err: fmt.Errorf("%w: %v", model.ErrPortalStructure, err)}
	case strings.Contains(msg, "net::") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "no such host"):
		return model.AuthResult{Status: model.StatusNetworkError, Err: fmt.Errorf("%w: %v", model.ErrNetwork, err)}
	default:
		return model.AuthResult{Status: model.StatusGeneralError, Err: fmt.Errorf("login automation failed: %w", err)}
	}
}
