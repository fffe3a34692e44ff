package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewatch/gradewatch-server/internal/model"
	"github.com/gradewatch/gradewatch-server/internal/testutil"
)

// scriptedDriver plays back configured outcomes for each step of the
// login flow.
type scriptedDriver struct {
	navigateErr error
	waitErr     error
	sendKeysErr error
	clickErr    map[string]error

	// firstVisible holds the result for successive FirstVisible calls.
	firstVisible []firstVisibleResult
	calls        int

	clicked         []string
	navigateTimeout time.Duration
}

type firstVisibleResult struct {
	sel string
	err error
}

func (d *scriptedDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	d.navigateTimeout = timeout
	return d.navigateErr
}

func (d *scriptedDriver) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return d.waitErr
}

func (d *scriptedDriver) SendKeys(ctx context.Context, sel, value string, timeout time.Duration) error {
	return d.sendKeysErr
}

func (d *scriptedDriver) Click(ctx context.Context, sel string, timeout time.Duration) error {
	d.clicked = append(d.clicked, sel)
	if err, ok := d.clickErr[sel]; ok {
		return err
	}
	return nil
}

func (d *scriptedDriver) OuterHTML(ctx context.Context, sel string, timeout time.Duration) (string, error) {
	return "", nil
}

func (d *scriptedDriver) FirstVisible(ctx context.Context, timeout time.Duration, sels ...string) (string, error) {
	if d.calls >= len(d.firstVisible) {
		return "", nil
	}
	res := d.firstVisible[d.calls]
	d.calls++
	return res.sel, res.err
}

func (d *scriptedDriver) Cookies(ctx context.Context) ([]model.Cookie, error) { return nil, nil }

func newAuthenticator() *Authenticator {
	return NewAuthenticator("https://portal.example.org/guardian/home.html", 6*time.Second, testutil.MakeNoopLogger())
}

func TestAuthenticator_Login_NoPassword(t *testing.T) {
	d := &scriptedDriver{navigateErr: errors.New("must not be reached")}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "")

	assert.Equal(t, model.StatusNoPassword, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrNoPasswordConfigured)
}

func TestAuthenticator_Login_Success(t *testing.T) {
	d := &scriptedDriver{
		firstVisible: []firstVisibleResult{{sel: selLandmark}},
	}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "hunter2")

	assert.Equal(t, model.StatusAuthenticated, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{selSubmitButton}, d.clicked)
	assert.Equal(t, 6*time.Second, d.navigateTimeout, "page load must stay within the wait budget")
}

func TestAuthenticator_Login_WrongCredentials(t *testing.T) {
	d := &scriptedDriver{
		firstVisible: []firstVisibleResult{{sel: selErrorIndicator}},
	}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "wrong")

	assert.Equal(t, model.StatusWrongCredentials, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrWrongCredentials)
}

func TestAuthenticator_Login_ConsentPromptThenSuccess(t *testing.T) {
	d := &scriptedDriver{
		firstVisible: []firstVisibleResult{
			{sel: selConsentButton},
			{sel: selLandmark},
		},
	}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "hunter2")

	assert.Equal(t, model.StatusAuthenticated, res.Status)
	assert.Equal(t, []string{selSubmitButton, selConsentButton}, d.clicked)
}

func TestAuthenticator_Login_ConsentPromptThenTimeout(t *testing.T) {
	d := &scriptedDriver{
		firstVisible: []firstVisibleResult{
			{sel: selConsentButton},
			{sel: ""},
		},
	}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "hunter2")

	assert.Equal(t, model.StatusTimeout, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrPortalTimeout)
}

func TestAuthenticator_Login_DegradedViaAlternateLandmark(t *testing.T) {
	d := &scriptedDriver{
		firstVisible: []firstVisibleResult{
			{sel: ""},
			{sel: altLandmarks[0]},
		},
	}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "hunter2")

	assert.Equal(t, model.StatusAuthenticatedDegraded, res.Status)
	assert.True(t, res.Authenticated())
}

func TestAuthenticator_Login_Timeout(t *testing.T) {
	d := &scriptedDriver{
		firstVisible: []firstVisibleResult{
			{sel: ""},
			{sel: ""},
		},
	}

	res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "hunter2")

	assert.Equal(t, model.StatusTimeout, res.Status)
	assert.ErrorIs(t, res.Err, model.ErrPortalTimeout)
	assert.False(t, res.Authenticated())
}

func TestAuthenticator_Login_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus model.AuthStatus
		wantErr    error
	}{
		{
			name:       "missing form element",
			err:        errors.New("could not find node for selector #fieldAccount"),
			wantStatus: model.StatusStructuralMismatch,
			wantErr:    model.ErrPortalStructure,
		},
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: model.StatusTimeout,
			wantErr:    model.ErrPortalTimeout,
		},
		{
			name:       "chromedp net error",
			err:        errors.New("page load error net::ERR_NAME_NOT_RESOLVED"),
			wantStatus: model.StatusNetworkError,
			wantErr:    model.ErrNetwork,
		},
		{
			name:       "unclassified",
			err:        errors.New("unexpected devtools message"),
			wantStatus: model.StatusGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &scriptedDriver{waitErr: tt.err}

			res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "hunter2")

			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			} else {
				require.Error(t, res.Err)
			}
		})
	}
}

func TestAuthenticator_Login_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		d := &scriptedDriver{
			firstVisible: []firstVisibleResult{{sel: selErrorIndicator}},
		}
		res := newAuthenticator().Login(context.Background(), d, "kid@school.example", "wrong")
		assert.Equal(t, model.StatusWrongCredentials, res.Status)
	}
}
