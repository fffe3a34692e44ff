package model

// AuthStatus is the terminal state of one login attempt.
type AuthStatus string

const (
	// StatusAuthenticated means the post-login landmark was confirmed.
	StatusAuthenticated AuthStatus = "authenticated"
	// StatusAuthenticatedDegraded means only an alternate navigation
	// landmark was found; course content may be unavailable.
	StatusAuthenticatedDegraded AuthStatus = "authenticated_degraded"
	// StatusWrongCredentials means the portal showed its error indicator.
	StatusWrongCredentials AuthStatus = "wrong_credentials"
	// StatusNoPassword means no password was supplied or stored.
	StatusNoPassword AuthStatus = "no_password"
	// StatusTimeout means no terminal condition appeared in the wait budget.
	StatusTimeout AuthStatus = "timeout"
	// StatusStructuralMismatch means an expected form element was missing.
	StatusStructuralMismatch AuthStatus = "structural_mismatch"
	// StatusNetworkError means a connection-level failure occurred.
	StatusNetworkError AuthStatus = "network_error"
	// StatusGeneralError covers unclassified automation failures.
	StatusGeneralError AuthStatus = "general_error"
)

// AuthResult is the typed outcome of one login attempt. Err carries the
// taxonomy sentinel for failed statuses and is nil on success.
type AuthResult struct {
	Status AuthStatus
	Err    error
}

// Authenticated reports whether the session may be used for fetching,
// including the degraded case.
func (r AuthResult) Authenticated() bool {
	return r.Status == StatusAuthenticated || r.Status == StatusAuthenticatedDegraded
}

// CredentialsRequest carries exactly the fields a login attempt
// consumes.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Cookie is a session cookie extracted from the browser, replayed as a
// plain HTTP header on portal endpoints.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}
