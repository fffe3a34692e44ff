package model

import "errors"

var (
	// ErrNotFound indicates a missing row.
	ErrNotFound = errors.New("not found")

	// ErrNoPasswordConfigured indicates the user has no portal password on
	// file. Returned before any network activity.
	ErrNoPasswordConfigured = errors.New("no portal password configured")

	// ErrWrongCredentials indicates the portal rejected the credentials.
	ErrWrongCredentials = errors.New("portal rejected credentials")

	// ErrPortalStructure indicates an expected page element was missing,
	// i.e. the portal markup no longer matches our selectors.
	ErrPortalStructure = errors.New("portal page structure mismatch")

	// ErrPortalTimeout indicates a bounded wait on the portal expired.
	ErrPortalTimeout = errors.New("portal interaction timed out")

	// ErrNetwork indicates a connection-level failure against the portal.
	ErrNetwork = errors.New("portal network failure")

	// ErrNoCoursesFound indicates an authenticated schedule scrape yielded
	// zero parseable courses. Distinct from a hard failure.
	ErrNoCoursesFound = errors.New("no courses found on schedule")
)
