// Package worker implements the queued job handlers. Every job
// exclusively owns one browser session for its lifetime and releases
// it on every exit path, including context kills.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/gradewatch/gradewatch-server/internal/browser"
	"github.com/gradewatch/gradewatch-server/internal/diff"
	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
	"github.com/gradewatch/gradewatch-server/internal/notify"
	"github.com/gradewatch/gradewatch-server/internal/portal"
	"github.com/gradewatch/gradewatch-server/internal/queue"
)

// SessionManager acquires and releases browser sessions. Release must
// be safe to call on every exit path and must never propagate a
// cleanup failure.
type SessionManager interface {
	Acquire(ctx context.Context) (portal.Driver, error)
	Release(d portal.Driver)
}

// Sessions adapts *browser.Manager to SessionManager.
type Sessions struct {
	m *browser.Manager
}

func NewSessions(m *browser.Manager) Sessions {
	return Sessions{m: m}
}

func (s Sessions) Acquire(ctx context.Context) (portal.Driver, error) {
	session, err := s.m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s Sessions) Release(d portal.Driver) {
	if session, ok := d.(*browser.Session); ok {
		s.m.Release(session)
	}
}

// Authenticator runs the login state machine against a session.
type Authenticator interface {
	Login(ctx context.Context, d portal.Driver, email, password string) model.AuthResult
}

// PortalClient is the cookie-replay data surface built per job.
type PortalClient interface {
	portal.GradebookClient
	Sections(ctx context.Context, studentID string) ([]portal.Section, error)
}

// ClientFactory builds a PortalClient from an authenticated session's
// cookies.
type ClientFactory func(cookies []model.Cookie) PortalClient

// Fetcher pulls per-section assignment data. *portal.Fetcher
// implements it.
type Fetcher interface {
	FetchSections(ctx context.Context, client portal.GradebookClient, sectionIDs []string, studentID, markingPeriodID string) map[string]portal.RawAssignmentSet
	ResolveMarkingPeriod(ctx context.Context, client portal.GradebookClient, snapshots model.SnapshotStore, user model.User, sectionIDs []string) (string, error)
}

// Notifier forwards detected changes. *notify.Dispatcher implements it.
type Notifier interface {
	Dispatch(ctx context.Context, user model.User, sections []notify.SectionChanges) error
}

// Archiver stores raw gradebook payloads. Optional; a nil Archiver
// disables archival.
type Archiver interface {
	Store(ctx context.Context, userID uuid.UUID, sectionID string, fetchedAt time.Time, payload []byte) (string, error)
}

// GradeCheckerParams collects the collaborators of a GradeChecker.
type GradeCheckerParams struct {
	Sessions  SessionManager
	Auth      Authenticator
	NewClient ClientFactory
	Fetcher   Fetcher
	Users     model.UserStore
	Snapshots model.SnapshotStore
	Cipher    model.CredentialCipher
	Notifier  Notifier
	Archive   Archiver
	SoftLimit time.Duration
	Logger    *logger.Logger
}

// GradeChecker runs one user's grade synchronization from login to
// notification.
type GradeChecker struct {
	sessions  SessionManager
	auth      Authenticator
	newClient ClientFactory
	fetcher   Fetcher
	users     model.UserStore
	snapshots model.SnapshotStore
	cipher    model.CredentialCipher
	notifier  Notifier
	archive   Archiver
	softLimit time.Duration
	logger    *logger.Logger
}

func NewGradeChecker(p GradeCheckerParams) *GradeChecker {
	return &GradeChecker{
		sessions:  p.Sessions,
		auth:      p.Auth,
		newClient: p.NewClient,
		fetcher:   p.Fetcher,
		users:     p.Users,
		snapshots: p.Snapshots,
		cipher:    p.Cipher,
		notifier:  p.Notifier,
		archive:   p.Archive,
		softLimit: p.SoftLimit,
		logger:    p.Logger,
	}
}

// Run executes one grade check: login, fetch, diff, notify, persist.
// Notifications go out before snapshots are written, so a crash after
// dispatch re-notifies on redelivery rather than losing changes.
func (g *GradeChecker) Run(ctx context.Context, userEmail string) error {
	user, err := g.users.GetByEmail(ctx, userEmail)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.HasCredential() {
		g.logger.Info("no portal credential on file, skipping", "user", user.Email)
		return nil
	}

	password, err := g.cipher.Decrypt(user.EncryptedCredential)
	if err != nil {
		return fmt.Errorf("failed to decrypt credential: %w", err)
	}

	if g.softLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.softLimit)
		defer cancel()
	}

	session, err := g.sessions.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire session: %w", err)
	}
	defer g.sessions.Release(session)

	res := g.auth.Login(ctx, session, user.Email, password)
	if !res.Authenticated() {
		return fmt.Errorf("login terminated with status %q: %w", res.Status, res.Err)
	}
	if res.Status == model.StatusAuthenticatedDegraded {
		g.logger.Warn("authenticated via alternate landmark, course content may be unavailable", "user", user.Email)
	}

	cookies, err := session.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to extract session cookies: %w", err)
	}
	client := g.newClient(cookies)

	sections, err := client.Sections(ctx, user.StudentID)
	if err != nil {
		return fmt.Errorf("failed to list sections: %w", err)
	}
	if len(sections) == 0 {
		g.logger.Info("no enrolled sections", "user", user.Email)
		return nil
	}

	sectionIDs := make([]string, 0, len(sections))
	courseNames := make(map[string]string, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
		courseNames[s.ID] = s.Name
	}

	markingPeriodID, err := g.fetcher.ResolveMarkingPeriod(ctx, client, g.snapshots, user, sectionIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve marking period: %w", err)
	}

	fetched := g.fetcher.FetchSections(ctx, client, sectionIDs, user.StudentID, markingPeriodID)

	// Diff in fetch order against the per-triple baseline. A snapshot
	// load failure isolates to its section, like a fetch failure.
	var changed []notify.SectionChanges
	baselines := make(map[string][]model.Assignment, len(fetched))
	for _, sectionID := range sectionIDs {
		set, ok := fetched[sectionID]
		if !ok {
			continue
		}

		prev, err := g.snapshots.Get(ctx, user.ID, sectionID, markingPeriodID)
		switch {
		case err == nil:
			baselines[sectionID] = prev.Assignments
		case errors.Is(err, model.ErrNotFound):
			baselines[sectionID] = nil
		default:
			g.logger.Error("failed to load snapshot, skipping section", "section_id", sectionID, "error", err)
			delete(fetched, sectionID)
			continue
		}

		changes := diff.Changes(baselines[sectionID], set.Assignments)
		if len(changes) > 0 {
			changed = append(changed, notify.SectionChanges{
				SectionID:  sectionID,
				CourseName: courseNames[sectionID],
				Changes:    changes,
			})
		}
	}

	if err := g.notifier.Dispatch(ctx, user, changed); err != nil {
		return fmt.Errorf("failed to dispatch notifications: %w", err)
	}

	now := time.Now().UTC()
	for _, sectionID := range sectionIDs {
		set, ok := fetched[sectionID]
		if !ok {
			continue
		}

		if _, err := g.snapshots.Upsert(ctx, model.AssignmentSnapshot{
			ID:              uuid.New(),
			UserID:          user.ID,
			SectionID:       sectionID,
			MarkingPeriodID: markingPeriodID,
			Assignments:     set.Assignments,
			Timestamp:       now,
		}); err != nil {
			g.logger.Error("failed to persist snapshot", "section_id", sectionID, "error", err)
			continue
		}

		if g.archive != nil {
			if _, err := g.archive.Store(ctx, user.ID, sectionID, now, set.RawPayload); err != nil {
				g.logger.Warn("failed to archive raw payload", "section_id", sectionID, "error", err)
			}
		}
	}

	return nil
}

// CheckCredentials runs one synchronous login attempt with the given
// credentials. It never reads or writes stored state. The soft limit
// bounds the attempt so a stalled portal cannot pin the caller.
func (g *GradeChecker) CheckCredentials(ctx context.Context, req model.CredentialsRequest) model.AuthResult {
	if g.softLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.softLimit)
		defer cancel()
	}

	session, err := g.sessions.Acquire(ctx)
	if err != nil {
		return model.AuthResult{Status: model.StatusGeneralError, Err: fmt.Errorf("failed to acquire session: %w", err)}
	}
	defer g.sessions.Release(session)

	return g.auth.Login(ctx, session, req.Email, req.Password)
}

// HandleTask adapts Run to the asynq handler contract. Credential and
// structural failures are terminal; redelivery cannot fix them.
func (g *GradeChecker) HandleTask(ctx context.Context, t *asynq.Task) error {
	var p queue.GradeCheckPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode payload: %v: %w", err, asynq.SkipRetry)
	}

	err := g.Run(ctx, p.UserEmail)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrWrongCredentials) ||
		errors.Is(err, model.ErrNoPasswordConfigured) ||
		errors.Is(err, model.ErrPortalStructure) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
