package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hibiken/asynq"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
	"github.com/gradewatch/gradewatch-server/internal/queue"
)

// selScheduleRoot is the container holding the visible schedule grid.
const selScheduleRoot = "#schedule-container"

// scheduleEntryPattern matches one schedule cell: a free-text course
// label followed by its block code in parentheses.
var scheduleEntryPattern = regexp.MustCompile(`^(.+?)\s*\(([^()]+)\)$`)

// blockCodePattern accepts canonical block codes, a letter with an
// optional digit suffix.
var blockCodePattern = regexp.MustCompile(`^[A-Z][0-9]?$`)

// placeholderLabels are slot labels the portal renders for
// non-course entries.
var placeholderLabels = map[string]struct{}{
	"lunch":      {},
	"advisory":   {},
	"free":       {},
	"study hall": {},
}

// AutoCompleter scrapes a user's live schedule and matches each
// free-text course label against the canonical course search.
type AutoCompleter struct {
	sessions    SessionManager
	auth        Authenticator
	users       model.UserStore
	cipher      model.CredentialCipher
	search      model.CourseSearch
	scheduleURL string
	wait        time.Duration
	logger      *logger.Logger
}

func NewAutoCompleter(sessions SessionManager, auth Authenticator, users model.UserStore, cipher model.CredentialCipher, search model.CourseSearch, scheduleURL string, wait time.Duration, l *logger.Logger) *AutoCompleter {
	return &AutoCompleter{
		sessions:    sessions,
		auth:        auth,
		users:       users,
		cipher:      cipher,
		search:      search,
		scheduleURL: scheduleURL,
		wait:        wait,
		logger:      l,
	}
}

// Complete logs in, scrapes the schedule and resolves each parsed
// label through the course search. An empty schedule returns
// model.ErrNoCoursesFound; labels that match nothing stay in RawData
// only, which is not an error.
func (a *AutoCompleter) Complete(ctx context.Context, userEmail string) (model.AutoCompleteResult, error) {
	var zero model.AutoCompleteResult

	user, err := a.users.GetByEmail(ctx, userEmail)
	if err != nil {
		return zero, fmt.Errorf("failed to load user: %w", err)
	}
	password, err := a.cipher.Decrypt(user.EncryptedCredential)
	if err != nil {
		return zero, fmt.Errorf("failed to decrypt credential: %w", err)
	}

	session, err := a.sessions.Acquire(ctx)
	if err != nil {
		return zero, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer a.sessions.Release(session)

	res := a.auth.Login(ctx, session, user.Email, password)
	if !res.Authenticated() {
		return zero, fmt.Errorf("login terminated with status %q: %w", res.Status, res.Err)
	}

	if err := session.Navigate(ctx, a.scheduleURL, a.wait); err != nil {
		return zero, fmt.Errorf("failed to open schedule page: %w", err)
	}
	html, err := session.OuterHTML(ctx, selScheduleRoot, a.wait)
	if err != nil {
		return zero, fmt.Errorf("%w: schedule container missing: %v", model.ErrPortalStructure, err)
	}

	raw, err := ParseSchedule(html)
	if err != nil {
		return zero, fmt.Errorf("failed to parse schedule: %w", err)
	}
	if len(raw) == 0 {
		return zero, model.ErrNoCoursesFound
	}

	result := model.AutoCompleteResult{
		MatchedCourses: make(map[string]model.CourseRef, len(raw)),
		RawData:        raw,
	}
	for block, label := range raw {
		candidates, err := a.search.Find(ctx, label)
		if err != nil {
			a.logger.Error("course search failed, leaving block unmatched", "block", block, "error", err)
			continue
		}
		if len(candidates) > 0 {
			result.MatchedCourses[block] = candidates[0]
		}
	}

	return result, nil
}

// ParseSchedule extracts {block code: course label} pairs from the
// schedule markup. Placeholder slots and non-canonical block codes are
// discarded.
func ParseSchedule(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	doc.Find("td, li").Each(func(_ int, sel *goquery.Selection) {
		if sel.Find("td, li").Length() > 0 {
			return
		}
		m := scheduleEntryPattern.FindStringSubmatch(strings.TrimSpace(sel.Text()))
		if m == nil {
			return
		}

		label := strings.TrimSpace(m[1])
		block := strings.ToUpper(strings.TrimSpace(m[2]))
		if label == "" || !blockCodePattern.MatchString(block) {
			return
		}
		if _, ok := placeholderLabels[strings.ToLower(label)]; ok {
			return
		}
		out[block] = label
	})

	return out, nil
}

// HandleTask adapts Complete to the asynq handler contract. An empty
// schedule is a reportable outcome, not a retryable failure.
func (a *AutoCompleter) HandleTask(ctx context.Context, t *asynq.Task) error {
	var p queue.AutoCompletePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := a.Complete(ctx, p.UserEmail)
	if errors.Is(err, model.ErrNoCoursesFound) {
		a.logger.Info("schedule empty, nothing to match", "user", p.UserEmail)
		return nil
	}
	if err != nil {
		if errors.Is(err, model.ErrWrongCredentials) || errors.Is(err, model.ErrNoPasswordConfigured) || errors.Is(err, model.ErrPortalStructure) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	a.logger.Info("auto-complete finished", "user", p.UserEmail, "parsed", len(result.RawData), "matched", len(result.MatchedCourses))
	return nil
}
