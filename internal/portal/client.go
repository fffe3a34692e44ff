package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

// Section is one course instance a student is enrolled in.
type Section struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MarkingPeriod is a grading term within which assignments are scoped.
type MarkingPeriod struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Current bool   `json:"current"`
}

// Client replays browser session cookies as plain HTTP headers against
// the portal's data endpoints. Every request carries the configured
// timeout.
type Client struct {
	http    *http.Client
	baseURL string
	cookie  string
}

// NewClient builds a client from cookies extracted off an authenticated
// browser session.
func NewClient(baseURL string, timeout time.Duration, cookies []model.Cookie) *Client {
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		cookie:  strings.Join(pairs, "; "),
	}
}

// Sections lists the student's enrolled sections.
func (c *Client) Sections(ctx context.Context, studentID string) ([]Section, error) {
	var out struct {
		Sections []Section `json:"sections"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("/ws/xte/student/%s/sections", studentID), &out); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

// MarkingPeriods lists the grading terms for a section, most recent
// first per the portal's ordering.
func (c *Client) MarkingPeriods(ctx context.Context, sectionID string) ([]MarkingPeriod, error) {
	var out struct {
		MarkingPeriods []MarkingPeriod `json:"marking_periods"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("/ws/xte/section/%s/marking_periods", sectionID), &out); err != nil {
		return nil, err
	}
	return out.MarkingPeriods, nil
}

// gradebookPayload mirrors the hydrate endpoint's response shape.
type gradebookPayload struct {
	Assignments []struct {
		ID           string   `json:"_id"`
		Name         string   `json:"name"`
		PointsEarned *float64 `json:"scorePoints"`
		MaxPoints    *float64 `json:"maxPoints"`
		Comment      string   `json:"comment"`
		Skills       []struct {
			ID                string `json:"_id"`
			Name              string `json:"name"`
			Rating            string `json:"rating"`
			RatingDescription string `json:"ratingDescription"`
		} `json:"skills"`
	} `json:"assignments"`
}

// GradebookRequest carries exactly the fields the hydrate endpoint
// consumes.
type GradebookRequest struct {
	SectionID       string `json:"section_id"`
	MarkingPeriodID string `json:"marking_period_id"`
	StudentID       string `json:"student_id"`
}

// Gradebook fetches the grade-book payload for one section. The raw
// body is returned alongside the parsed assignments for archival.
func (c *Client) Gradebook(ctx context.Context, req GradebookRequest) ([]model.Assignment, []byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal hydrate request: %w", err)
	}

	raw, err := c.post(ctx, "/ws/xte/gradebook/hydrate", body)
	if err != nil {
		return nil, nil, err
	}

	var payload gradebookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode gradebook payload: %w", err)
	}

	assignments := make([]model.Assignment, 0, len(payload.Assignments))
	for _, a := range payload.Assignments {
		assignment := model.Assignment{
			ID:           a.ID,
			Name:         a.Name,
			PointsEarned: a.PointsEarned,
			MaxPoints:    a.MaxPoints,
			Comment:      a.Comment,
		}
		for _, s := range a.Skills {
			assignment.Skills = append(assignment.Skills, model.Skill{
				ID:                s.ID,
				Name:              s.Name,
				Rating:            s.Rating,
				RatingDescription: s.RatingDescription,
			})
		}
		assignments = append(assignments, assignment)
	}

	return assignments, raw, nil
}

// AssignmentNames fetches the per-assignment display names. The hydrate
// payload's built-in names are sometimes generic labels, so these take
// precedence when present.
func (c *Client) AssignmentNames(ctx context.Context, sectionID string) (map[string]string, error) {
	var out struct {
		Performance []struct {
			AssignmentID string `json:"assignment_id"`
			DisplayName  string `json:"display_name"`
		} `json:"performance"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("/ws/xte/section/%s/assignment_performance", sectionID), &out); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(out.Performance))
	for _, p := range out.Performance {
		if p.DisplayName != "" {
			names[p.AssignmentID] = p.DisplayName
		}
	}
	return names, nil
}

func (c *Client) get(ctx context.Context, path string, out any) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Cookie", c.cookie)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", model.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return raw, nil
}
