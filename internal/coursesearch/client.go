// Package coursesearch is the HTTP boundary to the canonical course
// catalog service. Matching and ranking happen on the remote side; this
// client only shapes requests and decodes candidates.
package coursesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

// Client queries the course catalog's search endpoint. Every request
// carries the configured timeout.
type Client struct {
	http    *http.Client
	baseURL string
}

var _ model.CourseSearch = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Find ranks canonical courses against a free-text label. An empty
// result set is a valid answer, not an error.
func (c *Client) Find(ctx context.Context, freeTextName string) ([]model.CourseRef, error) {
	endpoint := c.baseURL + "/api/courses/search?q=" + url.QueryEscape(freeTextName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: course search: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("course search returned status %d", resp.StatusCode)
	}

	var out struct {
		Courses []struct {
			ID   uuid.UUID `json:"id"`
			Name string    `json:"name"`
		} `json:"courses"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	refs := make([]model.CourseRef, 0, len(out.Courses))
	for _, course := range out.Courses {
		refs = append(refs, model.CourseRef{ID: course.ID, Name: course.Name})
	}
	return refs, nil
}
