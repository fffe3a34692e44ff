package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

func testCookies() []model.Cookie {
	return []model.Cookie{
		{Name: "JSESSIONID", Value: "abc123", Domain: "portal.example.org", Path: "/"},
		{Name: "portal_auth", Value: "tok", Domain: "portal.example.org", Path: "/"},
	}
}

func TestClient_CookieReplay(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		_ = json.NewEncoder(w).Encode(map[string]any{"sections": []Section{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Second, testCookies())
	_, err := c.Sections(context.Background(), "stu-1")
	require.NoError(t, err)

	assert.Equal(t, "JSESSIONID=abc123; portal_auth=tok", gotCookie)
}

func TestClient_Gradebook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ws/xte/gradebook/hydrate", r.URL.Path)

		var req GradebookRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sec-9", req.SectionID)
		assert.Equal(t, "mp-2", req.MarkingPeriodID)
		assert.Equal(t, "stu-1", req.StudentID)

		_, _ = w.Write([]byte(`{
			"assignments": [
				{
					"_id": "a1",
					"name": "Assignment",
					"scorePoints": 8,
					"maxPoints": 10,
					"comment": "solid",
					"skills": [
						{"_id": "s1", "name": "Analysis", "rating": "Proficient", "ratingDescription": "Meets standard"}
					]
				},
				{"_id": "a2", "name": "Quiz"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Second, testCookies())
	assignments, raw, err := c.Gradebook(context.Background(), GradebookRequest{
		SectionID:       "sec-9",
		MarkingPeriodID: "mp-2",
		StudentID:       "stu-1",
	})
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.NotEmpty(t, raw)

	assert.Equal(t, "a1", assignments[0].ID)
	require.NotNil(t, assignments[0].PointsEarned)
	assert.Equal(t, 8.0, *assignments[0].PointsEarned)
	require.Len(t, assignments[0].Skills, 1)
	assert.Equal(t, "Proficient", assignments[0].Skills[0].Rating)

	assert.Nil(t, assignments[1].PointsEarned)
	assert.Nil(t, assignments[1].MaxPoints)
}

func TestClient_AssignmentNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/xte/section/sec-9/assignment_performance", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"performance": [
				{"assignment_id": "a1", "display_name": "Essay: The Crucible"},
				{"assignment_id": "a2", "display_name": ""}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Second, testCookies())
	names, err := c.AssignmentNames(context.Background(), "sec-9")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a1": "Essay: The Crucible"}, names)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Second, testCookies())
	_, err := c.MarkingPeriods(context.Background(), "sec-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_ConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, time.Second, testCookies())
	_, err := c.Sections(context.Background(), "stu-1")
	assert.ErrorIs(t, err, model.ErrNetwork)
}
