package coursesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

func TestClient_Find(t *testing.T) {
	courseID := uuid.New()

	t.Run("decodes ranked candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/courses/search", r.URL.Path)
			assert.Equal(t, "AP Biology", r.URL.Query().Get("q"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"courses":[{"id":"` + courseID.String() + `","name":"AP Biology"}]}`))
		}))
		defer srv.Close()

		refs, err := NewClient(srv.URL, time.Second).Find(context.Background(), "AP Biology")
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, model.CourseRef{ID: courseID, Name: "AP Biology"}, refs[0])
	})

	t.Run("empty result set is not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"courses":[]}`))
		}))
		defer srv.Close()

		refs, err := NewClient(srv.URL, time.Second).Find(context.Background(), "Underwater Basket Weaving")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Find(context.Background(), "Algebra")
		assert.ErrorContains(t, err, "status 502")
	})

	t.Run("unreachable service maps to the network sentinel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		_, err := NewClient(srv.URL, time.Second).Find(context.Background(), "Algebra")
		assert.ErrorIs(t, err, model.ErrNetwork)
	})
}
