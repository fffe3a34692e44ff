package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserIDFromContext returns the authenticated user ID set by the
// authenticate middleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// authenticate requires a valid bearer token and stores the user ID on
// the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, credentialCheckResponse{Status: "unauthorized", Error: "missing bearer token"})
			return
		}

		userID, err := s.tokens.Parse(tokenString)
		if err != nil {
			s.logger.Debug("rejected bearer token", "error", err)
			writeJSON(w, http.StatusUnauthorized, credentialCheckResponse{Status: "unauthorized", Error: "invalid token"})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}
