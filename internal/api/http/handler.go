package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gradewatch/gradewatch-server/internal/model"
)

type credentialCheckResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleCredentialCheck runs one login attempt with the submitted
// credentials. WrongCredentials is the structured, user-visible
// outcome; infrastructure failures map to gateway-style statuses.
func (s *Server) handleCredentialCheck(w http.ResponseWriter, r *http.Request) {
	var req model.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, credentialCheckResponse{Status: "invalid_request", Error: "malformed body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, credentialCheckResponse{Status: "invalid_request", Error: "email is required"})
		return
	}

	res := s.checker.CheckCredentials(r.Context(), req)

	body := credentialCheckResponse{Status: string(res.Status)}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}

	writeJSON(w, statusCodeFor(res.Status), body)
}

func statusCodeFor(status model.AuthStatus) int {
	switch status {
	case model.StatusAuthenticated, model.StatusAuthenticatedDegraded:
		return http.StatusOK
	case model.StatusWrongCredentials:
		return http.StatusUnprocessableEntity
	case model.StatusNoPassword:
		return http.StatusBadRequest
	case model.StatusTimeout:
		return http.StatusGatewayTimeout
	case model.StatusNetworkError, model.StatusStructuralMismatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Failing map[string]string `json:"failing,omitempty"`
}

// handleHealth pings each backing dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	failing := make(map[string]string)
	for name, ping := range s.checks {
		if err := ping(r.Context()); err != nil {
			failing[name] = err.Error()
		}
	}

	if len(failing) > 0 {
		s.logger.Error("health check failing", "components", len(failing))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Failing: failing})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
