// Package handlers is the thin JSON adapter between the routing layer and
// the queue engine. All business rules live in the services.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/middleware"
	"photosync-backend/internal/services"
)

// credentialsRequest carries the session tokens the routing layer obtained
// from the sign-in provider.
type credentialsRequest struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (c *credentialsRequest) tokenSet() auth.TokenSet {
	return auth.TokenSet{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNotCached):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func userKey(r *http.Request) string {
	return middleware.UserKeyFromContext(r.Context())
}
