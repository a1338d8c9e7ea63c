package handlers

import (
	"errors"
	"net/http"
	"strings"

	applog "tavola/internal/log"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionProfile struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login reports the signed-in user on GET and signs in with JSON credentials on POST.
func Login(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling login request", "method", r.Method)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		id, ok := currentUserID(r)
		if !ActiveSession(r) || !ok {
			writeJSONError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		writeJSON(w, http.StatusOK, sessionProfile{
			ID:    id,
			Email: sessionManager.GetString(r.Context(), sessionUserEmailKey),
			Name:  sessionManager.GetString(r.Context(), sessionUserNameKey),
			Role:  currentUserRole(r),
		})
	case http.MethodPost:
		if sessionManager == nil || database == nil {
			applog.Debug(r.Context(), "authentication dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
			writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
			return
		}
		var payload loginRequest
		if !decodePayload(w, r, &payload) {
			return
		}

		user, err := authenticate(r, payload.Email, payload.Password)
		if err != nil {
			if errors.Is(err, errInvalidCredentials) {
				applog.Debug(r.Context(), "authentication failed", "email", strings.ToLower(payload.Email))
				writeJSONError(w, http.StatusUnauthorized, "Invalid email or password. Please try again.")
				return
			}
			applog.Error(r.Context(), "failed to sign in", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "We were unable to sign you in. Please try again.")
			return
		}

		applog.Info(r.Context(), "user signed in", "userID", user.ID)
		writeJSON(w, http.StatusOK, sessionProfile{ID: user.ID, Email: user.Email, Name: user.Name, Role: currentUserRole(r)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
