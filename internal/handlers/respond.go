package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	applog "tavola/internal/log"
	"tavola/internal/menu"
)

const maxJSONBody = 1 << 20

type activationErrorResponse struct {
	Error       string   `json:"error"`
	Ingredients []string `json:"ingredients"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodePayload decodes and validates a JSON body. It writes a 400 response
// and returns false when the payload is unusable.
func decodePayload(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		applog.Debug(r.Context(), "invalid request payload", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		applog.Debug(r.Context(), "request validation failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fields = append(fields, strings.ToLower(fieldErr.Field())+" failed "+fieldErr.Tag())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// splitResourcePath splits the part of the path after prefix into an id and
// an optional action. ok is false for malformed identifiers.
func splitResourcePath(path, prefix string) (id uint, action string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return 0, "", true
	}
	head, action, _ := strings.Cut(rest, "/")
	value, err := strconv.ParseUint(head, 10, 64)
	if err != nil || value == 0 {
		return 0, "", false
	}
	return uint(value), action, true
}

func queryUint(r *http.Request, key string) (uint, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}

// writeMenuError maps engine errors onto HTTP responses.
func writeMenuError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var activationErr *menu.ActivationError
	switch {
	case errors.As(err, &activationErr):
		writeJSON(w, http.StatusConflict, activationErrorResponse{
			Error:       "cannot activate: unavailable ingredients",
			Ingredients: activationErr.Ingredients,
		})
	case errors.Is(err, menu.ErrConstraintViolation):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, menu.ErrRecomputation):
		applog.Error(r.Context(), "calorie recomputation aborted request", "error", err, "action", action)
		writeJSONError(w, http.StatusInternalServerError, "unable to recompute dish calories")
	case errors.Is(err, gorm.ErrInvalidDB):
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, menu.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, menu.ErrDishNotFound),
		errors.Is(err, menu.ErrDishTypeNotFound),
		errors.Is(err, menu.ErrIngredientNotFound),
		errors.Is(err, menu.ErrMicronutrientNotFound),
		errors.Is(err, menu.ErrCompositionNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, menu.ErrDuplicateComposition),
		errors.Is(err, menu.ErrIngredientInUse):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		writeJSONError(w, http.StatusConflict, "a record with the same name already exists")
	default:
		applog.Error(r.Context(), "menu operation failed", "error", err, "action", action)
		writeJSONError(w, http.StatusInternalServerError, "unable to "+action)
	}
}

func requireEngine(w http.ResponseWriter, r *http.Request) bool {
	if engine == nil {
		applog.Debug(r.Context(), "api request without engine", "path", r.URL.Path)
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return false
	}
	return true
}
