package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"groupboard/internal/services"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse writes data as JSON with the given status. A nil data
// writes headers only.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Warn().Err(err).Msg("failed to encode JSON response")
		}
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

func writeCreated(w http.ResponseWriter, location string, data interface{}) {
	w.Header().Set("Location", location)
	writeJSONResponse(w, http.StatusCreated, data)
}

// statusFor maps service errors onto HTTP status codes. Unauthenticated and
// unauthorized both become 401.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrInvitationNotFound),
		errors.Is(err, services.ErrAcknowledgementNotFound),
		errors.Is(err, services.ErrShortcutNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStoreTimeout), errors.Is(err, services.ErrRevocationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrUserDeleted),
		errors.Is(err, services.ErrGroupDeleted),
		errors.Is(err, services.ErrAlreadyDeleted),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrNotAMember),
		errors.Is(err, services.ErrNotAcceptingInvitations),
		errors.Is(err, services.ErrActiveInvitationExists),
		errors.Is(err, services.ErrInvitationUsed),
		errors.Is(err, services.ErrDuplicateAcknowledgement),
		errors.Is(err, services.ErrDuplicateShortcut),
		errors.Is(err, services.ErrProvisioningFailed),
		errors.Is(err, services.ErrStoreFailure):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusUnauthorized:
		message = "unauthorized"
	case http.StatusInternalServerError:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unmapped service error")
		message = "internal server error"
	}
	writeJSONError(w, message, status)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID reads a numeric mux variable. Routes constrain ids to digits, so
// only overflow fails here.
func pathID(r *http.Request, name string) (uint, error) {
	return parseID(mux.Vars(r)[name], name)
}

// queryID reads an optional numeric query parameter; absent means 0, which
// the services reject as invalid.
func queryID(r *http.Request, name string) (uint, error) {
	return parseID(r.URL.Query().Get(name), name)
}

func parseID(raw, name string) (uint, error) {
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
