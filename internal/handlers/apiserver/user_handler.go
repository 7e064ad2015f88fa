package apiserver

import (
	"fmt"
	"net/http"

	"groupboard/internal/middleware"
	"groupboard/internal/services"
)

// UserHandler serves the /user routes.
type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUserHandler serves GET /user/{id}.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.userService.GetUser(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// GetUserByExternalIDHandler serves GET /user?aadOid=.
func (h *UserHandler) GetUserByExternalIDHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())
	tokenOID := ""
	if claims != nil {
		tokenOID = claims.ExternalID()
	}
	user, err := h.userService.GetUserByExternalID(r.Context(), tokenOID, r.URL.Query().Get("aadOid"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// ListUserGroupsHandler serves GET /user/groups/{id}.
func (h *UserHandler) ListUserGroupsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	groups, err := h.userService.ListUserGroups(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, nonNil(groups))
}

// NewUserHandler serves POST /user. The external identity comes from the token.
func (h *UserHandler) NewUserHandler(w http.ResponseWriter, r *http.Request) {
	var req services.NewUserInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	claims, _ := middleware.GetClaimsFromContext(r.Context())
	externalID := ""
	if claims != nil {
		externalID = claims.ExternalID()
	}
	user, err := h.userService.NewUser(r.Context(), externalID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, fmt.Sprintf("/user/%d", user.ID), user)
}

// UpdateUserHandler serves PUT /user/{id}.
func (h *UserHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req services.UpdateUserInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.userService.UpdateUser(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// DeleteUserHandler serves DELETE /user/{id}.
func (h *UserHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.userService.DeleteUser(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
