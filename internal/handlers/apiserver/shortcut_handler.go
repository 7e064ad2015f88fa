package apiserver

import (
	"fmt"
	"net/http"

	"groupboard/internal/middleware"
	"groupboard/internal/services"
)

type ShortcutHandler struct {
	shortcutService services.ShortcutService
}

func NewShortcutHandler(shortcutService services.ShortcutService) *ShortcutHandler {
	return &ShortcutHandler{shortcutService: shortcutService}
}

// ListShortcutsHandler serves GET /messagegroupshortcut/{id}, id being the user.
func (h *ShortcutHandler) ListShortcutsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	shortcuts, err := h.shortcutService.ListShortcuts(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, nonNil(shortcuts))
}

// CreateShortcutHandler serves POST /messagegroupshortcut/new.
func (h *ShortcutHandler) CreateShortcutHandler(w http.ResponseWriter, r *http.Request) {
	var req services.ShortcutInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	shortcut, err := h.shortcutService.CreateShortcut(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, fmt.Sprintf("/messagegroupshortcut/%d", shortcut.UserID), shortcut)
}

// DeleteShortcutHandler serves DELETE /messagegroupshortcut/delete?userId=&groupId=.
func (h *ShortcutHandler) DeleteShortcutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	groupID, err := queryID(r, "groupId")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.shortcutService.DeleteShortcut(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID, groupID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
