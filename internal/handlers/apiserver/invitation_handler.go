package apiserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"groupboard/internal/middleware"
	"groupboard/internal/services"
)

type InvitationHandler struct {
	invitationService services.InvitationService
}

func NewInvitationHandler(invitationService services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// CreateInvitationHandler serves POST /messagegroupinvitation/new.
func (h *InvitationHandler) CreateInvitationHandler(w http.ResponseWriter, r *http.Request) {
	var req services.CreateInvitationInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	inv, err := h.invitationService.CreateInvitation(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, fmt.Sprintf("/messagegroupinvitation/%d", inv.ID), inv)
}

// GetInvitationHandler serves GET /messagegroupinvitation/{id}.
func (h *InvitationHandler) GetInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	inv, err := h.invitationService.GetInvitation(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, inv)
}

// ListUserInvitationsHandler serves GET /messagegroupinvitation/user/{id}.
func (h *InvitationHandler) ListUserInvitationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	invitations, err := h.invitationService.ListUserInvitations(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, nonNil(invitations))
}

// ResolveInvitationHandler serves PATCH /messagegroupinvitation/{accept|decline}/{id}.
func (h *InvitationHandler) ResolveInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	callerID := middleware.GetUserIDFromContext(r.Context())

	resolve := h.invitationService.DeclineInvitation
	if mux.Vars(r)["action"] == "accept" {
		resolve = h.invitationService.AcceptInvitation
	}
	inv, err := resolve(r.Context(), callerID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, inv)
}

// DeleteInvitationHandler serves DELETE /messagegroupinvitation/delete/{id}.
func (h *InvitationHandler) DeleteInvitationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.invitationService.DeleteInvitation(r.Context(), middleware.GetUserIDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
