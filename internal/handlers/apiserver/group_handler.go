package apiserver

import (
	"fmt"
	"net/http"

	"groupboard/internal/middleware"
	"groupboard/internal/services"
)

// GroupHandler serves the /messagegroup routes.
type GroupHandler struct {
	groupService services.GroupService
}

func NewGroupHandler(groupService services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroupRequest is the body of POST /messagegroup/new.
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// CreateGroupHandler serves POST /messagegroup/new.
func (h *GroupHandler) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	group, err := h.groupService.CreateGroup(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, fmt.Sprintf("/messagegroup/%d", group.ID), group)
}

// GetGroupHandler serves GET /messagegroup/{id}.
func (h *GroupHandler) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	group, err := h.groupService.GetGroup(r.Context(), middleware.GetUserIDFromContext(r.Context()), groupID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, group)
}

// ListMembersHandler serves GET /messagegroup/members/{id}.
func (h *GroupHandler) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	members, err := h.groupService.ListMembers(r.Context(), middleware.GetUserIDFromContext(r.Context()), groupID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, nonNil(members))
}

// SetRoleHandler serves PUT /messagegroup/setrole.
func (h *GroupHandler) SetRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req services.SetRoleInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	member, err := h.groupService.SetGroupRole(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, member)
}

// DeleteGroupHandler serves DELETE /messagegroup/{id}.
func (h *GroupHandler) DeleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.groupService.DeleteGroup(r.Context(), middleware.GetUserIDFromContext(r.Context()), groupID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMemberHandler serves DELETE /messagegroup/member?userId=&groupId=.
func (h *GroupHandler) DeleteMemberHandler(w http.ResponseWriter, r *http.Request) {
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
	if err := h.groupService.DeleteGroupMember(r.Context(), middleware.GetUserIDFromContext(r.Context()), userID, groupID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
