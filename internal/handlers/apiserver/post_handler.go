package apiserver

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"groupboard/internal/middleware"
	"groupboard/internal/models"
	"groupboard/internal/services"
)

type PostHandler struct {
	postService services.PostService
	ackService  services.AcknowledgementService
}

func NewPostHandler(postService services.PostService, ackService services.AcknowledgementService) *PostHandler {
	return &PostHandler{postService: postService, ackService: ackService}
}

// NewPostHandler serves POST /post.
func (h *PostHandler) NewPostHandler(w http.ResponseWriter, r *http.Request) {
	var req services.NewPostInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.postService.NewPost(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, fmt.Sprintf("/post/%d", post.ID), post)
}

// GetPostHandler serves GET /post/{id}.
func (h *PostHandler) GetPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	post, err := h.postService.GetPost(r.Context(), middleware.GetUserIDFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, post)
}

// ListPostsHandler serves GET /post/{new|acknowledged|stale}?messageGroupId=&count=&skip=.
func (h *PostHandler) ListPostsHandler(w http.ResponseWriter, r *http.Request) {
	in := services.ListPostsInput{Bucket: models.PostBucket(mux.Vars(r)["bucket"])}
	var err error
	if in.MessageGroupID, err = queryID(r, "messageGroupId"); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Count, err = queryInt(r, "count"); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if in.Skip, err = queryInt(r, "skip"); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.URL.Query().Has("count") && in.Count == 0 {
		writeJSONError(w, "count must be at least 1", http.StatusBadRequest)
		return
	}

	posts, err := h.postService.ListPosts(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, nonNil(posts))
}

// DeletePostHandler serves DELETE /post/{id}.
func (h *PostHandler) DeletePostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.postService.DeletePost(r.Context(), middleware.GetUserIDFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NewAcknowledgementHandler serves POST /acknowledgement.
func (h *PostHandler) NewAcknowledgementHandler(w http.ResponseWriter, r *http.Request) {
	var req services.AcknowledgementInput
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ack, err := h.ackService.NewAcknowledgement(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, fmt.Sprintf("/post/%d", ack.PostID), ack)
}

// DeleteAcknowledgementHandler serves DELETE /acknowledgement/delete?postId=&userId=.
func (h *PostHandler) DeleteAcknowledgementHandler(w http.ResponseWriter, r *http.Request) {
	postID, err := queryID(r, "postId")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ackService.DeleteAcknowledgement(r.Context(), middleware.GetUserIDFromContext(r.Context()), postID, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
