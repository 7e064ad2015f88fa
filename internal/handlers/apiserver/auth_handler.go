package apiserver

import (
	"net/http"

	"groupboard/internal/middleware"
	"groupboard/internal/services"
)

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LogoutHandler revokes the presented token until it expires.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())
	if err := h.authService.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
