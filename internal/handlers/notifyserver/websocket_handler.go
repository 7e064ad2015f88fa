package notifyserver

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"groupboard/internal/auth"
	"groupboard/internal/config"
	"groupboard/internal/middleware"
	ws "groupboard/internal/websocket"
)

// WebSocketHandler upgrades authenticated requests to hub clients.
type WebSocketHandler struct {
	hub       *ws.Hub
	cfg       config.Config
	blacklist auth.TokenBlacklist
}

// NewWebSocketHandler creates a WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, cfg config.Config, blacklist auth.TokenBlacklist) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, cfg: cfg, blacklist: blacklist}
}

// ServeWS authenticates the caller and upgrades the connection. Browsers
// cannot set headers on a websocket handshake, so the token may also come
// from the "token" query parameter.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth, h.blacklist)
	if err != nil {
		log.Info().Err(err).Msg("websocket connection rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := auth.ResolveCallerID(claims)
	if userID == 0 {
		// Token is valid but the user has not been registered yet.
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws.ServeWs(h.hub, userID, w, r, h.cfg.WebSocket)
}
