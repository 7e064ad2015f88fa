package apiserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"groupboard/internal/auth"
	"groupboard/internal/config"
	"groupboard/internal/middleware"
	"groupboard/internal/services"
)

// Services bundles everything the HTTP surface calls into.
type Services struct {
	Auth            services.AuthService
	Users           services.UserService
	Groups          services.GroupService
	Invitations     services.InvitationService
	Posts           services.PostService
	Acknowledgement services.AcknowledgementService
	Shortcuts       services.ShortcutService
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the API routes. Everything except /healthz and /metrics
// requires a bearer token.
func NewRouter(svc Services, authCfg config.AuthConfig, blacklist auth.TokenBlacklist, store Pinger) *mux.Router {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	groupHandler := NewGroupHandler(svc.Groups)
	invitationHandler := NewInvitationHandler(svc.Invitations)
	postHandler := NewPostHandler(svc.Posts, svc.Acknowledgement)
	shortcutHandler := NewShortcutHandler(svc.Shortcuts)

	r := mux.NewRouter()
	r.Use(middleware.Instrument)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeJSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return middleware.AuthMiddleware(next, authCfg, blacklist)
	})

	api.HandleFunc("/auth/logout", authHandler.LogoutHandler).Methods(http.MethodPost)

	// users
	api.HandleFunc("/user", userHandler.GetUserByExternalIDHandler).Methods(http.MethodGet)
	api.HandleFunc("/user", userHandler.NewUserHandler).Methods(http.MethodPost)
	api.HandleFunc("/user/groups/{id:[0-9]+}", userHandler.ListUserGroupsHandler).Methods(http.MethodGet)
	api.HandleFunc("/user/{id:[0-9]+}", userHandler.GetUserHandler).Methods(http.MethodGet)
	api.HandleFunc("/user/{id:[0-9]+}", userHandler.UpdateUserHandler).Methods(http.MethodPut)
	api.HandleFunc("/user/{id:[0-9]+}", userHandler.DeleteUserHandler).Methods(http.MethodDelete)

	// posts
	api.HandleFunc("/post", postHandler.NewPostHandler).Methods(http.MethodPost)
	api.HandleFunc("/post/{bucket:new|acknowledged|stale}", postHandler.ListPostsHandler).Methods(http.MethodGet)
	api.HandleFunc("/post/{id:[0-9]+}", postHandler.GetPostHandler).Methods(http.MethodGet)
	api.HandleFunc("/post/{id:[0-9]+}", postHandler.DeletePostHandler).Methods(http.MethodDelete)
	api.HandleFunc("/acknowledgement", postHandler.NewAcknowledgementHandler).Methods(http.MethodPost)
	api.HandleFunc("/acknowledgement/delete", postHandler.DeleteAcknowledgementHandler).Methods(http.MethodDelete)

	// groups
	api.HandleFunc("/messagegroup/new", groupHandler.CreateGroupHandler).Methods(http.MethodPost)
	api.HandleFunc("/messagegroup/setrole", groupHandler.SetRoleHandler).Methods(http.MethodPut)
	api.HandleFunc("/messagegroup/member", groupHandler.DeleteMemberHandler).Methods(http.MethodDelete)
	api.HandleFunc("/messagegroup/members/{id:[0-9]+}", groupHandler.ListMembersHandler).Methods(http.MethodGet)
	api.HandleFunc("/messagegroup/{id:[0-9]+}", groupHandler.GetGroupHandler).Methods(http.MethodGet)
	api.HandleFunc("/messagegroup/{id:[0-9]+}", groupHandler.DeleteGroupHandler).Methods(http.MethodDelete)

	// invitations
	api.HandleFunc("/messagegroupinvitation/new", invitationHandler.CreateInvitationHandler).Methods(http.MethodPost)
	api.HandleFunc("/messagegroupinvitation/user/{id:[0-9]+}", invitationHandler.ListUserInvitationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/messagegroupinvitation/{action:accept|decline}/{id:[0-9]+}", invitationHandler.ResolveInvitationHandler).Methods(http.MethodPatch)
	api.HandleFunc("/messagegroupinvitation/delete/{id:[0-9]+}", invitationHandler.DeleteInvitationHandler).Methods(http.MethodDelete)
	api.HandleFunc("/messagegroupinvitation/{id:[0-9]+}", invitationHandler.GetInvitationHandler).Methods(http.MethodGet)

	// shortcuts
	api.HandleFunc("/messagegroupshortcut/new", shortcutHandler.CreateShortcutHandler).Methods(http.MethodPost)
	api.HandleFunc("/messagegroupshortcut/delete", shortcutHandler.DeleteShortcutHandler).Methods(http.MethodDelete)
	api.HandleFunc("/messagegroupshortcut/{id:[0-9]+}", shortcutHandler.ListShortcutsHandler).Methods(http.MethodGet)

	return r
}
