package apiserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"groupboard/internal/auth"
	"groupboard/internal/config"
	"groupboard/internal/handlers/apiserver"
	"groupboard/internal/models"
	"groupboard/internal/provisioning"
	"groupboard/internal/services"
	"groupboard/internal/storage"
	"groupboard/internal/testutil"
)

const queryTimeout = 5 * time.Second

var authCfg = config.AuthConfig{JWTSecretKey: "router-test-secret", JWTExpiry: time.Hour}

type server struct {
	t      *testing.T
	router *mux.Router
	db     *gorm.DB
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWithTimeout(t, queryTimeout)
}

func newServerWithTimeout(t *testing.T, queryTimeout time.Duration) *server {
	t.Helper()
	db := testutil.NewDB(t)
	store := storage.NewStore(db)
	authority := services.NewMembershipAuthority(store.Users, store.Groups, store.Invitations)
	svc := apiserver.Services{
		Auth:            services.NewAuthService(nil, queryTimeout),
		Users:           services.NewUserService(store, authority, provisioning.NoopProvisioner{}, queryTimeout),
		Groups:          services.NewGroupService(store, authority, nil, queryTimeout),
		Invitations:     services.NewInvitationService(store, authority, nil, queryTimeout),
		Posts:           services.NewPostService(store, authority, nil, queryTimeout),
		Acknowledgement: services.NewAcknowledgementService(store, authority, nil, queryTimeout),
		Shortcuts:       services.NewShortcutService(store, authority, queryTimeout),
	}
	return &server{t: t, router: apiserver.NewRouter(svc, authCfg, nil, store), db: db}
}

func (s *server) token(userID uint, oid string) string {
	s.t.Helper()
	tok, err := auth.GenerateToken(userID, oid, oid, authCfg)
	if err != nil {
		s.t.Fatalf("GenerateToken() error = %v", err)
	}
	return tok
}

func (s *server) tokenFor(u *models.User) string {
	return s.token(u.ID, u.AadOid)
}

func (s *server) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
}

func TestPublicEndpoints(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	wantStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	wantStatus(t, rec, http.StatusOK)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodGet, "/user/1", "", nil)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestNewUserUsesTokenIdentity(t *testing.T) {
	s := newServer(t)
	tok := s.token(0, "oid-zoe")

	rec := s.do(http.MethodPost, "/user", tok, map[string]interface{}{
		"displayName":            "Zoe",
		"acceptGroupInvitations": true,
	})
	wantStatus(t, rec, http.StatusCreated)
	user := decode[models.UserDTO](t, rec)
	if user.AadOid != "oid-zoe" || user.DisplayName != "Zoe" {
		t.Fatalf("user = %+v", user)
	}
	if loc := rec.Header().Get("Location"); loc != fmt.Sprintf("/user/%d", user.ID) {
		t.Fatalf("Location = %q", loc)
	}

	rec = s.do(http.MethodGet, "/user?aadOid=oid-zoe", tok, nil)
	wantStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodPost, "/user", tok, map[string]interface{}{"displayName": "Zoe again"})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestForbiddenCollapsesToUnauthorized(t *testing.T) {
	s := newServer(t)
	db := s.db
	alice := testutil.CreateUser(t, db, "alice")
	mallory := testutil.CreateUser(t, db, "mallory")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)

	rec := s.do(http.MethodGet, fmt.Sprintf("/messagegroup/%d", group.ID), s.tokenFor(mallory), nil)
	wantStatus(t, rec, http.StatusUnauthorized)
	if body := decode[apiserver.ErrorResponse](t, rec); body.Error != "unauthorized" {
		t.Fatalf("error = %q, want unauthorized", body.Error)
	}

	rec = s.do(http.MethodGet, fmt.Sprintf("/messagegroup/%d", group.ID), s.tokenFor(alice), nil)
	wantStatus(t, rec, http.StatusOK)
}

func TestStatusMapping(t *testing.T) {
	s := newServer(t)
	db := s.db
	alice := testutil.CreateUser(t, db, "alice")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)
	tok := s.tokenFor(alice)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing post", http.MethodGet, "/post/999", nil, http.StatusNotFound},
		{"bad group id", http.MethodGet, "/post/new?messageGroupId=abc", nil, http.StatusBadRequest},
		{"count too large", http.MethodGet, fmt.Sprintf("/post/new?messageGroupId=%d&count=500", group.ID), nil, http.StatusBadRequest},
		{"explicit zero count", http.MethodGet, fmt.Sprintf("/post/new?messageGroupId=%d&count=0", group.ID), nil, http.StatusBadRequest},
		{"negative skip", http.MethodGet, fmt.Sprintf("/post/new?messageGroupId=%d&skip=-1", group.ID), nil, http.StatusBadRequest},
		{"short group name", http.MethodPost, "/messagegroup/new", map[string]string{"name": "abc"}, http.StatusBadRequest},
		{"unknown bucket", http.MethodGet, "/post/archived", nil, http.StatusNotFound},
		{"logout without revocation store", http.MethodPost, "/auth/logout", nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tok, tt.body)
			wantStatus(t, rec, tt.status)
		})
	}
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		s := newServerWithTimeout(t, time.Nanosecond)
		alice := testutil.CreateUser(t, s.db, "alice")

		rec := s.do(http.MethodPost, "/messagegroup/new", s.tokenFor(alice), map[string]string{"name": "Team Alpha"})
		wantStatus(t, rec, http.StatusServiceUnavailable)
	})

	t.Run("failure", func(t *testing.T) {
		s := newServer(t)
		alice := testutil.CreateUser(t, s.db, "alice")
		storage.Close(s.db)

		rec := s.do(http.MethodPost, "/messagegroup/new", s.tokenFor(alice), map[string]string{"name": "Team Alpha"})
		wantStatus(t, rec, http.StatusBadRequest)
		body := decode[apiserver.ErrorResponse](t, rec)
		if !strings.HasPrefix(body.Error, services.ErrStoreFailure.Error()) || strings.Contains(body.Error, "sql") {
			t.Fatalf("error = %q, want the generic store failure message", body.Error)
		}
	})
}

func TestPostLifecycle(t *testing.T) {
	s := newServer(t)
	db := s.db
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice, bob)

	rec := s.do(http.MethodPost, "/post", s.tokenFor(alice), map[string]interface{}{
		"messageGroupId": group.ID,
		"message":        "standup moved to 10",
	})
	wantStatus(t, rec, http.StatusCreated)
	post := decode[models.PostDTO](t, rec)

	newPath := fmt.Sprintf("/post/new?messageGroupId=%d", group.ID)
	rec = s.do(http.MethodGet, newPath, s.tokenFor(bob), nil)
	wantStatus(t, rec, http.StatusOK)
	if posts := decode[[]models.PostDTO](t, rec); len(posts) != 1 || posts[0].AuthorName != "alice" {
		t.Fatalf("new posts = %+v", posts)
	}

	rec = s.do(http.MethodPost, "/acknowledgement", s.tokenFor(bob), map[string]uint{"postId": post.ID, "userId": bob.ID})
	wantStatus(t, rec, http.StatusCreated)

	rec = s.do(http.MethodGet, newPath, s.tokenFor(bob), nil)
	wantStatus(t, rec, http.StatusOK)
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("new posts after ack = %s, want []", body)
	}

	rec = s.do(http.MethodGet, fmt.Sprintf("/post/acknowledged?messageGroupId=%d", group.ID), s.tokenFor(bob), nil)
	wantStatus(t, rec, http.StatusOK)
	if posts := decode[[]models.PostDTO](t, rec); len(posts) != 1 || len(posts[0].Acknowledgements) != 1 {
		t.Fatalf("acknowledged posts = %+v", posts)
	}

	rec = s.do(http.MethodDelete, fmt.Sprintf("/post/%d", post.ID), s.tokenFor(bob), nil)
	wantStatus(t, rec, http.StatusUnauthorized)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/post/%d", post.ID), s.tokenFor(alice), nil)
	wantStatus(t, rec, http.StatusNoContent)
}

func TestInvitationAcceptFlow(t *testing.T) {
	s := newServer(t)
	db := s.db
	alice := testutil.CreateUser(t, db, "alice")
	carol := testutil.CreateUser(t, db, "carol")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)

	rec := s.do(http.MethodPost, "/messagegroupinvitation/new", s.tokenFor(alice), map[string]uint{
		"messageGroupId": group.ID,
		"invitedUserId":  carol.ID,
	})
	wantStatus(t, rec, http.StatusCreated)
	inv := decode[models.InvitationDTO](t, rec)

	rec = s.do(http.MethodGet, fmt.Sprintf("/messagegroupinvitation/user/%d", carol.ID), s.tokenFor(carol), nil)
	wantStatus(t, rec, http.StatusOK)
	if list := decode[[]models.InvitationDTO](t, rec); len(list) != 1 {
		t.Fatalf("invitations = %+v", list)
	}

	// Only the invitee may accept.
	accept := fmt.Sprintf("/messagegroupinvitation/accept/%d", inv.ID)
	rec = s.do(http.MethodPatch, accept, s.tokenFor(alice), nil)
	wantStatus(t, rec, http.StatusUnauthorized)

	rec = s.do(http.MethodPatch, accept, s.tokenFor(carol), nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.InvitationDTO](t, rec); !got.InvitationAccepted || got.InvitationActive {
		t.Fatalf("invitation = %+v", got)
	}

	rec = s.do(http.MethodPatch, accept, s.tokenFor(carol), nil)
	wantStatus(t, rec, http.StatusBadRequest)

	rec = s.do(http.MethodGet, fmt.Sprintf("/messagegroup/members/%d", group.ID), s.tokenFor(carol), nil)
	wantStatus(t, rec, http.StatusOK)
	if members := decode[[]models.MemberDTO](t, rec); len(members) != 2 {
		t.Fatalf("members = %+v", members)
	}

	rec = s.do(http.MethodGet, fmt.Sprintf("/messagegroupshortcut/%d", carol.ID), s.tokenFor(carol), nil)
	wantStatus(t, rec, http.StatusOK)
	if shortcuts := decode[[]models.ShortcutDTO](t, rec); len(shortcuts) != 1 {
		t.Fatalf("shortcuts = %+v", shortcuts)
	}
}

func TestRemoveMemberByQuery(t *testing.T) {
	s := newServer(t)
	db := s.db
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice, bob)

	path := fmt.Sprintf("/messagegroup/member?userId=%d&groupId=%d", bob.ID, group.ID)
	rec := s.do(http.MethodDelete, path, s.tokenFor(bob), nil)
	wantStatus(t, rec, http.StatusNoContent)

	rec = s.do(http.MethodDelete, path, s.tokenFor(alice), nil)
	wantStatus(t, rec, http.StatusNotFound)
}
