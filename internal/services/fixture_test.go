package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"groupboard/internal/events"
	"groupboard/internal/services"
	"groupboard/internal/storage"
	"groupboard/internal/testutil"
)

const testTimeout = 5 * time.Second

var errPublish = errors.New("broker unavailable")

// recordingPublisher records events; with err set every publish fails.
type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	store     *storage.Store
	authority services.MembershipAuthority
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	store := storage.NewStore(db)
	return &fixture{
		db:        db,
		store:     store,
		authority: services.NewMembershipAuthority(store.Users, store.Groups, store.Invitations),
		publisher: &recordingPublisher{},
	}
}

func (f *fixture) groups() services.GroupService {
	return services.NewGroupService(f.store, f.authority, f.publisher, testTimeout)
}

func (f *fixture) invitations() services.InvitationService {
	return services.NewInvitationService(f.store, f.authority, f.publisher, testTimeout)
}

func (f *fixture) posts() services.PostService {
	return services.NewPostService(f.store, f.authority, f.publisher, testTimeout)
}

func (f *fixture) acknowledgements() services.AcknowledgementService {
	return services.NewAcknowledgementService(f.store, f.authority, f.publisher, testTimeout)
}

func (f *fixture) shortcuts() services.ShortcutService {
	return services.NewShortcutService(f.store, f.authority, testTimeout)
}

func wantErr(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("error = %v, want %v", got, want)
	}
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
