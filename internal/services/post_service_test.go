package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"groupboard/internal/events"
	"groupboard/internal/models"
	"groupboard/internal/provisioning"
	"groupboard/internal/services"
	"groupboard/internal/testutil"
)

func TestListPostsBuckets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice, bob)
	posts := f.posts()
	acks := f.acknowledgements()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)

	p1, err := posts.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "fresh"})
	mustNoErr(t, err)
	p2, err := posts.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "old news", StaleDate: &past})
	mustNoErr(t, err)
	p3, err := posts.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "seen", StaleDate: &future})
	mustNoErr(t, err)

	_, err = acks.NewAcknowledgement(ctx, bob.ID, services.AcknowledgementInput{PostID: p2.ID, UserID: bob.ID})
	mustNoErr(t, err)
	_, err = acks.NewAcknowledgement(ctx, bob.ID, services.AcknowledgementInput{PostID: p3.ID, UserID: bob.ID})
	mustNoErr(t, err)

	ids := func(list []models.PostDTO) []uint {
		out := make([]uint, 0, len(list))
		for _, p := range list {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		bucket models.PostBucket
		want   []uint
	}{
		{models.BucketNew, []uint{p1.ID}},
		{models.BucketAcknowledged, []uint{p3.ID}},
		{models.BucketStale, []uint{p2.ID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			got, err := posts.ListPosts(ctx, bob.ID, services.ListPostsInput{MessageGroupID: group.ID, Bucket: tt.bucket})
			mustNoErr(t, err)
			if g := ids(got); len(g) != len(tt.want) || (len(g) > 0 && g[0] != tt.want[0]) {
				t.Fatalf("ListPosts(%s) = %v, want %v", tt.bucket, g, tt.want)
			}
		})
	}

	// For alice nothing is acknowledged, so both live posts are new, newest first.
	got, err := posts.ListPosts(ctx, alice.ID, services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew})
	mustNoErr(t, err)
	if g := ids(got); len(g) != 2 || g[0] != p3.ID || g[1] != p1.ID {
		t.Fatalf("ListPosts(new) for alice = %v, want [%d %d]", g, p3.ID, p1.ID)
	}
	if got[0].AuthorName != "alice" || len(got[0].Acknowledgements) != 1 || got[0].Acknowledgements[0].DisplayName != "bob" {
		t.Fatalf("enrichment = %+v", got[0])
	}
	if got[1].Acknowledgements == nil {
		t.Fatal("Acknowledgements should be an empty list, not nil")
	}
}

func TestListPostsPagingAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	carol := testutil.CreateUser(t, f.db, "carol")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice)
	posts := f.posts()

	for i := 0; i < 4; i++ {
		_, err := posts.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "post"})
		mustNoErr(t, err)
	}

	page, err := posts.ListPosts(ctx, alice.ID, services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew, Count: 3, Skip: 2})
	mustNoErr(t, err)
	if len(page) != 2 {
		t.Fatalf("page len = %d, want 2", len(page))
	}

	tests := []struct {
		name string
		in   services.ListPostsInput
		want error
	}{
		{"count too large", services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew, Count: 101}, services.ErrValidation},
		{"negative count", services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew, Count: -1}, services.ErrValidation},
		{"negative skip", services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew, Skip: -1}, services.ErrValidation},
		{"unknown bucket", services.ListPostsInput{MessageGroupID: group.ID, Bucket: "recent"}, services.ErrValidation},
		{"missing group", services.ListPostsInput{Bucket: models.BucketNew}, services.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := posts.ListPosts(ctx, alice.ID, tt.in)
			wantErr(t, err, tt.want)
		})
	}

	_, err = posts.ListPosts(ctx, carol.ID, services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew})
	wantErr(t, err, services.ErrUnauthorized)
}

func TestNewPostByNonMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	victor := testutil.CreateUser(t, f.db, "victor")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice)

	_, err := f.posts().NewPost(ctx, victor.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "hello"})
	wantErr(t, err, services.ErrUnauthorized)
	if n := testutil.Count(t, f.db, &models.Post{}, "1 = 1"); n != 0 {
		t.Fatalf("post rows = %d, want 0", n)
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("published %v for a rejected post", f.publisher.types())
	}
}

func TestNewPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice)
	svc := f.posts()

	_, err := svc.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: strings.Repeat("x", 256)})
	wantErr(t, err, services.ErrValidation)
	_, err = svc.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "  "})
	wantErr(t, err, services.ErrValidation)

	loc := time.FixedZone("UTC+2", 2*60*60)
	stale := time.Date(2030, 1, 1, 12, 0, 0, 0, loc)
	post, err := svc.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "hello", StaleDate: &stale})
	mustNoErr(t, err)
	if post.StaleDate == nil || post.StaleDate.Location() != time.UTC || !post.StaleDate.Equal(stale) {
		t.Fatalf("StaleDate = %v, want %v in UTC", post.StaleDate, stale)
	}
	if got := f.publisher.types(); len(got) != 1 || got[0] != events.PostCreated {
		t.Fatalf("published = %v, want [post.created]", got)
	}

	mustNoErr(t, f.store.Groups.SoftDeleteGroup(ctx, group.ID, time.Now().UTC()))
	_, err = svc.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "too late"})
	wantErr(t, err, services.ErrGroupDeleted)
}

func TestNewPostStoreTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice)
	svc := services.NewPostService(f.store, f.authority, f.publisher, time.Nanosecond)

	_, err := svc.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "hello"})
	wantErr(t, err, services.ErrStoreTimeout)
	if n := testutil.Count(t, f.db, &models.Post{}, "1 = 1"); n != 0 {
		t.Fatalf("post rows = %d, want 0", n)
	}
	if len(f.publisher.events) != 0 {
		t.Fatalf("published = %v, want none", f.publisher.types())
	}
}

func TestDeletedUserLosesGroupAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice, bob)
	users := services.NewUserService(f.store, f.authority, provisioning.NoopProvisioner{}, testTimeout)
	svc := f.posts()

	mustNoErr(t, users.DeleteUser(ctx, bob.ID, bob.ID))

	_, err := svc.NewPost(ctx, bob.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "still here?"})
	wantErr(t, err, services.ErrUnauthorized)
	_, err = svc.ListPosts(ctx, bob.ID, services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew})
	wantErr(t, err, services.ErrUnauthorized)

	_, err = svc.NewPost(ctx, alice.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "hello"})
	mustNoErr(t, err)
}

func TestDeletePostRequiresAuthorAndMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	group := testutil.CreateGroup(t, f.db, "Team Alpha", alice, bob)
	svc := f.posts()

	post, err := svc.NewPost(ctx, bob.ID, services.NewPostInput{MessageGroupID: group.ID, Message: "mine"})
	mustNoErr(t, err)

	// An admin who is not the author may not delete.
	wantErr(t, svc.DeletePost(ctx, alice.ID, post.ID), services.ErrUnauthorized)

	// The author who left the group may not delete either.
	mustNoErr(t, f.store.Groups.RemoveMember(ctx, group.ID, bob.ID))
	wantErr(t, svc.DeletePost(ctx, bob.ID, post.ID), services.ErrUnauthorized)
	testutil.AddMember(t, f.db, group, bob, models.RoleUser)

	mustNoErr(t, svc.DeletePost(ctx, bob.ID, post.ID))
	wantErr(t, svc.DeletePost(ctx, bob.ID, post.ID), services.ErrAlreadyDeleted)
	wantErr(t, svc.DeletePost(ctx, bob.ID, post.ID+100), services.ErrPostNotFound)

	got, err := svc.GetPost(ctx, bob.ID, post.ID)
	mustNoErr(t, err)
	if !got.IsDeleted {
		t.Fatal("GetPost() after delete should report IsDeleted")
	}
	list, err := svc.ListPosts(ctx, bob.ID, services.ListPostsInput{MessageGroupID: group.ID, Bucket: models.BucketNew})
	mustNoErr(t, err)
	if len(list) != 0 {
		t.Fatalf("ListPosts() returned deleted posts: %v", list)
	}
}
