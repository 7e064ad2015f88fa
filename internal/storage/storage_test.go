package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupboard/internal/models"
	"groupboard/internal/storage"
	"groupboard/internal/testutil"
)

func TestAddMemberRejectsDuplicatePair(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)

	role := models.RoleUser
	err := storage.NewGormGroupRepository(db).AddMember(context.Background(),
		&models.MessageGroupMember{UserID: alice.ID, MessageGroupID: group.ID, RoleID: &role})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("AddMember() error = %v, want ErrDuplicate", err)
	}
	if n := testutil.Count(t, db, &models.MessageGroupMember{}, "user_id = ? AND message_group_id = ?", alice.ID, group.ID); n != 1 {
		t.Fatalf("member rows = %d, want 1", n)
	}
}

func TestInvitationActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)
	repo := storage.NewGormInvitationRepository(db)

	first := &models.MessageGroupInvitation{MessageGroupID: group.ID, InvitedUserID: bob.ID, InvitingUserID: alice.ID}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := &models.MessageGroupInvitation{MessageGroupID: group.ID, InvitedUserID: bob.ID, InvitingUserID: alice.ID}
	if err := repo.Create(ctx, second); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("second Create() error = %v, want ErrDuplicate", err)
	}

	if err := repo.Resolve(ctx, first.ID, false, time.Now().UTC()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := repo.Resolve(ctx, first.ID, true, time.Now().UTC()); !errors.Is(err, storage.ErrUnexpectedRowCount) {
		t.Fatalf("second Resolve() error = %v, want ErrUnexpectedRowCount", err)
	}

	// Resolved invitations are history; a new active one is allowed.
	third := &models.MessageGroupInvitation{MessageGroupID: group.ID, InvitedUserID: bob.ID, InvitingUserID: alice.ID}
	if err := repo.Create(ctx, third); err != nil {
		t.Fatalf("Create() after resolve error = %v", err)
	}
	if n := testutil.Count(t, db, &models.MessageGroupInvitation{}, "invited_user_id = ?", bob.ID); n != 2 {
		t.Fatalf("invitation rows = %d, want 2", n)
	}
}

func TestAcknowledgementAndShortcutUniqueness(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)
	posts := storage.NewGormPostRepository(db)
	shortcuts := storage.NewGormShortcutRepository(db)

	post := &models.Post{UserID: alice.ID, MessageGroupID: group.ID, Message: "hello"}
	if err := posts.Create(ctx, post); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := posts.CreateAcknowledgement(ctx, &models.Acknowledgement{PostID: post.ID, UserID: alice.ID}); err != nil {
		t.Fatalf("CreateAcknowledgement() error = %v", err)
	}
	err := posts.CreateAcknowledgement(ctx, &models.Acknowledgement{PostID: post.ID, UserID: alice.ID})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate CreateAcknowledgement() error = %v, want ErrDuplicate", err)
	}

	if err := shortcuts.Create(ctx, &models.MessageGroupShortcut{UserID: alice.ID, MessageGroupID: group.ID}); err != nil {
		t.Fatalf("Create shortcut error = %v", err)
	}
	err = shortcuts.Create(ctx, &models.MessageGroupShortcut{UserID: alice.ID, MessageGroupID: group.ID})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate shortcut error = %v, want ErrDuplicate", err)
	}
	if err := shortcuts.Delete(ctx, alice.ID, group.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := shortcuts.Delete(ctx, alice.ID, group.ID); !errors.Is(err, storage.ErrUnexpectedRowCount) {
		t.Fatalf("second Delete() error = %v, want ErrUnexpectedRowCount", err)
	}
}

func TestPostListBuckets(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice, bob)
	repo := storage.NewGormPostRepository(db)
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	fresh := &models.Post{UserID: alice.ID, MessageGroupID: group.ID, Message: "fresh"}
	stale := &models.Post{UserID: alice.ID, MessageGroupID: group.ID, Message: "stale", StaleDate: &past}
	acked := &models.Post{UserID: alice.ID, MessageGroupID: group.ID, Message: "acked", StaleDate: &future}
	deleted := &models.Post{UserID: alice.ID, MessageGroupID: group.ID, Message: "deleted"}
	for _, p := range []*models.Post{fresh, stale, acked, deleted} {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create(%s) error = %v", p.Message, err)
		}
	}
	if err := repo.SoftDelete(ctx, deleted.ID, now); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	for _, p := range []*models.Post{acked, stale} {
		if err := repo.CreateAcknowledgement(ctx, &models.Acknowledgement{PostID: p.ID, UserID: bob.ID}); err != nil {
			t.Fatalf("CreateAcknowledgement() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		userID uint
		bucket models.PostBucket
		want   []uint
	}{
		{"new for bob", bob.ID, models.BucketNew, []uint{fresh.ID}},
		{"acknowledged for bob", bob.ID, models.BucketAcknowledged, []uint{acked.ID}},
		{"stale for bob", bob.ID, models.BucketStale, []uint{stale.ID}},
		{"new for alice newest first", alice.ID, models.BucketNew, []uint{acked.ID, fresh.ID}},
		{"stale regardless of acknowledgement", alice.ID, models.BucketStale, []uint{stale.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, storage.PostQuery{GroupID: group.ID, UserID: tt.userID, Bucket: tt.bucket, Now: now, Count: 15})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d posts, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("post[%d] = %d, want %d", i, got[i].ID, tt.want[i])
				}
			}
		})
	}

	page, err := repo.List(ctx, storage.PostQuery{GroupID: group.ID, UserID: alice.ID, Bucket: models.BucketNew, Now: now, Skip: 1, Count: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 1 || page[0].ID != fresh.ID {
		t.Fatalf("paged List() = %+v, want only post %d", page, fresh.ID)
	}

	acks, err := repo.AcknowledgementsFor(ctx, []uint{acked.ID, fresh.ID})
	if err != nil {
		t.Fatalf("AcknowledgementsFor() error = %v", err)
	}
	if len(acks[acked.ID]) != 1 || acks[acked.ID][0].DisplayName != "bob" {
		t.Fatalf("acks for %d = %+v", acked.ID, acks[acked.ID])
	}
	if len(acks[fresh.ID]) != 0 {
		t.Fatalf("acks for %d = %+v, want none", fresh.ID, acks[fresh.ID])
	}
}

func TestHardDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice, bob)
	users := storage.NewGormUserRepository(db)

	changed, err := users.SetDefaultGroupIfUnset(ctx, bob.ID, group.ID)
	if err != nil || !changed {
		t.Fatalf("SetDefaultGroupIfUnset() = %v, %v; want true, nil", changed, err)
	}
	changed, err = users.SetDefaultGroupIfUnset(ctx, bob.ID, group.ID)
	if err != nil || changed {
		t.Fatalf("second SetDefaultGroupIfUnset() = %v, %v; want false, nil", changed, err)
	}

	if err := db.Delete(&models.User{}, alice.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if n := testutil.Count(t, db, &models.MessageGroupMember{}, "user_id = ?", alice.ID); n != 0 {
		t.Fatalf("alice memberships = %d after user delete, want 0", n)
	}

	if err := db.Delete(&models.MessageGroup{}, group.ID).Error; err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if n := testutil.Count(t, db, &models.MessageGroupMember{}, "message_group_id = ?", group.ID); n != 0 {
		t.Fatalf("group memberships = %d after group delete, want 0", n)
	}
	reloaded, err := users.GetByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if reloaded.DefaultGroupID != nil {
		t.Fatalf("DefaultGroupID = %v after group delete, want nil", *reloaded.DefaultGroupID)
	}
}

func TestSoftDeleteGroupOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	group := testutil.CreateGroup(t, db, "Team Alpha", alice)
	repo := storage.NewGormGroupRepository(db)

	if err := repo.SoftDeleteGroup(ctx, group.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SoftDeleteGroup() error = %v", err)
	}
	if err := repo.SoftDeleteGroup(ctx, group.ID, time.Now().UTC()); !errors.Is(err, storage.ErrUnexpectedRowCount) {
		t.Fatalf("second SoftDeleteGroup() error = %v, want ErrUnexpectedRowCount", err)
	}
	got, err := repo.GetGroupByID(ctx, group.ID)
	if err != nil {
		t.Fatalf("GetGroupByID() error = %v", err)
	}
	if !got.IsDeleted || got.DeletedDate == nil {
		t.Fatalf("group = %+v, want soft-deleted", got)
	}

	groups, err := repo.ListUserGroups(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListUserGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].RoleID != models.RoleAdmin || !groups[0].IsDeleted {
		t.Fatalf("ListUserGroups() = %+v", groups)
	}
}
