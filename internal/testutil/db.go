// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"groupboard/internal/config"
	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// NewDB returns a migrated in-memory sqlite database closed at test cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.InitDB(config.DatabaseConfig{Type: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		t.Fatalf("AutoMigrateTables() error = %v", err)
	}
	t.Cleanup(func() { storage.Close(db) })
	return db
}

// CreateUser inserts a user accepting invitations, with oid "oid-<name>".
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{AadOid: "oid-" + name, DisplayName: name, AcceptGroupInvitations: true}
	if err := storage.NewGormUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// CreateGroup inserts a group and makes each given user a member with role.
func CreateGroup(t *testing.T, db *gorm.DB, name string, admin *models.User, members ...*models.User) *models.MessageGroup {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewGormGroupRepository(db)
	g := &models.MessageGroup{Name: name}
	if err := repo.CreateGroup(ctx, g); err != nil {
		t.Fatalf("create group %s: %v", name, err)
	}
	AddMember(t, db, g, admin, models.RoleAdmin)
	for _, m := range members {
		AddMember(t, db, g, m, models.RoleUser)
	}
	return g
}

func AddMember(t *testing.T, db *gorm.DB, g *models.MessageGroup, u *models.User, role models.RoleID) {
	t.Helper()
	r := role
	m := &models.MessageGroupMember{UserID: u.ID, MessageGroupID: g.ID, RoleID: &r}
	if err := storage.NewGormGroupRepository(db).AddMember(context.Background(), m); err != nil {
		t.Fatalf("add member %d to group %d: %v", u.ID, g.ID, err)
	}
}

// Count returns the number of rows in model's table matching the condition.
func Count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}
