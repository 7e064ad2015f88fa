package storage

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles every repository bound to the same *gorm.DB, which
// is either the pool or an open transaction.
type Repositories struct {
	Users       UserRepository
	Groups      GroupRepository
	Invitations InvitationRepository
	Posts       PostRepository
	Shortcuts   ShortcutRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:       NewGormUserRepository(db),
		Groups:      NewGormGroupRepository(db),
		Invitations: NewGormInvitationRepository(db),
		Posts:       NewGormPostRepository(db),
		Shortcuts:   NewGormShortcutRepository(db),
	}
}

// Store is the entry point services use: plain repositories plus a
// transactional envelope.
type Store struct {
	*Repositories
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{Repositories: NewRepositories(db), db: db}
}

// Transaction runs fn with repositories bound to one transaction. Any error
// from fn, including ErrUnexpectedRowCount, rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	}, txOptions(s.db))
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
