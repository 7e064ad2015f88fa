package storage

import (
	"context"

	"gorm.io/gorm"

	"groupboard/internal/models"
)

// ShortcutRepository handles a user's pinned groups.
type ShortcutRepository interface {
	Create(ctx context.Context, shortcut *models.MessageGroupShortcut) error
	Delete(ctx context.Context, userID, groupID uint) error
	// DeleteIfExists removes the shortcut when present and never reports a missing row.
	DeleteIfExists(ctx context.Context, userID, groupID uint) error
	CountForUser(ctx context.Context, userID uint) (int64, error)
	ListForUser(ctx context.Context, userID uint) ([]models.ShortcutDTO, error)
}

type gormShortcutRepository struct {
	db *gorm.DB
}

func NewGormShortcutRepository(db *gorm.DB) ShortcutRepository {
	return &gormShortcutRepository{db: db}
}

func (r *gormShortcutRepository) Create(ctx context.Context, shortcut *models.MessageGroupShortcut) error {
	return expectOne(r.db.WithContext(ctx).Create(shortcut))
}

func (r *gormShortcutRepository) Delete(ctx context.Context, userID, groupID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND message_group_id = ?", userID, groupID).
		Delete(&models.MessageGroupShortcut{})
	return expectOne(res)
}

func (r *gormShortcutRepository) DeleteIfExists(ctx context.Context, userID, groupID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND message_group_id = ?", userID, groupID).
		Delete(&models.MessageGroupShortcut{})
	return classify(res.Error)
}

func (r *gormShortcutRepository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MessageGroupShortcut{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *gormShortcutRepository) ListForUser(ctx context.Context, userID uint) ([]models.ShortcutDTO, error) {
	var shortcuts []models.ShortcutDTO
	err := r.db.WithContext(ctx).Table("message_group_shortcuts AS s").
		Select("s.user_id, s.message_group_id, g.name AS group_name").
		Joins("JOIN message_groups g ON g.id = s.message_group_id").
		Where("s.user_id = ?", userID).
		Order("s.id ASC").
		Scan(&shortcuts).Error
	return shortcuts, err
}
