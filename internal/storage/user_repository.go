package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"groupboard/internal/models"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByAadOid(ctx context.Context, oid string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uint, fields UserUpdate) error
	SoftDelete(ctx context.Context, id uint, at time.Time) error
	// SetDefaultGroupIfUnset reports whether the default group was changed.
	SetDefaultGroupIfUnset(ctx context.Context, userID, groupID uint) (bool, error)
	ClearDefaultGroup(ctx context.Context, userID, groupID uint) error
	DisplayNames(ctx context.Context, ids []uint) (map[uint]string, error)
}

// UserUpdate lists the user columns a caller may change.
type UserUpdate struct {
	DisplayName            string
	AcceptGroupInvitations bool
	DefaultGroupID         *uint
}

// gormUserRepository implements UserRepository using GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create inserts a user. A second row for the same AadOid fails with ErrDuplicate.
func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return expectOne(r.db.WithContext(ctx).Create(user))
}

// GetByID retrieves a user by their ID, deleted or not.
func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) GetByAadOid(ctx context.Context, oid string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("aad_oid = ?", oid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormUserRepository) UpdateProfile(ctx context.Context, id uint, fields UserUpdate) error {
	// A map so that false and nil are written too.
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"display_name":             fields.DisplayName,
		"accept_group_invitations": fields.AcceptGroupInvitations,
		"default_group_id":         fields.DefaultGroupID,
	})
	return expectOne(res)
}

func (r *gormUserRepository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_date": at})
	return expectOne(res)
}

func (r *gormUserRepository) SetDefaultGroupIfUnset(ctx context.Context, userID, groupID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND default_group_id IS NULL", userID).
		Update("default_group_id", groupID)
	if res.Error != nil {
		return false, classify(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClearDefaultGroup unsets the default group only if it is groupID.
func (r *gormUserRepository) ClearDefaultGroup(ctx context.Context, userID, groupID uint) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND default_group_id = ?", userID, groupID).
		Update("default_group_id", nil)
	return classify(res.Error)
}

// DisplayNames returns id -> display name for the given users.
func (r *gormUserRepository) DisplayNames(ctx context.Context, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []struct {
		ID          uint
		DisplayName string
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("id", "display_name").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.DisplayName
	}
	return names, nil
}
