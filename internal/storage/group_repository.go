package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"groupboard/internal/models"
)

// GroupRepository stores groups and their members.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.MessageGroup) error
	GetGroupByID(ctx context.Context, id uint) (*models.MessageGroup, error)
	SoftDeleteGroup(ctx context.Context, id uint, at time.Time) error

	AddMember(ctx context.Context, member *models.MessageGroupMember) error
	GetMember(ctx context.Context, groupID, userID uint) (*models.MessageGroupMember, error)
	UpdateMemberRole(ctx context.Context, groupID, userID uint, role models.RoleID) error
	RemoveMember(ctx context.Context, groupID, userID uint) error
	ListMembers(ctx context.Context, groupID uint) ([]models.MemberDTO, error)
	ListMemberUserIDs(ctx context.Context, groupID uint) ([]uint, error)
	ListUserGroups(ctx context.Context, userID uint) ([]models.UserGroupDTO, error)
}

// gormGroupRepository implements GroupRepository with GORM.
type gormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository creates a GroupRepository on db.
func NewGormGroupRepository(db *gorm.DB) GroupRepository {
	return &gormGroupRepository{db: db}
}

func (r *gormGroupRepository) CreateGroup(ctx context.Context, group *models.MessageGroup) error {
	return expectOne(r.db.WithContext(ctx).Create(group))
}

// GetGroupByID returns the group even if it has been soft-deleted.
func (r *gormGroupRepository) GetGroupByID(ctx context.Context, id uint) (*models.MessageGroup, error) {
	var group models.MessageGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// SoftDeleteGroup flags the group. Members, posts and invitations are left in place.
func (r *gormGroupRepository) SoftDeleteGroup(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.MessageGroup{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_date": at})
	return expectOne(res)
}

// AddMember inserts a membership row; an existing (user, group) pair yields ErrDuplicate.
func (r *gormGroupRepository) AddMember(ctx context.Context, member *models.MessageGroupMember) error {
	return expectOne(r.db.WithContext(ctx).Create(member))
}

func (r *gormGroupRepository) GetMember(ctx context.Context, groupID, userID uint) (*models.MessageGroupMember, error) {
	var member models.MessageGroupMember
	err := r.db.WithContext(ctx).
		Where("message_group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *gormGroupRepository) UpdateMemberRole(ctx context.Context, groupID, userID uint, role models.RoleID) error {
	res := r.db.WithContext(ctx).Model(&models.MessageGroupMember{}).
		Where("message_group_id = ? AND user_id = ?", groupID, userID).
		Update("role_id", role)
	return expectOne(res)
}

func (r *gormGroupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("message_group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.MessageGroupMember{})
	return expectOne(res)
}

// ListMembers returns the members of a group with their display names, oldest first.
func (r *gormGroupRepository) ListMembers(ctx context.Context, groupID uint) ([]models.MemberDTO, error) {
	var members []models.MemberDTO
	err := r.db.WithContext(ctx).Table("message_group_members AS m").
		Select("m.user_id, m.message_group_id, COALESCE(m.role_id, 0) AS role_id, u.display_name").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.message_group_id = ?", groupID).
		Order("m.id ASC").
		Scan(&members).Error
	return members, err
}

func (r *gormGroupRepository) ListMemberUserIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.MessageGroupMember{}).
		Where("message_group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListUserGroups returns every group the user belongs to, deleted ones included.
func (r *gormGroupRepository) ListUserGroups(ctx context.Context, userID uint) ([]models.UserGroupDTO, error) {
	var rows []struct {
		models.MessageGroup
		RoleID models.RoleID
	}
	err := r.db.WithContext(ctx).Model(&models.MessageGroup{}).
		Select("message_groups.*, COALESCE(m.role_id, 0) AS role_id").
		Joins("JOIN message_group_members m ON m.message_group_id = message_groups.id").
		Where("m.user_id = ?", userID).
		Order("message_groups.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	groups := make([]models.UserGroupDTO, 0, len(rows))
	for i := range rows {
		groups = append(groups, models.UserGroupDTO{
			GroupDTO: models.NewGroupDTO(&rows[i].MessageGroup),
			RoleID:   rows[i].RoleID,
		})
	}
	return groups, nil
}
