package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"groupboard/internal/models"
)

// InvitationRepository handles MessageGroupInvitation rows.
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.MessageGroupInvitation) error
	GetByID(ctx context.Context, id uint) (*models.MessageGroupInvitation, error)
	HasActive(ctx context.Context, groupID, invitedUserID uint) (bool, error)
	// Resolve flips an active invitation to accepted or declined. It touches
	// no row, and fails with ErrUnexpectedRowCount, once the invitation is resolved.
	Resolve(ctx context.Context, id uint, accepted bool, at time.Time) error
	Delete(ctx context.Context, id uint) error
	ListActiveForUser(ctx context.Context, invitedUserID uint) ([]models.InvitationDTO, error)
}

type gormInvitationRepository struct {
	db *gorm.DB
}

func NewGormInvitationRepository(db *gorm.DB) InvitationRepository {
	return &gormInvitationRepository{db: db}
}

// Create inserts an active invitation. The partial unique index turns a
// second active invitation for the same (group, invitee) into ErrDuplicate.
func (r *gormInvitationRepository) Create(ctx context.Context, inv *models.MessageGroupInvitation) error {
	inv.InvitationActive = true
	inv.InvitationAccepted = false
	return expectOne(r.db.WithContext(ctx).Create(inv))
}

func (r *gormInvitationRepository) GetByID(ctx context.Context, id uint) (*models.MessageGroupInvitation, error) {
	var inv models.MessageGroupInvitation
	if err := r.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *gormInvitationRepository) HasActive(ctx context.Context, groupID, invitedUserID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MessageGroupInvitation{}).
		Where("message_group_id = ? AND invited_user_id = ? AND invitation_active = ?", groupID, invitedUserID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *gormInvitationRepository) Resolve(ctx context.Context, id uint, accepted bool, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.MessageGroupInvitation{}).
		Where("id = ? AND invitation_active = ?", id, true).
		Updates(map[string]interface{}{
			"invitation_active":   false,
			"invitation_accepted": accepted,
			"action_date":         at,
		})
	return expectOne(res)
}

func (r *gormInvitationRepository) Delete(ctx context.Context, id uint) error {
	return expectOne(r.db.WithContext(ctx).Delete(&models.MessageGroupInvitation{}, id))
}

// ListActiveForUser returns the pending invitations a user has received, newest first.
func (r *gormInvitationRepository) ListActiveForUser(ctx context.Context, invitedUserID uint) ([]models.InvitationDTO, error) {
	var rows []struct {
		models.MessageGroupInvitation
		GroupName        string
		InvitingUserName string
	}
	err := r.db.WithContext(ctx).Model(&models.MessageGroupInvitation{}).
		Select("message_group_invitations.*, g.name AS group_name, u.display_name AS inviting_user_name").
		Joins("JOIN message_groups g ON g.id = message_group_invitations.message_group_id").
		Joins("JOIN users u ON u.id = message_group_invitations.inviting_user_id").
		Where("message_group_invitations.invited_user_id = ? AND message_group_invitations.invitation_active = ?", invitedUserID, true).
		Order("message_group_invitations.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.InvitationDTO, 0, len(rows))
	for i := range rows {
		dto := models.NewInvitationDTO(&rows[i].MessageGroupInvitation)
		dto.GroupName = rows[i].GroupName
		dto.InvitingUserName = rows[i].InvitingUserName
		out = append(out, dto)
	}
	return out, nil
}
