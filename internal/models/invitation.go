package models

import "time"

// MessageGroupInvitation is an offer for a user to join a group.
// At most one active invitation exists per (MessageGroupID, InvitedUserID);
// resolved invitations are kept as history.
type MessageGroupInvitation struct {
	BaseModel
	MessageGroupID     uint       `gorm:"not null;uniqueIndex:idx_active_invitation,where:invitation_active = true"`
	InvitedUserID      uint       `gorm:"not null;uniqueIndex:idx_active_invitation,where:invitation_active = true;index"`
	InvitingUserID     uint       `gorm:"not null;index"`
	InvitationActive   bool       `gorm:"not null;default:true"`
	InvitationAccepted bool       `gorm:"not null;default:false"`
	ActionDate         *time.Time

	MessageGroup *MessageGroup `gorm:"foreignKey:MessageGroupID;constraint:OnDelete:CASCADE" json:"-"`
	InvitedUser  *User         `gorm:"foreignKey:InvitedUserID;constraint:OnDelete:CASCADE" json:"-"`
	InvitingUser *User         `gorm:"foreignKey:InvitingUserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by MessageGroupInvitation.
func (MessageGroupInvitation) TableName() string {
	return "message_group_invitations"
}
