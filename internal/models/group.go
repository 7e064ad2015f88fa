package models

// RoleID identifies a MessageGroupRole. The zero value means "no role".
type RoleID uint

const (
	RoleAdmin RoleID = 1
	RoleUser  RoleID = 2
)

// Valid reports whether r is one of the seeded roles.
func (r RoleID) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// MessageGroup is a named group that members post into.
type MessageGroup struct {
	BaseModel
	Name string `gorm:"type:varchar(50);not null"`
	SoftDelete
}

// TableName overrides the table name used by MessageGroup.
func (MessageGroup) TableName() string {
	return "message_groups"
}

// MessageGroupRole is the fixed role lookup table.
type MessageGroupRole struct {
	ID       RoleID `gorm:"primarykey;autoIncrement:false"`
	RoleName string `gorm:"type:varchar(20);uniqueIndex;not null"`
}

// TableName overrides the table name used by MessageGroupRole.
func (MessageGroupRole) TableName() string {
	return "message_group_roles"
}

// SeedRoles are inserted by the migration if missing.
var SeedRoles = []MessageGroupRole{
	{ID: RoleAdmin, RoleName: "Admin"},
	{ID: RoleUser, RoleName: "User"},
}

// MessageGroupMember links a user to a group with a role.
// One row per (UserID, MessageGroupID).
type MessageGroupMember struct {
	BaseModel
	UserID         uint    `gorm:"not null;uniqueIndex:idx_member_user_group"`
	MessageGroupID uint    `gorm:"not null;uniqueIndex:idx_member_user_group;index"`
	RoleID         *RoleID `gorm:"index"`

	User             *User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	MessageGroup     *MessageGroup     `gorm:"foreignKey:MessageGroupID;constraint:OnDelete:CASCADE" json:"-"`
	MessageGroupRole *MessageGroupRole `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName overrides the table name used by MessageGroupMember.
func (MessageGroupMember) TableName() string {
	return "message_group_members"
}

// Role returns the member's role, or zero if the role row is gone.
func (m *MessageGroupMember) Role() RoleID {
	if m.RoleID == nil {
		return 0
	}
	return *m.RoleID
}

// MessageGroupShortcut is a user's pinned group.
type MessageGroupShortcut struct {
	BaseModel
	UserID         uint `gorm:"not null;uniqueIndex:idx_shortcut_user_group"`
	MessageGroupID uint `gorm:"not null;uniqueIndex:idx_shortcut_user_group"`

	User         *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	MessageGroup *MessageGroup `gorm:"foreignKey:MessageGroupID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by MessageGroupShortcut.
func (MessageGroupShortcut) TableName() string {
	return "message_group_shortcuts"
}
