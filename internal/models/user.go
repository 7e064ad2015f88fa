package models

// User is an account linked to an external identity (the AAD object id).
type User struct {
	BaseModel
	AadOid                 string `gorm:"type:varchar(64);uniqueIndex;not null"`
	DisplayName            string `gorm:"type:varchar(50);not null"`
	AcceptGroupInvitations bool   `gorm:"not null"`
	DefaultGroupID         *uint  `gorm:"index"`
	SoftDelete

	// Declares the FK only; never preloaded.
	DefaultGroup *MessageGroup `gorm:"foreignKey:DefaultGroupID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName overrides the table name used by User.
func (User) TableName() string {
	return "users"
}
