package models

import "time"

// PostBucket selects one of the derived post states.
type PostBucket string

const (
	BucketNew          PostBucket = "new"
	BucketAcknowledged PostBucket = "acknowledged"
	BucketStale        PostBucket = "stale"
)

// ParsePostBucket maps a path segment to a bucket.
func ParsePostBucket(s string) (PostBucket, bool) {
	switch b := PostBucket(s); b {
	case BucketNew, BucketAcknowledged, BucketStale:
		return b, true
	}
	return "", false
}

// Post is a short message in a group. New, acknowledged and stale are
// computed from StaleDate and Acknowledgement rows; nothing is stored.
type Post struct {
	BaseModel
	UserID         uint   `gorm:"not null;index"`
	MessageGroupID uint   `gorm:"not null;index"`
	Message        string `gorm:"type:varchar(255);not null"`
	StaleDate      *time.Time
	SoftDelete

	User         *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	MessageGroup *MessageGroup `gorm:"foreignKey:MessageGroupID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by Post.
func (Post) TableName() string {
	return "posts"
}

// IsStale reports whether the post's stale date has passed at now.
func (p *Post) IsStale(now time.Time) bool {
	return p.StaleDate != nil && !p.StaleDate.After(now)
}

// Acknowledgement marks that a user has seen a post. One per (UserID, PostID).
type Acknowledgement struct {
	BaseModel
	PostID uint `gorm:"not null;uniqueIndex:idx_ack_user_post;index"`
	UserID uint `gorm:"not null;uniqueIndex:idx_ack_user_post"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name used by Acknowledgement.
func (Acknowledgement) TableName() string {
	return "acknowledgements"
}
