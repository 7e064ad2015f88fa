package models

import (
	"strconv"
	"time"
)

// BaseModel defines the common fields for all models.
type BaseModel struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdDate"`
	UpdatedAt time.Time `json:"-"`
}

// IDString returns the ID as a string.
func (b *BaseModel) IDString() string {
	return strconv.FormatUint(uint64(b.ID), 10)
}

// SoftDelete marks rows that stay addressable by id after deletion.
// gorm.DeletedAt is not used because deleted groups and posts must remain readable.
type SoftDelete struct {
	IsDeleted   bool       `gorm:"not null;default:false;index" json:"isDeleted"`
	DeletedDate *time.Time `json:"deletedDate,omitempty"`
}
