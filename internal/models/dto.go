package models

import "time"

// Flat response shapes. Entities are never serialized directly.

type UserDTO struct {
	ID                     uint       `json:"id"`
	AadOid                 string     `json:"aadOid"`
	DisplayName            string     `json:"displayName"`
	AcceptGroupInvitations bool       `json:"acceptGroupInvitations"`
	DefaultGroupID         *uint      `json:"defaultGroupId,omitempty"`
	IsDeleted              bool       `json:"isDeleted"`
	DeletedDate            *time.Time `json:"deletedDate,omitempty"`
}

func NewUserDTO(u *User) UserDTO {
	return UserDTO{
		ID:                     u.ID,
		AadOid:                 u.AadOid,
		DisplayName:            u.DisplayName,
		AcceptGroupInvitations: u.AcceptGroupInvitations,
		DefaultGroupID:         u.DefaultGroupID,
		IsDeleted:              u.IsDeleted,
		DeletedDate:            u.DeletedDate,
	}
}

type GroupDTO struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	CreatedDate time.Time  `json:"createdDate"`
	IsDeleted   bool       `json:"isDeleted"`
	DeletedDate *time.Time `json:"deletedDate,omitempty"`
}

func NewGroupDTO(g *MessageGroup) GroupDTO {
	return GroupDTO{
		ID:          g.ID,
		Name:        g.Name,
		CreatedDate: g.CreatedAt,
		IsDeleted:   g.IsDeleted,
		DeletedDate: g.DeletedDate,
	}
}

// UserGroupDTO is a group as seen from one of its members.
type UserGroupDTO struct {
	GroupDTO
	RoleID RoleID `json:"roleId"`
}

type MemberDTO struct {
	UserID         uint   `json:"userId"`
	MessageGroupID uint   `json:"messageGroupId"`
	RoleID         RoleID `json:"roleId"`
	DisplayName    string `json:"displayName,omitempty"`
}

func NewMemberDTO(m *MessageGroupMember) MemberDTO {
	return MemberDTO{UserID: m.UserID, MessageGroupID: m.MessageGroupID, RoleID: m.Role()}
}

type InvitationDTO struct {
	ID                 uint       `json:"id"`
	MessageGroupID     uint       `json:"messageGroupId"`
	InvitedUserID      uint       `json:"invitedUserId"`
	InvitingUserID     uint       `json:"invitingUserId"`
	InvitationActive   bool       `json:"invitationActive"`
	InvitationAccepted bool       `json:"invitationAccepted"`
	CreatedDate        time.Time  `json:"createdDate"`
	ActionDate         *time.Time `json:"actionDate,omitempty"`
	GroupName          string     `json:"groupName,omitempty"`
	InvitingUserName   string     `json:"invitingUserName,omitempty"`
}

func NewInvitationDTO(inv *MessageGroupInvitation) InvitationDTO {
	return InvitationDTO{
		ID:                 inv.ID,
		MessageGroupID:     inv.MessageGroupID,
		InvitedUserID:      inv.InvitedUserID,
		InvitingUserID:     inv.InvitingUserID,
		InvitationActive:   inv.InvitationActive,
		InvitationAccepted: inv.InvitationAccepted,
		CreatedDate:        inv.CreatedAt,
		ActionDate:         inv.ActionDate,
	}
}

type AcknowledgementDTO struct {
	PostID      uint      `json:"postId"`
	UserID      uint      `json:"userId"`
	CreatedDate time.Time `json:"createdDate"`
	DisplayName string    `json:"displayName,omitempty"`
}

func NewAcknowledgementDTO(a *Acknowledgement) AcknowledgementDTO {
	return AcknowledgementDTO{PostID: a.PostID, UserID: a.UserID, CreatedDate: a.CreatedAt}
}

type PostDTO struct {
	ID               uint                 `json:"id"`
	UserID           uint                 `json:"userId"`
	MessageGroupID   uint                 `json:"messageGroupId"`
	Message          string               `json:"message"`
	CreatedDate      time.Time            `json:"createdDate"`
	StaleDate        *time.Time           `json:"staleDate,omitempty"`
	IsDeleted        bool                 `json:"isDeleted"`
	DeletedDate      *time.Time           `json:"deletedDate,omitempty"`
	AuthorName       string               `json:"authorName,omitempty"`
	Acknowledgements []AcknowledgementDTO `json:"acknowledgements"`
}

func NewPostDTO(p *Post) PostDTO {
	return PostDTO{
		ID:               p.ID,
		UserID:           p.UserID,
		MessageGroupID:   p.MessageGroupID,
		Message:          p.Message,
		CreatedDate:      p.CreatedAt,
		StaleDate:        p.StaleDate,
		IsDeleted:        p.IsDeleted,
		DeletedDate:      p.DeletedDate,
		Acknowledgements: []AcknowledgementDTO{},
	}
}

type ShortcutDTO struct {
	UserID         uint   `json:"userId"`
	MessageGroupID uint   `json:"messageGroupId"`
	GroupName      string `json:"groupName,omitempty"`
}

func NewShortcutDTO(s *MessageGroupShortcut) ShortcutDTO {
	return ShortcutDTO{UserID: s.UserID, MessageGroupID: s.MessageGroupID}
}
