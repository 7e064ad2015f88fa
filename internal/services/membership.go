package services

import (
	"context"

	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// InviteRelation is the caller's relationship to an invitation.
type InviteRelation int

const (
	InviteNone InviteRelation = iota
	InviteInviter
	InviteInvitee
)

// MembershipAuthority answers authorization questions from current store
// state. Nothing is cached, so a role change applies to the next request.
// A soft-deleted user has no role in any group and no relation to any
// invitation.
type MembershipAuthority interface {
	// GroupRole returns 0 when the user is not a member or either id is invalid.
	GroupRole(ctx context.Context, userID, groupID uint) (models.RoleID, error)
	InviteRelationship(ctx context.Context, userID, inviteID uint) (InviteRelation, error)
}

type membershipAuthority struct {
	users       storage.UserRepository
	groups      storage.GroupRepository
	invitations storage.InvitationRepository
}

func NewMembershipAuthority(users storage.UserRepository, groups storage.GroupRepository, invitations storage.InvitationRepository) MembershipAuthority {
	return &membershipAuthority{users: users, groups: groups, invitations: invitations}
}

func (a *membershipAuthority) live(ctx context.Context, userID uint) (bool, error) {
	user, err := a.users.GetByID(ctx, userID)
	if storage.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !user.IsDeleted, nil
}

func (a *membershipAuthority) GroupRole(ctx context.Context, userID, groupID uint) (models.RoleID, error) {
	if userID < 1 || groupID < 1 {
		return 0, nil
	}
	member, err := a.groups.GetMember(ctx, groupID, userID)
	if storage.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if ok, err := a.live(ctx, userID); err != nil || !ok {
		return 0, err
	}
	return member.Role(), nil
}

func (a *membershipAuthority) InviteRelationship(ctx context.Context, userID, inviteID uint) (InviteRelation, error) {
	if userID < 1 || inviteID < 1 {
		return InviteNone, nil
	}
	inv, err := a.invitations.GetByID(ctx, inviteID)
	if storage.IsNotFound(err) {
		return InviteNone, nil
	}
	if err != nil {
		return InviteNone, err
	}
	if userID != inv.InvitingUserID && userID != inv.InvitedUserID {
		return InviteNone, nil
	}
	if ok, err := a.live(ctx, userID); err != nil || !ok {
		return InviteNone, err
	}
	if userID == inv.InvitingUserID {
		return InviteInviter, nil
	}
	return InviteInvitee, nil
}
