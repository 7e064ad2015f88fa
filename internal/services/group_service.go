package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"groupboard/internal/events"
	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// GroupService defines the group and membership operations.
type GroupService interface {
	CreateGroup(ctx context.Context, callerID uint, name string) (models.GroupDTO, error)
	GetGroup(ctx context.Context, callerID, groupID uint) (models.GroupDTO, error)
	ListMembers(ctx context.Context, callerID, groupID uint) ([]models.MemberDTO, error)
	SetGroupRole(ctx context.Context, callerID uint, in SetRoleInput) (models.MemberDTO, error)
	DeleteGroup(ctx context.Context, callerID, groupID uint) error
	DeleteGroupMember(ctx context.Context, callerID, userID, groupID uint) error
}

type SetRoleInput struct {
	UserID         uint          `json:"userId"`
	MessageGroupID uint          `json:"messageGroupId"`
	RoleID         models.RoleID `json:"roleId"`
}

type groupService struct {
	workflow
}

func NewGroupService(store *storage.Store, authority MembershipAuthority, publisher events.Publisher, queryTimeout time.Duration) GroupService {
	return &groupService{workflow: newWorkflow(store, authority, publisher, queryTimeout)}
}

// CreateGroup inserts the group and makes the caller its admin. Both rows
// commit together or not at all.
func (s *groupService) CreateGroup(ctx context.Context, callerID uint, name string) (models.GroupDTO, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 4 || n > 50 {
		return models.GroupDTO{}, invalid("name must be 4-50 characters")
	}
	if err := requireCaller(callerID); err != nil {
		return models.GroupDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	group := &models.MessageGroup{Name: name}
	err := s.transact(ctx, "create group tx", group, func(tx *storage.Repositories) error {
		caller, err := tx.Users.GetByID(ctx, callerID)
		if storage.IsNotFound(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return storeFailure(ctx, "get user", callerID, err)
		}
		if caller.IsDeleted {
			return ErrUnauthorized
		}
		if err := tx.Groups.CreateGroup(ctx, group); err != nil {
			return storeFailure(ctx, "create group", group, err)
		}
		role := models.RoleAdmin
		admin := &models.MessageGroupMember{UserID: callerID, MessageGroupID: group.ID, RoleID: &role}
		if err := tx.Groups.AddMember(ctx, admin); err != nil {
			if errors.Is(err, storage.ErrForeignKey) {
				return ErrUserNotFound
			}
			return storeFailure(ctx, "add group admin", admin, err)
		}
		return nil
	})
	if err != nil {
		return models.GroupDTO{}, err
	}
	return models.NewGroupDTO(group), nil
}

// GetGroup returns the group to members, including after it was soft-deleted.
func (s *groupService) GetGroup(ctx context.Context, callerID, groupID uint) (models.GroupDTO, error) {
	if err := requireID("groupId", groupID); err != nil {
		return models.GroupDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.GroupDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, groupID, false); err != nil {
		return models.GroupDTO{}, err
	}
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return models.GroupDTO{}, err
	}
	return models.NewGroupDTO(group), nil
}

func (s *groupService) ListMembers(ctx context.Context, callerID, groupID uint) ([]models.MemberDTO, error) {
	if err := requireID("groupId", groupID); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, groupID, false); err != nil {
		return nil, err
	}
	members, err := s.store.Groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, storeFailure(ctx, "list members", groupID, err)
	}
	return members, nil
}

// SetGroupRole changes an existing member's role. It never adds a member.
func (s *groupService) SetGroupRole(ctx context.Context, callerID uint, in SetRoleInput) (models.MemberDTO, error) {
	if err := requireID("userId", in.UserID); err != nil {
		return models.MemberDTO{}, err
	}
	if err := requireID("messageGroupId", in.MessageGroupID); err != nil {
		return models.MemberDTO{}, err
	}
	if !in.RoleID.Valid() {
		return models.MemberDTO{}, invalid("roleId must be 1 (admin) or 2 (user)")
	}
	if err := requireCaller(callerID); err != nil {
		return models.MemberDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, in.MessageGroupID, true); err != nil {
		return models.MemberDTO{}, err
	}

	member, err := s.store.Groups.GetMember(ctx, in.MessageGroupID, in.UserID)
	if storage.IsNotFound(err) {
		return models.MemberDTO{}, ErrNotAMember
	}
	if err != nil {
		return models.MemberDTO{}, storeFailure(ctx, "get member", in, err)
	}
	if member.Role() == in.RoleID {
		return models.NewMemberDTO(member), nil
	}

	if err := s.store.Groups.UpdateMemberRole(ctx, in.MessageGroupID, in.UserID, in.RoleID); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return models.MemberDTO{}, ErrNotAMember
		}
		return models.MemberDTO{}, storeFailure(ctx, "update member role", in, err)
	}
	role := in.RoleID
	member.RoleID = &role
	return models.NewMemberDTO(member), nil
}

// DeleteGroup soft-deletes the group. Members, posts and invitations stay
// addressable by id.
func (s *groupService) DeleteGroup(ctx context.Context, callerID, groupID uint) error {
	if err := requireID("groupId", groupID); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, groupID, true); err != nil {
		return err
	}
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsDeleted {
		return ErrAlreadyDeleted
	}
	if err := s.store.Groups.SoftDeleteGroup(ctx, groupID, s.now()); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrAlreadyDeleted
		}
		return storeFailure(ctx, "delete group", groupID, err)
	}
	return nil
}

// DeleteGroupMember removes userID from the group. Admins may remove anyone;
// other members only themselves. A missing group and a missing member are
// reported separately.
func (s *groupService) DeleteGroupMember(ctx context.Context, callerID, userID, groupID uint) error {
	if err := requireID("userId", userID); err != nil {
		return err
	}
	if err := requireID("groupId", groupID); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return err
	}
	if callerID != userID {
		if _, err := s.requireRole(ctx, callerID, groupID, true); err != nil {
			return err
		}
	}

	if _, err := s.store.Groups.GetMember(ctx, groupID, userID); err != nil {
		if storage.IsNotFound(err) {
			return ErrMemberNotFound
		}
		return storeFailure(ctx, "get member", map[string]uint{"userId": userID, "groupId": groupID}, err)
	}
	if err := s.store.Groups.RemoveMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrMemberNotFound
		}
		return storeFailure(ctx, "remove member", map[string]uint{"userId": userID, "groupId": groupID}, err)
	}

	s.afterCommit(ctx, "delete group member",
		step{name: "remove shortcut", run: func(ctx context.Context) error {
			return s.store.Shortcuts.DeleteIfExists(ctx, userID, groupID)
		}},
		step{name: "clear default group", run: func(ctx context.Context) error {
			return s.store.Users.ClearDefaultGroup(ctx, userID, groupID)
		}},
		s.publishStep(events.Event{Type: events.MemberRemoved, GroupID: groupID, ActorID: callerID, TargetUserID: userID}),
	)
	return nil
}
