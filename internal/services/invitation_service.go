package services

import (
	"context"
	"errors"
	"time"

	"groupboard/internal/events"
	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// maxAutoShortcuts caps the shortcuts added automatically on acceptance.
const maxAutoShortcuts = 5

// InvitationService defines the invitation workflow. An invitation is
// resolved exactly once, by accept or decline, or removed by its inviter.
type InvitationService interface {
	CreateInvitation(ctx context.Context, callerID uint, in CreateInvitationInput) (models.InvitationDTO, error)
	GetInvitation(ctx context.Context, callerID, invitationID uint) (models.InvitationDTO, error)
	ListUserInvitations(ctx context.Context, callerID, userID uint) ([]models.InvitationDTO, error)
	AcceptInvitation(ctx context.Context, callerID, invitationID uint) (models.InvitationDTO, error)
	DeclineInvitation(ctx context.Context, callerID, invitationID uint) (models.InvitationDTO, error)
	DeleteInvitation(ctx context.Context, callerID, invitationID uint) error
}

type CreateInvitationInput struct {
	MessageGroupID uint `json:"messageGroupId"`
	InvitedUserID  uint `json:"invitedUserId"`
}

type invitationService struct {
	workflow
}

func NewInvitationService(store *storage.Store, authority MembershipAuthority, publisher events.Publisher, queryTimeout time.Duration) InvitationService {
	return &invitationService{workflow: newWorkflow(store, authority, publisher, queryTimeout)}
}

func (s *invitationService) CreateInvitation(ctx context.Context, callerID uint, in CreateInvitationInput) (models.InvitationDTO, error) {
	if err := requireID("messageGroupId", in.MessageGroupID); err != nil {
		return models.InvitationDTO{}, err
	}
	if err := requireID("invitedUserId", in.InvitedUserID); err != nil {
		return models.InvitationDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.InvitationDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, in.MessageGroupID, false); err != nil {
		return models.InvitationDTO{}, err
	}
	if _, err := s.loadLiveGroup(ctx, in.MessageGroupID); err != nil {
		return models.InvitationDTO{}, err
	}

	invitee, err := s.store.Users.GetByID(ctx, in.InvitedUserID)
	if storage.IsNotFound(err) {
		return models.InvitationDTO{}, ErrUserNotFound
	}
	if err != nil {
		return models.InvitationDTO{}, storeFailure(ctx, "get invitee", in, err)
	}
	if invitee.IsDeleted {
		return models.InvitationDTO{}, ErrUserNotFound
	}

	role, err := s.authority.GroupRole(ctx, invitee.ID, in.MessageGroupID)
	if err != nil {
		return models.InvitationDTO{}, storeFailure(ctx, "group role", in, err)
	}
	if role != 0 {
		return models.InvitationDTO{}, ErrAlreadyMember
	}
	if !invitee.AcceptGroupInvitations {
		return models.InvitationDTO{}, ErrNotAcceptingInvitations
	}
	active, err := s.store.Invitations.HasActive(ctx, in.MessageGroupID, invitee.ID)
	if err != nil {
		return models.InvitationDTO{}, storeFailure(ctx, "check active invitation", in, err)
	}
	if active {
		return models.InvitationDTO{}, ErrActiveInvitationExists
	}

	inv := &models.MessageGroupInvitation{
		MessageGroupID: in.MessageGroupID,
		InvitedUserID:  invitee.ID,
		InvitingUserID: callerID,
	}
	if err := s.store.Invitations.Create(ctx, inv); err != nil {
		// A concurrent request won the race for the active slot.
		if errors.Is(err, storage.ErrDuplicate) {
			return models.InvitationDTO{}, ErrActiveInvitationExists
		}
		return models.InvitationDTO{}, storeFailure(ctx, "create invitation", inv, err)
	}

	s.afterCommit(ctx, "create invitation", s.publishStep(events.Event{
		Type:         events.InvitationCreated,
		GroupID:      inv.MessageGroupID,
		ActorID:      callerID,
		SubjectID:    inv.ID,
		TargetUserID: inv.InvitedUserID,
	}))
	return models.NewInvitationDTO(inv), nil
}

// loadInvitation returns the invitation once the caller has relation want
// to it; any relation when want is InviteNone.
func (s *invitationService) loadInvitation(ctx context.Context, callerID, invitationID uint, want InviteRelation) (*models.MessageGroupInvitation, error) {
	inv, err := s.store.Invitations.GetByID(ctx, invitationID)
	if storage.IsNotFound(err) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, storeFailure(ctx, "get invitation", invitationID, err)
	}
	rel, err := s.authority.InviteRelationship(ctx, callerID, invitationID)
	if err != nil {
		return nil, storeFailure(ctx, "invite relationship", invitationID, err)
	}
	if rel == InviteNone || (want != InviteNone && rel != want) {
		return nil, ErrUnauthorized
	}
	return inv, nil
}

func (s *invitationService) GetInvitation(ctx context.Context, callerID, invitationID uint) (models.InvitationDTO, error) {
	if err := requireID("invitationId", invitationID); err != nil {
		return models.InvitationDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.InvitationDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	inv, err := s.loadInvitation(ctx, callerID, invitationID, InviteNone)
	if err != nil {
		return models.InvitationDTO{}, err
	}
	return models.NewInvitationDTO(inv), nil
}

// ListUserInvitations returns the active invitations the user has received.
func (s *invitationService) ListUserInvitations(ctx context.Context, callerID, userID uint) ([]models.InvitationDTO, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if callerID != userID {
		return nil, ErrUnauthorized
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	invitations, err := s.store.Invitations.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, storeFailure(ctx, "list invitations", userID, err)
	}
	return invitations, nil
}

// AcceptInvitation resolves the invitation and inserts the membership in one
// transaction. Adding a shortcut, setting the default group and publishing
// follow as best-effort steps.
func (s *invitationService) AcceptInvitation(ctx context.Context, callerID, invitationID uint) (models.InvitationDTO, error) {
	if err := requireID("invitationId", invitationID); err != nil {
		return models.InvitationDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.InvitationDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	inv, err := s.loadInvitation(ctx, callerID, invitationID, InviteInvitee)
	if err != nil {
		return models.InvitationDTO{}, err
	}
	if !inv.InvitationActive {
		return models.InvitationDTO{}, ErrInvitationUsed
	}
	if _, err := s.loadLiveGroup(ctx, inv.MessageGroupID); err != nil {
		return models.InvitationDTO{}, err
	}

	at := s.now()
	err = s.transact(ctx, "accept invitation tx", inv, func(tx *storage.Repositories) error {
		if err := tx.Invitations.Resolve(ctx, inv.ID, true, at); err != nil {
			if errors.Is(err, storage.ErrUnexpectedRowCount) {
				return ErrInvitationUsed
			}
			return storeFailure(ctx, "resolve invitation", inv, err)
		}
		role := models.RoleUser
		member := &models.MessageGroupMember{UserID: callerID, MessageGroupID: inv.MessageGroupID, RoleID: &role}
		if err := tx.Groups.AddMember(ctx, member); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return ErrAlreadyMember
			}
			return storeFailure(ctx, "add member", member, err)
		}
		return nil
	})
	if err != nil {
		return models.InvitationDTO{}, err
	}
	inv.InvitationActive = false
	inv.InvitationAccepted = true
	inv.ActionDate = &at

	groupID := inv.MessageGroupID
	s.afterCommit(ctx, "accept invitation",
		step{name: "add shortcut", run: func(ctx context.Context) error {
			n, err := s.store.Shortcuts.CountForUser(ctx, callerID)
			if err != nil {
				return err
			}
			if n >= maxAutoShortcuts {
				return nil
			}
			err = s.store.Shortcuts.Create(ctx, &models.MessageGroupShortcut{UserID: callerID, MessageGroupID: groupID})
			if errors.Is(err, storage.ErrDuplicate) {
				return nil
			}
			return err
		}},
		step{name: "set default group", run: func(ctx context.Context) error {
			_, err := s.store.Users.SetDefaultGroupIfUnset(ctx, callerID, groupID)
			return err
		}},
		s.publishStep(events.Event{
			Type:      events.InvitationAccepted,
			GroupID:   groupID,
			ActorID:   callerID,
			SubjectID: inv.ID,
		}),
	)
	return models.NewInvitationDTO(inv), nil
}

// DeclineInvitation resolves the invitation without a membership change.
func (s *invitationService) DeclineInvitation(ctx context.Context, callerID, invitationID uint) (models.InvitationDTO, error) {
	if err := requireID("invitationId", invitationID); err != nil {
		return models.InvitationDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.InvitationDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	inv, err := s.loadInvitation(ctx, callerID, invitationID, InviteInvitee)
	if err != nil {
		return models.InvitationDTO{}, err
	}
	if !inv.InvitationActive {
		return models.InvitationDTO{}, ErrInvitationUsed
	}

	at := s.now()
	if err := s.store.Invitations.Resolve(ctx, inv.ID, false, at); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return models.InvitationDTO{}, ErrInvitationUsed
		}
		return models.InvitationDTO{}, storeFailure(ctx, "resolve invitation", inv, err)
	}
	inv.InvitationActive = false
	inv.InvitationAccepted = false
	inv.ActionDate = &at
	return models.NewInvitationDTO(inv), nil
}

// DeleteInvitation removes the invitation. Only the inviter may do this.
func (s *invitationService) DeleteInvitation(ctx context.Context, callerID, invitationID uint) error {
	if err := requireID("invitationId", invitationID); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	inv, err := s.loadInvitation(ctx, callerID, invitationID, InviteInviter)
	if err != nil {
		return err
	}
	if err := s.store.Invitations.Delete(ctx, inv.ID); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrInvitationNotFound
		}
		return storeFailure(ctx, "delete invitation", inv, err)
	}
	return nil
}
