package services

import (
	"context"
	"errors"
	"time"

	"groupboard/internal/events"
	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// ShortcutService defines a user's pinned groups.
type ShortcutService interface {
	CreateShortcut(ctx context.Context, callerID uint, in ShortcutInput) (models.ShortcutDTO, error)
	DeleteShortcut(ctx context.Context, callerID, userID, groupID uint) error
	ListShortcuts(ctx context.Context, callerID, userID uint) ([]models.ShortcutDTO, error)
}

type ShortcutInput struct {
	UserID         uint `json:"userId"`
	MessageGroupID uint `json:"messageGroupId"`
}

type shortcutService struct {
	workflow
}

func NewShortcutService(store *storage.Store, authority MembershipAuthority, queryTimeout time.Duration) ShortcutService {
	return &shortcutService{workflow: newWorkflow(store, authority, events.NopPublisher{}, queryTimeout)}
}

func requireOwner(callerID, userID uint) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	if callerID != userID {
		return ErrUnauthorized
	}
	return nil
}

func (s *shortcutService) CreateShortcut(ctx context.Context, callerID uint, in ShortcutInput) (models.ShortcutDTO, error) {
	if err := requireID("userId", in.UserID); err != nil {
		return models.ShortcutDTO{}, err
	}
	if err := requireID("messageGroupId", in.MessageGroupID); err != nil {
		return models.ShortcutDTO{}, err
	}
	if err := requireOwner(callerID, in.UserID); err != nil {
		return models.ShortcutDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, in.MessageGroupID, false); err != nil {
		return models.ShortcutDTO{}, err
	}
	group, err := s.loadLiveGroup(ctx, in.MessageGroupID)
	if err != nil {
		return models.ShortcutDTO{}, err
	}

	shortcut := &models.MessageGroupShortcut{UserID: in.UserID, MessageGroupID: in.MessageGroupID}
	if err := s.store.Shortcuts.Create(ctx, shortcut); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return models.ShortcutDTO{}, ErrDuplicateShortcut
		}
		return models.ShortcutDTO{}, storeFailure(ctx, "create shortcut", shortcut, err)
	}
	dto := models.NewShortcutDTO(shortcut)
	dto.GroupName = group.Name
	return dto, nil
}

func (s *shortcutService) DeleteShortcut(ctx context.Context, callerID, userID, groupID uint) error {
	if err := requireID("userId", userID); err != nil {
		return err
	}
	if err := requireID("groupId", groupID); err != nil {
		return err
	}
	if err := requireOwner(callerID, userID); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if err := s.store.Shortcuts.Delete(ctx, userID, groupID); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrShortcutNotFound
		}
		return storeFailure(ctx, "delete shortcut", map[string]uint{"userId": userID, "groupId": groupID}, err)
	}
	return nil
}

func (s *shortcutService) ListShortcuts(ctx context.Context, callerID, userID uint) ([]models.ShortcutDTO, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if err := requireOwner(callerID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	shortcuts, err := s.store.Shortcuts.ListForUser(ctx, userID)
	if err != nil {
		return nil, storeFailure(ctx, "list shortcuts", userID, err)
	}
	return shortcuts, nil
}
