package services

import (
	"context"
	"errors"
	"time"

	"groupboard/internal/events"
	"groupboard/internal/models"
	"groupboard/internal/storage"
)

// AcknowledgementService defines acknowledging posts. Users only ever act
// for themselves.
type AcknowledgementService interface {
	NewAcknowledgement(ctx context.Context, callerID uint, in AcknowledgementInput) (models.AcknowledgementDTO, error)
	DeleteAcknowledgement(ctx context.Context, callerID, postID, userID uint) error
}

type AcknowledgementInput struct {
	PostID uint `json:"postId"`
	UserID uint `json:"userId"`
}

type acknowledgementService struct {
	workflow
}

func NewAcknowledgementService(store *storage.Store, authority MembershipAuthority, publisher events.Publisher, queryTimeout time.Duration) AcknowledgementService {
	return &acknowledgementService{workflow: newWorkflow(store, authority, publisher, queryTimeout)}
}

func (s *acknowledgementService) NewAcknowledgement(ctx context.Context, callerID uint, in AcknowledgementInput) (models.AcknowledgementDTO, error) {
	if err := requireID("postId", in.PostID); err != nil {
		return models.AcknowledgementDTO{}, err
	}
	if err := requireID("userId", in.UserID); err != nil {
		return models.AcknowledgementDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.AcknowledgementDTO{}, err
	}
	if callerID != in.UserID {
		return models.AcknowledgementDTO{}, ErrUnauthorized
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	post, err := s.store.Posts.GetByID(ctx, in.PostID)
	if storage.IsNotFound(err) {
		return models.AcknowledgementDTO{}, ErrPostNotFound
	}
	if err != nil {
		return models.AcknowledgementDTO{}, storeFailure(ctx, "get post", in, err)
	}
	if post.IsDeleted {
		return models.AcknowledgementDTO{}, ErrPostNotFound
	}
	if _, err := s.requireRole(ctx, callerID, post.MessageGroupID, false); err != nil {
		return models.AcknowledgementDTO{}, err
	}

	ack := &models.Acknowledgement{PostID: post.ID, UserID: callerID}
	if err := s.store.Posts.CreateAcknowledgement(ctx, ack); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return models.AcknowledgementDTO{}, ErrDuplicateAcknowledgement
		}
		return models.AcknowledgementDTO{}, storeFailure(ctx, "create acknowledgement", ack, err)
	}
	return models.NewAcknowledgementDTO(ack), nil
}

func (s *acknowledgementService) DeleteAcknowledgement(ctx context.Context, callerID, postID, userID uint) error {
	if err := requireID("postId", postID); err != nil {
		return err
	}
	if err := requireID("userId", userID); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	if callerID != userID {
		return ErrUnauthorized
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if err := s.store.Posts.DeleteAcknowledgement(ctx, postID, userID); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrAcknowledgementNotFound
		}
		return storeFailure(ctx, "delete acknowledgement", map[string]uint{"postId": postID, "userId": userID}, err)
	}
	return nil
}
