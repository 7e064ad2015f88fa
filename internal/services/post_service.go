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

const (
	defaultPostCount = 15
	maxPostCount     = 100
)

// PostService defines the post operations.
type PostService interface {
	NewPost(ctx context.Context, callerID uint, in NewPostInput) (models.PostDTO, error)
	GetPost(ctx context.Context, callerID, postID uint) (models.PostDTO, error)
	DeletePost(ctx context.Context, callerID, postID uint) error
	ListPosts(ctx context.Context, callerID uint, in ListPostsInput) ([]models.PostDTO, error)
}

type NewPostInput struct {
	MessageGroupID uint       `json:"messageGroupId"`
	Message        string     `json:"message"`
	StaleDate      *time.Time `json:"staleDate"`
}

// ListPostsInput selects a page of one bucket. Count 0 means the default page size.
type ListPostsInput struct {
	MessageGroupID uint
	Bucket         models.PostBucket
	Count          int
	Skip           int
}

type postService struct {
	workflow
}

func NewPostService(store *storage.Store, authority MembershipAuthority, publisher events.Publisher, queryTimeout time.Duration) PostService {
	return &postService{workflow: newWorkflow(store, authority, publisher, queryTimeout)}
}

// NewPost stores a post. The stale date is the author's choice and is kept in UTC.
func (s *postService) NewPost(ctx context.Context, callerID uint, in NewPostInput) (models.PostDTO, error) {
	if err := requireID("messageGroupId", in.MessageGroupID); err != nil {
		return models.PostDTO{}, err
	}
	message := strings.TrimSpace(in.Message)
	if n := utf8.RuneCountInString(message); n < 1 || n > 255 {
		return models.PostDTO{}, invalid("message must be 1-255 characters")
	}
	if err := requireCaller(callerID); err != nil {
		return models.PostDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, in.MessageGroupID, false); err != nil {
		return models.PostDTO{}, err
	}
	if _, err := s.loadLiveGroup(ctx, in.MessageGroupID); err != nil {
		return models.PostDTO{}, err
	}

	post := &models.Post{UserID: callerID, MessageGroupID: in.MessageGroupID, Message: message}
	if in.StaleDate != nil {
		stale := in.StaleDate.UTC()
		post.StaleDate = &stale
	}
	if err := s.store.Posts.Create(ctx, post); err != nil {
		return models.PostDTO{}, storeFailure(ctx, "create post", post, err)
	}

	s.afterCommit(ctx, "new post", s.publishStep(events.Event{
		Type:      events.PostCreated,
		GroupID:   post.MessageGroupID,
		ActorID:   callerID,
		SubjectID: post.ID,
	}))
	return models.NewPostDTO(post), nil
}

// loadPost returns the post once the caller is known to be a member of its group.
func (s *postService) loadPost(ctx context.Context, callerID, postID uint) (*models.Post, error) {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if storage.IsNotFound(err) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, storeFailure(ctx, "get post", postID, err)
	}
	if _, err := s.requireRole(ctx, callerID, post.MessageGroupID, false); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) GetPost(ctx context.Context, callerID, postID uint) (models.PostDTO, error) {
	if err := requireID("postId", postID); err != nil {
		return models.PostDTO{}, err
	}
	if err := requireCaller(callerID); err != nil {
		return models.PostDTO{}, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	post, err := s.loadPost(ctx, callerID, postID)
	if err != nil {
		return models.PostDTO{}, err
	}
	dtos, err := s.enrich(ctx, []models.Post{*post})
	if err != nil {
		return models.PostDTO{}, err
	}
	return dtos[0], nil
}

// DeletePost soft-deletes a post. The caller must be a member of the
// group and the author.
func (s *postService) DeletePost(ctx context.Context, callerID, postID uint) error {
	if err := requireID("postId", postID); err != nil {
		return err
	}
	if err := requireCaller(callerID); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	post, err := s.loadPost(ctx, callerID, postID)
	if err != nil {
		return err
	}
	if post.UserID != callerID {
		return ErrUnauthorized
	}
	if post.IsDeleted {
		return ErrAlreadyDeleted
	}
	if err := s.store.Posts.SoftDelete(ctx, postID, s.now()); err != nil {
		if errors.Is(err, storage.ErrUnexpectedRowCount) {
			return ErrAlreadyDeleted
		}
		return storeFailure(ctx, "delete post", postID, err)
	}
	return nil
}

// ListPosts returns one page of a bucket, newest first, as seen by the caller.
func (s *postService) ListPosts(ctx context.Context, callerID uint, in ListPostsInput) ([]models.PostDTO, error) {
	if err := requireID("messageGroupId", in.MessageGroupID); err != nil {
		return nil, err
	}
	if _, ok := models.ParsePostBucket(string(in.Bucket)); !ok {
		return nil, invalid("unknown bucket %q", in.Bucket)
	}
	if in.Count == 0 {
		in.Count = defaultPostCount
	}
	if in.Count < 1 || in.Count > maxPostCount {
		return nil, invalid("count must be 1-%d", maxPostCount)
	}
	if in.Skip < 0 {
		return nil, invalid("skip must not be negative")
	}
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.requireRole(ctx, callerID, in.MessageGroupID, false); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts.List(ctx, storage.PostQuery{
		GroupID: in.MessageGroupID,
		UserID:  callerID,
		Bucket:  in.Bucket,
		Now:     s.now(),
		Skip:    in.Skip,
		Count:   in.Count,
	})
	if err != nil {
		return nil, storeFailure(ctx, "list posts", in, err)
	}
	return s.enrich(ctx, posts)
}

// enrich attaches author names and the full acknowledgement list.
func (s *postService) enrich(ctx context.Context, posts []models.Post) ([]models.PostDTO, error) {
	out := make([]models.PostDTO, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	postIDs := make([]uint, 0, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	for i := range posts {
		postIDs = append(postIDs, posts[i].ID)
		authorIDs = append(authorIDs, posts[i].UserID)
	}

	names, err := s.store.Users.DisplayNames(ctx, authorIDs)
	if err != nil {
		return nil, storeFailure(ctx, "author names", authorIDs, err)
	}
	acks, err := s.store.Posts.AcknowledgementsFor(ctx, postIDs)
	if err != nil {
		return nil, storeFailure(ctx, "acknowledgements", postIDs, err)
	}

	for i := range posts {
		dto := models.NewPostDTO(&posts[i])
		dto.AuthorName = names[posts[i].UserID]
		if list, ok := acks[posts[i].ID]; ok {
			dto.Acknowledgements = list
		}
		out = append(out, dto)
	}
	return out, nil
}
