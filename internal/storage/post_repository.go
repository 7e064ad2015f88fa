package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"groupboard/internal/models"
)

// PostQuery selects one page of one bucket of a group's posts as seen by a user.
type PostQuery struct {
	GroupID uint
	UserID  uint
	Bucket  models.PostBucket
	Now     time.Time
	Skip    int
	Count   int
}

// PostRepository handles posts and their acknowledgements.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	SoftDelete(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, q PostQuery) ([]models.Post, error)

	CreateAcknowledgement(ctx context.Context, ack *models.Acknowledgement) error
	GetAcknowledgement(ctx context.Context, postID, userID uint) (*models.Acknowledgement, error)
	DeleteAcknowledgement(ctx context.Context, postID, userID uint) error
	// AcknowledgementsFor returns acknowledgements keyed by post id, with display names.
	AcknowledgementsFor(ctx context.Context, postIDs []uint) (map[uint][]models.AcknowledgementDTO, error)
}

type gormPostRepository struct {
	db *gorm.DB
}

func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) Create(ctx context.Context, post *models.Post) error {
	return expectOne(r.db.WithContext(ctx).Create(post))
}

// GetByID returns the post even if it has been soft-deleted.
func (r *gormPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormPostRepository) SoftDelete(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_date": at})
	return expectOne(res)
}

// List evaluates the bucket predicates in SQL:
//
//	new:          not stale and not acknowledged by the user
//	acknowledged: not stale and acknowledged by the user
//	stale:        stale_date <= now
func (r *gormPostRepository) List(ctx context.Context, q PostQuery) ([]models.Post, error) {
	const acked = "EXISTS (SELECT 1 FROM acknowledgements a WHERE a.post_id = posts.id AND a.user_id = ?)"

	tx := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("posts.message_group_id = ? AND posts.is_deleted = ?", q.GroupID, false)

	switch q.Bucket {
	case models.BucketStale:
		tx = tx.Where("posts.stale_date IS NOT NULL AND posts.stale_date <= ?", q.Now)
	case models.BucketAcknowledged:
		tx = tx.Where("(posts.stale_date IS NULL OR posts.stale_date > ?)", q.Now).Where(acked, q.UserID)
	default:
		tx = tx.Where("(posts.stale_date IS NULL OR posts.stale_date > ?)", q.Now).Where("NOT "+acked, q.UserID)
	}

	var posts []models.Post
	err := tx.Order("posts.created_at DESC").Order("posts.id DESC").
		Offset(q.Skip).Limit(q.Count).
		Find(&posts).Error
	return posts, err
}

// CreateAcknowledgement inserts an acknowledgement; a second one for the
// same (user, post) fails with ErrDuplicate.
func (r *gormPostRepository) CreateAcknowledgement(ctx context.Context, ack *models.Acknowledgement) error {
	return expectOne(r.db.WithContext(ctx).Create(ack))
}

func (r *gormPostRepository) GetAcknowledgement(ctx context.Context, postID, userID uint) (*models.Acknowledgement, error) {
	var ack models.Acknowledgement
	err := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&ack).Error
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

func (r *gormPostRepository) DeleteAcknowledgement(ctx context.Context, postID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Acknowledgement{})
	return expectOne(res)
}

func (r *gormPostRepository) AcknowledgementsFor(ctx context.Context, postIDs []uint) (map[uint][]models.AcknowledgementDTO, error) {
	out := make(map[uint][]models.AcknowledgementDTO, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []models.AcknowledgementDTO
	err := r.db.WithContext(ctx).Table("acknowledgements AS a").
		Select("a.post_id, a.user_id, a.created_at AS created_date, u.display_name").
		Joins("JOIN users u ON u.id = a.user_id").
		Where("a.post_id IN ?", postIDs).
		Order("a.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PostID] = append(out[row.PostID], row)
	}
	return out, nil
}
