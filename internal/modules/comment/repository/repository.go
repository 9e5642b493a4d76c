package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const commentLikeCount = "(SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) AS like_count"

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error)
	// ListByPostIDs loads every comment of the given posts in one query, oldest first.
	ListByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]*entity.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	return r.db.WithContext(ctx).Omit("Author", "Post", "Parent").Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Comment, error) {
	var comment entity.Comment
	err := r.db.WithContext(ctx).
		Select("comments.*, "+commentLikeCount).
		Preload("Author").
		Where("comments.id = ?", id).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]*entity.Comment, error) {
	comments := []*entity.Comment{}
	if len(postIDs) == 0 {
		return comments, nil
	}

	err := r.db.WithContext(ctx).
		Select("comments.*, "+commentLikeCount).
		Preload("Author").
		Where("comments.post_id IN ?", postIDs).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Find(&comments).Error
	return comments, err
}
