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

const postLikeCount = "(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS like_count"

type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	// FindAll returns every post newest first, with authors and like counts.
	FindAll(ctx context.Context) ([]*entity.Post, error)
	// Delete removes the post, its comments and all their likes in one transaction.
	// Ledger rows survive with their post and comment references cleared.
	// It returns the ids of the deleted comments.
	Delete(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	return r.db.WithContext(ctx).Omit("Author").Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var post entity.Post
	if err := r.db.WithContext(ctx).
		Select("posts.*, "+postLikeCount).
		Preload("Author").
		Where("posts.id = ?", id).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindAll(ctx context.Context) ([]*entity.Post, error) {
	posts := []*entity.Post{}
	err := r.db.WithContext(ctx).
		Select("posts.*, "+postLikeCount).
		Preload("Author").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var commentIDs []uuid.UUID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Limit(1).Find(&[]entity.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post %s: %w", id, apperror.ErrNotFound)
		}

		if err := tx.Model(&entity.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}

		if len(commentIDs) > 0 {
			if err := tx.Model(&entity.KarmaTransaction{}).
				Where("comment_id IN ?", commentIDs).
				Update("comment_id", gorm.Expr("NULL")).Error; err != nil {
				return err
			}
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&entity.CommentLike{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&entity.KarmaTransaction{}).
			Where("post_id = ?", id).
			Update("post_id", gorm.Expr("NULL")).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&entity.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&entity.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Post{}).Error
	})
	if err != nil {
		return nil, err
	}
	return commentIDs, nil
}
