package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/karmaforum/internal/entity"
	karmaRepo "anoa.com/karmaforum/internal/modules/karma/repository"
	"anoa.com/karmaforum/internal/modules/reaction/dto"
	"anoa.com/karmaforum/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errAlreadyLiked = errors.New("already liked")

type ReactionRepository interface {
	// Like records userID's like on target and, only when the like is new, appends one
	// ledger row for the target's author in the same transaction. created is false
	// when the like already existed.
	Like(ctx context.Context, userID uuid.UUID, target dto.Target) (created bool, err error)
	Exists(ctx context.Context, target dto.Target) (bool, error)
	CountLikes(ctx context.Context, target dto.Target) (int64, error)
}

type reactionRepository struct {
	db     *gorm.DB
	ledger karmaRepo.LedgerRepository
}

func NewReactionRepository(db *gorm.DB, ledger karmaRepo.LedgerRepository) ReactionRepository {
	return &reactionRepository{db: db, ledger: ledger}
}

func (r *reactionRepository) Like(ctx context.Context, userID uuid.UUID, target dto.Target) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authorID, err := findAuthor(tx, target)
		if err != nil {
			return err
		}

		like, entry := newLike(userID, authorID, target)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return errAlreadyLiked
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := r.ledger.Append(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		created = true
		return nil
	})
	if errors.Is(err, errAlreadyLiked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return created, nil
}

// newLike builds the like row and the ledger entry crediting the target's author.
func newLike(userID, authorID uuid.UUID, target dto.Target) (any, *entity.KarmaTransaction) {
	targetID := target.ID

	if target.Kind == dto.KindComment {
		entry := &entity.KarmaTransaction{UserID: authorID, Reason: entity.ReasonCommentLike, CommentID: &targetID}
		entry.Amount, _ = entry.Reason.Amount()
		return &entity.CommentLike{UserID: userID, CommentID: target.ID}, entry
	}

	entry := &entity.KarmaTransaction{UserID: authorID, Reason: entity.ReasonPostLike, PostID: &targetID}
	entry.Amount, _ = entry.Reason.Amount()
	return &entity.PostLike{UserID: userID, PostID: target.ID}, entry
}

func targetModel(target dto.Target) (any, error) {
	switch target.Kind {
	case dto.KindPost:
		return &entity.Post{}, nil
	case dto.KindComment:
		return &entity.Comment{}, nil
	}
	return nil, apperror.Invalid(fmt.Sprintf("unknown target kind %q", target.Kind))
}

func findAuthor(db *gorm.DB, target dto.Target) (uuid.UUID, error) {
	model, err := targetModel(target)
	if err != nil {
		return uuid.Nil, err
	}

	var authorIDs []uuid.UUID
	if err := db.Model(model).Where("id = ?", target.ID).Limit(1).Pluck("author_id", &authorIDs).Error; err != nil {
		return uuid.Nil, err
	}
	if len(authorIDs) == 0 {
		return uuid.Nil, fmt.Errorf("%s %s: %w", target.Kind, target.ID, apperror.ErrNotFound)
	}
	return authorIDs[0], nil
}

func (r *reactionRepository) Exists(ctx context.Context, target dto.Target) (bool, error) {
	_, err := findAuthor(r.db.WithContext(ctx), target)
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *reactionRepository) CountLikes(ctx context.Context, target dto.Target) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx)

	switch target.Kind {
	case dto.KindPost:
		query = query.Model(&entity.PostLike{}).Where("post_id = ?", target.ID)
	case dto.KindComment:
		query = query.Model(&entity.CommentLike{}).Where("comment_id = ?", target.ID)
	default:
		return 0, apperror.Invalid(fmt.Sprintf("unknown target kind %q", target.Kind))
	}

	err := query.Count(&count).Error
	return count, err
}
