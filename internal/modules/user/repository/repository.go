package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	GetOrCreateByUsername(ctx context.Context, username string) (*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]entity.User, error) {
	users := make(map[uuid.UUID]entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var rows []entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateByUsername is safe under concurrent callers: the username unique
// index decides, the loser reads the winner's row.
func (r *userRepository) GetOrCreateByUsername(ctx context.Context, username string) (*entity.User, error) {
	candidate := entity.User{Username: username, DisplayName: username}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(&candidate).Error; err != nil {
		return nil, err
	}
	return r.FindByUsername(ctx, username)
}
