package bootstrap

import (
	"errors"

	"anoa.com/karmaforum/internal/entity"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Post{},
		&entity.Comment{},
		&entity.PostLike{},
		&entity.CommentLike{},
		&entity.KarmaTransaction{},
	)
}

// SeedUser makes sure a user with the given username exists.
func SeedUser(db *gorm.DB, username, displayName string) (*entity.User, error) {
	var user entity.User
	err := db.Where("username = ?", username).First(&user).Error
	if err == nil {
		log.WithField("username", username).Debug("user already exists, skipping seed")
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = entity.User{Username: username, DisplayName: displayName}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"username": username, "id": user.ID}).Info("user seeded")
	return &user, nil
}
