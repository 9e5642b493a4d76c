// Package testutil provides a migrated in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"anoa.com/karmaforum/internal/bootstrap"
	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a fresh sqlite database with foreign keys enforced and the schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000", uuid.NewString())
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, bootstrap.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, username string) *entity.User {
	t.Helper()
	u := &entity.User{Username: username, DisplayName: username}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreatePost(t *testing.T, db *gorm.DB, author *entity.User, content string) *entity.Post {
	t.Helper()
	p := &entity.Post{AuthorID: author.ID, Content: content}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateComment stores a comment; createdAt orders comments deterministically in tests.
func CreateComment(t *testing.T, db *gorm.DB, post *entity.Post, author *entity.User, parent *entity.Comment, content string, createdAt time.Time) *entity.Comment {
	t.Helper()
	c := &entity.Comment{PostID: post.ID, AuthorID: author.ID, Content: content, CreatedAt: createdAt.UTC()}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func AddKarma(t *testing.T, db *gorm.DB, user *entity.User, amount int64, reason entity.KarmaReason, at time.Time) *entity.KarmaTransaction {
	t.Helper()
	k := &entity.KarmaTransaction{UserID: user.ID, Amount: amount, Reason: reason, CreatedAt: at.UTC()}
	require.NoError(t, db.Create(k).Error)
	return k
}

func CountRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
