package repository

import (
	"context"
	"sort"
	"testing"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLedgerRepository_AppendAndList(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice, "hello")

	older := &entity.KarmaTransaction{UserID: alice.ID, Amount: 5, Reason: entity.ReasonPostLike, PostID: &post.ID, CreatedAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Append(ctx, nil, older))

	newer := &entity.KarmaTransaction{UserID: alice.ID, Amount: 1, Reason: entity.ReasonCommentLike, CreatedAt: now}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.Append(ctx, tx, newer)
	}))

	assert.NotEqual(t, uuid.Nil, older.ID)

	rows, err := repo.ListByUser(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	require.NotNil(t, rows[1].PostID)
	assert.Equal(t, post.ID, *rows[1].PostID)

	limited, err := repo.ListByUser(ctx, alice.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLedgerRepository_AppendRollsBackWithTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Append(ctx, tx, &entity.KarmaTransaction{UserID: alice.ID, Amount: 5, Reason: entity.ReasonPostLike}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	assert.Zero(t, testutil.CountRows(t, db, &entity.KarmaTransaction{}, ""))
}

func TestLedgerRepository_SumByUser(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	x := testutil.CreateUser(t, db, "x")
	testutil.AddKarma(t, db, x, 5, entity.ReasonPostLike, now.Add(-time.Hour))
	testutil.AddKarma(t, db, x, 1, entity.ReasonCommentLike, now.Add(-25*time.Hour))
	testutil.AddKarma(t, db, x, -3, entity.ReasonCommentLike, now.Add(-2*time.Hour))

	total, err := repo.SumByUser(ctx, x.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	since := now.Add(-24 * time.Hour)
	windowed, err := repo.SumByUser(ctx, x.ID, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(2), windowed)

	none, err := repo.SumByUser(ctx, uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestLedgerRepository_TopSince(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	since := now.Add(-24 * time.Hour)

	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := testutil.CreateUser(t, db, "c")
	old := testutil.CreateUser(t, db, "old")

	testutil.AddKarma(t, db, a, 5, entity.ReasonPostLike, now.Add(-time.Hour))
	testutil.AddKarma(t, db, a, 1, entity.ReasonCommentLike, now.Add(-2*time.Hour))
	testutil.AddKarma(t, db, b, 5, entity.ReasonPostLike, now.Add(-3*time.Hour))
	testutil.AddKarma(t, db, b, 1, entity.ReasonCommentLike, now.Add(-25*time.Hour))
	testutil.AddKarma(t, db, c, 6, entity.ReasonPostLike, since)
	testutil.AddKarma(t, db, old, 100, entity.ReasonPostLike, now.Add(-48*time.Hour))

	top, err := repo.TopSince(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	// a and c tie at 6 and are ordered by id; b follows with its in-window 5.
	tied := []uuid.UUID{a.ID, c.ID}
	sort.Slice(tied, func(i, j int) bool { return tied[i].String() < tied[j].String() })
	assert.Equal(t, UserKarma{UserID: tied[0], Karma: 6}, top[0])
	assert.Equal(t, UserKarma{UserID: tied[1], Karma: 6}, top[1])
	assert.Equal(t, UserKarma{UserID: b.ID, Karma: 5}, top[2])

	limited, err := repo.TopSince(ctx, since, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := repo.TopSince(ctx, since, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
