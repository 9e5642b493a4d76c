package service

import (
	"context"
	"testing"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/internal/identity"
	commentRepo "anoa.com/karmaforum/internal/modules/comment/repository"
	postDto "anoa.com/karmaforum/internal/modules/post/dto"
	postRepo "anoa.com/karmaforum/internal/modules/post/repository"
	reactionDto "anoa.com/karmaforum/internal/modules/reaction/dto"
	searchService "anoa.com/karmaforum/internal/modules/search/service"
	userRepo "anoa.com/karmaforum/internal/modules/user/repository"
	"anoa.com/karmaforum/internal/testutil"
	"anoa.com/karmaforum/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingSearch struct {
	searchService.NoopSearchService
	indexed []uuid.UUID
	deleted []uuid.UUID
}

func (r *recordingSearch) IndexPost(p *entity.Post) error {
	r.indexed = append(r.indexed, p.ID)
	return nil
}

func (r *recordingSearch) DeletePost(id uuid.UUID, _ []uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func newPostService(t *testing.T, db *gorm.DB, rdb *redis.Client, cooldown time.Duration) (PostService, *recordingSearch) {
	t.Helper()
	search := &recordingSearch{}
	svc := NewPostService(postRepo.NewPostRepository(db), commentRepo.NewCommentRepository(db), identity.NewStrictResolver(userRepo.NewUserRepository(db)), search, rdb, cooldown)
	return svc, search
}

func TestPostService_CreatePost(t *testing.T) {
	db := testutil.NewDB(t)
	svc, search := newPostService(t, db, nil, 0)
	alice := testutil.CreateUser(t, db, "alice")

	_, err := svc.CreatePost(context.Background(), postDto.CreatePostRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	ctx := identity.WithUserID(context.Background(), alice.ID)
	_, err = svc.CreatePost(ctx, postDto.CreatePostRequest{Content: "<script>alert(1)</script>"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	resp, err := svc.CreatePost(ctx, postDto.CreatePostRequest{Content: "<b>hello</b> <img src=x onerror=alert(1)>"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Author.Username)
	assert.NotContains(t, resp.Content, "onerror")
	assert.Contains(t, resp.Content, "<b>hello</b>")
	assert.NotNil(t, resp.Comments)
	assert.Equal(t, []uuid.UUID{resp.ID}, search.indexed)
}

func TestPostService_CreatePostRateLimited(t *testing.T) {
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc, _ := newPostService(t, db, rdb, 15*time.Second)
	alice := testutil.CreateUser(t, db, "alice")
	ctx := identity.WithUserID(context.Background(), alice.ID)

	_, err := svc.CreatePost(ctx, postDto.CreatePostRequest{Content: "one"})
	require.NoError(t, err)

	_, err = svc.CreatePost(ctx, postDto.CreatePostRequest{Content: "two"})
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
}

func TestPostService_ListPostsAttachesForests(t *testing.T) {
	db := testutil.NewDB(t)
	svc, _ := newPostService(t, db, nil, 0)
	now := time.Now().UTC()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	p1 := testutil.CreatePost(t, db, alice, "one")
	p2 := testutil.CreatePost(t, db, bob, "two")

	a := testutil.CreateComment(t, db, p1, bob, nil, "A", now.Add(-4*time.Minute))
	b := testutil.CreateComment(t, db, p1, alice, a, "B", now.Add(-3*time.Minute))
	c := testutil.CreateComment(t, db, p1, bob, b, "C", now.Add(-2*time.Minute))
	d := testutil.CreateComment(t, db, p1, alice, nil, "D", now.Add(-time.Minute))

	posts, err := svc.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	byID := map[uuid.UUID]postDto.PostResponse{}
	for _, p := range posts {
		byID[p.ID] = p
	}

	forest := byID[p1.ID].Comments
	require.Len(t, forest, 2)
	assert.Equal(t, a.ID, forest[0].ID)
	assert.Equal(t, d.ID, forest[1].ID)
	require.Len(t, forest[0].Replies, 1)
	assert.Equal(t, b.ID, forest[0].Replies[0].ID)
	require.Len(t, forest[0].Replies[0].Replies, 1)
	assert.Equal(t, c.ID, forest[0].Replies[0].Replies[0].ID)

	assert.NotNil(t, byID[p2.ID].Comments)
	assert.Empty(t, byID[p2.ID].Comments)
}

func TestPostService_GetPost(t *testing.T) {
	db := testutil.NewDB(t)
	svc, _ := newPostService(t, db, nil, 0)

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice, "one")
	root := testutil.CreateComment(t, db, post, alice, nil, "root", time.Now())
	require.NoError(t, db.Create(&entity.PostLike{UserID: alice.ID, PostID: post.ID}).Error)

	resp, err := svc.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.LikeCount)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, root.ID, resp.Comments[0].ID)

	_, err = svc.GetPost(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPostService_DeletePost(t *testing.T) {
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc, search := newPostService(t, db, rdb, 0)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice, "mine")
	comment := testutil.CreateComment(t, db, post, bob, nil, "hi", time.Now())

	cacheKey := reactionDto.CommentTarget(comment.ID).CacheKey()
	mr.HSet(cacheKey, "count", "3")

	err := svc.DeletePost(identity.WithUserID(context.Background(), bob.ID), post.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = svc.DeletePost(context.Background(), post.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	require.NoError(t, svc.DeletePost(identity.WithUserID(context.Background(), alice.ID), post.ID))
	assert.Zero(t, testutil.CountRows(t, db, &entity.Post{}, ""))
	assert.Zero(t, testutil.CountRows(t, db, &entity.Comment{}, ""))
	assert.Equal(t, []uuid.UUID{post.ID}, search.deleted)
	assert.False(t, mr.Exists(cacheKey))

	err = svc.DeletePost(identity.WithUserID(context.Background(), alice.ID), post.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
