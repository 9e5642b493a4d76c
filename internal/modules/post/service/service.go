package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/internal/identity"
	commentRepo "anoa.com/karmaforum/internal/modules/comment/repository"
	commentService "anoa.com/karmaforum/internal/modules/comment/service"
	postDto "anoa.com/karmaforum/internal/modules/post/dto"
	postRepo "anoa.com/karmaforum/internal/modules/post/repository"
	reactionDto "anoa.com/karmaforum/internal/modules/reaction/dto"
	searchService "anoa.com/karmaforum/internal/modules/search/service"
	"anoa.com/karmaforum/pkg/apperror"
	"anoa.com/karmaforum/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type PostService interface {
	CreatePost(ctx context.Context, req postDto.CreatePostRequest) (*postDto.PostResponse, error)
	ListPosts(ctx context.Context) ([]postDto.PostResponse, error)
	GetPost(ctx context.Context, id uuid.UUID) (*postDto.PostResponse, error)
	// DeletePost is allowed for the post's author only.
	DeletePost(ctx context.Context, id uuid.UUID) error
}

type postService struct {
	postRepo    postRepo.PostRepository
	commentRepo commentRepo.CommentRepository
	resolver    identity.Resolver
	search      searchService.SearchService
	redisClient *redis.Client
	cooldown    time.Duration
	sanitizer   *bluemonday.Policy
}

func NewPostService(postRepo postRepo.PostRepository, commentRepo commentRepo.CommentRepository, resolver identity.Resolver, search searchService.SearchService, redisClient *redis.Client, cooldown time.Duration) PostService {
	return &postService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		resolver:    resolver,
		search:      search,
		redisClient: redisClient,
		cooldown:    cooldown,
		sanitizer:   bluemonday.UGCPolicy(),
	}
}

func (s *postService) CreatePost(ctx context.Context, req postDto.CreatePostRequest) (*postDto.PostResponse, error) {
	userID, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" {
		return nil, apperror.Invalid("content is required")
	}

	release, err := ratelimiter.Acquire(ctx, s.redisClient, userID, "post", s.cooldown)
	if err != nil {
		return nil, err
	}

	post := &entity.Post{AuthorID: userID, Content: content}
	if err := s.postRepo.Create(ctx, post); err != nil {
		release()
		return nil, fmt.Errorf("create post: %w", err)
	}

	created, err := s.postRepo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	if err := s.search.IndexPost(created); err != nil {
		log.WithError(err).WithField("post_id", created.ID).Warn("failed to index post")
	}

	log.WithFields(log.Fields{"post_id": created.ID, "user_id": userID}).Info("post created")
	resp := postDto.ToPostResponse(created, nil)
	return &resp, nil
}

func (s *postService) ListPosts(ctx context.Context) ([]postDto.PostResponse, error) {
	posts, err := s.postRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	comments, err := s.commentRepo.ListByPostIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	forests := commentService.BuildTree(comments)

	resp := make([]postDto.PostResponse, 0, len(posts))
	for _, p := range posts {
		resp = append(resp, postDto.ToPostResponse(p, forests[p.ID]))
	}
	return resp, nil
}

func (s *postService) GetPost(ctx context.Context, id uuid.UUID) (*postDto.PostResponse, error) {
	var (
		post     *entity.Post
		comments []*entity.Comment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		post, err = s.postRepo.FindByID(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		comments, err = s.commentRepo.ListByPostIDs(gctx, []uuid.UUID{id})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := postDto.ToPostResponse(post, commentService.BuildTree(comments)[id])
	return &resp, nil
}

func (s *postService) DeletePost(ctx context.Context, id uuid.UUID) error {
	userID, err := s.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return fmt.Errorf("delete post %s: %w", id, apperror.ErrForbidden)
	}

	commentIDs, err := s.postRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if err := s.search.DeletePost(id, commentIDs); err != nil {
		log.WithError(err).WithField("post_id", id).Warn("failed to remove post from search")
	}
	s.dropLikeCaches(ctx, id, commentIDs)

	log.WithFields(log.Fields{"post_id": id, "user_id": userID, "comments": len(commentIDs)}).Info("post deleted")
	return nil
}

func (s *postService) dropLikeCaches(ctx context.Context, postID uuid.UUID, commentIDs []uuid.UUID) {
	if s.redisClient == nil {
		return
	}

	keys := make([]string, 0, len(commentIDs)+1)
	keys = append(keys, reactionDto.PostTarget(postID).CacheKey())
	for _, id := range commentIDs {
		keys = append(keys, reactionDto.CommentTarget(id).CacheKey())
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		log.WithError(err).WithField("post_id", postID).Warn("failed to drop like count caches")
	}
}
