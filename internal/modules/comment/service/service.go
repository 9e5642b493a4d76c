package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/internal/identity"
	"anoa.com/karmaforum/internal/modules/comment/dto"
	"anoa.com/karmaforum/internal/modules/comment/repository"
	searchService "anoa.com/karmaforum/internal/modules/search/service"
	"anoa.com/karmaforum/pkg/apperror"
	"anoa.com/karmaforum/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// PostFinder is the part of the post repository comments depend on.
type PostFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
}

type CommentService interface {
	CreateComment(ctx context.Context, postID uuid.UUID, req dto.CreateCommentRequest) (*CommentNode, error)
}

type commentService struct {
	repo        repository.CommentRepository
	posts       PostFinder
	resolver    identity.Resolver
	search      searchService.SearchService
	redisClient *redis.Client
	cooldown    time.Duration
	sanitizer   *bluemonday.Policy
}

func NewCommentService(repo repository.CommentRepository, posts PostFinder, resolver identity.Resolver, search searchService.SearchService, redisClient *redis.Client, cooldown time.Duration) CommentService {
	return &commentService{
		repo:        repo,
		posts:       posts,
		resolver:    resolver,
		search:      search,
		redisClient: redisClient,
		cooldown:    cooldown,
		sanitizer:   bluemonday.UGCPolicy(),
	}
}

func (s *commentService) CreateComment(ctx context.Context, postID uuid.UUID, req dto.CreateCommentRequest) (*CommentNode, error) {
	userID, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(req.Content))
	if content == "" {
		return nil, apperror.Invalid("content is required")
	}

	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, fmt.Errorf("parent %w", err)
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, apperror.Invalid("parent comment belongs to another post")
		}
	}

	release, err := ratelimiter.Acquire(ctx, s.redisClient, userID, "comment", s.cooldown)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		PostID:   postID,
		AuthorID: userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		release()
		return nil, fmt.Errorf("create comment: %w", err)
	}

	created, err := s.repo.FindByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}

	if err := s.search.IndexComment(created); err != nil {
		log.WithError(err).WithField("comment_id", created.ID).Warn("failed to index comment")
	}

	log.WithFields(log.Fields{"comment_id": created.ID, "post_id": postID, "user_id": userID}).Info("comment created")
	return &CommentNode{Comment: created, Replies: []*CommentNode{}}, nil
}
