package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"anoa.com/karmaforum/internal/identity"
	"anoa.com/karmaforum/internal/modules/reaction/dto"
	"anoa.com/karmaforum/internal/modules/reaction/repository"
	"anoa.com/karmaforum/pkg/apperror"
	"anoa.com/karmaforum/pkg/database"
	"anoa.com/karmaforum/pkg/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 3

	countField = "count"
	// A fill racing a like can store a count that misses it; the short TTL
	// bounds how long that stale value is served.
	countCacheTTL = time.Minute
)

type ReactionService interface {
	// Like is idempotent: repeated calls by the same user on the same target
	// succeed without crediting karma again.
	Like(ctx context.Context, target dto.Target) (*dto.LikeResult, error)
	GetLikeCount(ctx context.Context, target dto.Target) (*dto.LikeCountResponse, error)
}

type reactionService struct {
	repo        repository.ReactionRepository
	resolver    identity.Resolver
	redisClient *redis.Client
	maxAttempts int
	backoff     time.Duration
}

func NewReactionService(repo repository.ReactionRepository, resolver identity.Resolver, redisClient *redis.Client, maxAttempts int) ReactionService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &reactionService{
		repo:        repo,
		resolver:    resolver,
		redisClient: redisClient,
		maxAttempts: maxAttempts,
		backoff:     20 * time.Millisecond,
	}
}

func (s *reactionService) Like(ctx context.Context, target dto.Target) (*dto.LikeResult, error) {
	if !target.Valid() {
		return nil, apperror.Invalid("invalid like target")
	}

	userID, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.likeWithRetry(ctx, userID, target)
	if err != nil {
		metrics.LikesTotal.WithLabelValues(string(target.Kind), "error").Inc()
		return nil, err
	}

	if !created {
		metrics.LikesTotal.WithLabelValues(string(target.Kind), "existing").Inc()
		return &dto.LikeResult{Liked: true}, nil
	}

	metrics.LikesTotal.WithLabelValues(string(target.Kind), "created").Inc()
	if target.Kind == dto.KindComment {
		metrics.LedgerEntriesTotal.WithLabelValues("comment_like").Inc()
	} else {
		metrics.LedgerEntriesTotal.WithLabelValues("post_like").Inc()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Del(ctx, target.CacheKey()).Err(); err != nil {
			log.WithError(err).WithField("key", target.CacheKey()).Warn("like count cache invalidation failed")
		}
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"kind":    target.Kind,
		"target":  target.ID,
	}).Info("like recorded")

	return &dto.LikeResult{Liked: true, Created: true}, nil
}

func (s *reactionService) likeWithRetry(ctx context.Context, userID uuid.UUID, target dto.Target) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		created, err := s.repo.Like(ctx, userID, target)
		if err == nil {
			return created, nil
		}
		if !database.IsRetryable(err) {
			return false, err
		}

		lastErr = err
		if attempt == s.maxAttempts {
			break
		}

		metrics.LikeRetriesTotal.Inc()
		log.WithError(err).WithField("attempt", attempt).Warn("like transaction aborted, retrying")

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	return false, fmt.Errorf("like %s %s after %d attempts: %w: %v", target.Kind, target.ID, s.maxAttempts, apperror.ErrTransactionFailed, lastErr)
}

func (s *reactionService) GetLikeCount(ctx context.Context, target dto.Target) (*dto.LikeCountResponse, error) {
	if !target.Valid() {
		return nil, apperror.Invalid("invalid like target")
	}

	key := target.CacheKey()
	if s.redisClient != nil {
		val, err := s.redisClient.HGet(ctx, key, countField).Result()
		if err == nil {
			if count, convErr := strconv.ParseInt(val, 10, 64); convErr == nil {
				return &dto.LikeCountResponse{Kind: target.Kind, ID: target.ID, Count: count}, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("like count cache read failed")
		}
	}

	exists, err := s.repo.Exists(ctx, target)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%s %s: %w", target.Kind, target.ID, apperror.ErrNotFound)
	}

	count, err := s.repo.CountLikes(ctx, target)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		pipe := s.redisClient.Pipeline()
		pipe.HSet(ctx, key, countField, count)
		pipe.Expire(ctx, key, countCacheTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			log.WithError(err).WithField("key", key).Warn("like count cache populate failed")
		}
	}

	return &dto.LikeCountResponse{Kind: target.Kind, ID: target.ID, Count: count}, nil
}
