package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anoa.com/karmaforum/internal/entity"
	karmaRepo "anoa.com/karmaforum/internal/modules/karma/repository"
	leaderboardDto "anoa.com/karmaforum/internal/modules/leaderboard/dto"
	userDto "anoa.com/karmaforum/internal/modules/user/dto"
	userRepo "anoa.com/karmaforum/internal/modules/user/repository"
	"anoa.com/karmaforum/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// Entry is a user with the karma they received inside the window.
type Entry struct {
	User  entity.User
	Karma int64
}

type LeaderboardService interface {
	// Top ranks users by karma received in [now-window, now], highest first,
	// ties broken by ascending user id. Users with no entries in the window are absent.
	Top(ctx context.Context, n int, now time.Time, window time.Duration) ([]Entry, error)
	GetLeaderboard(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error)
}

type Options struct {
	Window       time.Duration
	DefaultLimit int
	CacheTTL     time.Duration
}

type leaderboardService struct {
	ledger      karmaRepo.LedgerRepository
	userRepo    userRepo.UserRepository
	redisClient *redis.Client
	opts        Options
	now         func() time.Time
}

func NewLeaderboardService(ledger karmaRepo.LedgerRepository, userRepo userRepo.UserRepository, redisClient *redis.Client, opts Options) LeaderboardService {
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > MaxLimit {
		opts.DefaultLimit = DefaultLimit
	}
	return &leaderboardService{
		ledger:      ledger,
		userRepo:    userRepo,
		redisClient: redisClient,
		opts:        opts,
		now:         time.Now,
	}
}

func (s *leaderboardService) Top(ctx context.Context, n int, now time.Time, window time.Duration) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}

	ranked, err := s.ledger.TopSince(ctx, now.Add(-window), n)
	if err != nil {
		return nil, fmt.Errorf("aggregate karma: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.UserID)
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard users: %w", err)
	}

	entries := make([]Entry, 0, len(ranked))
	for _, r := range ranked {
		user, ok := users[r.UserID]
		if !ok {
			user = entity.User{ID: r.UserID}
		}
		entries = append(entries, Entry{User: user, Karma: r.Karma})
	}
	return entries, nil
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, limit int) ([]leaderboardDto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	key := fmt.Sprintf("leaderboard:%s:%d", s.opts.Window, limit)
	if cached, ok := s.fromCache(ctx, key); ok {
		return cached, nil
	}

	timer := prometheus.NewTimer(metrics.LeaderboardDuration.WithLabelValues("db"))
	entries, err := s.Top(ctx, limit, s.now().UTC(), s.opts.Window)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	result := make([]leaderboardDto.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		result = append(result, leaderboardDto.LeaderboardEntry{
			User:     userDto.ToUserResponse(e.User),
			Karma24h: e.Karma,
			Position: i + 1,
		})
	}

	s.toCache(ctx, key, result)
	return result, nil
}

func (s *leaderboardService) fromCache(ctx context.Context, key string) ([]leaderboardDto.LeaderboardEntry, bool) {
	if s.redisClient == nil || s.opts.CacheTTL <= 0 {
		return nil, false
	}

	timer := prometheus.NewTimer(metrics.LeaderboardDuration.WithLabelValues("cache"))
	defer timer.ObserveDuration()

	raw, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("leaderboard cache read failed")
		}
		return nil, false
	}

	var entries []leaderboardDto.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.WithError(err).WithField("key", key).Warn("discarding corrupt leaderboard cache")
		return nil, false
	}
	return entries, true
}

func (s *leaderboardService) toCache(ctx context.Context, key string, entries []leaderboardDto.LeaderboardEntry) {
	if s.redisClient == nil || s.opts.CacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, raw, s.opts.CacheTTL).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("leaderboard cache write failed")
	}
}
