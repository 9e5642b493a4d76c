package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/internal/modules/karma/dto"
	"anoa.com/karmaforum/internal/modules/karma/repository"
	userRepo "anoa.com/karmaforum/internal/modules/user/repository"
	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// AmountFor returns the fixed karma credited for a reason, and false for unknown reasons.
func AmountFor(reason entity.KarmaReason) (int64, bool) {
	return reason.Amount()
}

type KarmaService interface {
	GetUserKarma(ctx context.Context, userID uuid.UUID) (*dto.UserKarmaResponse, error)
	GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]entity.KarmaTransaction, error)
}

type karmaService struct {
	repo     repository.LedgerRepository
	userRepo userRepo.UserRepository
	window   time.Duration
	now      func() time.Time
}

func NewKarmaService(repo repository.LedgerRepository, userRepo userRepo.UserRepository, window time.Duration) KarmaService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &karmaService{
		repo:     repo,
		userRepo: userRepo,
		window:   window,
		now:      time.Now,
	}
}

func (s *karmaService) GetUserKarma(ctx context.Context, userID uuid.UUID) (*dto.UserKarmaResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.SumByUser(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("sum karma: %w", err)
	}

	since := s.now().UTC().Add(-s.window)
	windowed, err := s.repo.SumByUser(ctx, userID, &since)
	if err != nil {
		return nil, fmt.Errorf("sum windowed karma: %w", err)
	}

	recent, err := s.GetHistory(ctx, userID, DefaultHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &dto.UserKarmaResponse{
		UserID:   user.ID,
		Username: user.Username,
		Total:    total,
		Window:   windowed,
		Recent:   dto.ToLedgerEntryResponses(recent),
	}, nil
}

func (s *karmaService) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]entity.KarmaTransaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list karma history: %w", err)
	}
	return rows, nil
}
