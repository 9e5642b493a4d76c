package service

import (
	"context"
	"time"

	"anoa.com/karmaforum/internal/modules/user/dto"
	"anoa.com/karmaforum/internal/modules/user/repository"
	"github.com/golang-jwt/jwt/v5"
)

type AuthService interface {
	// IssueDevToken get-or-creates the user and signs a bearer token for it.
	// Only routed in development; it stands in for a real identity provider.
	IssueDevToken(ctx context.Context, input dto.DevTokenRequest) (*dto.AuthResponse, error)
}

type authService struct {
	repo     repository.UserRepository
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(repo repository.UserRepository, secret string, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &authService{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (s *authService) IssueDevToken(ctx context.Context, input dto.DevTokenRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.GetOrCreateByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt.Unix(),
		User:        user,
	}, nil
}
