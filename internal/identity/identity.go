// Package identity carries the authenticated user through a request context and
// decides what happens when there is none.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/pkg/apperror"
	"github.com/google/uuid"
)

type ctxKey struct{}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Resolver turns a request context into the acting user's id.
type Resolver interface {
	Resolve(ctx context.Context) (uuid.UUID, error)
}

// UserFinder confirms that an identity carried by the request still has a user row.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// StrictResolver fails with apperror.ErrUnauthenticated when the context has no
// user or names a user that does not exist.
type StrictResolver struct {
	users UserFinder
}

func NewStrictResolver(users UserFinder) StrictResolver {
	return StrictResolver{users: users}
}

func (r StrictResolver) Resolve(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthenticated
	}
	return confirm(ctx, r.users, id)
}

func confirm(ctx context.Context, users UserFinder, id uuid.UUID) (uuid.UUID, error) {
	if _, err := users.FindByID(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("user %s: %w", id, apperror.ErrUnauthenticated)
		}
		return uuid.Nil, err
	}
	return id, nil
}

// UserProvisioner is the subset of the user repository the fallback needs.
type UserProvisioner interface {
	UserFinder
	GetOrCreateByUsername(ctx context.Context, username string) (*entity.User, error)
}

// FallbackResolver acts as a fixed, configured user for contexts without one.
// It exists for local demos and must be enabled explicitly.
type FallbackResolver struct {
	users    UserProvisioner
	username string

	mu       sync.Mutex
	resolved uuid.UUID
}

func NewFallbackResolver(users UserProvisioner, username string) *FallbackResolver {
	return &FallbackResolver{users: users, username: username}
}

func (r *FallbackResolver) Resolve(ctx context.Context) (uuid.UUID, error) {
	if id, ok := UserIDFromContext(ctx); ok {
		return confirm(ctx, r.users, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved != uuid.Nil {
		return r.resolved, nil
	}

	user, err := r.users.GetOrCreateByUsername(ctx, r.username)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve fallback user %q: %w", r.username, err)
	}
	r.resolved = user.ID
	return r.resolved, nil
}

// NewResolver returns the fallback resolver when a fallback username is configured,
// the strict one otherwise.
func NewResolver(users UserProvisioner, fallbackUsername string) Resolver {
	if fallbackUsername == "" {
		return NewStrictResolver(users)
	}
	return NewFallbackResolver(users, fallbackUsername)
}
