package identity

import (
	"context"
	"errors"
	"testing"

	"anoa.com/karmaforum/internal/entity"
	"anoa.com/karmaforum/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	calls int
	user  *entity.User
	err   error
	known map[uuid.UUID]bool
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if f.known[id] {
		return &entity.User{ID: id}, nil
	}
	return nil, apperror.ErrNotFound
}

func (f *fakeUsers) GetOrCreateByUsername(ctx context.Context, username string) (*entity.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func TestStrictResolver(t *testing.T) {
	id := uuid.New()
	r := NewStrictResolver(&fakeUsers{known: map[uuid.UUID]bool{id: true}})

	t.Run("no identity", func(t *testing.T) {
		_, err := r.Resolve(context.Background())
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("nil uuid counts as missing", func(t *testing.T) {
		_, err := r.Resolve(WithUserID(context.Background(), uuid.Nil))
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("identity present", func(t *testing.T) {
		got, err := r.Resolve(WithUserID(context.Background(), id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("identity without a user row", func(t *testing.T) {
		_, err := r.Resolve(WithUserID(context.Background(), uuid.New()))
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("lookup failures are not unauthenticated", func(t *testing.T) {
		boom := errors.New("db down")
		_, err := NewStrictResolver(failingFinder{err: boom}).Resolve(WithUserID(context.Background(), id))
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, apperror.ErrUnauthenticated)
	})
}

type failingFinder struct{ err error }

func (f failingFinder) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return nil, f.err
}

func TestFallbackResolver(t *testing.T) {
	demo := &entity.User{ID: uuid.New(), Username: "demo"}

	t.Run("prefers the request identity", func(t *testing.T) {
		id := uuid.New()
		users := &fakeUsers{user: demo, known: map[uuid.UUID]bool{id: true}}

		got, err := NewFallbackResolver(users, "demo").Resolve(WithUserID(context.Background(), id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.Zero(t, users.calls)
	})

	t.Run("rejects a request identity without a user row", func(t *testing.T) {
		users := &fakeUsers{user: demo}
		_, err := NewFallbackResolver(users, "demo").Resolve(WithUserID(context.Background(), uuid.New()))
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		assert.Zero(t, users.calls)
	})

	t.Run("resolves the configured user once", func(t *testing.T) {
		users := &fakeUsers{user: demo}
		r := NewFallbackResolver(users, "demo")

		for i := 0; i < 3; i++ {
			got, err := r.Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, demo.ID, got)
		}
		assert.Equal(t, 1, users.calls)
	})

	t.Run("propagates provisioning errors", func(t *testing.T) {
		users := &fakeUsers{err: errors.New("db down")}
		_, err := NewFallbackResolver(users, "demo").Resolve(context.Background())
		assert.Error(t, err)
	})
}

func TestNewResolver(t *testing.T) {
	assert.IsType(t, StrictResolver{}, NewResolver(&fakeUsers{}, ""))
	assert.IsType(t, &FallbackResolver{}, NewResolver(&fakeUsers{}, "demo"))
}
