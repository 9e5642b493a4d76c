package dto

import (
	"fmt"

	"github.com/google/uuid"
)

type TargetKind string

const (
	KindPost    TargetKind = "post"
	KindComment TargetKind = "comment"
)

// Target is the likeable thing a reaction points at.
type Target struct {
	Kind TargetKind
	ID   uuid.UUID
}

func PostTarget(id uuid.UUID) Target    { return Target{Kind: KindPost, ID: id} }
func CommentTarget(id uuid.UUID) Target { return Target{Kind: KindComment, ID: id} }

func (t Target) Valid() bool {
	return (t.Kind == KindPost || t.Kind == KindComment) && t.ID != uuid.Nil
}

// CacheKey is the redis hash holding the target's cached like count.
func (t Target) CacheKey() string {
	return fmt.Sprintf("likes:%s:%s", t.Kind, t.ID.String())
}

// LikeResult is the same for first and repeated likes; Created only feeds side effects.
type LikeResult struct {
	Liked   bool `json:"liked"`
	Created bool `json:"-"`
}

type LikeCountResponse struct {
	Kind  TargetKind `json:"kind"`
	ID    uuid.UUID  `json:"id"`
	Count int64      `json:"count"`
}
