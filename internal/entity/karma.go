package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KarmaReason string

const (
	ReasonPostLike    KarmaReason = "post_like"
	ReasonCommentLike KarmaReason = "comment_like"
)

// Amount returns the fixed karma a reason credits, and false for unknown reasons.
func (r KarmaReason) Amount() (int64, bool) {
	switch r {
	case ReasonPostLike:
		return 5, true
	case ReasonCommentLike:
		return 1, true
	}
	return 0, false
}

// KarmaTransaction is one immutable ledger row. Karma totals are sums over these rows.
// PostID and CommentID are informational and become NULL when the target is deleted.
type KarmaTransaction struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_karma_user_created,priority:1" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Amount    int64       `gorm:"not null" json:"amount"`
	Reason    KarmaReason `gorm:"size:32;not null" json:"reason"`
	CreatedAt time.Time   `gorm:"not null;index;index:idx_karma_user_created,priority:2" json:"created_at"`
	PostID    *uuid.UUID  `gorm:"type:uuid;index" json:"post_id"`
	Post      *Post       `gorm:"foreignKey:PostID;constraint:OnDelete:SET NULL" json:"-"`
	CommentID *uuid.UUID  `gorm:"type:uuid;index" json:"comment_id"`
	Comment   *Comment    `gorm:"foreignKey:CommentID;constraint:OnDelete:SET NULL" json:"-"`
}

func (k *KarmaTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if k.ID == uuid.Nil {
		k.ID, err = uuid.NewV7()
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = tx.NowFunc()
	}
	return
}
