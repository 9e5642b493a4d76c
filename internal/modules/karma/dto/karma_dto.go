package dto

import (
	"time"

	"anoa.com/karmaforum/internal/entity"
	"github.com/google/uuid"
)

type LedgerEntryResponse struct {
	ID        uuid.UUID          `json:"id"`
	Amount    int64              `json:"amount"`
	Reason    entity.KarmaReason `json:"reason"`
	PostID    *uuid.UUID         `json:"post_id"`
	CommentID *uuid.UUID         `json:"comment_id"`
	CreatedAt time.Time          `json:"created_at"`
}

// UserKarmaResponse reports totals summed from the ledger plus the newest entries.
type UserKarmaResponse struct {
	UserID   uuid.UUID             `json:"user_id"`
	Username string                `json:"username"`
	Total    int64                 `json:"karma_total"`
	Window   int64                 `json:"karma_24h"`
	Recent   []LedgerEntryResponse `json:"recent"`
}

func ToLedgerEntryResponses(rows []entity.KarmaTransaction) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, LedgerEntryResponse{
			ID:        r.ID,
			Amount:    r.Amount,
			Reason:    r.Reason,
			PostID:    r.PostID,
			CommentID: r.CommentID,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
