package repository

import (
	"context"
	"time"

	"anoa.com/karmaforum/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserKarma is one aggregated ledger row.
type UserKarma struct {
	UserID uuid.UUID
	Karma  int64
}

// LedgerRepository is append-only: there is deliberately no update or delete.
type LedgerRepository interface {
	// Append inserts entry using tx when non-nil, so it joins the caller's transaction.
	Append(ctx context.Context, tx *gorm.DB, entry *entity.KarmaTransaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.KarmaTransaction, error)
	// SumByUser totals the user's ledger, restricted to created_at >= since when since is set.
	SumByUser(ctx context.Context, userID uuid.UUID, since *time.Time) (int64, error)
	// TopSince ranks recipients by karma earned at or after since: karma desc, user id asc.
	TopSince(ctx context.Context, since time.Time, limit int) ([]UserKarma, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, tx *gorm.DB, entry *entity.KarmaTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.KarmaTransaction, error) {
	var rows []entity.KarmaTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *ledgerRepository) SumByUser(ctx context.Context, userID uuid.UUID, since *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.KarmaTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID)
	if since != nil {
		query = query.Where("created_at >= ?", since.UTC())
	}

	var total int64
	err := query.Scan(&total).Error
	return total, err
}

func (r *ledgerRepository) TopSince(ctx context.Context, since time.Time, limit int) ([]UserKarma, error) {
	results := make([]UserKarma, 0, limit)
	if limit <= 0 {
		return results, nil
	}

	err := r.db.WithContext(ctx).
		Model(&entity.KarmaTransaction{}).
		Select("user_id, SUM(amount) AS karma").
		Where("created_at >= ?", since.UTC()).
		Group("user_id").
		Order("karma DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(&results).Error
	return results, err
}
