package repository

import (
	"context"
	"fmt"

	"pawnshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StoreRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&store).Error
	if err != nil {
		return nil, notFound(err, "store", id.String())
	}
	return &store, nil
}

func (r *StoreRepository) ListIDsByCompany(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("company_id = ?", companyID).
		Pluck("id", &ids).Error
	return ids, err
}

// NextSequence allocates the next contract sequence number for a store.
//
// The store row is read with SELECT ... FOR UPDATE, so the lock lives until tx
// commits or rolls back. Concurrent callers for the same store queue on that
// lock and each sees the value the previous one committed; different stores
// never contend. A rollback discards the increment, which may leave a gap but
// never a duplicate. Keep tx short: while it is open every other contract
// creation in this store waits.
func (r *StoreRepository) NextSequence(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) (uint32, error) {
	var store model.Store
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", storeID).
		First(&store).Error
	if err != nil {
		return 0, translate(notFound(err, "store", storeID.String()), "store sequence")
	}

	next := store.TransactionSequence + 1
	result := tx.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ?", storeID).
		Update("transaction_sequence", next)
	if result.Error != nil {
		return 0, translate(result.Error, "store sequence")
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("store %s vanished while locked", storeID)
	}
	return next, nil
}
