package repository

import (
	"context"

	"pawnshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) Create(ctx context.Context, tx *gorm.DB, batch *model.AuctionBatch) error {
	tx = orDB(tx, r.db).WithContext(ctx)
	if err := tx.Omit(clause.Associations).Create(batch).Error; err != nil {
		return translate(err, "auction batch")
	}
	if len(batch.Items) == 0 {
		return nil
	}
	for i := range batch.Items {
		batch.Items[i].BatchID = batch.ID
	}
	return translate(tx.Create(&batch.Items).Error, "auction batch item")
}

func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AuctionBatch, error) {
	var batch model.AuctionBatch
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, notFound(err, "auction batch", id.String())
	}
	return &batch, nil
}

// GetForUpdate locks the batch row; every item-level write in the batch goes
// through this lock so the aggregate status is never recomputed from a stale view.
func (r *AuctionRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.AuctionBatch, error) {
	var batch model.AuctionBatch
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&batch).Error
	if err != nil {
		return nil, translate(notFound(err, "auction batch", id.String()), "auction batch")
	}
	return &batch, nil
}

func (r *AuctionRepository) GetItem(ctx context.Context, tx *gorm.DB, batchID, itemID uuid.UUID) (*model.AuctionBatchItem, error) {
	var item model.AuctionBatchItem
	err := orDB(tx, r.db).WithContext(ctx).
		Where("id = ? AND batch_id = ?", itemID, batchID).
		First(&item).Error
	if err != nil {
		return nil, notFound(err, "auction batch item", itemID.String())
	}
	return &item, nil
}

// SaveItem writes the named columns of item, zero values included.
func (r *AuctionRepository) SaveItem(ctx context.Context, tx *gorm.DB, item *model.AuctionBatchItem, columns ...string) error {
	return orDB(tx, r.db).WithContext(ctx).
		Model(item).
		Select(columns).
		Updates(item).Error
}

func (r *AuctionRepository) ListItems(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*model.AuctionBatchItem, error) {
	var items []*model.AuctionBatchItem
	err := orDB(tx, r.db).WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at, id").
		Find(&items).Error
	return items, err
}

// CountPendingPickups re-reads every sibling item; nothing is cached on the batch row.
func (r *AuctionRepository) CountPendingPickups(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error) {
	var count int64
	err := orDB(tx, r.db).WithContext(ctx).
		Model(&model.AuctionBatchItem{}).
		Where("batch_id = ? AND pickup_status = ?", batchID, model.PickupStatusPending).
		Count(&count).Error
	return count, err
}

// Transition moves the batch from one status to another. It reports false
// when the row was no longer in the from status, so a transition happens at
// most once however many callers race for it.
func (r *AuctionRepository) Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := orDB(tx, r.db).WithContext(ctx).
		Model(&model.AuctionBatch{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error, "auction batch")
	}
	return result.RowsAffected > 0, nil
}

// ActiveMembers returns which of the given pawn items already sit in a batch
// that has not been cancelled.
func (r *AuctionRepository) ActiveMembers(ctx context.Context, tx *gorm.DB, pawnItemIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := orDB(tx, r.db).WithContext(ctx).
		Model(&model.AuctionBatchItem{}).
		Joins("JOIN auction_batches ON auction_batches.id = auction_batch_items.batch_id").
		Where("auction_batch_items.pawn_item_id IN ? AND auction_batches.status <> ?", pawnItemIDs, model.BatchStatusCancelled).
		Distinct().
		Pluck("auction_batch_items.pawn_item_id", &ids).Error
	return ids, err
}

func (r *AuctionRepository) BatchCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AuctionBatch{}).
		Where("batch_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *AuctionRepository) List(ctx context.Context, filter BatchFilter) ([]*model.AuctionBatch, int64, error) {
	var batches []*model.AuctionBatch
	var total int64

	query := filter.where(r.db.WithContext(ctx).Model(&model.AuctionBatch{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := filter.Page.apply(query, batchAllowedSortFields, "created_at").
		Find(&batches).Error
	return batches, total, err
}
