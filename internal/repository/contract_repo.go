package repository

import (
	"context"
	"time"

	"pawnshop/internal/apperr"
	"pawnshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create inserts the contract and its items. Unique number collisions come
// back as apperr.CodeConflict so the caller can regenerate and retry.
func (r *ContractRepository) Create(ctx context.Context, tx *gorm.DB, contract *model.PawnContract) error {
	tx = orDB(tx, r.db).WithContext(ctx)
	if err := tx.Omit(clause.Associations).Create(contract).Error; err != nil {
		return translate(err, "pawn contract")
	}
	if len(contract.Items) == 0 {
		return nil
	}
	for i := range contract.Items {
		contract.Items[i].ContractID = contract.ID
	}
	return translate(tx.Create(&contract.Items).Error, "pawn item")
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PawnContract, error) {
	var contract model.PawnContract
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&contract).Error
	if err != nil {
		return nil, notFound(err, "pawn contract", id.String())
	}
	return &contract, nil
}

// GetForUpdate reads the contract row under a write lock held until tx ends.
func (r *ContractRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.PawnContract, error) {
	var contract model.PawnContract
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		return nil, translate(notFound(err, "pawn contract", id.String()), "pawn contract")
	}
	return &contract, nil
}

func (r *ContractRepository) CustomerNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PawnContract{}).
		Where("customer_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

// Confirm moves a draft contract to active. It fails with InvalidState when
// another request got there first.
func (r *ContractRepository) Confirm(ctx context.Context, tx *gorm.DB, id uuid.UUID, confirmedAt time.Time) error {
	result := orDB(tx, r.db).WithContext(ctx).
		Model(&model.PawnContract{}).
		Where("id = ? AND status = ?", id, model.ContractStatusDraft).
		Updates(map[string]interface{}{
			"status":           model.ContractStatusActive,
			"confirmed_at":     confirmedAt,
			"confirmed_by_pin": true,
		})
	if result.Error != nil {
		return translate(result.Error, "pawn contract")
	}
	if result.RowsAffected == 0 {
		return apperr.InvalidState("pawn contract", id.String(), []string{model.ContractStatusDraft}, "changed concurrently")
	}
	return nil
}

// MarkOverdue flips every active or extended contract whose due date lies
// before today to overdue and returns how many rows changed. Re-running it on
// the same day changes nothing.
func (r *ContractRepository) MarkOverdue(ctx context.Context, tx *gorm.DB, today time.Time) (int64, error) {
	result := orDB(tx, r.db).WithContext(ctx).
		Model(&model.PawnContract{}).
		Where("status IN ? AND due_date < ?", model.ContractStatusesInto(model.ContractStatusOverdue), today).
		Update("status", model.ContractStatusOverdue)
	return result.RowsAffected, result.Error
}

func (r *ContractRepository) List(ctx context.Context, filter ContractFilter) ([]*model.PawnContract, int64, error) {
	var contracts []*model.PawnContract
	var total int64

	query := filter.where(r.db.WithContext(ctx).Model(&model.PawnContract{}))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := filter.Page.apply(query, contractAllowedSortFields, "created_at").
		Find(&contracts).Error
	return contracts, total, err
}

// GetItemsForUpdate locks the requested pawn items and returns them keyed by id.
func (r *ContractRepository) GetItemsForUpdate(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*model.PawnItem, error) {
	var items []*model.PawnItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, translate(err, "pawn item")
	}
	out := make(map[uuid.UUID]*model.PawnItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *ContractRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*model.PawnContract, error) {
	var contracts []*model.PawnContract
	if err := orDB(tx, r.db).WithContext(ctx).Where("id IN ?", ids).Find(&contracts).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*model.PawnContract, len(contracts))
	for _, c := range contracts {
		out[c.ID] = c
	}
	return out, nil
}

func (r *ContractRepository) UpdateItemsStatus(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, status string) error {
	if len(ids) == 0 {
		return nil
	}
	return orDB(tx, r.db).WithContext(ctx).
		Model(&model.PawnItem{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type StoreBalance struct {
	StoreID uuid.UUID       `json:"store_id"`
	Balance decimal.Decimal `json:"balance"`
	Count   int64           `json:"count"`
}

// inStores narrows query to storeIDs. A nil slice means every store; an
// empty one matches nothing.
func inStores(query *gorm.DB, column string, storeIDs []uuid.UUID) *gorm.DB {
	if storeIDs == nil {
		return query
	}
	if len(storeIDs) == 0 {
		return query.Where("1 = 0")
	}
	return query.Where(column+" IN ?", storeIDs)
}

func (r *ContractRepository) CountByStatus(ctx context.Context, storeIDs []uuid.UUID) ([]StatusCount, error) {
	var rows []StatusCount
	query := inStores(r.db.WithContext(ctx).Model(&model.PawnContract{}), "store_id", storeIDs)
	err := query.
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&rows).Error
	return rows, err
}

// OutstandingByStore sums remaining balances of contracts still carrying a loan.
func (r *ContractRepository) OutstandingByStore(ctx context.Context, storeIDs []uuid.UUID) ([]StoreBalance, error) {
	var rows []StoreBalance
	query := r.db.WithContext(ctx).
		Model(&model.PawnContract{}).
		Where("status IN ?", []string{model.ContractStatusActive, model.ContractStatusExtended, model.ContractStatusOverdue})
	err := inStores(query, "store_id", storeIDs).
		Select("store_id, SUM(remaining_balance) AS balance, COUNT(*) AS count").
		Group("store_id").
		Order("store_id").
		Scan(&rows).Error
	return rows, err
}
