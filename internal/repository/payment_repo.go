package repository

import (
	"context"
	"time"

	"pawnshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.PaymentRecord) error {
	return translate(orDB(tx, r.db).WithContext(ctx).Create(payment).Error, "payment record")
}

func (r *PaymentRepository) DocumentNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Where("document_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*model.PaymentRecord, error) {
	var payments []*model.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// CountSince counts payment records created at or after since on contracts of
// storeIDs (nil means every store).
func (r *PaymentRepository) CountSince(ctx context.Context, storeIDs []uuid.UUID, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&model.PaymentRecord{}).
		Joins("JOIN pawn_contracts ON pawn_contracts.id = payment_records.contract_id").
		Where("payment_records.created_at >= ?", since)
	err := inStores(query, "pawn_contracts.store_id", storeIDs).Count(&count).Error
	return count, err
}
