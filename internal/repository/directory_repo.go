package repository

import (
	"context"

	"pawnshop/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DirectoryRepository reads the customer, company and item type tables that
// other modules own.
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, notFound(err, "customer", id.String())
	}
	return &customer, nil
}

func (r *DirectoryRepository) GetCompany(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var company model.Company
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if err != nil {
		return nil, notFound(err, "company", id.String())
	}
	return &company, nil
}

func (r *DirectoryRepository) GetItemType(ctx context.Context, id uuid.UUID) (*model.ItemType, error) {
	var itemType model.ItemType
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&itemType).Error
	if err != nil {
		return nil, notFound(err, "item type", id.String())
	}
	return &itemType, nil
}

// GetItemTypes loads every requested item type; missing ids are simply absent from the map.
func (r *DirectoryRepository) GetItemTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.ItemType, error) {
	var types []*model.ItemType
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&types).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*model.ItemType, len(types))
	for _, t := range types {
		out[t.ID] = t
	}
	return out, nil
}
