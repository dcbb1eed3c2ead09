package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page holds the pagination and ordering part of a list query.
type Page struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

func (p Page) normalized() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

func (p Page) apply(query *gorm.DB, allowed map[string]bool, fallback string) *gorm.DB {
	p = p.normalized()
	orderBy := fallback
	if allowed[p.OrderBy] {
		orderBy = p.OrderBy
	}
	return query.
		Order(orderBy + " " + validateSortOrder(p.OrderDir)).
		Offset((p.Page - 1) * p.PageSize).
		Limit(p.PageSize)
}

// validateSortOrder only lets asc/desc through to the ORDER BY clause.
func validateSortOrder(order string) string {
	switch order {
	case "asc", "ASC":
		return "asc"
	default:
		return "desc"
	}
}

type ContractFilter struct {
	CompanyID  *uuid.UUID
	StoreID    *uuid.UUID
	CustomerID *uuid.UUID
	Status     string
	Page
}

var contractAllowedSortFields = map[string]bool{
	"created_at":        true,
	"due_date":          true,
	"principal_amount":  true,
	"remaining_balance": true,
	"internal_number":   true,
	"status":            true,
}

func (f ContractFilter) where(query *gorm.DB) *gorm.DB {
	if f.CompanyID != nil {
		query = query.Where("company_id = ?", *f.CompanyID)
	}
	if f.StoreID != nil {
		query = query.Where("store_id = ?", *f.StoreID)
	}
	if f.CustomerID != nil {
		query = query.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	return query
}

type BatchFilter struct {
	CompanyID  *uuid.UUID
	StoreID    *uuid.UUID
	AssignedTo *uuid.UUID
	Status     string
	Page
}

var batchAllowedSortFields = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"assigned_at": true,
	"batch_code":  true,
	"status":      true,
}

func (f BatchFilter) where(query *gorm.DB) *gorm.DB {
	if f.CompanyID != nil {
		query = query.Where("company_id = ?", *f.CompanyID)
	}
	if f.StoreID != nil {
		query = query.Where("store_id = ?", *f.StoreID)
	}
	if f.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	return query
}
