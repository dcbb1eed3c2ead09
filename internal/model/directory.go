package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The tables in this file are owned by the company/branch/customer/catalog
// modules. The pawn core only reads them, apart from Store.TransactionSequence.

// Company 公司 (PT), carrying the rate configuration used by interest calculation.
type Company struct {
	ID                 uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	Name               string          `gorm:"type:varchar(100);not null" json:"name"`
	EarlyInterestRate  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"early_interest_rate"`
	NormalInterestRate decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"normal_interest_rate"`
	AdminFeeRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"admin_fee_rate"`
	InsuranceFee       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"insurance_fee"`
	LatePenaltyRate    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"late_penalty_rate"`
	EarlyPaymentDays   int             `gorm:"not null;default:0" json:"early_payment_days"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// Store 门店. TransactionSequence is the per-store counter behind internal
// contract numbers and is only written under a row lock.
type Store struct {
	ID                  uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID           uuid.UUID `gorm:"type:char(36);index;not null" json:"company_id"`
	Code                string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	Name                string    `gorm:"type:varchar(100);not null" json:"name"`
	TransactionSequence uint32    `gorm:"not null;default:0" json:"transaction_sequence"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Store) TableName() string {
	return "stores"
}

type Customer struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID     uuid.UUID `gorm:"type:char(36);index;not null" json:"company_id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	IsBlacklisted bool      `gorm:"not null;default:false" json:"is_blacklisted"`
	PinHash       string    `gorm:"type:varchar(100)" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

type ItemType struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	TypeCode  string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"type_code"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ItemType) TableName() string {
	return "item_types"
}
