package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentTypeRenewal        = "renewal"
	PaymentTypeFullRedemption = "full_redemption"
	PaymentTypePartial        = "partial"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusRejected  = "rejected"
)

const PaymentMethodCash = "cash"

// PaymentContractTarget is the contract status a payment of paymentType
// settles into once confirmed.
func PaymentContractTarget(paymentType string) string {
	if paymentType == PaymentTypeRenewal {
		return ContractStatusExtended
	}
	return ContractStatusRedeemed
}

// PaymentRecord 付款凭证 (NKB). Rows are only appended here, always in
// pending state; confirmation and the balance mutation belong to the
// store-staff confirmation service.
type PaymentRecord struct {
	ID                  uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	DocumentNumber      string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"document_number"`
	ContractID          uuid.UUID       `gorm:"type:char(36);index;not null" json:"contract_id"`
	AmountPaid          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount_paid"`
	PaymentType         string          `gorm:"type:varchar(20);not null" json:"payment_type"`
	PaymentMethod       string          `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status              string          `gorm:"type:varchar(20);index;not null" json:"status"`
	InterestAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"interest_amount"`
	LatePenalty         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"late_penalty"`
	IsCustomerInitiated bool            `gorm:"not null;default:false" json:"is_customer_initiated"`
	CreatedBy           *uuid.UUID      `gorm:"type:char(36)" json:"created_by"`
	CreatedAt           time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}
