package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ContractStatusDraft     = "draft"
	ContractStatusActive    = "active"
	ContractStatusExtended  = "extended"
	ContractStatusRedeemed  = "redeemed"
	ContractStatusOverdue   = "overdue"
	ContractStatusAuctioned = "auctioned"
	ContractStatusClosed    = "closed"
)

// ContractTransitions lists every status a contract may move to. Active and
// Extended form the only cycle; overdue contracts leave through auction or
// closure.
var ContractTransitions = map[string][]string{
	ContractStatusDraft:     {ContractStatusActive},
	ContractStatusActive:    {ContractStatusExtended, ContractStatusRedeemed, ContractStatusOverdue, ContractStatusClosed},
	ContractStatusExtended:  {ContractStatusExtended, ContractStatusActive, ContractStatusRedeemed, ContractStatusOverdue, ContractStatusClosed},
	ContractStatusOverdue:   {ContractStatusAuctioned, ContractStatusClosed},
	ContractStatusRedeemed:  {ContractStatusClosed},
	ContractStatusAuctioned: {ContractStatusClosed},
}

// contractStatuses fixes the order ContractStatusesInto reports in.
var contractStatuses = []string{
	ContractStatusDraft,
	ContractStatusActive,
	ContractStatusExtended,
	ContractStatusOverdue,
	ContractStatusRedeemed,
	ContractStatusAuctioned,
	ContractStatusClosed,
}

func ContractCanTransitionTo(currentStatus, targetStatus string) bool {
	return canTransition(ContractTransitions, currentStatus, targetStatus)
}

// ContractStatusesInto returns the statuses that may move to targetStatus.
func ContractStatusesInto(targetStatus string) []string {
	var from []string
	for _, s := range contractStatuses {
		if ContractCanTransitionTo(s, targetStatus) {
			from = append(from, s)
		}
	}
	return from
}

// PaymentAcceptingStatuses are the contract statuses that accept extension
// and redemption requests.
var PaymentAcceptingStatuses = []string{ContractStatusActive, ContractStatusExtended}

func AcceptsPayments(status string) bool {
	for _, s := range PaymentAcceptingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	ItemStatusInStorage = "in_storage"
	ItemStatusInAuction = "in_auction"
	ItemStatusSold      = "sold"
	ItemStatusReturned  = "returned"
)

const (
	ItemConditionExcellent = "excellent"
	ItemConditionGood      = "good"
	ItemConditionFair      = "fair"
	ItemConditionPoor      = "poor"
)

func ValidItemCondition(c string) bool {
	switch c {
	case ItemConditionExcellent, ItemConditionGood, ItemConditionFair, ItemConditionPoor:
		return true
	}
	return false
}

// PawnContract 典当合同 (SPK): one loan agreement against pledged collateral.
type PawnContract struct {
	ID                  uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	SystemNumber        string          `gorm:"type:varchar(50);uniqueIndex:idx_store_system_number,priority:2;not null" json:"system_number"`
	InternalNumber      string          `gorm:"type:varchar(20);uniqueIndex:idx_store_internal_number,priority:2;not null" json:"internal_number"`
	CustomerNumber      string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"customer_number"`
	CustomerID          uuid.UUID       `gorm:"type:char(36);index;not null" json:"customer_id"`
	// 内部编号按门店递增，唯一性也按门店
	StoreID             uuid.UUID       `gorm:"type:char(36);index;uniqueIndex:idx_store_internal_number,priority:1;uniqueIndex:idx_store_system_number,priority:1;not null" json:"store_id"`
	CompanyID           uuid.UUID       `gorm:"type:char(36);index;not null" json:"company_id"`
	PrincipalAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_amount"`
	TenorDays           int             `gorm:"not null" json:"tenor_days"`
	InterestRatePercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"interest_rate_percent"`
	AdminFee            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"admin_fee"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	RemainingBalance    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"remaining_balance"`
	DueDate             time.Time       `gorm:"type:date;index;not null" json:"due_date"`
	Status              string          `gorm:"type:varchar(20);index;not null" json:"status"`
	ConfirmedAt         *time.Time      `json:"confirmed_at"`
	ConfirmedByPin      bool            `gorm:"not null;default:false" json:"confirmed_by_pin"`
	CreatedBy           *uuid.UUID      `gorm:"type:char(36)" json:"created_by"`
	CreatedAt           time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Items []PawnItem `gorm:"foreignKey:ContractID" json:"items,omitempty"`
}

func (PawnContract) TableName() string {
	return "pawn_contracts"
}

// PawnItem is one pledged piece of collateral. Its status is written by the
// contract lifecycle (returned) and by the auction workflow (in_auction).
type PawnItem struct {
	ID              uuid.UUID           `gorm:"type:char(36);primaryKey" json:"id"`
	ContractID      uuid.UUID           `gorm:"type:char(36);index;not null" json:"contract_id"`
	CatalogID       *uuid.UUID          `gorm:"type:char(36)" json:"catalog_id"`
	ItemTypeID      uuid.UUID           `gorm:"type:char(36);index;not null" json:"item_type_id"`
	Description     string              `gorm:"type:text;not null" json:"description"`
	Brand           string              `gorm:"type:varchar(100)" json:"brand"`
	Model           string              `gorm:"type:varchar(100)" json:"model"`
	SerialNumber    string              `gorm:"type:varchar(100)" json:"serial_number"`
	AppraisedValue  decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"appraised_value"`
	Condition       string              `gorm:"type:varchar(20);not null" json:"condition"`
	Weight          decimal.NullDecimal `gorm:"type:decimal(10,3)" json:"weight"`
	Purity          string              `gorm:"type:varchar(20)" json:"purity"`
	EvidencePhotos  []string            `gorm:"type:text;serializer:json" json:"evidence_photos"`
	StorageLocation string              `gorm:"type:varchar(100)" json:"storage_location"`
	Status          string              `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PawnItem) TableName() string {
	return "pawn_items"
}
