package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	BatchStatusDraft             = "draft"
	BatchStatusPickupInProgress  = "pickup_in_progress"
	BatchStatusValidationPending = "validation_pending"
	BatchStatusReadyForAuction   = "ready_for_auction"
	BatchStatusCancelled         = "cancelled"
)

var BatchTransitions = map[string][]string{
	BatchStatusDraft:             {BatchStatusPickupInProgress, BatchStatusCancelled},
	BatchStatusPickupInProgress:  {BatchStatusValidationPending, BatchStatusCancelled},
	BatchStatusValidationPending: {BatchStatusReadyForAuction, BatchStatusCancelled},
}

func BatchCanTransitionTo(currentStatus, targetStatus string) bool {
	return canTransition(BatchTransitions, currentStatus, targetStatus)
}

const (
	PickupStatusPending = "pending"
	PickupStatusTaken   = "taken"
	PickupStatusFailed  = "failed"
)

func ValidPickupStatus(s string) bool {
	return s == PickupStatusPending || s == PickupStatusTaken || s == PickupStatusFailed
}

const (
	VerdictOK     = "ok"
	VerdictReject = "reject"
)

func ValidVerdict(v string) bool {
	return v == VerdictOK || v == VerdictReject
}

// AuctionBatch 拍卖批次: overdue items of one store gathered for pickup and validation.
type AuctionBatch struct {
	ID         uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	BatchCode  string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"batch_code"`
	StoreID    uuid.UUID  `gorm:"type:char(36);index;not null" json:"store_id"`
	CompanyID  uuid.UUID  `gorm:"type:char(36);index;not null" json:"company_id"`
	Status     string     `gorm:"type:varchar(30);index;not null" json:"status"`
	AssignedTo *uuid.UUID `gorm:"type:char(36);index" json:"assigned_to"`
	AssignedAt *time.Time `json:"assigned_at"`
	Notes      string     `gorm:"type:text" json:"notes"`
	CreatedBy  *uuid.UUID `gorm:"type:char(36)" json:"created_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Items []AuctionBatchItem `gorm:"foreignKey:BatchID" json:"items,omitempty"`
}

func (AuctionBatch) TableName() string {
	return "auction_batches"
}

type AuctionBatchItem struct {
	ID                uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	BatchID           uuid.UUID  `gorm:"type:char(36);index:idx_batch_pickup,priority:1;not null" json:"batch_id"`
	PawnItemID        uuid.UUID  `gorm:"type:char(36);index;not null" json:"pawn_item_id"`
	PickupStatus      string     `gorm:"type:varchar(20);index:idx_batch_pickup,priority:2;not null" json:"pickup_status"`
	FailureReason     *string    `gorm:"type:text" json:"failure_reason"`
	ValidationVerdict *string    `gorm:"type:varchar(10)" json:"validation_verdict"`
	ValidationNotes   *string    `gorm:"type:text" json:"validation_notes"`
	ValidationPhotos  []string   `gorm:"type:text;serializer:json" json:"validation_photos"`
	ValidatedBy       *uuid.UUID `gorm:"type:char(36)" json:"validated_by"`
	ValidatedAt       *time.Time `json:"validated_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AuctionBatchItem) TableName() string {
	return "auction_batch_items"
}
