package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

const (
	EventContractCreated      = "contract.created"
	EventContractConfirmed    = "contract.confirmed"
	EventPaymentRequested     = "payment.requested"
	EventContractsOverdue     = "contract.overdue_swept"
	EventBatchCreated         = "auction.batch.created"
	EventBatchAssigned        = "auction.batch.assigned"
	EventBatchValidationReady = "auction.batch.validation_pending"
	EventBatchReady           = "auction.batch.ready"
	EventBatchCancelled       = "auction.batch.cancelled"
)

// OutboxMessage is written in the same transaction as the state change it
// describes and relayed to Kafka by job.OutboxSender.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	EventType  string    `gorm:"type:varchar(64);not null" json:"event_type"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
