package service

import (
	"context"
	"fmt"
	"time"

	"pawnshop/internal/apperr"
	"pawnshop/internal/config"
	"pawnshop/internal/infrastructure/metrics"
	"pawnshop/internal/model"
	"pawnshop/internal/repository"
	"pawnshop/pkg/idgen"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuctionService 拍卖批次流程：建批、指派取件、取件结果、验货、定稿、取消。
// 所有写操作先锁批次行，批次状态的汇总判断和单件更新在同一个事务里。
type AuctionService struct {
	db           *gorm.DB
	cfg          *config.Config
	log          *zap.Logger
	now          Clock
	numbers      *idgen.Generator
	auctionRepo  *repository.AuctionRepository
	contractRepo *repository.ContractRepository
	storeRepo    *repository.StoreRepository
	outboxRepo   *repository.OutboxRepository
}

type AuctionOption func(*AuctionService)

func WithAuctionClock(now Clock) AuctionOption {
	return func(s *AuctionService) { s.now = now }
}

func WithAuctionNumbers(g *idgen.Generator) AuctionOption {
	return func(s *AuctionService) { s.numbers = g }
}

func NewAuctionService(db *gorm.DB, cfg *config.Config, log *zap.Logger, opts ...AuctionOption) *AuctionService {
	s := &AuctionService{
		db:           db,
		cfg:          cfg,
		log:          log.Named("auction"),
		now:          time.Now,
		auctionRepo:  repository.NewAuctionRepository(db),
		contractRepo: repository.NewContractRepository(db),
		storeRepo:    repository.NewStoreRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.numbers == nil {
		s.numbers = newNumberGenerator(s.now)
	}
	return s
}

type CreateBatchRequest struct {
	StoreID     uuid.UUID   `json:"store_id" binding:"required"`
	CompanyID   uuid.UUID   `json:"company_id" binding:"required"`
	PawnItemIDs []uuid.UUID `json:"pawn_item_ids" binding:"required,min=1"`
	Notes       string      `json:"notes"`
}

type UpdatePickupRequest struct {
	PickupStatus  string  `json:"pickup_status" binding:"required"`
	FailureReason *string `json:"failure_reason"`
}

type SubmitValidationRequest struct {
	Verdict          string   `json:"verdict" binding:"required"`
	Notes            *string  `json:"notes"`
	ValidationPhotos []string `json:"validation_photos"`
}

// BatchEvent is the outbox payload for auction batch transitions.
type BatchEvent struct {
	Event      string     `json:"event"`
	BatchID    uuid.UUID  `json:"batch_id"`
	BatchCode  string     `json:"batch_code"`
	StoreID    uuid.UUID  `json:"store_id"`
	CompanyID  uuid.UUID  `json:"company_id"`
	Status     string     `json:"status"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`
	ItemCount  int        `json:"item_count,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func (s *AuctionService) batchEvent(ctx context.Context, tx *gorm.DB, event string, b *model.AuctionBatch, itemCount int) error {
	return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.AuctionEvents, event, b.ID.String(), BatchEvent{
		Event:      event,
		BatchID:    b.ID,
		BatchCode:  b.BatchCode,
		StoreID:    b.StoreID,
		CompanyID:  b.CompanyID,
		Status:     b.Status,
		AssignedTo: b.AssignedTo,
		ItemCount:  itemCount,
		OccurredAt: s.now().UTC(),
	})
}

// transition moves a locked batch to "to" and records the event. Callers have
// already checked the current status under the row lock.
func (s *AuctionService) transition(ctx context.Context, tx *gorm.DB, b *model.AuctionBatch, to, event string, extra map[string]interface{}) error {
	from := b.Status
	if !model.BatchCanTransitionTo(from, to) {
		return apperr.InvalidState("auction batch", b.ID.String(), []string{to}, from)
	}
	ok, err := s.auctionRepo.Transition(ctx, tx, b.ID, from, to, extra)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidState("auction batch", b.ID.String(), []string{from}, "changed concurrently")
	}
	b.Status = to
	return s.batchEvent(ctx, tx, event, b, 0)
}

func (s *AuctionService) lockBatch(ctx context.Context, tx *gorm.DB, id uuid.UUID, expected string) (*model.AuctionBatch, error) {
	batch, err := s.auctionRepo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if batch.Status != expected {
		return nil, apperr.InvalidState("auction batch", id.String(), []string{expected}, batch.Status)
	}
	return batch, nil
}

// Create 建批。任何一件物品不满足条件（合同非逾期、物品不在库、门店/公司不一致、
// 已在其他未取消批次中）都会让整批创建失败。
func (s *AuctionService) Create(ctx context.Context, req *CreateBatchRequest, createdBy *uuid.UUID) (*model.AuctionBatch, error) {
	if len(req.PawnItemIDs) == 0 {
		return nil, apperr.Validation("an auction batch needs at least one item")
	}
	seen := make(map[uuid.UUID]bool, len(req.PawnItemIDs))
	for _, id := range req.PawnItemIDs {
		if seen[id] {
			return nil, apperr.Validation("pawn item %s is listed twice", id)
		}
		seen[id] = true
	}
	store, err := s.storeRepo.GetByID(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if store.CompanyID != req.CompanyID {
		return nil, apperr.Validation("store %s does not belong to company %s", store.ID, req.CompanyID)
	}

	var batch *model.AuctionBatch
	err = retryOnConflict(s.log, "batch code", s.cfg.Business.ConflictRetryAttempts, func() error {
		code, err := s.numbers.BatchCode(ctx, s.auctionRepo.BatchCodeExists)
		if err != nil {
			return numberError(err)
		}

		batch = &model.AuctionBatch{
			ID:        uuid.New(),
			BatchCode: code,
			StoreID:   req.StoreID,
			CompanyID: req.CompanyID,
			Status:    model.BatchStatusDraft,
			Notes:     req.Notes,
			CreatedBy: createdBy,
		}
		for _, id := range req.PawnItemIDs {
			batch.Items = append(batch.Items, model.AuctionBatchItem{
				ID:           uuid.New(),
				PawnItemID:   id,
				PickupStatus: model.PickupStatusPending,
			})
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.checkEligible(ctx, tx, req); err != nil {
				return err
			}
			if err := s.auctionRepo.Create(ctx, tx, batch); err != nil {
				return err
			}
			return s.batchEvent(ctx, tx, model.EventBatchCreated, batch, len(batch.Items))
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.AuctionTransitions.WithLabelValues(model.BatchStatusDraft).Inc()
	s.log.Info("拍卖批次已创建",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_code", batch.BatchCode),
		zap.String("store_id", batch.StoreID.String()),
		zap.Int("items", len(batch.Items)))
	return s.auctionRepo.GetByID(ctx, batch.ID)
}

// checkEligible locks the requested pawn items and verifies each one, in request order.
func (s *AuctionService) checkEligible(ctx context.Context, tx *gorm.DB, req *CreateBatchRequest) error {
	items, err := s.contractRepo.GetItemsForUpdate(ctx, tx, req.PawnItemIDs)
	if err != nil {
		return err
	}
	contractIDs := make([]uuid.UUID, 0, len(items))
	for _, id := range req.PawnItemIDs {
		item, ok := items[id]
		if !ok {
			return apperr.NotFound("pawn item", id.String())
		}
		contractIDs = append(contractIDs, item.ContractID)
	}
	contracts, err := s.contractRepo.GetByIDs(ctx, tx, contractIDs)
	if err != nil {
		return err
	}

	for _, id := range req.PawnItemIDs {
		item := items[id]
		contract, ok := contracts[item.ContractID]
		if !ok {
			return apperr.NotFound("pawn contract", item.ContractID.String())
		}
		if contract.Status != model.ContractStatusOverdue {
			e := apperr.InvalidState("pawn item", id.String(), []string{model.ContractStatusOverdue}, contract.Status)
			e.Details = fmt.Sprintf("contract %s is %s", contract.InternalNumber, contract.Status)
			return e
		}
		if item.Status != model.ItemStatusInStorage {
			return apperr.InvalidState("pawn item", id.String(), []string{model.ItemStatusInStorage}, item.Status)
		}
		if contract.StoreID != req.StoreID || contract.CompanyID != req.CompanyID {
			e := apperr.InvalidState("pawn item", id.String(), []string{"store " + req.StoreID.String()}, "store "+contract.StoreID.String())
			e.Details = "item belongs to a different store or company"
			return e
		}
	}

	taken, err := s.auctionRepo.ActiveMembers(ctx, tx, req.PawnItemIDs)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		e := apperr.InvalidState("pawn item", taken[0].String(), []string{"not batched"}, "in an active auction batch")
		e.Details = fmt.Sprintf("%d item(s) already in an active batch", len(taken))
		return e
	}
	return nil
}

// Assign 指派取件人，草稿批次进入取件阶段
func (s *AuctionService) Assign(ctx context.Context, batchID, userID uuid.UUID) (*model.AuctionBatch, error) {
	if userID == uuid.Nil {
		return nil, apperr.Validation("assignee is required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.lockBatch(ctx, tx, batchID, model.BatchStatusDraft)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		batch.AssignedTo = &userID
		batch.AssignedAt = &now
		return s.transition(ctx, tx, batch, model.BatchStatusPickupInProgress, model.EventBatchAssigned,
			map[string]interface{}{"assigned_to": userID, "assigned_at": now})
	})
	if err != nil {
		return nil, err
	}

	metrics.AuctionTransitions.WithLabelValues(model.BatchStatusPickupInProgress).Inc()
	s.log.Info("拍卖批次已指派", zap.String("batch_id", batchID.String()), zap.String("assigned_to", userID.String()))
	return s.auctionRepo.GetByID(ctx, batchID)
}

// UpdateItemPickup 记录单件取件结果。每次更新后重新扫描同批全部物品，
// 全部非 pending 时批次转入 validation_pending，只会转一次。
func (s *AuctionService) UpdateItemPickup(ctx context.Context, batchID, itemID uuid.UUID, req *UpdatePickupRequest) (*model.AuctionBatch, error) {
	if !model.ValidPickupStatus(req.PickupStatus) {
		return nil, apperr.Validation("pickup_status %q is not one of pending, taken, failed", req.PickupStatus)
	}

	var completed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.lockBatch(ctx, tx, batchID, model.BatchStatusPickupInProgress)
		if err != nil {
			return err
		}
		item, err := s.auctionRepo.GetItem(ctx, tx, batchID, itemID)
		if err != nil {
			return err
		}

		item.PickupStatus = req.PickupStatus
		item.FailureReason = nil
		if req.PickupStatus == model.PickupStatusFailed {
			item.FailureReason = req.FailureReason
		}
		if err := s.auctionRepo.SaveItem(ctx, tx, item, "pickup_status", "failure_reason"); err != nil {
			return err
		}

		pending, err := s.auctionRepo.CountPendingPickups(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}
		completed = true
		return s.transition(ctx, tx, batch, model.BatchStatusValidationPending, model.EventBatchValidationReady, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("取件结果已更新",
		zap.String("batch_id", batchID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("pickup_status", req.PickupStatus))
	if completed {
		metrics.AuctionTransitions.WithLabelValues(model.BatchStatusValidationPending).Inc()
		s.log.Info("批次取件完成，进入验货", zap.String("batch_id", batchID.String()))
	}
	return s.auctionRepo.GetByID(ctx, batchID)
}

// SubmitItemValidation 记录单件验货结论，不推进批次状态
func (s *AuctionService) SubmitItemValidation(ctx context.Context, batchID, itemID uuid.UUID, req *SubmitValidationRequest, validatedBy *uuid.UUID) (*model.AuctionBatch, error) {
	if !model.ValidVerdict(req.Verdict) {
		return nil, apperr.Validation("verdict %q is not one of ok, reject", req.Verdict)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockBatch(ctx, tx, batchID, model.BatchStatusValidationPending); err != nil {
			return err
		}
		item, err := s.auctionRepo.GetItem(ctx, tx, batchID, itemID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		verdict := req.Verdict
		item.ValidationVerdict = &verdict
		item.ValidationNotes = req.Notes
		item.ValidationPhotos = req.ValidationPhotos
		item.ValidatedBy = validatedBy
		item.ValidatedAt = &now
		return s.auctionRepo.SaveItem(ctx, tx, item,
			"validation_verdict", "validation_notes", "validation_photos", "validated_by", "validated_at")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("验货结论已记录",
		zap.String("batch_id", batchID.String()),
		zap.String("item_id", itemID.String()),
		zap.String("verdict", req.Verdict))
	return s.auctionRepo.GetByID(ctx, batchID)
}

// Finalize 定稿：每件都必须有验货结论；ok 的物品转为 in_auction，reject 的不动。
func (s *AuctionService) Finalize(ctx context.Context, batchID uuid.UUID) (*model.AuctionBatch, error) {
	var accepted []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.lockBatch(ctx, tx, batchID, model.BatchStatusValidationPending)
		if err != nil {
			return err
		}
		items, err := s.auctionRepo.ListItems(ctx, tx, batchID)
		if err != nil {
			return err
		}

		missing := 0
		for _, item := range items {
			switch {
			case item.ValidationVerdict == nil:
				missing++
			case *item.ValidationVerdict == model.VerdictOK:
				accepted = append(accepted, item.PawnItemID)
			}
		}
		if missing > 0 {
			e := apperr.InvalidState("auction batch", batchID.String(), []string{"all items validated"},
				fmt.Sprintf("%d of %d items without verdict", missing, len(items)))
			e.Details = "every item needs a validation verdict before finalizing"
			return e
		}

		if err := s.transition(ctx, tx, batch, model.BatchStatusReadyForAuction, model.EventBatchReady, nil); err != nil {
			return err
		}
		return s.contractRepo.UpdateItemsStatus(ctx, tx, accepted, model.ItemStatusInAuction)
	})
	if err != nil {
		return nil, err
	}

	metrics.AuctionTransitions.WithLabelValues(model.BatchStatusReadyForAuction).Inc()
	s.log.Info("拍卖批次已定稿", zap.String("batch_id", batchID.String()), zap.Int("in_auction", len(accepted)))
	return s.auctionRepo.GetByID(ctx, batchID)
}

// Cancel 取消批次，ready_for_auction 和 cancelled 状态除外
func (s *AuctionService) Cancel(ctx context.Context, batchID uuid.UUID) (*model.AuctionBatch, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.auctionRepo.GetForUpdate(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if !model.BatchCanTransitionTo(batch.Status, model.BatchStatusCancelled) {
			return apperr.InvalidState("auction batch", batchID.String(),
				[]string{model.BatchStatusDraft, model.BatchStatusPickupInProgress, model.BatchStatusValidationPending},
				batch.Status)
		}
		return s.transition(ctx, tx, batch, model.BatchStatusCancelled, model.EventBatchCancelled, nil)
	})
	if err != nil {
		return nil, err
	}

	metrics.AuctionTransitions.WithLabelValues(model.BatchStatusCancelled).Inc()
	s.log.Info("拍卖批次已取消", zap.String("batch_id", batchID.String()))
	return s.auctionRepo.GetByID(ctx, batchID)
}

func (s *AuctionService) Get(ctx context.Context, id uuid.UUID) (*model.AuctionBatch, error) {
	return s.auctionRepo.GetByID(ctx, id)
}

func (s *AuctionService) List(ctx context.Context, filter repository.BatchFilter) ([]*model.AuctionBatch, int64, error) {
	return s.auctionRepo.List(ctx, filter)
}
