package service

import (
	"context"
	"fmt"
	"time"

	"pawnshop/internal/apperr"
	"pawnshop/internal/config"
	"pawnshop/internal/infrastructure/metrics"
	"pawnshop/internal/interest"
	"pawnshop/internal/model"
	"pawnshop/internal/repository"
	"pawnshop/pkg/idgen"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	hundred = decimal.NewFromInt(100)
	thirty  = decimal.NewFromInt(30)
)

// ContractService 典当合同生命周期：创建、PIN 确认、续当/赎当申请、逾期扫描
type ContractService struct {
	db            *gorm.DB
	cfg           *config.Config
	log           *zap.Logger
	loc           *time.Location
	now           Clock
	numbers       *idgen.Generator
	contractRepo  *repository.ContractRepository
	storeRepo     *repository.StoreRepository
	directoryRepo *repository.DirectoryRepository
	paymentRepo   *repository.PaymentRepository
	outboxRepo    *repository.OutboxRepository
}

type ContractOption func(*ContractService)

func WithContractClock(now Clock) ContractOption {
	return func(s *ContractService) { s.now = now }
}

func WithContractNumbers(g *idgen.Generator) ContractOption {
	return func(s *ContractService) { s.numbers = g }
}

func NewContractService(db *gorm.DB, cfg *config.Config, log *zap.Logger, opts ...ContractOption) *ContractService {
	s := &ContractService{
		db:            db,
		cfg:           cfg,
		log:           log.Named("contract"),
		loc:           cfg.Business.LocationOrUTC(),
		now:           time.Now,
		contractRepo:  repository.NewContractRepository(db),
		storeRepo:     repository.NewStoreRepository(db),
		directoryRepo: repository.NewDirectoryRepository(db),
		paymentRepo:   repository.NewPaymentRepository(db),
		outboxRepo:    repository.NewOutboxRepository(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.numbers == nil {
		s.numbers = newNumberGenerator(s.now)
	}
	return s
}

type CreateItemRequest struct {
	ItemTypeID      uuid.UUID           `json:"item_type_id" binding:"required"`
	CatalogID       *uuid.UUID          `json:"catalog_id"`
	Description     string              `json:"description" binding:"required"`
	Brand           string              `json:"brand"`
	Model           string              `json:"model"`
	SerialNumber    string              `json:"serial_number"`
	AppraisedValue  decimal.Decimal     `json:"appraised_value"`
	Condition       string              `json:"condition" binding:"required"`
	Weight          decimal.NullDecimal `json:"weight"`
	Purity          string              `json:"purity"`
	EvidencePhotos  []string            `json:"evidence_photos"`
	StorageLocation string              `json:"storage_location"`
}

type CreateContractRequest struct {
	CustomerID      uuid.UUID       `json:"customer_id" binding:"required"`
	StoreID         uuid.UUID       `json:"store_id" binding:"required"`
	CompanyID       uuid.UUID       `json:"company_id" binding:"required"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	TenorDays       int             `json:"tenor_days"`
	// 为空时使用公司的 normal 利率
	InterestRate *decimal.Decimal `json:"interest_rate"`
	// 为空时按公司 admin_fee_rate 计算
	AdminFee *decimal.Decimal    `json:"admin_fee"`
	Items    []CreateItemRequest `json:"items"`
}

func (r *CreateContractRequest) validate() error {
	if !r.PrincipalAmount.IsPositive() {
		return apperr.Validation("principal_amount must be positive")
	}
	if r.TenorDays <= 0 {
		return apperr.Validation("tenor_days must be positive")
	}
	if r.InterestRate != nil && r.InterestRate.IsNegative() {
		return apperr.Validation("interest_rate must not be negative")
	}
	if r.AdminFee != nil && r.AdminFee.IsNegative() {
		return apperr.Validation("admin_fee must not be negative")
	}
	if len(r.Items) == 0 {
		return apperr.Validation("a contract needs at least one item")
	}
	for i, item := range r.Items {
		if item.ItemTypeID == uuid.Nil {
			return apperr.Validation("items[%d].item_type_id is required", i)
		}
		if !model.ValidItemCondition(item.Condition) {
			return apperr.Validation("items[%d].condition %q is not one of excellent, good, fair, poor", i, item.Condition)
		}
		if item.AppraisedValue.IsNegative() {
			return apperr.Validation("items[%d].appraised_value must not be negative", i)
		}
	}
	return nil
}

// ContractEvent is the outbox payload for contract-level events.
type ContractEvent struct {
	Event          string    `json:"event"`
	ContractID     uuid.UUID `json:"contract_id"`
	InternalNumber string    `json:"internal_number"`
	CustomerNumber string    `json:"customer_number"`
	StoreID        uuid.UUID `json:"store_id"`
	CompanyID      uuid.UUID `json:"company_id"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (s *ContractService) contractEvent(ctx context.Context, tx *gorm.DB, event string, c *model.PawnContract) error {
	payload := ContractEvent{
		Event:          event,
		ContractID:     c.ID,
		InternalNumber: c.InternalNumber,
		CustomerNumber: c.CustomerNumber,
		StoreID:        c.StoreID,
		CompanyID:      c.CompanyID,
		Status:         c.Status,
		OccurredAt:     s.now().UTC(),
	}
	return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.ContractEvents, event, c.ID.String(), payload)
}

// Create 创建草稿合同。门店序号分配、合同和物品写入在同一个事务里完成。
func (s *ContractService) Create(ctx context.Context, req *CreateContractRequest, createdBy *uuid.UUID) (*model.PawnContract, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	customer, err := s.directoryRepo.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.IsBlacklisted {
		return nil, apperr.Validation("customer %s is blacklisted", customer.ID)
	}
	if customer.CompanyID != req.CompanyID {
		return nil, apperr.Validation("customer %s does not belong to company %s", customer.ID, req.CompanyID)
	}
	store, err := s.storeRepo.GetByID(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if store.CompanyID != req.CompanyID {
		return nil, apperr.Validation("store %s does not belong to company %s", store.ID, req.CompanyID)
	}
	company, err := s.directoryRepo.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	typeIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		typeIDs = append(typeIDs, item.ItemTypeID)
	}
	itemTypes, err := s.directoryRepo.GetItemTypes(ctx, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("查询物品类型失败: %w", err)
	}
	for _, id := range typeIDs {
		if _, ok := itemTypes[id]; !ok {
			return nil, apperr.NotFound("item type", id.String())
		}
	}
	primaryType := itemTypes[req.Items[0].ItemTypeID]

	rate := company.NormalInterestRate
	if req.InterestRate != nil {
		rate = *req.InterestRate
	}
	adminFee := company.AdminFeeRate.Mul(req.PrincipalAmount).Div(hundred).Round(interest.MoneyPlaces)
	if req.AdminFee != nil {
		adminFee = *req.AdminFee
	}
	total := creationTotal(req.PrincipalAmount, rate, req.TenorDays, adminFee)
	today := calendarDate(s.now(), s.loc)

	var contract *model.PawnContract
	err = retryOnConflict(s.log, "contract numbers", s.cfg.Business.ConflictRetryAttempts, func() error {
		customerNumber, err := s.numbers.CustomerNumber(ctx, s.contractRepo.CustomerNumberExists)
		if err != nil {
			return numberError(err)
		}

		contract = &model.PawnContract{
			ID:                  uuid.New(),
			CustomerNumber:      customerNumber,
			CustomerID:          customer.ID,
			StoreID:             store.ID,
			CompanyID:           company.ID,
			PrincipalAmount:     req.PrincipalAmount,
			TenorDays:           req.TenorDays,
			InterestRatePercent: rate,
			AdminFee:            adminFee,
			TotalAmount:         total,
			RemainingBalance:    total,
			DueDate:             today.AddDate(0, 0, req.TenorDays),
			Status:              model.ContractStatusDraft,
			CreatedBy:           createdBy,
			CreatedAt:           s.now().UTC(),
			Items:               buildItems(req.Items),
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, err := s.storeRepo.NextSequence(ctx, tx, store.ID)
			if err != nil {
				return err
			}
			contract.InternalNumber = idgen.InternalNumber(primaryType.TypeCode, seq)
			contract.SystemNumber = contract.InternalNumber

			if err := s.contractRepo.Create(ctx, tx, contract); err != nil {
				return err
			}
			return s.contractEvent(ctx, tx, model.EventContractCreated, contract)
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.ContractsCreated.WithLabelValues(store.Code).Inc()
	s.log.Info("合同已创建",
		zap.String("contract_id", contract.ID.String()),
		zap.String("internal_number", contract.InternalNumber),
		zap.String("customer_number", contract.CustomerNumber),
		zap.String("store_id", store.ID.String()),
		zap.String("total_amount", contract.TotalAmount.StringFixed(interest.MoneyPlaces)))
	return contract, nil
}

// creationTotal is the flat-rate total fixed at creation:
// principal + principal * rate% * tenor/30 + adminFee.
func creationTotal(principal, ratePercent decimal.Decimal, tenorDays int, adminFee decimal.Decimal) decimal.Decimal {
	flatInterest := principal.Mul(ratePercent).Div(hundred).
		Mul(decimal.NewFromInt(int64(tenorDays))).Div(thirty)
	return principal.Add(flatInterest).Add(adminFee).Round(interest.MoneyPlaces)
}

func buildItems(reqs []CreateItemRequest) []model.PawnItem {
	items := make([]model.PawnItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, model.PawnItem{
			ID:              uuid.New(),
			CatalogID:       r.CatalogID,
			ItemTypeID:      r.ItemTypeID,
			Description:     r.Description,
			Brand:           r.Brand,
			Model:           r.Model,
			SerialNumber:    r.SerialNumber,
			AppraisedValue:  r.AppraisedValue,
			Condition:       r.Condition,
			Weight:          r.Weight,
			Purity:          r.Purity,
			EvidencePhotos:  r.EvidencePhotos,
			StorageLocation: r.StorageLocation,
			Status:          model.ItemStatusInStorage,
		})
	}
	return items
}

// Confirm 客户输入 PIN 确认草稿合同。任何校验失败都只返回 InvalidCredential。
func (s *ContractService) Confirm(ctx context.Context, id uuid.UUID, pin string) (*model.PawnContract, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Extended -> Active 由付款确认方完成，PIN 确认只处理草稿
	if contract.Status != model.ContractStatusDraft || !model.ContractCanTransitionTo(contract.Status, model.ContractStatusActive) {
		return nil, apperr.InvalidState("pawn contract", id.String(), []string{model.ContractStatusDraft}, contract.Status)
	}

	customer, err := s.directoryRepo.GetCustomer(ctx, contract.CustomerID)
	if err != nil && !apperr.Is(err, apperr.CodeNotFound) {
		return nil, err
	}
	if customer == nil || customer.PinHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(customer.PinHash), []byte(pin)) != nil {
		s.log.Warn("PIN 校验失败", zap.String("contract_id", id.String()))
		return nil, apperr.InvalidCredential()
	}

	confirmedAt := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.contractRepo.Confirm(ctx, tx, id, confirmedAt); err != nil {
			return err
		}
		contract.Status = model.ContractStatusActive
		return s.contractEvent(ctx, tx, model.EventContractConfirmed, contract)
	})
	if err != nil {
		return nil, err
	}

	metrics.ContractsConfirmed.Inc()
	s.log.Info("合同已确认", zap.String("contract_id", id.String()))
	return s.contractRepo.GetByID(ctx, id)
}

type ExtendRequest struct {
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod string          `json:"payment_method"`
}

type RedeemRequest struct {
	// 为空时按赎当报价的 total_due
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
	PaymentMethod string           `json:"payment_method"`
}

// PaymentIntent is a pending payment record plus the quote it was priced from.
type PaymentIntent struct {
	Payment    *model.PaymentRecord `json:"payment"`
	Extension  *interest.Extension  `json:"extension_quote,omitempty"`
	Redemption *interest.Redemption `json:"redemption_quote,omitempty"`
}

func (s *ContractService) rates(ctx context.Context, companyID uuid.UUID) (interest.Rates, error) {
	company, err := s.directoryRepo.GetCompany(ctx, companyID)
	if err != nil {
		return interest.Rates{}, err
	}
	return interest.Rates{
		EarlyRatePercent:          company.EarlyInterestRate,
		NormalRatePercent:         company.NormalInterestRate,
		AdminFeeRatePercent:       company.AdminFeeRate,
		InsuranceFee:              company.InsuranceFee,
		LatePenaltyRatePercent:    company.LatePenaltyRate,
		EarlyPaymentDaysThreshold: company.EarlyPaymentDays,
	}, nil
}

// snapshot expresses every date on the business calendar. Due dates are
// stored as UTC midnight of their calendar day already.
func (s *ContractService) snapshot(c *model.PawnContract) interest.Contract {
	return interest.Contract{
		Principal:        c.PrincipalAmount,
		TenorDays:        c.TenorDays,
		RemainingBalance: c.RemainingBalance,
		DueDate:          c.DueDate.UTC(),
		CreatedAt:        c.CreatedAt.In(s.loc),
	}
}

func (s *ContractService) payableContract(ctx context.Context, id uuid.UUID) (*model.PawnContract, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.AcceptsPayments(contract.Status) {
		return nil, apperr.InvalidState("pawn contract", id.String(), model.PaymentAcceptingStatuses, contract.Status)
	}
	if contract.TenorDays <= 0 {
		return nil, apperr.Validation("pawn contract %s has no tenor", id)
	}
	return contract, nil
}

// QuoteExtension prices a renewal of amountPaid made now without writing anything.
func (s *ContractService) QuoteExtension(ctx context.Context, id uuid.UUID, amountPaid decimal.Decimal) (*interest.Extension, error) {
	if amountPaid.IsNegative() {
		return nil, apperr.Validation("amount_paid must not be negative")
	}
	contract, err := s.payableContract(ctx, id)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates(ctx, contract.CompanyID)
	if err != nil {
		return nil, err
	}
	quote := interest.Extend(s.snapshot(contract), s.now().In(s.loc), amountPaid, rates)
	quote.NewDueDate = calendarDate(quote.NewDueDate, s.loc)
	return &quote, nil
}

// QuoteRedemption prices paying the contract off now without writing anything.
func (s *ContractService) QuoteRedemption(ctx context.Context, id uuid.UUID) (*interest.Redemption, error) {
	contract, err := s.payableContract(ctx, id)
	if err != nil {
		return nil, err
	}
	rates, err := s.rates(ctx, contract.CompanyID)
	if err != nil {
		return nil, err
	}
	quote := interest.FullRedemption(s.snapshot(contract), s.now().In(s.loc), rates)
	return &quote, nil
}

// Extend 续当申请：只生成待确认的付款凭证，合同余额和状态由确认方修改。
func (s *ContractService) Extend(ctx context.Context, id uuid.UUID, req *ExtendRequest, createdBy *uuid.UUID) (*PaymentIntent, error) {
	if !req.AmountPaid.IsPositive() {
		return nil, apperr.Validation("amount_paid must be positive")
	}
	quote, err := s.QuoteExtension(ctx, id, req.AmountPaid)
	if err != nil {
		return nil, err
	}

	payment := &model.PaymentRecord{
		ContractID:     id,
		AmountPaid:     req.AmountPaid,
		PaymentType:    model.PaymentTypeRenewal,
		PaymentMethod:  paymentMethod(req.PaymentMethod),
		InterestAmount: quote.Interest,
		LatePenalty:    quote.LatePenalty,
	}
	if err := s.requestPayment(ctx, payment, createdBy); err != nil {
		return nil, err
	}
	return &PaymentIntent{Payment: payment, Extension: quote}, nil
}

// Redeem 赎当申请。未传金额时按报价的 total_due；金额不足 total_due 时记为 partial。
func (s *ContractService) Redeem(ctx context.Context, id uuid.UUID, req *RedeemRequest, createdBy *uuid.UUID) (*PaymentIntent, error) {
	quote, err := s.QuoteRedemption(ctx, id)
	if err != nil {
		return nil, err
	}

	amount := quote.TotalDue
	if req.AmountPaid != nil {
		amount = *req.AmountPaid
	}
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount_paid must be positive")
	}
	paymentType := model.PaymentTypeFullRedemption
	if amount.LessThan(quote.TotalDue) {
		paymentType = model.PaymentTypePartial
	}

	payment := &model.PaymentRecord{
		ContractID:     id,
		AmountPaid:     amount,
		PaymentType:    paymentType,
		PaymentMethod:  paymentMethod(req.PaymentMethod),
		InterestAmount: quote.Interest,
		LatePenalty:    quote.LatePenalty,
	}
	if err := s.requestPayment(ctx, payment, createdBy); err != nil {
		return nil, err
	}
	return &PaymentIntent{Payment: payment, Redemption: quote}, nil
}

func paymentMethod(m string) string {
	if m == "" {
		return model.PaymentMethodCash
	}
	return m
}

// PaymentEvent is the outbox payload for payment.requested.
type PaymentEvent struct {
	Event          string          `json:"event"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	DocumentNumber string          `json:"document_number"`
	ContractID     uuid.UUID       `json:"contract_id"`
	PaymentType    string          `json:"payment_type"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// requestPayment stores payment as pending under a fresh document number. The
// contract row is locked and re-checked against the transition the payment
// would settle, so a payment never lands on a contract that left
// active/extended after it was quoted.
func (s *ContractService) requestPayment(ctx context.Context, payment *model.PaymentRecord, createdBy *uuid.UUID) error {
	payment.Status = model.PaymentStatusPending
	payment.CreatedBy = createdBy
	payment.CreatedAt = s.now().UTC()
	payment.IsCustomerInitiated = createdBy == nil

	err := retryOnConflict(s.log, "payment document number", s.cfg.Business.ConflictRetryAttempts, func() error {
		number, err := s.numbers.PaymentNumber(ctx, s.paymentRepo.DocumentNumberExists)
		if err != nil {
			return numberError(err)
		}
		payment.ID = uuid.New()
		payment.DocumentNumber = number

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			contract, err := s.contractRepo.GetForUpdate(ctx, tx, payment.ContractID)
			if err != nil {
				return err
			}
			target := model.PaymentContractTarget(payment.PaymentType)
			if !model.ContractCanTransitionTo(contract.Status, target) {
				return apperr.InvalidState("pawn contract", contract.ID.String(), model.ContractStatusesInto(target), contract.Status)
			}
			if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
				return err
			}
			return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.ContractEvents, model.EventPaymentRequested,
				contract.ID.String(), PaymentEvent{
					Event:          model.EventPaymentRequested,
					PaymentID:      payment.ID,
					DocumentNumber: payment.DocumentNumber,
					ContractID:     contract.ID,
					PaymentType:    payment.PaymentType,
					AmountPaid:     payment.AmountPaid,
					OccurredAt:     s.now().UTC(),
				})
		})
	})
	if err != nil {
		return err
	}

	metrics.PaymentsRequested.WithLabelValues(payment.PaymentType).Inc()
	s.log.Info("付款凭证已创建",
		zap.String("contract_id", payment.ContractID.String()),
		zap.String("document_number", payment.DocumentNumber),
		zap.String("payment_type", payment.PaymentType),
		zap.String("amount_paid", payment.AmountPaid.StringFixed(interest.MoneyPlaces)))
	return nil
}

// SweepResult reports one overdue sweep run.
type SweepResult struct {
	Today   time.Time `json:"today"`
	Updated int64     `json:"updated"`
}

// SweepOverdue marks every active or extended contract whose due date has
// passed as overdue. Running it again on the same day is a no-op.
func (s *ContractService) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	today := calendarDate(s.now(), s.loc)
	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.contractRepo.MarkOverdue(ctx, tx, today)
		if err != nil {
			return err
		}
		updated = n
		if n == 0 {
			return nil
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.ContractEvents, model.EventContractsOverdue,
			today.Format("2006-01-02"), map[string]interface{}{
				"event":   model.EventContractsOverdue,
				"today":   today.Format("2006-01-02"),
				"updated": n,
			})
	})
	if err != nil {
		return nil, fmt.Errorf("逾期扫描失败: %w", err)
	}

	metrics.ContractsSweptOverdue.Add(float64(updated))
	s.log.Info("逾期扫描完成", zap.Time("today", today), zap.Int64("updated", updated))
	return &SweepResult{Today: today, Updated: updated}, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*model.PawnContract, error) {
	return s.contractRepo.GetByID(ctx, id)
}

func (s *ContractService) List(ctx context.Context, filter repository.ContractFilter) ([]*model.PawnContract, int64, error) {
	return s.contractRepo.List(ctx, filter)
}

func (s *ContractService) ListPayments(ctx context.Context, id uuid.UUID) ([]*model.PaymentRecord, error) {
	if _, err := s.contractRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByContract(ctx, id)
}
