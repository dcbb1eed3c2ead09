package service

import (
	"context"
	"time"

	"pawnshop/internal/config"
	"pawnshop/internal/model"
	"pawnshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService 看板统计：按状态计数、按门店汇总未结余额、本月付款凭证数
type ReportService struct {
	loc          *time.Location
	now          Clock
	contractRepo *repository.ContractRepository
	storeRepo    *repository.StoreRepository
	paymentRepo  *repository.PaymentRepository
}

type ReportOption func(*ReportService)

func WithReportClock(now Clock) ReportOption {
	return func(s *ReportService) { s.now = now }
}

func NewReportService(db *gorm.DB, cfg *config.Config, opts ...ReportOption) *ReportService {
	s := &ReportService{
		loc:          cfg.Business.LocationOrUTC(),
		now:          time.Now,
		contractRepo: repository.NewContractRepository(db),
		storeRepo:    repository.NewStoreRepository(db),
		paymentRepo:  repository.NewPaymentRepository(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type DashboardSummary struct {
	CountsByStatus    map[string]int64          `json:"counts_by_status"`
	ActiveCount       int64                     `json:"active_count"`
	OverdueCount      int64                     `json:"overdue_count"`
	PaymentsThisMonth int64                     `json:"payments_this_month"`
	BalanceByStore    []repository.StoreBalance `json:"balance_by_store"`
	TotalOutstanding  decimal.Decimal           `json:"total_outstanding"`
}

// scope resolves the stores a summary covers. nil means every store.
func (s *ReportService) scope(ctx context.Context, companyID, storeID *uuid.UUID) ([]uuid.UUID, error) {
	if companyID == nil {
		if storeID != nil {
			return []uuid.UUID{*storeID}, nil
		}
		return nil, nil
	}
	ids, err := s.storeRepo.ListIDsByCompany(ctx, *companyID)
	if err != nil {
		return nil, err
	}
	if storeID == nil {
		if ids == nil {
			ids = []uuid.UUID{}
		}
		return ids, nil
	}
	// 门店不属于该公司时看板为空
	for _, id := range ids {
		if id == *storeID {
			return []uuid.UUID{id}, nil
		}
	}
	return []uuid.UUID{}, nil
}

// monthStart is the first instant of the current month in the business timezone.
func (s *ReportService) monthStart() time.Time {
	y, m, _ := s.now().In(s.loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, s.loc).UTC()
}

// Summary aggregates the contracts and payments of one store, of every store
// of a company, or of everything when both ids are nil.
func (s *ReportService) Summary(ctx context.Context, companyID, storeID *uuid.UUID) (*DashboardSummary, error) {
	storeIDs, err := s.scope(ctx, companyID, storeID)
	if err != nil {
		return nil, err
	}
	counts, err := s.contractRepo.CountByStatus(ctx, storeIDs)
	if err != nil {
		return nil, err
	}
	balances, err := s.contractRepo.OutstandingByStore(ctx, storeIDs)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.CountSince(ctx, storeIDs, s.monthStart())
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		CountsByStatus:    make(map[string]int64, len(counts)),
		PaymentsThisMonth: payments,
		BalanceByStore:    make([]repository.StoreBalance, 0, len(balances)),
		TotalOutstanding:  decimal.Zero,
	}
	for _, c := range counts {
		summary.CountsByStatus[c.Status] = c.Count
	}
	summary.ActiveCount = summary.CountsByStatus[model.ContractStatusActive] + summary.CountsByStatus[model.ContractStatusExtended]
	summary.OverdueCount = summary.CountsByStatus[model.ContractStatusOverdue]

	for _, b := range balances {
		summary.BalanceByStore = append(summary.BalanceByStore, b)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(b.Balance)
	}
	return summary, nil
}
