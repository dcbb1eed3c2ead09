package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pawnshop/internal/model"
	"pawnshop/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPayment(t *testing.T, db *gorm.DB, contractID uuid.UUID, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&model.PaymentRecord{
		ID:             uuid.New(),
		DocumentNumber: fmt.Sprintf("NKB%d", createdAt.UnixNano()),
		ContractID:     contractID,
		AmountPaid:     decimal.NewFromInt(100000),
		PaymentType:    model.PaymentTypeRenewal,
		PaymentMethod:  model.PaymentMethodCash,
		Status:         model.PaymentStatusPending,
		CreatedAt:      createdAt,
	}).Error)
}

func TestReportService_Summary(t *testing.T) {
	db := testutil.NewDB(t)
	dir := testutil.SeedDirectory(t, db)
	due := testutil.Date(2025, time.April, 1)

	active := testutil.SeedContract(t, db, dir, model.ContractStatusActive, due)
	testutil.SeedContract(t, db, dir, model.ContractStatusExtended, due)
	testutil.SeedContract(t, db, dir, model.ContractStatusOverdue, due)
	testutil.SeedContract(t, db, dir, model.ContractStatusDraft, due)
	testutil.SeedContract(t, db, dir, model.ContractStatusRedeemed, due)

	second := testutil.SeedStore(t, db, dir.Company.ID, "JKT02")
	moved := testutil.SeedContract(t, db, dir, model.ContractStatusActive, due)
	require.NoError(t, db.Model(&model.PawnContract{}).Where("id = ?", moved.ID).Update("store_id", second.ID).Error)

	seedPayment(t, db, active.ID, time.Date(2025, time.February, 28, 23, 59, 0, 0, time.UTC))
	seedPayment(t, db, active.ID, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	seedPayment(t, db, moved.ID, time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC))

	clock := newClock(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	svc := NewReportService(db, testConfig(), WithReportClock(clock.Now))
	ctx := context.Background()

	summary, err := svc.Summary(ctx, &dir.Company.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.ActiveCount)
	assert.Equal(t, int64(1), summary.OverdueCount)
	assert.Equal(t, int64(1), summary.CountsByStatus[model.ContractStatusDraft])
	assert.Equal(t, int64(1), summary.CountsByStatus[model.ContractStatusRedeemed])
	assert.Equal(t, int64(2), summary.PaymentsThisMonth, "February payments fall outside the month")
	require.Len(t, summary.BalanceByStore, 2)
	// draft and redeemed contracts carry no outstanding loan
	assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(4000000)), summary.TotalOutstanding.String())

	all, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, summary, all)

	// every figure follows the selected store
	summary, err = svc.Summary(ctx, &dir.Company.ID, &second.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{model.ContractStatusActive: 1}, summary.CountsByStatus)
	assert.Equal(t, int64(1), summary.ActiveCount)
	assert.Equal(t, int64(0), summary.OverdueCount)
	assert.Equal(t, int64(1), summary.PaymentsThisMonth)
	require.Len(t, summary.BalanceByStore, 1)
	assert.Equal(t, second.ID, summary.BalanceByStore[0].StoreID)
	assert.Equal(t, int64(1), summary.BalanceByStore[0].Count)
	assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(1000000)))

	summary, err = svc.Summary(ctx, nil, &dir.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.ActiveCount)
	assert.Equal(t, int64(1), summary.OverdueCount)
	assert.Equal(t, int64(1), summary.PaymentsThisMonth)
	assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(3000000)))

	clock.Set(time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC))
	summary, err = svc.Summary(ctx, &dir.Company.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.PaymentsThisMonth)

	other := uuid.New()
	for _, storeID := range []*uuid.UUID{nil, &second.ID} {
		summary, err = svc.Summary(ctx, &other, storeID)
		require.NoError(t, err)
		assert.Empty(t, summary.CountsByStatus)
		assert.Empty(t, summary.BalanceByStore)
		assert.Zero(t, summary.PaymentsThisMonth)
		assert.True(t, summary.TotalOutstanding.IsZero())
	}
}

func TestReportService_MonthStartsInBusinessTimezone(t *testing.T) {
	if _, err := time.LoadLocation("Asia/Jakarta"); err != nil {
		t.Skip("tzdata not available")
	}
	db := testutil.NewDB(t)
	dir := testutil.SeedDirectory(t, db)
	contract := testutil.SeedContract(t, db, dir, model.ContractStatusActive, testutil.Date(2025, time.April, 1))

	// 1 March 00:00 WIB is 28 February 17:00 UTC
	seedPayment(t, db, contract.ID, time.Date(2025, time.February, 28, 16, 59, 0, 0, time.UTC))
	seedPayment(t, db, contract.ID, time.Date(2025, time.February, 28, 17, 0, 0, 0, time.UTC))

	cfg := testConfig()
	cfg.Business.Timezone = "Asia/Jakarta"
	now := func() time.Time { return time.Date(2025, time.March, 1, 2, 0, 0, 0, time.UTC) }
	svc := NewReportService(db, cfg, WithReportClock(now))

	summary, err := svc.Summary(context.Background(), &dir.Company.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.PaymentsThisMonth)
}
