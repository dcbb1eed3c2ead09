package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pawnshop/internal/apperr"
	"pawnshop/internal/infrastructure/metrics"
	"pawnshop/internal/model"
	"pawnshop/internal/repository"
	"pawnshop/internal/testutil"
	"pawnshop/pkg/idgen"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type contractFixture struct {
	db    *gorm.DB
	dir   *testutil.Directory
	clock *fakeClock
	svc   *ContractService
}

func newContractFixture(t *testing.T, opts ...ContractOption) *contractFixture {
	db := testutil.NewDB(t)
	clock := newClock(time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC))
	opts = append([]ContractOption{WithContractClock(clock.Now)}, opts...)
	return &contractFixture{
		db:    db,
		dir:   testutil.SeedDirectory(t, db),
		clock: clock,
		svc:   NewContractService(db, testConfig(), zaptest.NewLogger(t), opts...),
	}
}

func (f *contractFixture) request() *CreateContractRequest {
	return &CreateContractRequest{
		CustomerID:      f.dir.Customer.ID,
		StoreID:         f.dir.Store.ID,
		CompanyID:       f.dir.Company.ID,
		PrincipalAmount: decimal.NewFromInt(1000000),
		TenorDays:       30,
		Items: []CreateItemRequest{{
			ItemTypeID:     f.dir.ItemType.ID,
			Description:    "Laptop",
			Brand:          "Lenovo",
			AppraisedValue: decimal.NewFromInt(1500000),
			Condition:      model.ItemConditionGood,
			EvidencePhotos: []string{"front.jpg"},
		}},
	}
}

func (f *contractFixture) activeContract(t *testing.T) *model.PawnContract {
	t.Helper()
	ctx := context.Background()
	contract, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, contract.ID, f.dir.PIN)
	require.NoError(t, err)
	return contract
}

func TestContractService_Create(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	staff := uuid.New()

	contract, err := f.svc.Create(ctx, f.request(), &staff)
	require.NoError(t, err)

	assert.Equal(t, "E00000001", contract.InternalNumber)
	assert.Equal(t, contract.InternalNumber, contract.SystemNumber)
	assert.True(t, strings.HasPrefix(contract.CustomerNumber, "20250101"))
	assert.Len(t, contract.CustomerNumber, 12)
	assert.Equal(t, model.ContractStatusDraft, contract.Status)
	assert.True(t, contract.InterestRatePercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, contract.AdminFee.Equal(decimal.NewFromInt(10000)), contract.AdminFee.String())
	// 1,000,000 + 1,000,000 * 10% * 30/30 + 10,000
	assert.True(t, contract.TotalAmount.Equal(decimal.NewFromInt(1110000)), contract.TotalAmount.String())
	assert.True(t, contract.RemainingBalance.Equal(contract.TotalAmount))
	assert.True(t, contract.DueDate.Equal(testutil.Date(2025, time.January, 31)))

	stored, err := f.svc.Get(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, model.ItemStatusInStorage, stored.Items[0].Status)
	assert.Equal(t, []string{"front.jpg"}, stored.Items[0].EvidencePhotos)
	require.NotNil(t, stored.CreatedBy)
	assert.Equal(t, staff, *stored.CreatedBy)

	assert.Equal(t, int64(1), countEvents(t, f.db, model.EventContractCreated))

	second, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)
	assert.Equal(t, "E00000002", second.InternalNumber)
}

func TestContractService_CreateExplicitRateAndFee(t *testing.T) {
	f := newContractFixture(t)
	req := f.request()
	rate := decimal.RequireFromString("2.5")
	fee := decimal.NewFromInt(5000)
	req.InterestRate = &rate
	req.AdminFee = &fee
	req.TenorDays = 60

	contract, err := f.svc.Create(context.Background(), req, nil)
	require.NoError(t, err)
	// 1,000,000 * 2.5% * 60/30 = 50,000
	assert.True(t, contract.TotalAmount.Equal(decimal.NewFromInt(1055000)), contract.TotalAmount.String())
	assert.True(t, contract.DueDate.Equal(testutil.Date(2025, time.March, 2)))
}

func TestContractService_CreateConcurrentNumbersAreDistinct(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	const creators = 12
	numbers := make(chan string, creators)
	var wg sync.WaitGroup
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			contract, err := f.svc.Create(ctx, f.request(), nil)
			if assert.NoError(t, err) {
				numbers <- contract.InternalNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for n := range numbers {
		assert.False(t, seen[n], "duplicate internal number %s", n)
		seen[n] = true
	}
	require.Len(t, seen, creators)
	for i := 1; i <= creators; i++ {
		assert.True(t, seen[idgen.InternalNumber("E", uint32(i))], "missing sequence %d", i)
	}

	store, err := repository.NewStoreRepository(f.db).GetByID(ctx, f.dir.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(creators), store.TransactionSequence)
}

func TestContractService_CreateRejects(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	blacklisted := testutil.SeedCustomer(t, f.db, f.dir.Company.ID, "0000", true)
	otherCompany := uuid.New()
	foreignStore := testutil.SeedStore(t, f.db, otherCompany, "SBY01")

	cases := []struct {
		name   string
		mutate func(r *CreateContractRequest)
		code   apperr.Code
	}{
		{"no items", func(r *CreateContractRequest) { r.Items = nil }, apperr.CodeValidation},
		{"zero tenor", func(r *CreateContractRequest) { r.TenorDays = 0 }, apperr.CodeValidation},
		{"zero principal", func(r *CreateContractRequest) { r.PrincipalAmount = decimal.Zero }, apperr.CodeValidation},
		{"bad condition", func(r *CreateContractRequest) { r.Items[0].Condition = "mint" }, apperr.CodeValidation},
		{"blacklisted customer", func(r *CreateContractRequest) { r.CustomerID = blacklisted.ID }, apperr.CodeValidation},
		{"store of another company", func(r *CreateContractRequest) { r.StoreID = foreignStore.ID }, apperr.CodeValidation},
		{"unknown customer", func(r *CreateContractRequest) { r.CustomerID = uuid.New() }, apperr.CodeNotFound},
		{"unknown store", func(r *CreateContractRequest) { r.StoreID = uuid.New() }, apperr.CodeNotFound},
		{"unknown item type", func(r *CreateContractRequest) { r.Items[0].ItemTypeID = uuid.New() }, apperr.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request()
			tc.mutate(req)
			_, err := f.svc.Create(ctx, req, nil)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperr.CodeOf(err), err.Error())
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&model.PawnContract{}).Count(&count).Error)
	assert.Zero(t, count)
	store, err := repository.NewStoreRepository(f.db).GetByID(ctx, f.dir.Store.ID)
	require.NoError(t, err)
	assert.Zero(t, store.TransactionSequence)
}

func TestContractService_CreateNumberExhaustion(t *testing.T) {
	db := testutil.NewDB(t)
	dir := testutil.SeedDirectory(t, db)
	clock := newClock(time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC))
	stuck := idgen.New(idgen.WithClock(clock.Now), idgen.WithRand(func(int) int { return 0 }))
	svc := NewContractService(db, testConfig(), zaptest.NewLogger(t),
		WithContractClock(clock.Now), WithContractNumbers(stuck))
	f := &contractFixture{db: db, dir: dir, clock: clock, svc: svc}
	ctx := context.Background()

	first, err := svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)
	assert.Equal(t, "202501011000", first.CustomerNumber)

	_, err = svc.Create(ctx, f.request(), nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeGenerationExhausted))
	assert.True(t, apperr.IsRetryable(err))

	store, err := repository.NewStoreRepository(db).GetByID(ctx, dir.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), store.TransactionSequence, "no sequence consumed by the failed attempt")
}

func TestContractService_Confirm(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	contract, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, contract.ID, "999999")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidCredential))
	assert.Equal(t, "invalid credential", err.(*apperr.Error).Message)

	stored, err := f.svc.Get(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusDraft, stored.Status)

	confirmed, err := f.svc.Confirm(ctx, contract.ID, f.dir.PIN)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusActive, confirmed.Status)
	assert.True(t, confirmed.ConfirmedByPin)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Equal(t, int64(1), countEvents(t, f.db, model.EventContractConfirmed))

	_, err = f.svc.Confirm(ctx, contract.ID, f.dir.PIN)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))
	appErr := err.(*apperr.Error)
	assert.Equal(t, model.ContractStatusActive, appErr.Metadata["actual"])

	_, err = f.svc.Confirm(ctx, uuid.New(), f.dir.PIN)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestContractService_ExtendCreatesPendingPaymentOnly(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)
	_, err = f.svc.Extend(ctx, draft.ID, &ExtendRequest{AmountPaid: decimal.NewFromInt(50000)}, nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))

	contract := f.activeContract(t)
	f.clock.Set(time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC))

	intent, err := f.svc.Extend(ctx, contract.ID, &ExtendRequest{AmountPaid: decimal.NewFromInt(50000)}, nil)
	require.NoError(t, err)

	payment := intent.Payment
	assert.True(t, strings.HasPrefix(payment.DocumentNumber, "NKB20250121"))
	assert.Len(t, payment.DocumentNumber, 17)
	assert.Equal(t, model.PaymentTypeRenewal, payment.PaymentType)
	assert.Equal(t, model.PaymentStatusPending, payment.Status)
	assert.Equal(t, model.PaymentMethodCash, payment.PaymentMethod)
	assert.True(t, payment.IsCustomerInitiated)
	assert.Nil(t, payment.CreatedBy)

	// 1,110,000 * 10% * 30 / 365 = 9,123.29; the rest of the 50,000 reduces principal
	require.NotNil(t, intent.Extension)
	assert.Equal(t, "9123.29", intent.Extension.Interest.String())
	assert.True(t, intent.Extension.LatePenalty.IsZero())
	assert.Equal(t, "40876.71", intent.Extension.PrincipalPaid.String())
	assert.Equal(t, "1069123.29", intent.Extension.NewRemainingBalance.String())
	assert.True(t, intent.Extension.NewDueDate.Equal(testutil.Date(2025, time.February, 20)))
	assert.True(t, payment.InterestAmount.Equal(intent.Extension.Interest))

	stored, err := f.svc.Get(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusActive, stored.Status)
	assert.True(t, stored.RemainingBalance.Equal(contract.RemainingBalance), "balance changes only on confirmation")
	assert.Equal(t, int64(1), countEvents(t, f.db, model.EventPaymentRequested))

	_, err = f.svc.Extend(ctx, contract.ID, &ExtendRequest{AmountPaid: decimal.Zero}, nil)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestContractService_Redeem(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.activeContract(t)
	f.clock.Set(time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC))

	quote, err := f.svc.QuoteRedemption(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, quote.DaysElapsed)
	// 1,000,000 * 10% * 20/30
	assert.Equal(t, "66666.67", quote.Interest.String())
	// 1,000,000 * 1% + 15,000 insurance
	assert.True(t, quote.AdminFee.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "1201666.67", quote.TotalDue.String())

	staff := uuid.New()
	intent, err := f.svc.Redeem(ctx, contract.ID, &RedeemRequest{}, &staff)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentTypeFullRedemption, intent.Payment.PaymentType)
	assert.True(t, intent.Payment.AmountPaid.Equal(quote.TotalDue))
	assert.False(t, intent.Payment.IsCustomerInitiated)

	partial := decimal.NewFromInt(500000)
	intent, err = f.svc.Redeem(ctx, contract.ID, &RedeemRequest{AmountPaid: &partial}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentTypePartial, intent.Payment.PaymentType)

	payments, err := f.svc.ListPayments(ctx, contract.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.NotEqual(t, payments[0].DocumentNumber, payments[1].DocumentNumber)

	stored, err := f.svc.Get(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusActive, stored.Status)
	assert.True(t, stored.RemainingBalance.Equal(contract.RemainingBalance))
}

func TestContractService_RedeemLateAddsPenalty(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.activeContract(t)
	f.clock.Set(time.Date(2025, time.February, 5, 9, 0, 0, 0, time.UTC))

	quote, err := f.svc.QuoteRedemption(ctx, contract.ID)
	require.NoError(t, err)
	// 2% of the 1,110,000 remaining balance
	assert.True(t, quote.LatePenalty.Equal(decimal.NewFromInt(22200)), quote.LatePenalty.String())
}

func TestContractService_SweepOverdue(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.activeContract(t)

	f.clock.Set(time.Date(2025, time.January, 31, 23, 0, 0, 0, time.UTC))
	res, err := f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Updated, "due today is not overdue yet")

	f.clock.Set(time.Date(2025, time.February, 1, 0, 30, 0, 0, time.UTC))
	res, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Updated)

	res, err = f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Updated)
	assert.Equal(t, int64(1), countEvents(t, f.db, model.EventContractsOverdue))

	stored, err := f.svc.Get(ctx, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractStatusOverdue, stored.Status)

	_, err = f.svc.Redeem(ctx, contract.ID, &RedeemRequest{}, nil)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))
}

func TestContractService_List(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	f.activeContract(t)
	_, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)

	list, total, err := f.svc.List(ctx, repository.ContractFilter{Status: model.ContractStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "E00000002", list[0].InternalNumber)

	_, err = f.svc.ListPayments(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestContractService_SequenceIsPerStore(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	second := testutil.SeedStore(t, f.db, f.dir.Company.ID, "JKT02")

	a, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)
	req := f.request()
	req.StoreID = second.ID
	b, err := f.svc.Create(ctx, req, nil)
	require.NoError(t, err)

	assert.Equal(t, "E00000001", a.InternalNumber)
	assert.Equal(t, "E00000001", b.InternalNumber)
	assert.NotEqual(t, a.CustomerNumber, b.CustomerNumber)
}

// rejectInserts fails the next n inserts of T with a duplicate key, as a
// concurrent writer holding the same unique number would, and records the
// number each rejected row carried.
func rejectInserts[T any](t *testing.T, db *gorm.DB, n int, number func(*T) string) *[]string {
	t.Helper()
	var rejected []string
	err := db.Callback().Create().Before("gorm:create").Register("pawnshop:reject_duplicate", func(tx *gorm.DB) {
		row, ok := tx.Statement.Dest.(*T)
		if !ok || len(rejected) >= n {
			return
		}
		rejected = append(rejected, number(row))
		tx.AddError(gorm.ErrDuplicatedKey)
	})
	require.NoError(t, err)
	return &rejected
}

// countingNumbers draws 1, 2, 3... so every probe yields a new candidate.
func countingNumbers(now Clock) *idgen.Generator {
	next := 0
	return idgen.New(idgen.WithClock(now), idgen.WithRand(func(n int) int {
		next++
		return next % n
	}))
}

func TestContractService_CreateRetriesDuplicateCustomerNumber(t *testing.T) {
	start := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	f := newContractFixture(t, WithContractNumbers(countingNumbers(func() time.Time { return start })))
	ctx := context.Background()
	rejected := rejectInserts(t, f.db, 1, func(c *model.PawnContract) string { return c.CustomerNumber })

	contract, err := f.svc.Create(ctx, f.request(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"202501011001"}, *rejected)
	assert.Equal(t, "202501011002", contract.CustomerNumber, "the retry picks a fresh number")
	assert.Equal(t, "E00000001", contract.InternalNumber, "the rolled back attempt gives its sequence back")

	var count int64
	require.NoError(t, f.db.Model(&model.PawnContract{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(1), countEvents(t, f.db, model.EventContractCreated))
	store, err := repository.NewStoreRepository(f.db).GetByID(ctx, f.dir.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), store.TransactionSequence)
}

func TestContractService_CreateConflictSurfacesAfterRetries(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	rejected := rejectInserts(t, f.db, 100, func(c *model.PawnContract) string { return c.CustomerNumber })

	_, err := f.svc.Create(ctx, f.request(), nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
	assert.True(t, apperr.IsRetryable(err))
	assert.Len(t, *rejected, testConfig().Business.ConflictRetryAttempts)

	var count int64
	require.NoError(t, f.db.Model(&model.PawnContract{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, countEvents(t, f.db, model.EventContractCreated))
	store, err := repository.NewStoreRepository(f.db).GetByID(ctx, f.dir.Store.ID)
	require.NoError(t, err)
	assert.Zero(t, store.TransactionSequence)
}

func TestContractService_PaymentRetriesDuplicateDocumentNumber(t *testing.T) {
	start := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	f := newContractFixture(t, WithContractNumbers(countingNumbers(func() time.Time { return start })))
	ctx := context.Background()
	contract := f.activeContract(t)
	rejected := rejectInserts(t, f.db, 1, func(p *model.PaymentRecord) string { return p.DocumentNumber })

	intent, err := f.svc.Redeem(ctx, contract.ID, &RedeemRequest{}, nil)
	require.NoError(t, err)

	require.Len(t, *rejected, 1)
	assert.NotEqual(t, (*rejected)[0], intent.Payment.DocumentNumber)
	payments, err := f.svc.ListPayments(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, intent.Payment.DocumentNumber, payments[0].DocumentNumber)
	assert.Equal(t, int64(1), countEvents(t, f.db, model.EventPaymentRequested))
}

func TestContractService_RedeemBelowTotalDueIsPartial(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.activeContract(t)
	f.clock.Set(time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC))

	quote, err := f.svc.QuoteRedemption(ctx, contract.ID)
	require.NoError(t, err)
	cent := decimal.RequireFromString("0.01")

	cases := []struct {
		name   string
		amount decimal.Decimal
		want   string
	}{
		{"exactly total due", quote.TotalDue, model.PaymentTypeFullRedemption},
		{"above total due", quote.TotalDue.Add(cent), model.PaymentTypeFullRedemption},
		{"one cent short", quote.TotalDue.Sub(cent), model.PaymentTypePartial},
		{"remaining balance only", contract.RemainingBalance, model.PaymentTypePartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := tc.amount
			intent, err := f.svc.Redeem(ctx, contract.ID, &RedeemRequest{AmountPaid: &amount}, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, intent.Payment.PaymentType)
			assert.True(t, intent.Payment.AmountPaid.Equal(amount))
		})
	}
}

func TestContractService_CreateCountsByStoreCode(t *testing.T) {
	f := newContractFixture(t)
	counter := metrics.ContractsCreated.WithLabelValues(f.dir.Store.Code)
	before := promtest.ToFloat64(counter)

	_, err := f.svc.Create(context.Background(), f.request(), nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, promtest.ToFloat64(counter))
}

func TestContractService_TransitionGuards(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	contract := f.activeContract(t)

	_, err := f.svc.Extend(ctx, contract.ID, &ExtendRequest{AmountPaid: decimal.NewFromInt(50000)}, nil)
	require.NoError(t, err)

	// PIN confirm only applies to drafts
	_, err = f.svc.Confirm(ctx, contract.ID, f.dir.PIN)
	require.Error(t, err)
	appErr := err.(*apperr.Error)
	assert.Equal(t, []string{model.ContractStatusDraft}, appErr.Metadata["expected"])

	require.NoError(t, f.db.Model(&model.PawnContract{}).Where("id = ?", contract.ID).
		Update("status", model.ContractStatusExtended).Error)
	_, err = f.svc.Extend(ctx, contract.ID, &ExtendRequest{AmountPaid: decimal.NewFromInt(50000)}, nil)
	require.NoError(t, err, "extended contracts extend again")
	_, err = f.svc.Redeem(ctx, contract.ID, &RedeemRequest{}, nil)
	require.NoError(t, err)

	for _, status := range []string{model.ContractStatusOverdue, model.ContractStatusRedeemed, model.ContractStatusDraft} {
		require.NoError(t, f.db.Model(&model.PawnContract{}).Where("id = ?", contract.ID).Update("status", status).Error)
		_, err = f.svc.Redeem(ctx, contract.ID, &RedeemRequest{}, nil)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidState), status)
		_, err = f.svc.Extend(ctx, contract.ID, &ExtendRequest{AmountPaid: decimal.NewFromInt(50000)}, nil)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidState), status)
	}
}
