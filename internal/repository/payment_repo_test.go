package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pawnshop/internal/apperr"
	"pawnshop/internal/model"
	"pawnshop/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository(t *testing.T) {
	db := testutil.NewDB(t)
	dir := testutil.SeedDirectory(t, db)
	contract := testutil.SeedContract(t, db, dir, model.ContractStatusActive, testutil.Date(2025, time.March, 1))
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	payment := &model.PaymentRecord{
		ID:             uuid.New(),
		DocumentNumber: "NKB20250201123456",
		ContractID:     contract.ID,
		AmountPaid:     decimal.RequireFromString("150000.50"),
		PaymentType:    model.PaymentTypeRenewal,
		PaymentMethod:  model.PaymentMethodCash,
		Status:         model.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(ctx, nil, payment))

	exists, err := repo.DocumentNumberExists(ctx, payment.DocumentNumber)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := repo.ListByContract(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].AmountPaid.Equal(payment.AmountPaid))
	assert.Equal(t, model.PaymentStatusPending, list[0].Status)

	dup := *payment
	dup.ID = uuid.New()
	err = repo.Create(ctx, nil, &dup)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestPaymentRepository_CountSince(t *testing.T) {
	db := testutil.NewDB(t)
	dir := testutil.SeedDirectory(t, db)
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	here := testutil.SeedContract(t, db, dir, model.ContractStatusActive, testutil.Date(2025, time.April, 1))
	other := testutil.SeedStore(t, db, dir.Company.ID, "JKT02")
	there := testutil.SeedContract(t, db, dir, model.ContractStatusActive, testutil.Date(2025, time.April, 1))
	require.NoError(t, db.Model(there).Update("store_id", other.ID).Error)

	since := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range []struct {
		contract uuid.UUID
		at       time.Time
	}{
		{here.ID, since.Add(-time.Minute)},
		{here.ID, since},
		{here.ID, since.AddDate(0, 0, 3)},
		{there.ID, since.AddDate(0, 0, 1)},
	} {
		require.NoError(t, repo.Create(ctx, nil, &model.PaymentRecord{
			ID:             uuid.New(),
			DocumentNumber: fmt.Sprintf("NKB2025030100000%d", i),
			ContractID:     p.contract,
			AmountPaid:     decimal.NewFromInt(100000),
			PaymentType:    model.PaymentTypePartial,
			PaymentMethod:  model.PaymentMethodCash,
			Status:         model.PaymentStatusPending,
			CreatedAt:      p.at,
		}))
	}

	cases := []struct {
		name     string
		storeIDs []uuid.UUID
		want     int64
	}{
		{"every store", nil, 3},
		{"one store", []uuid.UUID{dir.Store.ID}, 2},
		{"both stores", []uuid.UUID{dir.Store.ID, other.ID}, 3},
		{"no stores", []uuid.UUID{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := repo.CountSince(ctx, tc.storeIDs, since)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}
}
