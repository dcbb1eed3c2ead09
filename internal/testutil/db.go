// Package testutil provides a migrated in-memory database and directory
// fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"pawnshop/internal/infrastructure/database"
	"pawnshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh SQLite database with every table migrated. It keeps a
// single connection, so concurrent transactions run one after another.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := database.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Directory is a company with one store, one customer and one item type.
type Directory struct {
	Company  *model.Company
	Store    *model.Store
	Customer *model.Customer
	ItemType *model.ItemType
	PIN      string
}

// SeedDirectory inserts a company with normal rate 10%, early rate 5% below
// 15 days, admin fee 1% plus 15,000 insurance and a 2% late penalty.
func SeedDirectory(t testing.TB, db *gorm.DB) *Directory {
	t.Helper()
	company := &model.Company{
		ID:                 uuid.New(),
		Name:               "PT Gadai Sejahtera",
		EarlyInterestRate:  decimal.NewFromInt(5),
		NormalInterestRate: decimal.NewFromInt(10),
		AdminFeeRate:       decimal.NewFromInt(1),
		InsuranceFee:       decimal.NewFromInt(15000),
		LatePenaltyRate:    decimal.NewFromInt(2),
		EarlyPaymentDays:   15,
	}
	require.NoError(t, db.Create(company).Error)

	store := SeedStore(t, db, company.ID, "JKT01")

	pin := "123456"
	customer := SeedCustomer(t, db, company.ID, pin, false)

	itemType := &model.ItemType{ID: uuid.New(), TypeCode: "E", Name: "Electronics"}
	require.NoError(t, db.Create(itemType).Error)

	return &Directory{
		Company:  company,
		Store:    store,
		Customer: customer,
		ItemType: itemType,
		PIN:      pin,
	}
}

func SeedStore(t testing.TB, db *gorm.DB, companyID uuid.UUID, code string) *model.Store {
	t.Helper()
	store := &model.Store{ID: uuid.New(), CompanyID: companyID, Code: code, Name: "Store " + code}
	require.NoError(t, db.Create(store).Error)
	return store
}

func SeedCustomer(t testing.TB, db *gorm.DB, companyID uuid.UUID, pin string, blacklisted bool) *model.Customer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	customer := &model.Customer{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Name:          "Budi",
		IsBlacklisted: blacklisted,
		PinHash:       string(hash),
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

// SeedContract inserts a contract with one in-storage item directly, bypassing
// the lifecycle service.
func SeedContract(t testing.TB, db *gorm.DB, dir *Directory, status string, dueDate time.Time) *model.PawnContract {
	t.Helper()
	id := uuid.New()
	number := id.String()[:8]
	contract := &model.PawnContract{
		ID:                  id,
		SystemNumber:        "S" + number,
		InternalNumber:      "I" + number,
		CustomerNumber:      "C" + number,
		CustomerID:          dir.Customer.ID,
		StoreID:             dir.Store.ID,
		CompanyID:           dir.Company.ID,
		PrincipalAmount:     decimal.NewFromInt(1000000),
		TenorDays:           30,
		InterestRatePercent: decimal.NewFromInt(10),
		AdminFee:            decimal.NewFromInt(10000),
		TotalAmount:         decimal.NewFromInt(1110000),
		RemainingBalance:    decimal.NewFromInt(1000000),
		DueDate:             dueDate,
		Status:              status,
		Items: []model.PawnItem{{
			ID:             uuid.New(),
			ContractID:     id,
			ItemTypeID:     dir.ItemType.ID,
			Description:    "Laptop",
			AppraisedValue: decimal.NewFromInt(1500000),
			Condition:      model.ItemConditionGood,
			Status:         model.ItemStatusInStorage,
		}},
	}
	require.NoError(t, db.Create(contract).Error)
	return contract
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
