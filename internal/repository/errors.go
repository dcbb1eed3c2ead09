package repository

import (
	"context"
	"errors"

	"pawnshop/internal/apperr"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers that mean "someone else holds the row, try again".
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrLockNowait      = 3572
)

// translate converts storage failures that callers can retry into apperr
// values. Anything else passes through untouched.
func translate(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(resource, err)
	}
	if isLockContention(err) {
		return apperr.ResourceBusy(resource, err)
	}
	return err
}

func isLockContention(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock, mysqlErrLockNowait:
			return true
		}
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// orDB returns tx when the caller runs inside a transaction, else the repository handle.
func orDB(tx, db *gorm.DB) *gorm.DB {
	if tx == nil {
		return db
	}
	return tx
}
