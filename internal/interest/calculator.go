// Package interest computes interest, admin fee and late penalty for pawn
// contract redemption and extension. Everything here is pure: no I/O, no
// clock. Callers guarantee TenorDays > 0; contracts are never created otherwise.
package interest

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale of every monetary result.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Rates is a company's rate configuration. Percent fields are whole percents (10 = 10%).
type Rates struct {
	EarlyRatePercent          decimal.Decimal
	NormalRatePercent         decimal.Decimal
	AdminFeeRatePercent       decimal.Decimal
	InsuranceFee              decimal.Decimal
	LatePenaltyRatePercent    decimal.Decimal
	EarlyPaymentDaysThreshold int
}

// Contract is the snapshot of a contract the formulas read.
type Contract struct {
	Principal        decimal.Decimal
	TenorDays        int
	RemainingBalance decimal.Decimal
	DueDate          time.Time
	CreatedAt        time.Time
}

type Redemption struct {
	DaysElapsed   int             `json:"days_elapsed"`
	RatePercent   decimal.Decimal `json:"rate_percent"`
	Interest      decimal.Decimal `json:"interest"`
	AdminFee      decimal.Decimal `json:"admin_fee"`
	LatePenalty   decimal.Decimal `json:"late_penalty"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`
	TotalDue      decimal.Decimal `json:"total_due"`
}

type Extension struct {
	DaysElapsed         int             `json:"days_elapsed"`
	RatePercent         decimal.Decimal `json:"rate_percent"`
	Interest            decimal.Decimal `json:"interest"`
	LatePenalty         decimal.Decimal `json:"late_penalty"`
	PrincipalPaid       decimal.Decimal `json:"principal_paid"`
	NewRemainingBalance decimal.Decimal `json:"new_remaining_balance"`
	NewDueDate          time.Time       `json:"new_due_date"`
}

// Midnight truncates t to the start of its calendar day in t's own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysElapsed counts whole calendar days from start to end. Both instants are
// reduced to their calendar dates first, so the time of day never matters and
// DST shifts cannot produce a fractional day.
func DaysElapsed(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	s := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// SelectRate applies the single early-payment threshold.
func SelectRate(daysElapsed int, r Rates) decimal.Decimal {
	if daysElapsed < r.EarlyPaymentDaysThreshold {
		return r.EarlyRatePercent
	}
	return r.NormalRatePercent
}

// IsLate reports whether paymentDate falls on a calendar day after dueDate.
func IsLate(c Contract, paymentDate time.Time) bool {
	return DaysElapsed(c.DueDate, paymentDate) > 0
}

// LatePenalty is a flat share of the remaining balance once the due date has passed.
func LatePenalty(c Contract, paymentDate time.Time, r Rates) decimal.Decimal {
	if !IsLate(c, paymentDate) {
		return decimal.Zero
	}
	return money(c.RemainingBalance.Mul(r.LatePenaltyRatePercent).Div(hundred))
}

// FullRedemption prices paying the contract off on paymentDate.
//
//	interest = principal * rate% * daysElapsed / tenor
//	adminFee = principal * adminFeeRate% + insuranceFee
//	totalDue = remaining + interest + adminFee + latePenalty
func FullRedemption(c Contract, paymentDate time.Time, r Rates) Redemption {
	days := DaysElapsed(c.CreatedAt, paymentDate)
	rate := SelectRate(days, r)

	interest := money(c.Principal.Mul(rate).Div(hundred).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(int64(c.TenorDays))))
	adminFee := money(c.Principal.Mul(r.AdminFeeRatePercent).Div(hundred).Add(r.InsuranceFee))
	penalty := LatePenalty(c, paymentDate, r)

	return Redemption{
		DaysElapsed:   days,
		RatePercent:   rate,
		Interest:      interest,
		AdminFee:      adminFee,
		LatePenalty:   penalty,
		PrincipalPaid: c.RemainingBalance,
		TotalDue:      c.RemainingBalance.Add(interest).Add(adminFee).Add(penalty),
	}
}

// Extend prices a renewal payment of amountPaid made on paymentDate. The
// payment settles interest and penalty first; only the excess reduces the
// balance, and neither result ever goes below zero.
//
//	interest = remaining * rate% * tenor / 365
//	newDue   = paymentDate + tenor
func Extend(c Contract, paymentDate time.Time, amountPaid decimal.Decimal, r Rates) Extension {
	days := DaysElapsed(c.CreatedAt, paymentDate)
	rate := SelectRate(days, r)

	interest := money(c.RemainingBalance.Mul(rate).Div(hundred).
		Mul(decimal.NewFromInt(int64(c.TenorDays))).
		Div(decimal.NewFromInt(365)))
	penalty := LatePenalty(c, paymentDate, r)

	principalPaid := decimal.Max(decimal.Zero, amountPaid.Sub(interest.Add(penalty)))
	newRemaining := decimal.Max(decimal.Zero, c.RemainingBalance.Sub(principalPaid))

	return Extension{
		DaysElapsed:         days,
		RatePercent:         rate,
		Interest:            interest,
		LatePenalty:         penalty,
		PrincipalPaid:       principalPaid,
		NewRemainingBalance: newRemaining,
		NewDueDate:          Midnight(paymentDate).AddDate(0, 0, c.TenorDays),
	}
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
