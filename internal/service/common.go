package service

import (
	"errors"
	"fmt"
	"time"

	"pawnshop/internal/apperr"
	"pawnshop/internal/infrastructure/metrics"
	"pawnshop/pkg/idgen"

	"go.uber.org/zap"
)

// Clock returns the current instant. Services take one so tests can pin dates.
type Clock func() time.Time

// calendarDate maps the business-timezone calendar day of t to UTC midnight,
// which is how dates are stored.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newNumberGenerator counts every probe collision per number kind.
func newNumberGenerator(now Clock) *idgen.Generator {
	return idgen.New(
		idgen.WithClock(now),
		idgen.WithCollisionHook(func(kind idgen.Kind) {
			metrics.NumberCollisions.WithLabelValues(string(kind)).Inc()
		}),
	)
}

// numberError converts a probe failure into the service error taxonomy.
func numberError(err error) error {
	var probeErr *idgen.ProbeError
	if errors.As(err, &probeErr) {
		return apperr.GenerationExhausted(string(probeErr.Kind), probeErr.Attempts)
	}
	return fmt.Errorf("生成单号失败: %w", err)
}

// retryOnConflict runs fn again, up to attempts times in total, while it fails
// with a unique-key conflict. Each run must pick fresh numbers.
func retryOnConflict(log *zap.Logger, what string, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = fn()
		if err == nil || !apperr.Is(err, apperr.CodeConflict) {
			return err
		}
		log.Warn("unique number collided on insert, retrying",
			zap.String("what", what), zap.Int("attempt", i), zap.Error(err))
	}
	return err
}
