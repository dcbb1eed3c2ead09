package idgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ============================================================================
// 单号生成器
// ============================================================================
//
// Two strategies:
//
//   deterministic  internal contract number = <ItemTypeCode><8-digit store seq>
//                  unique by construction, the sequence comes from a locked row
//
//   probed         customer number   <yyyymmdd><4 digits>
//                  payment number    NKB<yyyymmdd><6 digits>
//                  batch code        AB-<yyyymmdd>-<4 digits>
//                  random candidate + existence check, at most MaxProbeAttempts
//
// Probing is check-then-use, so two writers can still pick the same candidate.
// The unique index is the final authority; callers retry the insert with a
// fresh number when it reports a duplicate.
// ============================================================================

const MaxProbeAttempts = 100

var ErrExhausted = errors.New("idgen: probe attempts exhausted")

// ExistsFunc reports whether candidate is already taken in storage.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Kind names a probed number format.
type Kind string

const (
	KindCustomerNumber Kind = "customer number"
	KindPaymentNumber  Kind = "payment document number"
	KindBatchCode      Kind = "batch code"
)

// ProbeError is returned when every attempt collided.
type ProbeError struct {
	Kind     Kind
	Attempts int
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("idgen: %s not unique after %d attempts", e.Kind, e.Attempts)
}

func (e *ProbeError) Unwrap() error {
	return ErrExhausted
}

// Generator builds probed document numbers. The zero value is not usable, use New.
type Generator struct {
	now      func() time.Time
	intN     func(n int) int
	onRetry  func(kind Kind)
	attempts int
}

type Option func(*Generator)

// WithClock fixes the date component, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand replaces the random source; intN must return a value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

// WithCollisionHook is called once per colliding candidate.
func WithCollisionHook(fn func(kind Kind)) Option {
	return func(g *Generator) { g.onRetry = fn }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		now:      time.Now,
		intN:     rand.Intn,
		onRetry:  func(Kind) {},
		attempts: MaxProbeAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// InternalNumber formats the deterministic store-scoped contract number.
func InternalNumber(typeCode string, seq uint32) string {
	return fmt.Sprintf("%s%08d", typeCode, seq)
}

// datePart uses the UTC calendar date.
func (g *Generator) datePart() string {
	return g.now().UTC().Format("20060102")
}

func (g *Generator) CustomerNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.probe(ctx, KindCustomerNumber, func() string {
		return fmt.Sprintf("%s%d", g.datePart(), 1000+g.intN(9000))
	}, exists)
}

func (g *Generator) PaymentNumber(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.probe(ctx, KindPaymentNumber, func() string {
		return fmt.Sprintf("NKB%s%d", g.datePart(), 100000+g.intN(900000))
	}, exists)
}

func (g *Generator) BatchCode(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.probe(ctx, KindBatchCode, func() string {
		return fmt.Sprintf("AB-%s-%d", g.datePart(), 1000+g.intN(9000))
	}, exists)
}

func (g *Generator) probe(ctx context.Context, kind Kind, candidate func() string, exists ExistsFunc) (string, error) {
	for i := 0; i < g.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		c := candidate()
		taken, err := exists(ctx, c)
		if err != nil {
			return "", fmt.Errorf("idgen: check %s %q: %w", kind, c, err)
		}
		if !taken {
			return c, nil
		}
		g.onRetry(kind)
	}
	return "", &ProbeError{Kind: kind, Attempts: g.attempts}
}
