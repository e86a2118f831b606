// Package safety implements the execution safety gate (§4.11): the final
// pre-flight check before a VerifiedOrder is handed to the execution
// adapter. Any failure aborts the submission without mutating portfolio
// state.
package safety

import (
	"fmt"

	"axiomguard/internal/attest"
	"axiomguard/internal/risk"
	"axiomguard/internal/types"
)

// ErrorKind classifies a safety gate rejection.
type ErrorKind string

const (
	UnsupportedSymbol ErrorKind = "UnsupportedSymbol"
	OrderSizeExceeded ErrorKind = "OrderSizeExceeded"
	InvalidQuantity   ErrorKind = "InvalidQuantity"
	InvalidPrice      ErrorKind = "InvalidPrice"
	VerificationFailed ErrorKind = "VerificationFailed"
	BreakerTripped    ErrorKind = "BreakerTripped"
)

// Error is the typed rejection returned by Gate.Check.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("safety: %s: %s", e.Kind, e.Msg) }

// Gate runs the five checks of §4.11 in order and holds a per-venue token
// bucket (adapted from the teacher's internal/exchange/ratelimit.go), exposed
// through Limiter. Check does not consult the bucket; the engine waits on it
// before submission.
type Gate struct {
	breaker  *risk.CircuitBreaker
	limiters map[types.Venue]*TokenBucket
}

// NewGate creates a safety gate bound to the given circuit breaker, with
// one rate limiter bucket per supported venue.
func NewGate(breaker *risk.CircuitBreaker) *Gate {
	limiters := make(map[types.Venue]*TokenBucket, len(types.SupportedVenues))
	for venue := range types.SupportedVenues {
		limiters[venue] = NewTokenBucket(50, 10)
	}
	return &Gate{breaker: breaker, limiters: limiters}
}

// Check runs the five pre-submission checks against a VerifiedOrder. On
// success, callers should next consult Gate.Limiter(venue).Wait before
// actually issuing the execution adapter call.
func (g *Gate) Check(order types.VerifiedOrder) *Error {
	signal := order.Signal

	// 1. Symbol supported.
	if !types.SupportedSymbols[signal.Symbol] {
		return &Error{Kind: UnsupportedSymbol, Msg: string(signal.Symbol)}
	}

	// 2. Order size.
	maxOrderSize := types.MaxOrderSize[signal.Symbol]
	if !signal.Quantity.IsPositive() {
		return &Error{Kind: InvalidQuantity, Msg: "quantity must be positive"}
	}
	if signal.Quantity.GreaterThan(maxOrderSize) {
		return &Error{Kind: OrderSizeExceeded, Msg: fmt.Sprintf("qty=%s max=%s", signal.Quantity, maxOrderSize)}
	}

	// 3. Limit price absent or strictly positive.
	if signal.LimitPrice != nil && !signal.LimitPrice.IsPositive() {
		return &Error{Kind: InvalidPrice, Msg: "limit price must be positive"}
	}

	// 4. Attestation verifies.
	if err := attest.Verify(signal, order.Proof, order.VerifiedAt.UTC().Unix(), order.Attestation); err != nil {
		return &Error{Kind: VerificationFailed, Msg: err.Error()}
	}

	// 5. Circuit breaker not tripped.
	if g.breaker.State() == types.Tripped {
		return &Error{Kind: BreakerTripped, Msg: "circuit breaker is tripped"}
	}

	return nil
}

// Limiter returns the rate limiter bucket for a venue, or nil if the venue
// is unsupported.
func (g *Gate) Limiter(venue types.Venue) *TokenBucket {
	return g.limiters[venue]
}
