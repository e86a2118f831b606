// Package fixedpoint provides deterministic decimal helpers shared by the
// invariant contract, verifier, and portfolio accounting. It exists so every
// caller lifts decimal.Decimal the same way rather than hand-rolling
// rounding and overflow behavior at each call site.
package fixedpoint

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

// ErrOverflow is returned when a scaled value would not fit in an int64.
var ErrOverflow = errors.New("fixedpoint: scaled value overflows int64")

// ErrDivideByZero is returned in place of a NaN or infinity.
var ErrDivideByZero = errors.New("fixedpoint: division by zero")

// Scaled implements scaled(x) = x * 10^6 truncated toward zero for SMT
// lifting (§4.6); for non-negative x this equals floor(x * 10^6). It returns
// ErrOverflow rather than wrapping if the scaled value exceeds int64 range.
func Scaled(x decimal.Decimal) (int64, error) {
	scaledDec := x.Mul(types.SMTScaleFactor).Truncate(0)
	if scaledDec.GreaterThan(decimal.NewFromInt(math.MaxInt64)) ||
		scaledDec.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, ErrOverflow
	}
	return scaledDec.IntPart(), nil
}

// SafeDiv divides a by b, returning ErrDivideByZero instead of a NaN/Inf
// when b is zero. The quotient is rounded to 18 decimal places.
func SafeDiv(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivideByZero
	}
	return a.DivRound(b, 18), nil
}

// SafeDivOrZero divides a by b, returning zero instead of an error when b is
// zero. Used where the spec explicitly defines the zero-denominator case
// (e.g. leverage with non-positive equity).
func SafeDivOrZero(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, 18)
}
