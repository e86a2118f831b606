// Package contract implements the L0 Invariant Contract: a pure predicate
// over (TradeSignal, Portfolio) that either returns nil or the single
// most-specific typed violation, checked in the fixed axiom order A1..A8.
package contract

import (
	"fmt"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

// Violation is the typed result of a failed axiom check. Every concrete
// violation type implements this interface so callers can type-switch or
// use errors.As.
type Violation interface {
	error
	Axiom() string
}

type violation struct {
	axiom string
	msg   string
}

func (v *violation) Error() string { return v.msg }
func (v *violation) Axiom() string { return v.axiom }

// NegativeContradiction is A1's violation.
func NegativeContradiction() Violation {
	return &violation{axiom: "A1", msg: "negative contradiction score"}
}

// PositionSizeExceeded is A2's violation.
type PositionSizeExceeded struct {
	Quantity, Max decimal.Decimal
}

func (e *PositionSizeExceeded) Error() string {
	return fmt.Sprintf("A2 position size exceeded: qty=%s max=%s", e.Quantity, e.Max)
}
func (e *PositionSizeExceeded) Axiom() string { return "A2" }

// LeverageExceeded is A3's violation.
type LeverageExceeded struct {
	Current, Max decimal.Decimal
}

func (e *LeverageExceeded) Error() string {
	return fmt.Sprintf("A3 leverage exceeded: cur=%s max=%s", e.Current, e.Max)
}
func (e *LeverageExceeded) Axiom() string { return "A3" }

// RiskBudgetTooSmall is A4a's violation.
func RiskBudgetTooSmall() Violation { return &violation{axiom: "A4a", msg: "risk budget too small"} }

// RiskBudgetExceeded is A4b's violation.
func RiskBudgetExceeded() Violation { return &violation{axiom: "A4b", msg: "risk budget exceeded"} }

// ExcessiveEntropy is A5's violation (also the fail-closed UNKNOWN result
// from the verifier, §4.6).
func ExcessiveEntropy() Violation { return &violation{axiom: "A5", msg: "excessive entropy"} }

// InvalidPrice is A6's violation.
func InvalidPrice() Violation { return &violation{axiom: "A6", msg: "invalid limit price"} }

// EnergyDivergence is A7's violation.
func EnergyDivergence() Violation { return &violation{axiom: "A7", msg: "energy divergence"} }

// UnsupportedSymbol is A8's violation.
func UnsupportedSymbol() Violation { return &violation{axiom: "A8", msg: "unsupported symbol"} }

// PositionValue returns signal.Quantity * signal.LimitPrice, or zero if no
// limit price is set (per §4.4, A4 then fails as RiskBudgetTooSmall).
func PositionValue(signal types.TradeSignal) decimal.Decimal {
	if signal.LimitPrice == nil {
		return decimal.Zero
	}
	return signal.Quantity.Mul(*signal.LimitPrice)
}

// Check runs the L0 Invariant Contract over (signal, portfolio) in the
// authoritative A1..A8 order and returns the first failing axiom's
// violation, or nil if every axiom is satisfied.
func Check(signal types.TradeSignal, portfolio *types.Portfolio) Violation {
	// A1
	if signal.ContradictionScore.IsNegative() {
		return NegativeContradiction()
	}

	// A2: an unsupported symbol has no configured ceiling, so it is treated
	// as a zero-size limit here — any positive quantity fails A2. A
	// non-positive quantity fails an earlier axiom before A8 (A4a on a zero
	// or negative position value, or A6 on a non-positive limit price). The
	// table's literal A1..A8 order is kept.
	maxSize := types.MaxPositionSize[signal.Symbol]
	if signal.Quantity.GreaterThan(maxSize) {
		return &PositionSizeExceeded{Quantity: signal.Quantity, Max: maxSize}
	}

	// A3
	if portfolio.Leverage.GreaterThan(types.MaxLeverage) {
		return &LeverageExceeded{Current: portfolio.Leverage, Max: types.MaxLeverage}
	}

	// A4a/A4b
	positionValue := PositionValue(signal)
	riskBudget := decimal.Zero
	if portfolio.Equity.IsPositive() {
		riskBudget = positionValue.DivRound(portfolio.Equity, 18)
	}
	if riskBudget.LessThan(types.MinRiskBudget) {
		return RiskBudgetTooSmall()
	}
	if riskBudget.GreaterThan(types.MaxRiskBudget) {
		return RiskBudgetExceeded()
	}

	// A5
	if signal.EntropyCount.GreaterThan(types.DeltaUMaxSquared) {
		return ExcessiveEntropy()
	}

	// A6
	if signal.LimitPrice != nil && !signal.LimitPrice.IsPositive() {
		return InvalidPrice()
	}

	// A7
	if portfolio.Energy.GreaterThan(types.DeltaUMaxSquared) {
		return EnergyDivergence()
	}

	// A8
	if !types.SupportedSymbols[signal.Symbol] {
		return UnsupportedSymbol()
	}

	return nil
}
