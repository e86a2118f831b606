// Package verifier implements the SMT gate: a pure function of
// (TradeSignal, Portfolio) that either emits a VerifiedOrder or rejects with
// a typed invariant violation. It never mutates state and never calls the
// attestation component directly — the orchestrator does that after a
// successful Verify (§4.6).
package verifier

import (
	"strconv"
	"time"

	"axiomguard/internal/contract"
	"axiomguard/internal/fixedpoint"
	"axiomguard/internal/types"
)

// Clock abstracts time.Now so verification timestamps are injectable in
// tests without breaking determinism property 8 (§8).
type Clock func() time.Time

// Verifier runs the L0 contract as a cheap filter, then re-asserts the
// scaled-integer constraints an SMT solver would check, and emits a Proof.
type Verifier struct {
	now Clock
}

// New creates a Verifier using the given clock. A nil clock defaults to
// time.Now.
func New(now Clock) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{now: now}
}

// Verify runs the gate described in §4.6. On success it returns a
// VerifiedOrder with verified_at captured once, via the Verifier's clock.
// On failure it returns the most-specific applicable contract.Violation —
// including when the scaled-integer re-check cannot decide (UNKNOWN),
// which is always reported as ExcessiveEntropy (fail-closed).
func (v *Verifier) Verify(signal types.TradeSignal, portfolio *types.Portfolio) (*types.VerifiedOrder, contract.Violation) {
	if violation := contract.Check(signal, portfolio); violation != nil {
		return nil, violation
	}

	violation := v.smtCheck(signal, portfolio)
	if violation != nil {
		return nil, violation
	}

	verifiedAt := v.now().UTC()
	proof := types.Proof{
		Satisfiable:     true,
		Model:           v.model(signal, portfolio),
		AxiomsSatisfied: append([]types.AxiomID(nil), types.RequiredAxioms...),
	}

	return &types.VerifiedOrder{
		Signal:     signal,
		Proof:      proof,
		VerifiedAt: verifiedAt,
	}, nil
}

// smtCheck re-derives each SAT assertion over scaled integers (§4.6) and
// returns the first one that fails, in A1..A8 order, or nil if all hold.
// An overflow while scaling any value is treated as SMT UNKNOWN — the
// solver has no numeric headroom to decide — and is reported as
// ExcessiveEntropy (fail-closed), never as a pass.
func (v *Verifier) smtCheck(signal types.TradeSignal, portfolio *types.Portfolio) contract.Violation {
	maxSize := types.MaxPositionSize[signal.Symbol]

	scaledQty, err := fixedpoint.Scaled(signal.Quantity)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	scaledMaxSize, err := fixedpoint.Scaled(maxSize)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	if scaledQty > scaledMaxSize {
		return &contract.PositionSizeExceeded{Quantity: signal.Quantity, Max: maxSize}
	}

	scaledLeverage, err := fixedpoint.Scaled(portfolio.Leverage)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	scaledMaxLeverage, err := fixedpoint.Scaled(types.MaxLeverage)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	if scaledLeverage > scaledMaxLeverage {
		return &contract.LeverageExceeded{Current: portfolio.Leverage, Max: types.MaxLeverage}
	}

	positionValue := contract.PositionValue(signal)
	riskBudget := fixedpoint.SafeDivOrZero(positionValue, portfolio.Equity)
	scaledRiskBudget, err := fixedpoint.Scaled(riskBudget)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	scaledMinBudget, err := fixedpoint.Scaled(types.MinRiskBudget)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	scaledMaxBudget, err := fixedpoint.Scaled(types.MaxRiskBudget)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	if scaledRiskBudget < scaledMinBudget {
		return contract.RiskBudgetTooSmall()
	}
	if scaledRiskBudget > scaledMaxBudget {
		return contract.RiskBudgetExceeded()
	}

	scaledEnergy, err := fixedpoint.Scaled(portfolio.Energy)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	scaledThreshold, err := fixedpoint.Scaled(types.DeltaUMaxSquared)
	if err != nil {
		return contract.ExcessiveEntropy()
	}
	if scaledEnergy > scaledThreshold {
		return contract.EnergyDivergence()
	}

	return nil
}

// model returns the variable->string-encoded-integer map an SMT solver's
// SAT model would expose, lifted through the same scaling used by smtCheck.
func (v *Verifier) model(signal types.TradeSignal, portfolio *types.Portfolio) map[string]string {
	m := make(map[string]string, 4)
	if scaledQty, err := fixedpoint.Scaled(signal.Quantity); err == nil {
		m["quantity"] = strconv.FormatInt(scaledQty, 10)
	}
	if scaledLeverage, err := fixedpoint.Scaled(portfolio.Leverage); err == nil {
		m["leverage"] = strconv.FormatInt(scaledLeverage, 10)
	}
	if scaledEnergy, err := fixedpoint.Scaled(portfolio.Energy); err == nil {
		m["energy"] = strconv.FormatInt(scaledEnergy, 10)
	}
	return m
}
