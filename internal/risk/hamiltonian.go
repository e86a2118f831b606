// Package risk implements the Hamiltonian/Lyapunov energy monitor and the
// latching circuit breaker state machine (§4.9, §4.10).
package risk

import (
	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

var (
	correlationWeight = decimal.NewFromFloat(0.1)
	two               = decimal.NewFromInt(2)
)

// CorrelationPenalty returns max(longCount, shortCount) * 0.1.
func CorrelationPenalty(longCount, shortCount int) decimal.Decimal {
	n := longCount
	if shortCount > n {
		n = shortCount
	}
	return decimal.NewFromInt(int64(n)).Mul(correlationWeight)
}

// Energy returns (leverage^2 + correlation_penalty) / 2, the scalar risk
// measure the circuit breaker and L0 contract (A7) both gate on.
func Energy(leverage decimal.Decimal, longCount, shortCount int) decimal.Decimal {
	penalty := CorrelationPenalty(longCount, shortCount)
	return leverage.Mul(leverage).Add(penalty).DivRound(two, 18)
}

// LyapunovStable reports whether energy <= DeltaUMaxSquared.
func LyapunovStable(energy decimal.Decimal) bool {
	return !energy.GreaterThan(types.DeltaUMaxSquared)
}
