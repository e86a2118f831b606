package types

import "github.com/shopspring/decimal"

// Authoritative constants, compiled in and never varied at runtime (§6).
var (
	DeterministicSeed int64 = 42

	MaxConsistencyError = decimal.Zero

	// MaxPositionSize is the per-symbol position size ceiling.
	MaxPositionSize = map[Symbol]decimal.Decimal{
		BTCUSD: decimal.NewFromInt(10),
		ETHUSD: decimal.NewFromInt(100),
		SOLUSD: decimal.NewFromInt(1000),
	}

	// MaxOrderSize is the per-symbol single-order size ceiling, enforced at
	// the safety gate.
	MaxOrderSize = map[Symbol]decimal.Decimal{
		BTCUSD: decimal.NewFromInt(1),
		ETHUSD: decimal.NewFromInt(10),
		SOLUSD: decimal.NewFromInt(100),
	}

	MaxLeverage = decimal.NewFromInt(3)

	MinRiskBudget = decimal.NewFromFloat(0.0025)
	MaxRiskBudget = decimal.NewFromFloat(0.01)

	MaxDailyDrawdown = decimal.NewFromFloat(0.03)

	// DeltaUMaxSquared is the numeric stability threshold (ΔU_max²) shared
	// by the entropy and Hamiltonian energy caps.
	DeltaUMaxSquared = decimal.NewFromFloat(1e-12)

	MaxSlippageTolerance = decimal.NewFromFloat(0.001)

	MinLiquidityUSD = decimal.NewFromInt(10000)

	MaxHallucinationRate = decimal.NewFromFloat(1e-4)

	LatencyTargetP50Ms  = decimal.NewFromInt(5)
	LatencyTargetP99Ms  = decimal.NewFromInt(50)
	LatencyTargetP999Ms = decimal.NewFromInt(200)

	// SMTScaleFactor is the 10^6 in scaled(x) = x * 10^6 (truncated) for lifting
	// decimal predicates into the verifier's integer SMT domain (§4.6).
	SMTScaleFactor = decimal.NewFromInt(1_000_000)
)
