// Package types defines the shared vocabulary of the trading engine: the
// closed-set enums, wire-level data structures, and portfolio/attestation
// types that every other package builds on. Nothing in this package depends
// on any other internal package.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Enums
// ---------------------------------------------------------------------------

// Symbol is a ticker drawn from a closed, compile-time supported set.
type Symbol string

const (
	BTCUSD Symbol = "BTC/USD"
	ETHUSD Symbol = "ETH/USD"
	SOLUSD Symbol = "SOL/USD"
)

// SupportedSymbols is the authoritative closed set of tradeable symbols.
var SupportedSymbols = map[Symbol]bool{
	BTCUSD: true,
	ETHUSD: true,
	SOLUSD: true,
}

// Venue is an opaque venue identifier drawn from a closed supported set.
type Venue string

const (
	Binance     Venue = "binance"
	Bybit       Venue = "bybit"
	Hyperliquid Venue = "hyperliquid"
)

// SupportedVenues is the authoritative closed set of tradeable venues.
var SupportedVenues = map[Venue]bool{
	Binance:     true,
	Bybit:       true,
	Hyperliquid: true,
}

// Side is the direction of an order or fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderType enumerates the order shapes the engine can emit.
type OrderType string

const (
	Market    OrderType = "market"
	Limit     OrderType = "limit"
	Stop      OrderType = "stop"
	StopLimit OrderType = "stop_limit"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Tick is a single external trade print after normalization.
// Price and Quantity are strictly positive.
type Tick struct {
	Symbol    Symbol
	Venue     Venue
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
	Side      Side
}

// BookLevel is a single price/quantity rung of an order book.
// Quantity is strictly positive; zero-quantity levels are elided at parse time.
type BookLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a normalized, invariant-checked snapshot of one venue's book
// for one symbol. Bids are sorted strictly descending by price, asks
// strictly ascending, and Sequence increases monotonically per (Symbol, Venue).
type OrderBook struct {
	Symbol    Symbol
	Venue     Venue
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
	Sequence  uint64
}

// BestBid returns the highest bid level, or false if the book has no bids.
func (b *OrderBook) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, or false if the book has no asks.
func (b *OrderBook) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// ---------------------------------------------------------------------------
// Signal pipeline
// ---------------------------------------------------------------------------

// TradeSignal is a candidate trade intent emitted by a Proposer, prior to
// verification. ContradictionScore and EntropyCount are both >= 0.
type TradeSignal struct {
	Symbol             Symbol
	Venue              Venue
	Side               Side
	OrderType          OrderType
	Quantity           decimal.Decimal
	LimitPrice         *decimal.Decimal
	StopPrice          *decimal.Decimal
	Timestamp          time.Time
	ContradictionScore decimal.Decimal
	EntropyCount       decimal.Decimal
}

// AxiomID names one of the L0 Invariant Contract's axioms.
type AxiomID string

const (
	AxiomPositionSizeLimit AxiomID = "PositionSizeLimit"
	AxiomLeverageLimit     AxiomID = "LeverageLimit"
	AxiomRiskBudget        AxiomID = "RiskBudget"
	AxiomEnergyConstraint  AxiomID = "EnergyConstraint"
)

// RequiredAxioms is the set of axioms a Proof must satisfy for acceptance.
var RequiredAxioms = []AxiomID{
	AxiomPositionSizeLimit,
	AxiomLeverageLimit,
	AxiomRiskBudget,
	AxiomEnergyConstraint,
}

// Proof is the opaque artifact emitted by the verifier's SMT gate.
type Proof struct {
	Satisfiable     bool
	Model           map[string]string
	AxiomsSatisfied []AxiomID
}

// Attestation binds a VerifiedOrder to a signing identity.
// PayloadHash is the order hash: SHA3-256 over the canonical serialization
// of the signal and proof summary. verified_at is not part of it; it enters
// only the signed message (as epoch seconds).
type Attestation struct {
	SignatureBytes    []byte
	VerifyingKeyBytes []byte
	PayloadHash       [32]byte
	Timestamp         time.Time
}

// VerifiedOrder is the output of a successful verification: a signal bound
// to its proof and cryptographic attestation.
type VerifiedOrder struct {
	Signal      TradeSignal
	Proof       Proof
	Attestation Attestation
	VerifiedAt  time.Time
}

// ---------------------------------------------------------------------------
// Portfolio
// ---------------------------------------------------------------------------

// Position is a single symbol's holdings. A closed position (Quantity == 0)
// is removed from the portfolio rather than retained with a zero quantity.
type Position struct {
	Symbol        Symbol
	Venue         Venue
	Side          Side
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealizedPnL decimal.Decimal
	RealizedPnL   decimal.Decimal
}

// Portfolio is the single authoritative account state. Exposure, leverage,
// and energy are derived fields: they are recomputed after every mutation
// and are never accepted from outside.
type Portfolio struct {
	Equity           decimal.Decimal
	Positions        map[Symbol]*Position
	TotalExposure    decimal.Decimal
	LongExposure     decimal.Decimal
	ShortExposure    decimal.Decimal
	NetExposure      decimal.Decimal
	Leverage         decimal.Decimal
	Energy           decimal.Decimal
	CorrelationMatrix map[Symbol]map[Symbol]decimal.Decimal
}

// NewPortfolio creates an empty portfolio seeded with the given equity.
func NewPortfolio(equity decimal.Decimal) *Portfolio {
	return &Portfolio{
		Equity:            equity,
		Positions:         make(map[Symbol]*Position),
		CorrelationMatrix: make(map[Symbol]map[Symbol]decimal.Decimal),
	}
}

// Snapshot returns a deep, read-only copy of the portfolio suitable for
// handing to the proposer or verifier without risking aliasing a mutation
// in progress elsewhere.
func (p *Portfolio) Snapshot() *Portfolio {
	cp := &Portfolio{
		Equity:            p.Equity,
		Positions:         make(map[Symbol]*Position, len(p.Positions)),
		TotalExposure:     p.TotalExposure,
		LongExposure:      p.LongExposure,
		ShortExposure:     p.ShortExposure,
		NetExposure:       p.NetExposure,
		Leverage:          p.Leverage,
		Energy:            p.Energy,
		CorrelationMatrix: make(map[Symbol]map[Symbol]decimal.Decimal, len(p.CorrelationMatrix)),
	}
	for sym, pos := range p.Positions {
		posCopy := *pos
		cp.Positions[sym] = &posCopy
	}
	for sym, row := range p.CorrelationMatrix {
		rowCopy := make(map[Symbol]decimal.Decimal, len(row))
		for k, v := range row {
			rowCopy[k] = v
		}
		cp.CorrelationMatrix[sym] = rowCopy
	}
	return cp
}

// ---------------------------------------------------------------------------
// Circuit breaker & health
// ---------------------------------------------------------------------------

// CircuitBreakerState is the latching risk state machine's current state.
type CircuitBreakerState string

const (
	Normal  CircuitBreakerState = "normal"
	Warning CircuitBreakerState = "warning"
	Tripped CircuitBreakerState = "tripped"
)

// SystemHealth is a point-in-time aggregate of consistency, entropy,
// breaker, hallucination, and latency metrics exported for observability.
type SystemHealth struct {
	ConsistencyError  decimal.Decimal
	EntropyCount      decimal.Decimal
	CircuitBreaker    CircuitBreakerState
	HallucinationRate decimal.Decimal
	LatencyP50Ms      decimal.Decimal
	LatencyP99Ms      decimal.Decimal
	LatencyP999Ms     decimal.Decimal
	Timestamp         time.Time
}
