// Package proposer generates candidate TradeSignals from book features and
// a portfolio snapshot. Grounded on the teacher's internal/strategy/maker.go
// shape (a stateful struct computing deterministic formulas every tick),
// narrowed to the spec's single canonical contradiction/spread rule (§4.5).
package proposer

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/feature"
	"axiomguard/internal/types"
)

var (
	contradictionThreshold = decimal.NewFromFloat(0.05)
	spreadPctThreshold     = decimal.NewFromFloat(0.001)
	baseQuantity           = decimal.NewFromFloat(0.1)
)

// Proposer is the interface both the canonical rule-based policy and any
// future learned-model implementation satisfy (§9 Dynamic Dispatch — an
// explicit interface, not runtime reflection).
type Proposer interface {
	// Propose returns a candidate TradeSignal, or nil if the canonical
	// policy's entry conditions are not met.
	Propose(symbol types.Symbol, venue types.Venue, book *types.OrderBook, snapshot *types.Portfolio) (*types.TradeSignal, error)

	// RecordRejection is called by the orchestrator — never the verifier
	// directly — when the verifier rejects a signal this proposer emitted.
	// This is the explicit-message-passing alternative to a verifier->
	// proposer back-reference (§9 Cyclic references).
	RecordRejection()

	// HallucinationRate returns rejected/total proposals, or 0 if none.
	HallucinationRate() decimal.Decimal
}

// RuleBased is the canonical fallback proposer policy of §4.5.
type RuleBased struct {
	calc *feature.Calculator

	mu               sync.Mutex
	totalProposals   int64
	rejectedProposals int64

	onchainLiquidity decimal.Decimal // fed externally; zero by default
}

// New creates the canonical rule-based proposer.
func New(calc *feature.Calculator) *RuleBased {
	return &RuleBased{calc: calc}
}

// SetOnchainLiquidity updates the onchain liquidity figure used by the
// contradiction score, per §4.3.
func (r *RuleBased) SetOnchainLiquidity(v decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onchainLiquidity = v
}

// Propose implements §4.5's canonical policy.
func (r *RuleBased) Propose(symbol types.Symbol, venue types.Venue, book *types.OrderBook, snapshot *types.Portfolio) (*types.TradeSignal, error) {
	mid, ok := feature.MidPrice(book)
	if !ok {
		return nil, nil
	}
	spreadPct, ok := feature.SpreadPct(book)
	if !ok {
		return nil, nil
	}
	imbalance := feature.DepthImbalance(book)
	cexLiquidity := feature.CexLiquidity(book)
	r.calc.Volatility(mid) // maintains the price-history ring for downstream sizing

	r.mu.Lock()
	onchain := r.onchainLiquidity
	r.mu.Unlock()

	contradiction := feature.ContradictionScore(onchain, cexLiquidity)
	entropy := feature.Entropy(spreadPct, imbalance)

	if !contradiction.GreaterThan(contradictionThreshold) || !spreadPct.GreaterThan(spreadPctThreshold) {
		return nil, nil
	}

	r.mu.Lock()
	r.totalProposals++
	r.mu.Unlock()

	side := types.Sell
	if !imbalance.IsNegative() {
		side = types.Buy
	}

	limitPrice := mid
	signal := &types.TradeSignal{
		Symbol:             symbol,
		Venue:              venue,
		Side:               side,
		OrderType:          types.Limit,
		Quantity:           baseQuantity,
		LimitPrice:         &limitPrice,
		Timestamp:          time.Now().UTC(),
		ContradictionScore: contradiction,
		EntropyCount:       entropy,
	}
	return signal, nil
}

// RecordRejection increments the rejected-proposal counter. Called by the
// orchestrator, never by the verifier.
func (r *RuleBased) RecordRejection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectedProposals++
}

// HallucinationRate returns rejected/total, or 0 if no proposals have been
// made yet.
func (r *RuleBased) HallucinationRate() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totalProposals == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(r.rejectedProposals).DivRound(decimal.NewFromInt(r.totalProposals), 18)
}

var _ Proposer = (*RuleBased)(nil)
