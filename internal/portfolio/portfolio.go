// Package portfolio owns the single authoritative Portfolio: fill
// application, mark-to-market, and the ordered RecomputeMetrics pipeline
// that derives exposure, leverage, and Hamiltonian energy after every
// mutation (§4.8). Generalizes the teacher's per-market VWAP-in/
// realize-on-reduce inventory pattern to an arbitrary, symbol-keyed
// position set.
package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"axiomguard/internal/risk"
	"axiomguard/internal/types"
)

// Fill is a single execution reported by the execution adapter.
type Fill struct {
	Symbol        types.Symbol
	Venue         types.Venue
	Side          types.Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	ExchangeOrderID string
}

// Manager is the sole owner of Portfolio state. Safe for concurrent use: all
// mutating operations and recomputation are serialized behind a mutex, and
// Snapshot hands out a deep copy.
type Manager struct {
	mu        sync.Mutex
	portfolio *types.Portfolio
	seenFills map[string]bool // dedup by exchange order id (§5)

	// lastUnrealizedPnL is the total unrealized PnL as of the previous
	// recomputeMetrics call, used to delta-adjust Equity rather than
	// repeatedly summing the full unrealized PnL into it (§4.8 step 7;
	// corrects the source's double-counting bug, SPEC_FULL §9).
	lastUnrealizedPnL decimal.Decimal
}

// NewManager creates a portfolio manager seeded with the given starting
// equity.
func NewManager(startingEquity decimal.Decimal) *Manager {
	return &Manager{
		portfolio: types.NewPortfolio(startingEquity),
		seenFills: make(map[string]bool),
	}
}

// Snapshot returns a deep, read-only copy of the current portfolio.
func (m *Manager) Snapshot() *types.Portfolio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolio.Snapshot()
}

// ApplyFill applies a fill idempotently: a duplicate ExchangeOrderID is a
// no-op, satisfying §5's requirement that fill application tolerate
// out-of-order, possibly-duplicated delivery.
func (m *Manager) ApplyFill(fill Fill) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fill.ExchangeOrderID != "" {
		if m.seenFills[fill.ExchangeOrderID] {
			return
		}
		m.seenFills[fill.ExchangeOrderID] = true
	}

	pos, exists := m.portfolio.Positions[fill.Symbol]
	if !exists {
		m.portfolio.Positions[fill.Symbol] = &types.Position{
			Symbol:     fill.Symbol,
			Venue:      fill.Venue,
			Side:       fill.Side,
			Quantity:   fill.Quantity,
			EntryPrice: fill.Price,
		}
		m.recomputeMetrics()
		return
	}

	if pos.Side == fill.Side {
		// Same-side fill: VWAP in.
		totalCost := pos.EntryPrice.Mul(pos.Quantity).Add(fill.Price.Mul(fill.Quantity))
		pos.Quantity = pos.Quantity.Add(fill.Quantity)
		if pos.Quantity.IsPositive() {
			pos.EntryPrice = totalCost.DivRound(pos.Quantity, 18)
		}
	} else {
		// Opposite-side fill: reduce, realizing PnL on the closed quantity.
		reduceQty := decimal.Min(fill.Quantity, pos.Quantity)
		var realized decimal.Decimal
		if pos.Side == types.Buy {
			realized = fill.Price.Sub(pos.EntryPrice).Mul(reduceQty)
		} else {
			realized = pos.EntryPrice.Sub(fill.Price).Mul(reduceQty)
		}
		pos.RealizedPnL = pos.RealizedPnL.Add(realized)

		if fill.Quantity.GreaterThanOrEqual(pos.Quantity) {
			// Fill covers the whole position: close it (§4.8). Any excess
			// fill quantity beyond pos.Quantity is discarded, not carried
			// into a new reversed position.
			pos.Quantity = decimal.Zero
		} else {
			pos.Quantity = pos.Quantity.Sub(fill.Quantity)
		}
	}

	m.recomputeMetrics()
}

// MarkToMarket sets CurrentPrice on each held position from the given
// price map and recomputes UnrealizedPnL: (cur-entry)*qty for Buy,
// (entry-cur)*qty for Sell.
func (m *Manager) MarkToMarket(prices map[types.Symbol]decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for symbol, pos := range m.portfolio.Positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		pos.CurrentPrice = price
		if pos.Side == types.Buy {
			pos.UnrealizedPnL = price.Sub(pos.EntryPrice).Mul(pos.Quantity)
		} else {
			pos.UnrealizedPnL = pos.EntryPrice.Sub(price).Mul(pos.Quantity)
		}
	}

	m.recomputeMetrics()
}

// recomputeMetrics runs the ordered pipeline of §4.8, step 7: equity is
// adjusted by the DELTA of total unrealized PnL since the last
// recomputation, not repeatedly summed in (corrects the source's
// double-counting bug, SPEC_FULL §9).
func (m *Manager) recomputeMetrics() {
	p := m.portfolio

	// 1. drop zero-quantity positions.
	for symbol, pos := range p.Positions {
		if !pos.Quantity.IsPositive() {
			delete(p.Positions, symbol)
		}
	}

	// 2-4. exposures.
	total := decimal.Zero
	long := decimal.Zero
	short := decimal.Zero
	longCount := 0
	shortCount := 0
	totalUnrealized := decimal.Zero

	for _, pos := range p.Positions {
		notional := pos.Quantity.Mul(pos.CurrentPrice)
		total = total.Add(notional)
		if pos.Side == types.Buy {
			long = long.Add(notional)
			longCount++
		} else {
			short = short.Add(notional)
			shortCount++
		}
		totalUnrealized = totalUnrealized.Add(pos.UnrealizedPnL)
	}

	p.TotalExposure = total
	p.LongExposure = long
	p.ShortExposure = short
	p.NetExposure = long.Sub(short)

	// 5. leverage = total_exposure / equity (0 if equity <= 0).
	if p.Equity.IsPositive() {
		p.Leverage = total.DivRound(p.Equity, 18)
	} else {
		p.Leverage = decimal.Zero
	}

	// 6. energy via the Hamiltonian monitor.
	p.Energy = risk.Energy(p.Leverage, longCount, shortCount)

	// 7. delta-accounted equity.
	delta := totalUnrealized.Sub(m.lastUnrealizedPnL)
	p.Equity = p.Equity.Add(delta)
	m.lastUnrealizedPnL = totalUnrealized
}
