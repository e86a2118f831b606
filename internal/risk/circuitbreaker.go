package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

// equitySnapshot records equity at a point in time.
type equitySnapshot struct {
	equity decimal.Decimal
	at     time.Time
}

// CircuitBreaker is the latching {Normal, Warning, Tripped} state machine
// of §4.10. Grounded on the teacher's RWMutex-protected Manager shape
// (internal/risk/manager.go), generalized from a kill-switch-only design to
// the spec's drawdown/leverage/energy-driven transitions.
type CircuitBreaker struct {
	mu sync.RWMutex

	state types.CircuitBreakerState

	snapshots []equitySnapshot // oldest first, pruned to the last 24h; bookkeeping only
	retainFor time.Duration

	// sessionStart is the equity captured the first time RecordSnapshot is
	// called on a given UTC day; it holds fixed for the rest of that day
	// regardless of how many snapshots arrive (§4.10).
	sessionStart    equitySnapshot
	sessionStartSet bool
	sessionDay      time.Time // UTC midnight of the day sessionStart was captured
}

// NewCircuitBreaker creates a breaker starting in the Normal state.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		state:     types.Normal,
		retainFor: 24 * time.Hour,
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() types.CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// RecordSnapshot appends an equity observation at `at`, pruning any
// snapshot older than 24h for bookkeeping. The session-start baseline used
// by dailyDrawdown is captured the first time this is called on a given
// UTC day and held fixed until the day rolls over (§4.10).
func (cb *CircuitBreaker) RecordSnapshot(equity decimal.Decimal, at time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.snapshots = append(cb.snapshots, equitySnapshot{equity: equity, at: at})
	cutoff := at.Add(-cb.retainFor)
	i := 0
	for i < len(cb.snapshots) && cb.snapshots[i].at.Before(cutoff) {
		i++
	}
	cb.snapshots = cb.snapshots[i:]

	day := at.UTC().Truncate(24 * time.Hour)
	if !cb.sessionStartSet || day.After(cb.sessionDay) {
		cb.sessionStart = equitySnapshot{equity: equity, at: at}
		cb.sessionDay = day
		cb.sessionStartSet = true
	}
}

// dailyDrawdown returns (current_equity - session_start_equity) /
// session_start_equity, where session_start_equity is the UTC-day-pinned
// baseline captured by RecordSnapshot. Returns zero if no snapshot has been
// recorded yet.
func (cb *CircuitBreaker) dailyDrawdown(currentEquity decimal.Decimal) decimal.Decimal {
	if !cb.sessionStartSet {
		return decimal.Zero
	}
	sessionStart := cb.sessionStart.equity
	if sessionStart.IsZero() {
		return decimal.Zero
	}
	return currentEquity.Sub(sessionStart).DivRound(sessionStart, 18)
}

// Check evaluates the portfolio against the breaker's transition rules and
// returns the resulting state. Tripped is latching: once entered, only
// Reset() returns the breaker to Normal, regardless of subsequent Check
// calls (§8 testable property 7).
func (cb *CircuitBreaker) Check(portfolio *types.Portfolio) types.CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == types.Tripped {
		return types.Tripped
	}

	drawdown := cb.dailyDrawdown(portfolio.Equity)
	tripped := drawdown.Abs().GreaterThan(types.MaxDailyDrawdown) || portfolio.Leverage.GreaterThan(types.MaxLeverage)
	if tripped {
		cb.state = types.Tripped
		return cb.state
	}

	if portfolio.Energy.GreaterThan(types.DeltaUMaxSquared) {
		cb.state = types.Warning
		return cb.state
	}

	cb.state = types.Normal
	return cb.state
}

// Reset returns a Tripped breaker to Normal. It is a no-op if the breaker
// is not currently Tripped.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == types.Tripped {
		cb.state = types.Normal
	}
}
