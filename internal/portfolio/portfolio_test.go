package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// VWAP law (§8 testable property 3): two same-side fills average into a
// single VWAP entry price.
func TestApplyFillSameSideVWAP(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))

	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "a"})
	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("200"), ExchangeOrderID: "b"})

	snap := m.Snapshot()
	pos, ok := snap.Positions[types.BTCUSD]
	if !ok {
		t.Fatal("expected a BTCUSD position")
	}
	if !pos.Quantity.Equal(dec("2")) {
		t.Errorf("Quantity = %s, want 2", pos.Quantity)
	}
	if !pos.EntryPrice.Equal(dec("150")) {
		t.Errorf("EntryPrice = %s, want 150 (VWAP of 100 and 200)", pos.EntryPrice)
	}
}

// Close law (§8 testable property 4): an opposite-side fill that exactly
// closes the position realizes PnL and removes the position on the next
// recompute.
func TestApplyFillOppositeSideCloses(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))

	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "a"})
	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Sell, Quantity: dec("1"), Price: dec("110"), ExchangeOrderID: "b"})

	snap := m.Snapshot()
	if _, ok := snap.Positions[types.BTCUSD]; ok {
		t.Fatal("expected the position to be closed (dropped on recompute)")
	}
}

// An opposite-side fill larger than the held quantity still closes the
// position outright (§4.8): the excess fill quantity is discarded, not
// carried into a new reversed position.
func TestApplyFillOppositeSideOverfillCloses(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))

	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "a"})
	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Sell, Quantity: dec("3"), Price: dec("110"), ExchangeOrderID: "b"})

	snap := m.Snapshot()
	if _, ok := snap.Positions[types.BTCUSD]; ok {
		t.Fatal("expected the position to be closed even though the fill overfilled it")
	}
}

// Fill application is idempotent by ExchangeOrderID (§5): a duplicate
// delivery of the same fill is a no-op.
func TestApplyFillIdempotentDedup(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))

	fill := Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "dup"}
	m.ApplyFill(fill)
	m.ApplyFill(fill)
	m.ApplyFill(fill)

	snap := m.Snapshot()
	pos, ok := snap.Positions[types.BTCUSD]
	if !ok {
		t.Fatal("expected a BTCUSD position")
	}
	if !pos.Quantity.Equal(dec("1")) {
		t.Errorf("Quantity = %s, want 1 (duplicate fills must not double-apply)", pos.Quantity)
	}
}

func TestMarkToMarketComputesUnrealizedPnL(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))
	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "a"})

	m.MarkToMarket(map[types.Symbol]decimal.Decimal{types.BTCUSD: dec("110")})

	snap := m.Snapshot()
	pos := snap.Positions[types.BTCUSD]
	if !pos.UnrealizedPnL.Equal(dec("10")) {
		t.Errorf("UnrealizedPnL = %s, want 10", pos.UnrealizedPnL)
	}
	// Equity gains the full unrealized delta on the first mark (previous
	// unrealized was 0).
	if !snap.Equity.Equal(dec("10010")) {
		t.Errorf("Equity = %s, want 10010", snap.Equity)
	}
}

func TestMarkToMarketEquityDeltaNotDoubleCounted(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))
	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "a"})

	m.MarkToMarket(map[types.Symbol]decimal.Decimal{types.BTCUSD: dec("110")})
	m.MarkToMarket(map[types.Symbol]decimal.Decimal{types.BTCUSD: dec("110")})
	m.MarkToMarket(map[types.Symbol]decimal.Decimal{types.BTCUSD: dec("110")})

	snap := m.Snapshot()
	// Re-marking at the same price must not keep adding the same +10 each
	// time; equity should settle at 10010, not drift upward.
	if !snap.Equity.Equal(dec("10010")) {
		t.Errorf("Equity = %s, want 10010 (no double counting on repeat mark)", snap.Equity)
	}
}

func TestSnapshotIsADeepCopy(t *testing.T) {
	t.Parallel()
	m := NewManager(dec("10000"))
	m.ApplyFill(Fill{Symbol: types.BTCUSD, Venue: types.Binance, Side: types.Buy, Quantity: dec("1"), Price: dec("100"), ExchangeOrderID: "a"})

	snap := m.Snapshot()
	snap.Positions[types.BTCUSD].Quantity = dec("999")

	snap2 := m.Snapshot()
	if snap2.Positions[types.BTCUSD].Quantity.Equal(dec("999")) {
		t.Fatal("mutating a snapshot must not affect the manager's internal state")
	}
}
