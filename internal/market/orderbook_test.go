package market

import (
	"errors"
	"testing"
	"time"

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

func TestBuildOrderBookSortsLevels(t *testing.T) {
	t.Parallel()
	bids := []types.BookLevel{{Price: dec("99"), Quantity: dec("1")}, {Price: dec("100"), Quantity: dec("1")}}
	asks := []types.BookLevel{{Price: dec("102"), Quantity: dec("1")}, {Price: dec("101"), Quantity: dec("1")}}

	book, err := BuildOrderBook(types.BTCUSD, types.Binance, bids, asks, time.Now(), 1)
	if err != nil {
		t.Fatalf("BuildOrderBook: %v", err)
	}
	if !book.Bids[0].Price.Equal(dec("100")) {
		t.Errorf("best bid = %s, want 100 (strictly descending)", book.Bids[0].Price)
	}
	if !book.Asks[0].Price.Equal(dec("101")) {
		t.Errorf("best ask = %s, want 101 (strictly ascending)", book.Asks[0].Price)
	}
}

func TestBuildOrderBookRejectsCrossedBook(t *testing.T) {
	t.Parallel()
	bids := []types.BookLevel{{Price: dec("101"), Quantity: dec("1")}}
	asks := []types.BookLevel{{Price: dec("100"), Quantity: dec("1")}}

	_, err := BuildOrderBook(types.BTCUSD, types.Binance, bids, asks, time.Now(), 1)
	if err == nil {
		t.Fatal("expected an error for a crossed book")
	}
}

// Monotone sequence rejection (§8 testable property 5).
func TestBookStoreRejectsStaleSequence(t *testing.T) {
	t.Parallel()
	s := NewBookStore(time.Minute)
	book1 := &types.OrderBook{Symbol: types.BTCUSD, Venue: types.Binance, Sequence: 5, Timestamp: time.Now()}
	book2 := &types.OrderBook{Symbol: types.BTCUSD, Venue: types.Binance, Sequence: 5, Timestamp: time.Now()}

	if err := s.Apply(book1); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	err := s.Apply(book2)
	var staleErr *ErrStaleSequence
	if !errors.As(err, &staleErr) {
		t.Fatalf("second Apply error = %v, want *ErrStaleSequence", err)
	}
}

func TestBookStoreAcceptsIncreasingSequence(t *testing.T) {
	t.Parallel()
	s := NewBookStore(time.Minute)
	book1 := &types.OrderBook{Symbol: types.BTCUSD, Venue: types.Binance, Sequence: 5, Timestamp: time.Now()}
	book2 := &types.OrderBook{Symbol: types.BTCUSD, Venue: types.Binance, Sequence: 6, Timestamp: time.Now()}

	if err := s.Apply(book1); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := s.Apply(book2); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	got, ok := s.Get(types.BTCUSD, types.Binance)
	if !ok || got.Sequence != 6 {
		t.Fatalf("Get = %+v, ok=%v, want sequence 6", got, ok)
	}
}

func TestBookStoreIsStale(t *testing.T) {
	t.Parallel()
	s := NewBookStore(time.Minute)
	if !s.IsStale(types.BTCUSD, types.Binance, time.Now()) {
		t.Error("an unknown stream must be reported stale")
	}

	old := time.Now().Add(-2 * time.Minute)
	book := &types.OrderBook{Symbol: types.BTCUSD, Venue: types.Binance, Sequence: 1, Timestamp: old}
	if err := s.Apply(book); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !s.IsStale(types.BTCUSD, types.Binance, time.Now()) {
		t.Error("a book last updated 2 minutes ago with a 1-minute staleAfter should be stale")
	}
}
