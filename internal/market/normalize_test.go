package market

import (
	"testing"
	"time"

	"axiomguard/internal/types"
)

func TestNormalizeDecimalAcceptedTypes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"string", "1.5", "1.5"},
		{"float64", float64(1.5), "1.5"},
		{"int64", int64(2), "2"},
		{"int", 3, "3"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeDecimal("field", c.in)
			if err != nil {
				t.Fatalf("NormalizeDecimal(%v): %v", c.in, err)
			}
			if got.String() != c.want {
				t.Errorf("got %s, want %s", got.String(), c.want)
			}
		})
	}
}

func TestNormalizeDecimalRejectsUnsupportedType(t *testing.T) {
	t.Parallel()
	if _, err := NormalizeDecimal("field", struct{}{}); err == nil {
		t.Fatal("expected an error for an unsupported type")
	}
}

func TestNormalizeSideVocabulary(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want types.Side
	}{
		{"buy", types.Buy}, {"BUY", types.Buy}, {"b", types.Buy}, {"1", types.Buy},
		{"sell", types.Sell}, {"SELL", types.Sell}, {"s", types.Sell}, {"2", types.Sell},
	}
	for _, c := range cases {
		got, err := NormalizeSide("side", c.in)
		if err != nil {
			t.Fatalf("NormalizeSide(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("NormalizeSide(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestNormalizeSideRejectsUnrecognized(t *testing.T) {
	t.Parallel()
	if _, err := NormalizeSide("side", "sideways"); err == nil {
		t.Fatal("expected an error for an unrecognized side")
	}
}

func TestNormalizeTickRejectsNonPositivePrice(t *testing.T) {
	t.Parallel()
	raw := RawPayload{"price": "0", "quantity": "1", "timestamp": int64(0), "side": "buy"}
	if _, err := NormalizeTick(types.BTCUSD, types.Binance, raw); err == nil {
		t.Fatal("expected an error for a non-positive price")
	}
}

func TestNormalizeTickRoundTrip(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := RawPayload{
		"price":     "100.5",
		"quantity":  "2",
		"timestamp": ts.UnixMilli(),
		"side":      "buy",
	}
	tick, err := NormalizeTick(types.BTCUSD, types.Binance, raw)
	if err != nil {
		t.Fatalf("NormalizeTick: %v", err)
	}
	if tick.Symbol != types.BTCUSD || tick.Venue != types.Binance || tick.Side != types.Buy {
		t.Errorf("tick = %+v, unexpected identity fields", tick)
	}
	if !tick.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", tick.Timestamp, ts)
	}
}

func TestNormalizeBookLevelsElidesNonPositiveQuantity(t *testing.T) {
	t.Parallel()
	raw := []any{
		[]any{"100", "1"},
		[]any{"99", "0"},
		[]any{"98", "-1"},
	}
	levels, err := NormalizeBookLevels("bids", raw)
	if err != nil {
		t.Fatalf("NormalizeBookLevels: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("len(levels) = %d, want 1 (zero/negative-quantity levels elided)", len(levels))
	}
}

func TestNormalizeBookLevelsRejectsMalformedPair(t *testing.T) {
	t.Parallel()
	raw := []any{[]any{"100"}}
	if _, err := NormalizeBookLevels("bids", raw); err == nil {
		t.Fatal("expected an error for a malformed [price, quantity] pair")
	}
}
