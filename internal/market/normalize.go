// Package market turns untrusted ingestion payloads into canonical Tick and
// OrderBook values, and owns the live, per-(symbol,venue) book state fed by
// the ingestion adapter.
package market

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

// NormalizationError classifies why a raw ingestion payload was rejected.
// The ingestion adapter logs and drops the message and continues (§7); no
// count of dropped messages is kept.
type NormalizationError struct {
	Kind  string // "ParseError" | "InvalidType" | "InvalidFormat"
	Field string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization: %s on field %q: %v", e.Kind, e.Field, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

func newNormErr(kind, field string, err error) *NormalizationError {
	return &NormalizationError{Kind: kind, Field: field, Err: err}
}

// RawPayload is the untrusted key-value document handed in by the ingestion
// adapter, before any type or value checking.
type RawPayload map[string]any

// NormalizeDecimal accepts either a decimal-encoded string or a number and
// widens it losslessly. A float64 is converted through its shortest
// round-trip string form; only a non-finite float (NaN, ±Inf) fails that
// conversion and is rejected with ParseError.
func NormalizeDecimal(field string, v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero, newNormErr("ParseError", field, err)
		}
		return d, nil
	case float64:
		// Numbers arriving as float64 came through a JSON decode; widen via
		// the string form to avoid baking in float64's own rounding error.
		d, err := decimal.NewFromString(fmt.Sprintf("%v", t))
		if err != nil {
			return decimal.Zero, newNormErr("ParseError", field, err)
		}
		return d, nil
	case int64:
		return decimal.NewFromInt(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	default:
		return decimal.Zero, newNormErr("ParseError", field, fmt.Errorf("unsupported type %T", v))
	}
}

// NormalizeTimestamp accepts integer epoch milliseconds or an ISO-8601
// string with offset, returning UTC.
func NormalizeTimestamp(field string, v any) (time.Time, error) {
	switch t := v.(type) {
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, newNormErr("ParseError", field, err)
		}
		return ts.UTC(), nil
	default:
		return time.Time{}, newNormErr("ParseError", field, fmt.Errorf("unsupported type %T", v))
	}
}

// NormalizeSide maps the accepted side vocabularies, case-insensitively, to
// types.Side. Any other value fails with InvalidType.
func NormalizeSide(field string, v any) (types.Side, error) {
	s, ok := v.(string)
	if !ok {
		return "", newNormErr("InvalidType", field, fmt.Errorf("not a string: %T", v))
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B", "1":
		return types.Buy, nil
	case "SELL", "S", "2":
		return types.Sell, nil
	default:
		return "", newNormErr("InvalidType", field, fmt.Errorf("unrecognized side %q", s))
	}
}

// NormalizeTick validates and converts a raw payload into a Tick.
// Price and quantity must be strictly positive.
func NormalizeTick(symbol types.Symbol, venue types.Venue, raw RawPayload) (types.Tick, error) {
	price, err := NormalizeDecimal("price", raw["price"])
	if err != nil {
		return types.Tick{}, err
	}
	if !price.IsPositive() {
		return types.Tick{}, newNormErr("InvalidFormat", "price", errors.New("must be strictly positive"))
	}

	qty, err := NormalizeDecimal("quantity", raw["quantity"])
	if err != nil {
		return types.Tick{}, err
	}
	if !qty.IsPositive() {
		return types.Tick{}, newNormErr("InvalidFormat", "quantity", errors.New("must be strictly positive"))
	}

	ts, err := NormalizeTimestamp("timestamp", raw["timestamp"])
	if err != nil {
		return types.Tick{}, err
	}

	side, err := NormalizeSide("side", raw["side"])
	if err != nil {
		return types.Tick{}, err
	}

	return types.Tick{
		Symbol:    symbol,
		Venue:     venue,
		Price:     price,
		Quantity:  qty,
		Timestamp: ts,
		Side:      side,
	}, nil
}

// NormalizeBookLevels converts raw [price, quantity] pairs into BookLevels,
// dropping any level with non-positive quantity.
func NormalizeBookLevels(field string, raw []any) ([]types.BookLevel, error) {
	levels := make([]types.BookLevel, 0, len(raw))
	for i, entry := range raw {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			return nil, newNormErr("ParseError", fmt.Sprintf("%s[%d]", field, i), errors.New("expected [price, quantity]"))
		}
		price, err := NormalizeDecimal(field, pair[0])
		if err != nil {
			return nil, err
		}
		qty, err := NormalizeDecimal(field, pair[1])
		if err != nil {
			return nil, err
		}
		if !qty.IsPositive() {
			continue // zero/negative-quantity levels are elided, not an error
		}
		levels = append(levels, types.BookLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}
