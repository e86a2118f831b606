// Package execution defines the outbound adapter contract of SPEC_FULL §6
// and a reference implementation over go-resty. The concrete venue API is
// out of scope (§1); this package demonstrates submit/cancel/cancel_all and
// the Network/Timeout retry policy without binding to one venue.
package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"axiomguard/internal/portfolio"
	"axiomguard/internal/types"
)

// ErrorKind classifies an execution failure (§6, §7).
type ErrorKind string

const (
	ExchangeAPI ErrorKind = "ExchangeApi"
	Network     ErrorKind = "Network"
	Timeout     ErrorKind = "Timeout"
	SafetyCheck ErrorKind = "SafetyCheck"
)

// Error is the typed execution failure returned by an Adapter.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("execution: %s: %s", e.Kind, e.Msg) }

// Retryable reports whether the adapter may retry this error, per §7:
// Network and Timeout are retryable, SafetyCheck and ExchangeApi are
// terminal for that order.
func (e *Error) Retryable() bool {
	return e.Kind == Network || e.Kind == Timeout
}

// VenueOrderID is the venue's identifier for a submitted order.
type VenueOrderID string

// Adapter is the outbound contract of §6. AwaitFill is the third permitted
// suspension point (§5): it blocks until the venue reports a fill for the
// given order, or ctx is done.
type Adapter interface {
	Submit(ctx context.Context, order types.VerifiedOrder) (VenueOrderID, *Error)
	Cancel(ctx context.Context, id VenueOrderID, venue types.Venue) *Error
	CancelAll(ctx context.Context, symbol types.Symbol, venue types.Venue) *Error
	AwaitFill(ctx context.Context, id VenueOrderID) (portfolio.Fill, *Error)
}

// RestyAdapter is a reference Adapter grounded on the teacher's
// internal/exchange/client.go go-resty usage: retry-on-Network/Timeout
// condition functions, a bounded retry count, and a dry-run mode that never
// issues a real HTTP call.
type RestyAdapter struct {
	client  *resty.Client
	baseURL string
	dryRun  bool

	mu      sync.Mutex
	pending map[VenueOrderID]types.VerifiedOrder

	pollInterval time.Duration
}

// NewRestyAdapter creates an execution adapter. When dryRun is true,
// Submit/Cancel/CancelAll return synthesized successes without making any
// HTTP request — used by this module's dry-run tests.
func NewRestyAdapter(baseURL string, timeout time.Duration, dryRun bool) *RestyAdapter {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil
		})
	return &RestyAdapter{
		client:       client,
		baseURL:      baseURL,
		dryRun:       dryRun,
		pending:      make(map[VenueOrderID]types.VerifiedOrder),
		pollInterval: 200 * time.Millisecond,
	}
}

// Submit posts a VerifiedOrder for execution. On timeout the order is
// reported as not-submitted (§5) — the caller must not mutate portfolio
// state for a Timeout error.
func (a *RestyAdapter) Submit(ctx context.Context, order types.VerifiedOrder) (VenueOrderID, *Error) {
	if a.dryRun {
		id := VenueOrderID(fmt.Sprintf("dryrun-%d", order.VerifiedAt.UnixNano()))
		a.mu.Lock()
		a.pending[id] = order
		a.mu.Unlock()
		return id, nil
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(submitRequest(order)).
		Post("/orders")
	if err != nil {
		if ctx.Err() != nil {
			return "", &Error{Kind: Timeout, Msg: err.Error()}
		}
		return "", &Error{Kind: Network, Msg: err.Error()}
	}
	if resp.IsError() {
		return "", &Error{Kind: ExchangeAPI, Msg: resp.Status()}
	}
	id := VenueOrderID(resp.String())
	a.mu.Lock()
	a.pending[id] = order
	a.mu.Unlock()
	return id, nil
}

// AwaitFill blocks until the venue reports a fill for id. In dry-run mode it
// synthesizes an immediate full fill at the order's limit price (or entry
// price 0 for a market order, left to the caller to mark-to-market away).
// Against a real venue it polls a fills endpoint until one appears or ctx is
// done, reported as a Timeout.
func (a *RestyAdapter) AwaitFill(ctx context.Context, id VenueOrderID) (portfolio.Fill, *Error) {
	a.mu.Lock()
	order, ok := a.pending[id]
	a.mu.Unlock()
	if !ok {
		return portfolio.Fill{}, &Error{Kind: ExchangeAPI, Msg: "unknown venue order id"}
	}

	if a.dryRun {
		price := decimalOrZero(order.Signal.LimitPrice)
		a.mu.Lock()
		delete(a.pending, id)
		a.mu.Unlock()
		return portfolio.Fill{
			Symbol:          order.Signal.Symbol,
			Venue:           order.Signal.Venue,
			Side:            order.Signal.Side,
			Quantity:        order.Signal.Quantity,
			Price:           price,
			ExchangeOrderID: string(id),
		}, nil
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return portfolio.Fill{}, &Error{Kind: Timeout, Msg: "timed out awaiting fill"}
		case <-ticker.C:
			resp, err := a.client.R().SetContext(ctx).Get("/orders/" + string(id) + "/fill")
			if err != nil {
				continue
			}
			if resp.StatusCode() == 404 {
				continue
			}
			if resp.IsError() {
				return portfolio.Fill{}, &Error{Kind: ExchangeAPI, Msg: resp.Status()}
			}
			var fill portfolio.Fill
			if err := json.Unmarshal(resp.Body(), &fill); err != nil {
				continue
			}
			a.mu.Lock()
			delete(a.pending, id)
			a.mu.Unlock()
			return fill, nil
		}
	}
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Cancel cancels a single venue order.
func (a *RestyAdapter) Cancel(ctx context.Context, id VenueOrderID, venue types.Venue) *Error {
	if a.dryRun {
		return nil
	}
	resp, err := a.client.R().SetContext(ctx).Delete("/orders/" + string(id))
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: Timeout, Msg: err.Error()}
		}
		return &Error{Kind: Network, Msg: err.Error()}
	}
	if resp.IsError() {
		return &Error{Kind: ExchangeAPI, Msg: resp.Status()}
	}
	return nil
}

// CancelAll cancels every outstanding order for a (symbol, venue).
func (a *RestyAdapter) CancelAll(ctx context.Context, symbol types.Symbol, venue types.Venue) *Error {
	if a.dryRun {
		return nil
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", string(symbol)).
		SetQueryParam("venue", string(venue)).
		Delete("/orders")
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: Timeout, Msg: err.Error()}
		}
		return &Error{Kind: Network, Msg: err.Error()}
	}
	if resp.IsError() {
		return &Error{Kind: ExchangeAPI, Msg: resp.Status()}
	}
	return nil
}

func submitRequest(order types.VerifiedOrder) map[string]any {
	body := map[string]any{
		"symbol":   string(order.Signal.Symbol),
		"venue":    string(order.Signal.Venue),
		"side":     string(order.Signal.Side),
		"type":     string(order.Signal.OrderType),
		"quantity": order.Signal.Quantity.String(),
	}
	if order.Signal.LimitPrice != nil {
		body["limit_price"] = order.Signal.LimitPrice.String()
	}
	return body
}

var _ Adapter = (*RestyAdapter)(nil)
