// Package ingestion defines the inbound adapter contract of SPEC_FULL §6
// and a reference implementation over gorilla/websocket. Concrete venue
// wire protocols are out of scope (§1) — this package demonstrates the
// contract shape (bounded per-stream queues, reconnect-with-backoff) without
// committing to any one venue's message format.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"axiomguard/internal/market"
	"axiomguard/internal/types"
)

// Event is either a Tick or an OrderBook update delivered by an Adapter.
type Event struct {
	Tick      *types.Tick
	Book      *types.OrderBook
}

// Adapter is the inbound contract: Events delivers normalized events for a
// single (symbol, venue) stream in arrival order; Close releases the
// underlying connection.
type Adapter interface {
	Events() <-chan Event
	Close() error
}

// WebSocketAdapter is a reference Adapter grounded on the teacher's
// internal/exchange/ws.go reconnect-with-backoff client, generalized from a
// single venue's message schema to an injectable decode function.
type WebSocketAdapter struct {
	symbol types.Symbol
	venue  types.Venue
	url    string
	decode func(raw []byte) (market.RawPayload, error)

	events chan Event
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewWebSocketAdapter dials url and streams decoded events for
// (symbol, venue) into a bounded channel of the given size. decode turns a
// raw websocket text frame into the key-value document the market package's
// normalizers accept.
func NewWebSocketAdapter(ctx context.Context, symbol types.Symbol, venue types.Venue, url string, queueSize int, decode func([]byte) (market.RawPayload, error), logger *slog.Logger) (*WebSocketAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runCtx, cancel := context.WithCancel(ctx)
	a := &WebSocketAdapter{
		symbol: symbol,
		venue:  venue,
		url:    url,
		decode: decode,
		events: make(chan Event, queueSize),
		cancel: cancel,
		logger: logger,
	}
	go a.run(runCtx)
	return a, nil
}

// Events returns the channel normalized events are delivered on.
func (a *WebSocketAdapter) Events() <-chan Event { return a.events }

// Close cancels the adapter's context. The read loop exits, and closes its
// connection, once the read it is blocked in returns.
func (a *WebSocketAdapter) Close() error {
	a.cancel()
	return nil
}

// run dials, reads, and reconnects with exponential backoff, in the
// teacher's style. Decode errors are logged and dropped per §7's
// IngestionError policy — they never stop the loop.
func (a *WebSocketAdapter) run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			close(a.events)
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
		if err != nil {
			a.logger.Warn("ingestion: dial failed, backing off", "venue", a.venue, "symbol", a.symbol, "err", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				close(a.events)
				return
			case <-time.After(backoff):
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		a.readLoop(ctx, conn)
		conn.Close()
	}
}

func (a *WebSocketAdapter) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			a.logger.Warn("ingestion: read failed, reconnecting", "venue", a.venue, "symbol", a.symbol, "err", err)
			return
		}

		payload, err := a.decode(raw)
		if err != nil {
			a.logger.Warn("ingestion: decode failed, dropping message", "venue", a.venue, "symbol", a.symbol, "err", err)
			continue
		}

		tick, err := market.NormalizeTick(a.symbol, a.venue, payload)
		if err != nil {
			a.logger.Warn("ingestion: normalization failed, dropping message", "venue", a.venue, "symbol", a.symbol, "err", err)
			continue
		}

		select {
		case a.events <- Event{Tick: &tick}:
		default:
			a.logger.Warn("ingestion: queue full, dropping tick", "venue", a.venue, "symbol", a.symbol)
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// DecodeJSON is a convenience decode function for venues whose wire format
// is a flat JSON object matching market.RawPayload directly.
func DecodeJSON(raw []byte) (market.RawPayload, error) {
	var payload market.RawPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("ingestion: decode json: %w", err)
	}
	return payload, nil
}
