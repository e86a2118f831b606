// Package engine orchestrates the closed control loop: market data →
// feature extraction → proposal → SMT verification → attestation → safety
// gate → portfolio state update → circuit-breaker evaluation (§1). Grounded
// on the teacher's internal/engine/engine.go lifecycle shape: a struct
// owning goroutines via sync.WaitGroup + context.Context cancellation, with
// New()/Start()/Stop().
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/attest"
	"axiomguard/internal/execution"
	"axiomguard/internal/ingestion"
	"axiomguard/internal/market"
	"axiomguard/internal/oracle"
	"axiomguard/internal/portfolio"
	"axiomguard/internal/proposer"
	"axiomguard/internal/risk"
	"axiomguard/internal/safety"
	"axiomguard/internal/types"
	"axiomguard/internal/verifier"
)

// Stream pairs an ingestion adapter with the (symbol, venue) it feeds.
type Stream struct {
	Symbol  types.Symbol
	Venue   types.Venue
	Adapter ingestion.Adapter
}

// Engine wires every component of the pipeline together and supervises
// their goroutines.
type Engine struct {
	books     *market.BookStore
	proposer  proposer.Proposer
	verifier  *verifier.Verifier
	signer    *attest.Signer
	portfolio *portfolio.Manager
	breaker   *risk.CircuitBreaker
	gate      *safety.Gate
	oracle    *oracle.Oracle
	executor  execution.Adapter
	logger    *slog.Logger

	submissionTimeout time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Deps bundles the already-constructed collaborators an Engine wires
// together. Each is independently testable; Engine only supervises their
// goroutines and the order in which it calls them.
type Deps struct {
	Books             *market.BookStore
	Proposer          proposer.Proposer
	Verifier          *verifier.Verifier
	Signer            *attest.Signer
	Portfolio         *portfolio.Manager
	Breaker           *risk.CircuitBreaker
	Gate              *safety.Gate
	Oracle            *oracle.Oracle
	Executor          execution.Adapter
	Logger            *slog.Logger
	SubmissionTimeout time.Duration
}

// New assembles an Engine from its dependencies.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := d.SubmissionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Engine{
		books:             d.Books,
		proposer:          d.Proposer,
		verifier:          d.Verifier,
		signer:            d.Signer,
		portfolio:         d.Portfolio,
		breaker:           d.Breaker,
		gate:              d.Gate,
		oracle:            d.Oracle,
		executor:          d.Executor,
		logger:            logger,
		submissionTimeout: timeout,
	}
}

// Start launches one goroutine per ingestion stream and begins running the
// control loop for each. It returns immediately; call Stop to shut down.
func (e *Engine) Start(ctx context.Context, streams []Stream) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for _, stream := range streams {
		e.wg.Add(1)
		go func(s Stream) {
			defer e.wg.Done()
			e.runStream(runCtx, s)
		}(stream)
	}
}

// Stop signals every stream goroutine to drain in-flight work and exit,
// cancels outstanding orders, and emits a final health snapshot (§5
// Shutdown). It blocks until all goroutines have returned.
func (e *Engine) Stop(ctx context.Context) types.SystemHealth {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	for symbol := range types.SupportedSymbols {
		for venue := range types.SupportedVenues {
			if err := e.executor.CancelAll(ctx, symbol, venue); err != nil {
				e.logger.Warn("engine: cancel_all failed during shutdown", "symbol", symbol, "venue", venue, "err", err)
			}
		}
	}

	// consistency_error is always 0 here: the engine holds a single
	// authoritative portfolio, so there is no separate reported/verified
	// copy that could diverge (§6 Max consistency error).
	health := e.oracle.HealthSnapshot(
		decimal.Zero,
		decimal.Zero,
		e.breaker.State(),
		e.proposer.HallucinationRate(),
	)
	e.logger.Info("engine: final health snapshot", "breaker", health.CircuitBreaker, "hallucination_rate", health.HallucinationRate)
	return health
}

// runStream is the one suspension point permitted for ingestion: reading
// the next message from the stream's queue (§5). Everything downstream of
// a single dequeue runs synchronously to completion.
func (e *Engine) runStream(ctx context.Context, s Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.Adapter.Events():
			if !ok {
				return
			}
			e.handleEvent(ctx, s, ev)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, s Stream, ev ingestion.Event) {
	if ev.Book != nil {
		if err := e.books.Apply(ev.Book); err != nil {
			e.logger.Warn("engine: stale book update dropped", "symbol", s.Symbol, "venue", s.Venue, "err", err)
			return
		}
	}
	if ev.Tick != nil {
		e.portfolio.MarkToMarket(map[types.Symbol]decimal.Decimal{ev.Tick.Symbol: ev.Tick.Price})
	}

	book, ok := e.books.Get(s.Symbol, s.Venue)
	if !ok {
		return
	}

	e.runPipeline(ctx, s.Symbol, s.Venue, book)
}

// runPipeline executes one full pass of the closed control loop for a
// single (symbol, venue) book update: proposal → verification →
// attestation → safety gate → submission → (eventual) fill → breaker
// check.
func (e *Engine) runPipeline(ctx context.Context, symbol types.Symbol, venue types.Venue, book *types.OrderBook) {
	snapshot := e.portfolio.Snapshot()

	signal, err := e.proposer.Propose(symbol, venue, book, snapshot)
	if err != nil {
		e.logger.Warn("engine: proposer error", "err", err)
		return
	}
	if signal == nil {
		return
	}

	order, violation := e.verifier.Verify(*signal, snapshot)
	if violation != nil {
		e.proposer.RecordRejection()
		e.logger.Warn("engine: proposal rejected by verifier", "axiom", violation.Axiom(), "err", violation.Error())
		if violation.Axiom() == "A7" {
			// EnergyDivergence observed outside a mark-to-market path
			// still escalates the breaker to at least Warning (§7).
			e.breaker.Check(snapshot)
		}
		return
	}

	order.Attestation = e.signer.Sign(*order)

	if gateErr := e.gate.Check(*order); gateErr != nil {
		e.logger.Warn("engine: safety gate rejected order", "kind", gateErr.Kind, "msg", gateErr.Msg)
		return
	}

	submitCtx, cancel := context.WithTimeout(ctx, e.submissionTimeout)
	defer cancel()

	if limiter := e.gate.Limiter(venue); limiter != nil {
		if err := limiter.Wait(submitCtx); err != nil {
			e.logger.Warn("engine: rate limit wait aborted", "venue", venue, "err", err)
			return
		}
	}

	venueOrderID, execErr := e.executor.Submit(submitCtx, *order)
	if execErr != nil {
		e.logger.Warn("engine: submission failed", "kind", execErr.Kind, "msg", execErr.Msg)
		return
	}

	e.logger.Info("engine: order submitted", "venue_order_id", venueOrderID, "symbol", symbol, "venue", venue)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.awaitFill(ctx, *order, venueOrderID)
	}()
}

// awaitFill is the third permitted suspension point (§5): it blocks on the
// execution adapter's fill callback for one submitted order, then applies
// the fill to the portfolio and re-evaluates the circuit breaker. Fill
// application is idempotent (dedup by ExchangeOrderID), so a fill that
// arrives after the engine has moved on is still applied correctly.
func (e *Engine) awaitFill(ctx context.Context, order types.VerifiedOrder, venueOrderID execution.VenueOrderID) {
	fill, execErr := e.executor.AwaitFill(ctx, venueOrderID)
	if execErr != nil {
		if execErr.Kind != execution.Timeout {
			e.logger.Warn("engine: await fill failed", "venue_order_id", venueOrderID, "kind", execErr.Kind, "msg", execErr.Msg)
		}
		return
	}

	if order.Signal.LimitPrice != nil {
		slippage := fill.Price.Sub(*order.Signal.LimitPrice).Abs().DivRound(*order.Signal.LimitPrice, 18)
		if slippage.GreaterThan(types.MaxSlippageTolerance) {
			e.logger.Warn("engine: fill exceeded slippage tolerance", "venue_order_id", venueOrderID, "slippage", slippage.String())
		}
	}

	e.portfolio.ApplyFill(fill)

	snapshot := e.portfolio.Snapshot()
	e.breaker.RecordSnapshot(snapshot.Equity, time.Now().UTC())
	e.breaker.Check(snapshot)
}
