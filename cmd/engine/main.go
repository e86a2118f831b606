// axiomguard — an automated trading engine built around a Proposer–Verifier
// signal pipeline guarded by a formal invariant contract, a Hamiltonian risk
// containment layer, and a deterministic fixed-point portfolio state machine.
//
// Architecture:
//
//	cmd/engine/main.go       — entry point: loads config, wires the engine, waits for SIGINT/SIGTERM
//	internal/engine          — orchestrator: the closed control loop over one or more ingestion streams
//	internal/proposer        — rule-based signal proposer (the concrete ML proposer is out of scope)
//	internal/verifier        — SMT-style fail-closed re-derivation of the invariant contract
//	internal/contract        — the L0 invariant axioms A1-A8
//	internal/risk            — Hamiltonian energy model + latching circuit breaker
//	internal/portfolio       — fixed-point VWAP fill application and equity accounting
//	internal/attest          — SHA3-256 + Ed25519 order attestation
//	internal/safety          — safety gate + per-venue rate limiting
//	internal/ingestion       — inbound market data adapter contract (reference: gorilla/websocket)
//	internal/execution       — outbound order adapter contract (reference: go-resty)
//	internal/api             — read-only health/breaker HTTP export
//
// Exchange connectivity, blockchain RPC, and the concrete ML proposer are
// explicitly out of scope — only the contracts and reference adapters ship
// here. A deployment wires its own ingestion.Adapter/execution.Adapter pair.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/api"
	"axiomguard/internal/attest"
	"axiomguard/internal/config"
	"axiomguard/internal/engine"
	"axiomguard/internal/execution"
	"axiomguard/internal/feature"
	"axiomguard/internal/market"
	"axiomguard/internal/oracle"
	"axiomguard/internal/portfolio"
	"axiomguard/internal/proposer"
	"axiomguard/internal/risk"
	"axiomguard/internal/safety"
	"axiomguard/internal/verifier"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("AXIOM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	startingEquity, err := decimal.NewFromString(cfg.Engine.StartingEquity)
	if err != nil {
		logger.Error("invalid engine.starting_equity", "error", err)
		os.Exit(1)
	}

	signer, err := newSigner(cfg.Attestation.SigningSeedHex)
	if err != nil {
		logger.Error("failed to initialize attestation signer", "error", err)
		os.Exit(1)
	}

	books := market.NewBookStore(cfg.Ingestion.StaleAfter)
	portfolioMgr := portfolio.NewManager(startingEquity)
	breaker := risk.NewCircuitBreaker()
	verif := verifier.New(time.Now)
	calc := feature.NewCalculator(cfg.Engine.FeatureHistoryLen)
	prop := proposer.New(calc)
	gate := safety.NewGate(breaker)
	oracleInst := oracle.New(cfg.Engine.LatencyBufferLen)
	executor := execution.NewRestyAdapter(cfg.Execution.BaseURL, cfg.Execution.SubmissionTimeout, cfg.DryRun)

	eng := engine.New(engine.Deps{
		Books:             books,
		Proposer:          prop,
		Verifier:          verif,
		Signer:            signer,
		Portfolio:         portfolioMgr,
		Breaker:           breaker,
		Gate:              gate,
		Oracle:            oracleInst,
		Executor:          executor,
		Logger:            logger,
		SubmissionTimeout: cfg.Execution.SubmissionTimeout,
	})

	var apiServer *api.Server
	if cfg.Health.Enabled {
		hallucinationRate := func() decimal.Decimal { return prop.HallucinationRate() }
		apiServer = api.NewServer(fmt.Sprintf(":%d", cfg.Health.Port), oracleInst, breaker, hallucinationRate, nil, logger)
		apiServer.Start()
		logger.Info("health server started", "port", cfg.Health.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Concrete ingestion sources are deployment-specific and out of scope
	// here (§1); a real deployment supplies engine.Stream values backed by
	// its own ingestion.Adapter implementations.
	eng.Start(ctx, nil)

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE - no real orders will be submitted")
	}
	logger.Info("axiomguard engine started", "dry_run", cfg.DryRun, "starting_equity", startingEquity.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Execution.SubmissionTimeout)
	defer shutdownCancel()

	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop health server", "error", err)
		}
	}

	health := eng.Stop(shutdownCtx)
	logger.Info("engine stopped", "final_breaker_state", health.CircuitBreaker)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newSigner builds the attestation signer from a hex-encoded seed, or
// generates a random one (logging a warning — a restarted process that
// generates a fresh key can no longer re-verify its own past attestations).
func newSigner(seedHex string) (*attest.Signer, error) {
	if seedHex == "" {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("generate signing seed: %w", err)
		}
		return attest.GenerateSigner(seed)
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode attestation.signing_seed_hex: %w", err)
	}
	return attest.GenerateSigner(seed)
}
