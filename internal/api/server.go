// Package api exposes a minimal, read-only HTTP surface for SystemHealth
// and circuit-breaker state (§6 Health export, §10.1). Dashboard rendering
// itself stays out of scope — this package only serves the JSON contract.
// Adapted from the teacher's internal/api/{server,handlers,snapshot}.go.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/oracle"
	"axiomguard/internal/risk"
	"axiomguard/internal/types"
)

// Server serves the health/breaker JSON endpoints over net/http.
type Server struct {
	httpServer        *http.Server
	oracle            *oracle.Oracle
	breaker           *risk.CircuitBreaker
	hallucinationRate func() decimal.Decimal
	entropyCount      func() decimal.Decimal
	logger            *slog.Logger
}

// NewServer creates a health server bound to addr (e.g. ":8090").
// hallucinationRate and entropyCount supply the live figures the oracle's
// HealthSnapshot stamps into each response; a nil callback reports zero.
func NewServer(addr string, o *oracle.Oracle, breaker *risk.CircuitBreaker, hallucinationRate, entropyCount func() decimal.Decimal, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hallucinationRate == nil {
		hallucinationRate = func() decimal.Decimal { return decimal.Zero }
	}
	if entropyCount == nil {
		entropyCount = func() decimal.Decimal { return decimal.Zero }
	}
	s := &Server{
		oracle:            o,
		breaker:           breaker,
		hallucinationRate: hallucinationRate,
		entropyCount:      entropyCount,
		logger:            logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/breaker", s.handleBreaker)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine. Errors other than a
// clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api: server error", "err", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// consistency_error is always 0: a single authoritative portfolio has no
	// separate reported/verified copy that could diverge (§6).
	health := s.oracle.HealthSnapshot(decimal.Zero, s.entropyCount(), s.breaker.State(), s.hallucinationRate())
	writeJSON(w, health)
}

func (s *Server) handleBreaker(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]types.CircuitBreakerState{"state": s.breaker.State()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
