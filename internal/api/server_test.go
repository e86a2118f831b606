package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"axiomguard/internal/oracle"
	"axiomguard/internal/risk"
	"axiomguard/internal/types"
)

func TestHandleHealthReturnsSnapshot(t *testing.T) {
	t.Parallel()
	o := oracle.New(10)
	breaker := risk.NewCircuitBreaker()
	hallucinationRate := func() decimal.Decimal { return decimal.NewFromFloat(0.5) }
	s := NewServer(":0", o, breaker, hallucinationRate, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health types.SystemHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !health.ConsistencyError.IsZero() {
		t.Errorf("ConsistencyError = %s, want 0", health.ConsistencyError)
	}
	if !health.HallucinationRate.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("HallucinationRate = %s, want 0.5", health.HallucinationRate)
	}
	if health.CircuitBreaker != types.Normal {
		t.Errorf("CircuitBreaker = %s, want Normal", health.CircuitBreaker)
	}
}

func TestHandleBreakerReturnsState(t *testing.T) {
	t.Parallel()
	o := oracle.New(10)
	breaker := risk.NewCircuitBreaker()
	s := NewServer(":0", o, breaker, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/breaker", nil)
	rec := httptest.NewRecorder()
	s.handleBreaker(rec, req)

	var body map[string]types.CircuitBreakerState
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["state"] != types.Normal {
		t.Errorf("state = %s, want Normal", body["state"])
	}
}

func TestHandleHealthDefaultsCallbacksWhenNil(t *testing.T) {
	t.Parallel()
	o := oracle.New(10)
	breaker := risk.NewCircuitBreaker()
	s := NewServer(":0", o, breaker, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	var health types.SystemHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !health.HallucinationRate.IsZero() {
		t.Errorf("HallucinationRate = %s, want 0 when no callback supplied", health.HallucinationRate)
	}
}
