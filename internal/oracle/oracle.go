// Package oracle aggregates system health: a bounded latency ring buffer,
// percentile computation, and the alert predicates of §4.12.
package oracle

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"axiomguard/internal/types"
)

// Oracle holds a fixed-capacity ring of latency samples and assembles
// SystemHealth snapshots on demand.
type Oracle struct {
	mu       sync.Mutex
	samples  []time.Duration
	capacity int
	next     int
	full     bool
}

// New creates an Oracle with the given latency sample ring capacity.
func New(capacity int) *Oracle {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Oracle{
		samples:  make([]time.Duration, capacity),
		capacity: capacity,
	}
}

// RecordLatency appends a latency sample to the ring, overwriting the
// oldest entry once capacity is reached.
func (o *Oracle) RecordLatency(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples[o.next] = d
	o.next = (o.next + 1) % o.capacity
	if o.next == 0 {
		o.full = true
	}
}

// LatencyPercentiles returns (p50, p99, p999) in milliseconds, computed by
// sort-and-index. Returns (0,0,0) if no samples have been recorded.
func (o *Oracle) LatencyPercentiles() (p50, p99, p999 decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := o.next
	if o.full {
		n = o.capacity
	}
	if n == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	sorted := make([]time.Duration, n)
	copy(sorted, o.samples[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pick := func(pct float64) decimal.Decimal {
		idx := int(float64(n) * pct)
		if idx >= n {
			idx = n - 1
		}
		ms := float64(sorted[idx]) / float64(time.Millisecond)
		return decimal.NewFromFloat(ms)
	}

	return pick(0.50), pick(0.99), pick(0.999)
}

// HealthSnapshot assembles a SystemHealth object stamped with the current
// time, per §4.12.
func (o *Oracle) HealthSnapshot(consistencyError, entropy decimal.Decimal, breaker types.CircuitBreakerState, hallucinationRate decimal.Decimal) types.SystemHealth {
	p50, p99, p999 := o.LatencyPercentiles()
	return types.SystemHealth{
		ConsistencyError:  consistencyError,
		EntropyCount:      entropy,
		CircuitBreaker:    breaker,
		HallucinationRate: hallucinationRate,
		LatencyP50Ms:      p50,
		LatencyP99Ms:      p99,
		LatencyP999Ms:     p999,
		Timestamp:         time.Now().UTC(),
	}
}

// Alert names one of the derived alert predicates of §4.12.
type Alert string

const (
	AlertConsistencyError  Alert = "consistency_error_nonzero"
	AlertExcessiveEntropy  Alert = "entropy_above_threshold"
	AlertBreakerTripped    Alert = "breaker_tripped"
	AlertHallucinationRate Alert = "hallucination_rate_exceeded"
	AlertLatencyP99        Alert = "latency_p99_exceeded"
)

// Alerts evaluates the derived alert predicates over a SystemHealth
// snapshot. Alerts are never stored state — they are recomputed fresh from
// the snapshot every call.
func Alerts(health types.SystemHealth) []Alert {
	var alerts []Alert
	if health.ConsistencyError.IsPositive() {
		alerts = append(alerts, AlertConsistencyError)
	}
	if health.EntropyCount.GreaterThan(types.DeltaUMaxSquared) {
		alerts = append(alerts, AlertExcessiveEntropy)
	}
	if health.CircuitBreaker == types.Tripped {
		alerts = append(alerts, AlertBreakerTripped)
	}
	if health.HallucinationRate.GreaterThan(types.MaxHallucinationRate) {
		alerts = append(alerts, AlertHallucinationRate)
	}
	if health.LatencyP99Ms.GreaterThan(decimal.NewFromInt(100)) {
		alerts = append(alerts, AlertLatencyP99)
	}
	return alerts
}
