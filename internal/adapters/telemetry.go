package adapters

import (
	"sync"

	"portresolve/internal/ports"
)

// NoopTelemetryAdapter discards every counter increment. This is the
// default: the core has no telemetry transport of its own.
type NoopTelemetryAdapter struct{}

func NewNoopTelemetryAdapter() NoopTelemetryAdapter { return NoopTelemetryAdapter{} }

func (NoopTelemetryAdapter) Define(string) {}

var _ ports.TelemetryPort = NoopTelemetryAdapter{}

// CountingTelemetryAdapter accumulates counter increments in memory,
// used by tests to assert on well-defined error classes.
type CountingTelemetryAdapter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewCountingTelemetryAdapter() *CountingTelemetryAdapter {
	return &CountingTelemetryAdapter{counts: map[string]int{}}
}

func (a *CountingTelemetryAdapter) Define(metricID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[metricID]++
}

func (a *CountingTelemetryAdapter) Count(metricID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[metricID]
}

var _ ports.TelemetryPort = (*CountingTelemetryAdapter)(nil)
