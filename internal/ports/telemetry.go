package ports

// TelemetryPort exposes a single counter-increment hook. The core
// never transports telemetry itself; it only bumps named counters on
// well-defined error classes (see internal/core/registry_git.go).
type TelemetryPort interface {
	Define(metricID string)
}
