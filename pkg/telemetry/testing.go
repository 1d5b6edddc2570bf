// ABOUTME: Telemetry helper for tests that exercise real components with telemetry disabled
// ABOUTME: Only disables telemetry, it does not mock any component behaviour

package telemetry

// NewForTesting returns a no-op telemetry instance for use in tests.
func NewForTesting() Telemetry {
	return NewNoop()
}
