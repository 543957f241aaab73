package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Scheduler metrics
	TimerFired()
	ScheduleReplaced(taskCount int)

	// Dispatcher metrics
	OccurrenceReceived(kind string)
	CandidatesMatched(count int)
	CandidateResult(result string)
	OutcomeCompleted(outcomeType string, duration time.Duration, err error)
	OccurrencesInFlightIncr()
	OccurrencesInFlightDecr()

	// Queue metrics
	BufferSizeUpdate(size int)
	EmitError()
}

// Result constants for CandidateResult.
const (
	ResultFired        = "fired"
	ResultRoleDenied   = "role_denied"
	ResultCooldownHeld = "cooldown_held"
	ResultFailed       = "failed"
)
