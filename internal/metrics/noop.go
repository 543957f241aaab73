package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) TimerFired()                                                     {}
func (n *NoopSink) ScheduleReplaced(taskCount int)                                  {}
func (n *NoopSink) OccurrenceReceived(kind string)                                  {}
func (n *NoopSink) CandidatesMatched(count int)                                     {}
func (n *NoopSink) CandidateResult(result string)                                   {}
func (n *NoopSink) OutcomeCompleted(outcomeType string, d time.Duration, err error) {}
func (n *NoopSink) OccurrencesInFlightIncr()                                        {}
func (n *NoopSink) OccurrencesInFlightDecr()                                        {}
func (n *NoopSink) BufferSizeUpdate(size int)                                       {}
func (n *NoopSink) EmitError()                                                      {}
