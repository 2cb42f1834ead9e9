package metrics

import "time"

// Outcome labels the result of one rebuild pass.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeWriteFailed Outcome = "write_failed"
	OutcomeFailed      Outcome = "failed"
)

// SkipReason labels why a member or directory contributed nothing.
type SkipReason string

const (
	SkipSelf              SkipReason = "self"
	SkipMissing           SkipReason = "missing"
	SkipHidden            SkipReason = "hidden"
	SkipUnreadable        SkipReason = "unreadable"
	SkipMalformedBundle   SkipReason = "malformed_bundle"
	SkipMalformedManifest SkipReason = "malformed_manifest"
	SkipInvalidName       SkipReason = "invalid_name"
	SkipCycle             SkipReason = "cycle"
)

// Recorder defines observability hooks for the rebuild pipeline.
type Recorder interface {
	ObserveRebuildDuration(d time.Duration)
	IncRebuildOutcome(outcome Outcome)
	SetDeckSize(slides, fragments int)
	IncChange(kind string)
	IncSkipped(reason SkipReason)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRebuildDuration(time.Duration) {}
func (NoopRecorder) IncRebuildOutcome(Outcome)            {}
func (NoopRecorder) SetDeckSize(int, int)                 {}
func (NoopRecorder) IncChange(string)                     {}
func (NoopRecorder) IncSkipped(SkipReason)                {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
