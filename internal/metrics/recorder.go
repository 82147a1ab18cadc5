// Package metrics defines the observability hooks of the structuring
// service and a Prometheus implementation.
package metrics

import "time"

// Outcome labels for structured documents.
const (
	OutcomeWindowed = "windowed" // start marker found
	OutcomeWhole    = "whole"    // no start marker, whole stream used
	OutcomeEmpty    = "empty"    // no start marker, nothing structured
	OutcomeFailed   = "failed"   // adapter error
)

// Recorder receives structuring and ingestion events. Implementations must
// be safe for concurrent use.
type Recorder interface {
	ObserveStructure(format, outcome string, d time.Duration)
	AddSections(n int)
	AddDuplicatesDropped(n int)
	IncFetchRetry()
	IncJobOutcome(status string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStructure(string, string, time.Duration) {}
func (NoopRecorder) AddSections(int)                                {}
func (NoopRecorder) AddDuplicatesDropped(int)                       {}
func (NoopRecorder) IncFetchRetry()                                 {}
func (NoopRecorder) IncJobOutcome(string)                           {}
