package reconciler

import (
	"fmt"
	"net/netip"
	"time"

	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
)

// Outcome is how a cycle ended.
type Outcome string

const (
	// OutcomeUpToDate means the published record already held the current address.
	OutcomeUpToDate Outcome = metrics.OutcomeUpToDate
	// OutcomeUpdated means the record was changed to the current address.
	OutcomeUpdated Outcome = metrics.OutcomeUpdated
	// OutcomeDryRun means an update was needed but only logged.
	OutcomeDryRun Outcome = metrics.OutcomeDryRun
	// OutcomeFailed means the cycle stopped on an error.
	OutcomeFailed Outcome = metrics.OutcomeFailed
)

// Result holds the outcome of one reconciliation cycle.
type Result struct {
	// Record is the tracked record name.
	Record string `json:"record"`

	// StartTime is when the cycle started.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the cycle completed.
	EndTime time.Time `json:"end_time"`

	// CurrentAddress is the caller's public address, if it was resolved.
	CurrentAddress netip.Addr `json:"current_address,omitzero"`

	// PublishedAddress is the address the record resolved to, if it was resolved.
	PublishedAddress netip.Addr `json:"published_address,omitzero"`

	// Outcome is how the cycle ended.
	Outcome Outcome `json:"outcome"`

	// Error is the failure message when Outcome is OutcomeFailed.
	Error string `json:"error,omitempty"`

	// Fatal is set when the error means the target can never be updated.
	Fatal bool `json:"fatal,omitempty"`

	// DryRun indicates no provider mutation was allowed.
	DryRun bool `json:"dry_run"`
}

// NewResult creates a new Result with the start time set to now.
func NewResult(record string, dryRun bool) *Result {
	return &Result{
		Record:    record,
		StartTime: time.Now(),
		DryRun:    dryRun,
	}
}

// Complete marks the result as complete with the end time set to now.
func (r *Result) Complete(outcome Outcome) {
	r.Outcome = outcome
	r.EndTime = time.Now()
}

// Fail completes the result as failed.
func (r *Result) Fail(err error, fatal bool) {
	r.Error = err.Error()
	r.Fatal = fatal
	r.Complete(OutcomeFailed)
}

// Duration returns the cycle duration.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Changed reports whether the current and published addresses differ.
// False when either is unknown.
func (r *Result) Changed() bool {
	return r.CurrentAddress.IsValid() && r.PublishedAddress.IsValid() && r.CurrentAddress != r.PublishedAddress
}

// String returns a one-line summary.
func (r *Result) String() string {
	switch r.Outcome {
	case OutcomeUpToDate:
		return fmt.Sprintf("DNS record for %s (%s) is up to date", r.Record, r.PublishedAddress)
	case OutcomeUpdated:
		return fmt.Sprintf("DNS record for %s updated from %s to %s", r.Record, r.PublishedAddress, r.CurrentAddress)
	case OutcomeDryRun:
		return fmt.Sprintf("[dry-run] DNS record for %s would be updated from %s to %s", r.Record, r.PublishedAddress, r.CurrentAddress)
	case OutcomeFailed:
		return fmt.Sprintf("DNS record for %s: cycle failed: %s", r.Record, r.Error)
	default:
		return fmt.Sprintf("DNS record for %s: cycle in progress", r.Record)
	}
}
