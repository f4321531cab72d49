// Package metrics provides Prometheus metrics for dyndns.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "dyndns"

// Cycle outcomes, used as the "outcome" label.
const (
	OutcomeUpToDate = "up_to_date"
	OutcomeUpdated  = "updated"
	OutcomeDryRun   = "dry_run"
	OutcomeFailed   = "failed"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// BuildInfo is always 1, labelled with version information.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version", "go_version"})

	// CyclesTotal counts reconciliation cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cycles_total",
		Help:      "Reconciliation cycles by outcome.",
	}, []string{"outcome"})

	// CycleDuration observes how long each cycle took.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of reconciliation cycles.",
		Buckets:   prometheus.DefBuckets,
	})

	// DNSLookupsTotal counts lookups by which address was queried.
	DNSLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "dns_lookups_total",
		Help:      "DNS lookups by kind (current, published) and status.",
	}, []string{"kind", "status"})

	// VaultLoginsTotal counts secret store logins.
	VaultLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "vault_logins_total",
		Help:      "Vault Kubernetes auth logins by status.",
	}, []string{"status"})

	// RecordUpdatesTotal counts provider update calls.
	RecordUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "record_updates_total",
		Help:      "DNS record updates by provider and status.",
	}, []string{"provider", "status"})

	// LastSuccessTimestamp is the Unix time of the last cycle that did not fail.
	LastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful reconciliation cycle.",
	})
)

// SetBuildInfo publishes the build information gauge.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveCycle records a finished cycle.
func ObserveCycle(outcome string, duration time.Duration, end time.Time) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	CycleDuration.Observe(duration.Seconds())
	if outcome != OutcomeFailed {
		LastSuccessTimestamp.Set(float64(end.Unix()))
	}
}

// ObserveLookup records one DNS lookup.
func ObserveLookup(kind string, err error) {
	DNSLookupsTotal.WithLabelValues(kind, status(err)).Inc()
}

// ObserveLogin records one Vault login attempt.
func ObserveLogin(err error) {
	VaultLoginsTotal.WithLabelValues(status(err)).Inc()
}

// ObserveUpdate records one provider update call.
func ObserveUpdate(provider string, err error) {
	RecordUpdatesTotal.WithLabelValues(provider, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
