// Package telemetry provides Prometheus-based run metrics for write-translations
// and their export to the node exporter textfile format.
package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrNotConfigured is returned when metrics are exported before
// ConfigureTelemetry was called.
var ErrNotConfigured = errors.New("telemetry is not configured")

//nolint:gochecknoglobals // Package-level registry and metrics required by Prometheus
var (
	registry *prometheus.Registry

	// FilesScannedTotal counts the source files handed to the scanner.
	FilesScannedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translations_files_scanned_total",
			Help: "Total number of source files scanned for translations",
		},
	)

	// ScanCacheHitsTotal counts source files served from the scan cache.
	ScanCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translations_scan_cache_hits_total",
			Help: "Total number of source files served from the scan cache",
		},
	)

	// EntriesExtractedTotal counts the unique entries extracted from sources.
	EntriesExtractedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "translations_entries_extracted_total",
			Help: "Total number of unique translation entries extracted from sources",
		},
	)

	// ScanIssuesTotal counts scanner diagnostics and id conflicts.
	ScanIssuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_scan_issues_total",
			Help: "Total number of scan warnings by kind",
		},
		[]string{"kind"},
	)

	// MergeEntriesTotal counts merge outcomes per catalog.
	MergeEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_merge_entries_total",
			Help: "Total number of catalog entries by merge outcome",
		},
		[]string{"domain", "outcome"},
	)

	// CatalogWritesTotal counts catalog write results.
	CatalogWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_catalog_writes_total",
			Help: "Total number of catalog writes by status",
		},
		[]string{"status"},
	)

	// PhaseDurationSeconds measures the duration of each pipeline phase.
	PhaseDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translations_phase_duration_seconds",
			Help:    "Duration of write-translations phases in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
)

// ConfigureTelemetry initializes the telemetry registry and registers the provided collectors.
// If useDefaultRegistry is true, uses the default Prometheus registry; otherwise creates a new one.
func ConfigureTelemetry(useDefaultRegistry bool, collectors ...prometheus.Collector) {
	if useDefaultRegistry {
		var ok bool
		registry, ok = prometheus.DefaultRegisterer.(*prometheus.Registry)
		if !ok {
			registry = prometheus.NewRegistry()
		}
	} else {
		registry = prometheus.NewRegistry()
	}

	if len(collectors) > 0 {
		registry.MustRegister(collectors...)
	} else {
		registry.MustRegister(
			FilesScannedTotal,
			ScanCacheHitsTotal,
			EntriesExtractedTotal,
			ScanIssuesTotal,
			MergeEntriesTotal,
			CatalogWritesTotal,
			PhaseDurationSeconds,
		)
	}
}

// Registry returns the configured registry, or nil.
func Registry() *prometheus.Registry {
	return registry
}

// ObservePhase records how long a pipeline phase took. Use it as
// `defer telemetry.ObservePhase("scan")()`.
func ObservePhase(phase string) func() {
	timer := prometheus.NewTimer(PhaseDurationSeconds.WithLabelValues(phase))
	return func() { timer.ObserveDuration() }
}

// WriteToTextfile writes the configured registry to path in the text
// exposition format, replacing the file atomically.
func WriteToTextfile(path string) error {
	if registry == nil {
		return ErrNotConfigured
	}
	return prometheus.WriteToTextfile(path, registry)
}
