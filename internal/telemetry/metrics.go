package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/hrms"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session metrics
	SessionTransitionsTotal metric.Int64Counter
	SessionRestoreTotal     metric.Int64Counter
	StaleResultsDiscarded   metric.Int64Counter

	// Login metrics
	LoginAttemptsTotal metric.Int64Counter
	LoginFailuresTotal metric.Int64Counter
	LoginDuration      metric.Float64Histogram

	// Background call metrics
	BackgroundFailuresTotal metric.Int64Counter

	// Resource access metrics
	UnauthorizedTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments. Instruments made
// from the global provider before InitTelemetry runs are delegated to the
// real provider once it is installed.
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.SessionTransitionsTotal, _ = meter.Int64Counter(
		"hrms.session.transitions.total",
		metric.WithDescription("Total number of session state transitions, by target phase"),
		metric.WithUnit("{transition}"),
	)

	m.SessionRestoreTotal, _ = meter.Int64Counter(
		"hrms.session.restore.total",
		metric.WithDescription("Total number of session restores, by source and outcome"),
		metric.WithUnit("{restore}"),
	)

	m.StaleResultsDiscarded, _ = meter.Int64Counter(
		"hrms.session.stale_results.discarded.total",
		metric.WithDescription("Total number of operation results dropped because a newer operation started"),
		metric.WithUnit("{result}"),
	)

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"hrms.login.attempts.total",
		metric.WithDescription("Total number of login attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"hrms.login.failures.total",
		metric.WithDescription("Total number of failed logins, by error kind"),
		metric.WithUnit("{failure}"),
	)

	m.LoginDuration, _ = meter.Float64Histogram(
		"hrms.login.duration",
		metric.WithDescription("Duration of login calls"),
		metric.WithUnit("ms"),
	)

	m.BackgroundFailuresTotal, _ = meter.Int64Counter(
		"hrms.session.background_failures.total",
		metric.WithDescription("Total number of swallowed failures from background validation and logout calls"),
		metric.WithUnit("{failure}"),
	)

	m.UnauthorizedTotal, _ = meter.Int64Counter(
		"hrms.resources.unauthorized.total",
		metric.WithDescription("Total number of resource calls rejected with 401"),
		metric.WithUnit("{response}"),
	)

	return m
}
