package goSession

import (
	internalmetrics "github.com/MrEthical07/goSession/internal/metrics"
)

// MetricID identifies a specific counter or histogram bucket in the
// in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts logins that installed a token pair.
	MetricLoginSuccess = MetricID(internalmetrics.MetricLoginSuccess)
	// MetricLoginFailure counts logins rejected for credentials, input or transport.
	MetricLoginFailure = MetricID(internalmetrics.MetricLoginFailure)
	// MetricLoginBlocked counts logins denied because the account is blocked.
	MetricLoginBlocked = MetricID(internalmetrics.MetricLoginBlocked)
	// MetricLoginRateLimited counts logins refused by the client-side throttle.
	MetricLoginRateLimited = MetricID(internalmetrics.MetricLoginRateLimited)
	// MetricRegisterSuccess counts accepted registrations.
	MetricRegisterSuccess = MetricID(internalmetrics.MetricRegisterSuccess)
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure = MetricID(internalmetrics.MetricRegisterFailure)
	// MetricRefreshSuccess counts refreshes that rotated the token pair.
	MetricRefreshSuccess = MetricID(internalmetrics.MetricRefreshSuccess)
	// MetricRefreshFailure counts refreshes that ended the session.
	MetricRefreshFailure = MetricID(internalmetrics.MetricRefreshFailure)
	// MetricRefreshCoalesced counts callers that joined an in-flight refresh.
	MetricRefreshCoalesced = MetricID(internalmetrics.MetricRefreshCoalesced)
	// MetricRefreshStaleDiscarded counts refresh results dropped after a logout.
	MetricRefreshStaleDiscarded = MetricID(internalmetrics.MetricRefreshStaleDiscarded)
	// MetricCheckAuthRun counts check-auth executions that reached storage.
	MetricCheckAuthRun = MetricID(internalmetrics.MetricCheckAuthRun)
	// MetricCheckAuthCoalesced counts callers that joined an in-flight check.
	MetricCheckAuthCoalesced = MetricID(internalmetrics.MetricCheckAuthCoalesced)
	// MetricLogout counts logouts, explicit or implicit.
	MetricLogout = MetricID(internalmetrics.MetricLogout)
	// MetricIdleTimeout counts sessions ended by inactivity.
	MetricIdleTimeout = MetricID(internalmetrics.MetricIdleTimeout)
	// MetricTimeoutWarning counts expiry warnings raised.
	MetricTimeoutWarning = MetricID(internalmetrics.MetricTimeoutWarning)
	// MetricAutoRefresh counts refreshes started by the periodic check.
	MetricAutoRefresh = MetricID(internalmetrics.MetricAutoRefresh)
	// MetricAccountStatusFailure counts swallowed account-status fetch failures.
	MetricAccountStatusFailure = MetricID(internalmetrics.MetricAccountStatusFailure)
	// MetricCrossTabLogin counts login signals received from other instances.
	MetricCrossTabLogin = MetricID(internalmetrics.MetricCrossTabLogin)
	// MetricCrossTabLogout counts logout signals received from other instances.
	MetricCrossTabLogout = MetricID(internalmetrics.MetricCrossTabLogout)
	// MetricRefreshLatency is the refresh round-trip latency histogram.
	MetricRefreshLatency = MetricID(internalmetrics.MetricRefreshLatency)
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
