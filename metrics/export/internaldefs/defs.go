package internaldefs

import (
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that installed a token pair."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins rejected for credentials, input or transport."},
	{ID: goSession.MetricLoginBlocked, Name: "gosession_login_blocked_total", Help: "Logins denied because the account is blocked."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins refused by the client-side throttle."},
	{ID: goSession.MetricRegisterSuccess, Name: "gosession_register_success_total", Help: "Accepted registrations."},
	{ID: goSession.MetricRegisterFailure, Name: "gosession_register_failure_total", Help: "Rejected registrations."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Refreshes that rotated the token pair."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refreshes that ended the session."},
	{ID: goSession.MetricRefreshCoalesced, Name: "gosession_refresh_coalesced_total", Help: "Callers that joined an in-flight refresh."},
	{ID: goSession.MetricRefreshStaleDiscarded, Name: "gosession_refresh_stale_discarded_total", Help: "Refresh results dropped because the session moved on."},
	{ID: goSession.MetricCheckAuthRun, Name: "gosession_check_auth_run_total", Help: "Session checks that reached storage."},
	{ID: goSession.MetricCheckAuthCoalesced, Name: "gosession_check_auth_coalesced_total", Help: "Callers that joined an in-flight session check."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts, explicit or implicit."},
	{ID: goSession.MetricIdleTimeout, Name: "gosession_idle_timeout_total", Help: "Sessions ended by inactivity."},
	{ID: goSession.MetricTimeoutWarning, Name: "gosession_timeout_warning_total", Help: "Expiry warnings raised."},
	{ID: goSession.MetricAutoRefresh, Name: "gosession_auto_refresh_total", Help: "Refreshes started by the periodic check."},
	{ID: goSession.MetricAccountStatusFailure, Name: "gosession_account_status_failure_total", Help: "Swallowed account-status fetch failures."},
	{ID: goSession.MetricCrossTabLogin, Name: "gosession_remote_login_total", Help: "Login signals received from other instances."},
	{ID: goSession.MetricCrossTabLogout, Name: "gosession_remote_logout_total", Help: "Logout signals received from other instances."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh round-trip latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// Session state gauges, read from the manager's Snapshot at collection time.
const (
	SessionAuthenticatedName = "gosession_session_authenticated"
	SessionWarningName       = "gosession_session_timeout_warning"
	SessionAccessLevelName   = "gosession_session_access_level"
	SessionExpiresInName     = "gosession_session_expires_in_seconds"

	SessionAuthenticatedHelp = "1 while a user and access token are held."
	SessionWarningHelp       = "1 while the expiry warning is showing."
	SessionAccessLevelHelp   = "1 for the granted access level, 0 for the others."
	SessionExpiresInHelp     = "Seconds until the access token expires, 0 when signed out."

	// AccessLevelLabel labels the access level gauge.
	AccessLevelLabel = "level"
)

// AccessLevels lists the exported access levels from least to most
// privileged.
var AccessLevels = []goSession.AccessLevel{
	goSession.AccessNone,
	goSession.AccessProfileOnly,
	goSession.AccessLimited,
	goSession.AccessFull,
}

// SessionGauges is a snapshot reduced to gauge values.
type SessionGauges struct {
	Authenticated int64
	Warning       int64
	Level         goSession.AccessLevel
	ExpiresIn     float64
}

// SessionGaugesFrom reduces s as seen at now. An unknown access level
// reports as NO_ACCESS.
func SessionGaugesFrom(s goSession.Snapshot, now time.Time) SessionGauges {
	g := SessionGauges{Level: goSession.ParseAccessLevel(string(s.AccessLevel))}
	if s.IsAuthenticated {
		g.Authenticated = 1
		if !s.TokenExpiresAt.IsZero() {
			if left := s.TokenExpiresAt.Sub(now).Seconds(); left > 0 {
				g.ExpiresIn = left
			}
		}
	}
	if s.SessionTimeoutWarning {
		g.Warning = 1
	}
	return g
}

// LevelValue is 1 when level is the granted one.
func (g SessionGauges) LevelValue(level goSession.AccessLevel) int64 {
	if g.Level == level {
		return 1
	}
	return 0
}

// HistogramBounds are the upper bounds of the core buckets, as Prometheus
// le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are HistogramBounds as seconds, without +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix are HistogramBounds usable inside instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight core buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
