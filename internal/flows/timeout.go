package flows

import "time"

// TickInput is the session state a periodic check looks at.
type TickInput struct {
	Now           time.Time
	Authenticated bool
	LastActivity  time.Time
	ExpiresAt     time.Time
	WarningShown  bool

	IdleTimeout          time.Duration
	WarningThreshold     time.Duration
	AutoRefreshThreshold time.Duration
}

// TickDecision lists what a periodic check must do. Logout excludes the
// other two.
type TickDecision struct {
	Logout  bool
	Warn    bool
	Refresh bool
}

// EvaluateTick applies idle timeout first, then the warning and auto-refresh
// thresholds against the time left on the access token. An already expired
// token is not refreshed here.
func EvaluateTick(in TickInput) TickDecision {
	if !in.Authenticated {
		return TickDecision{}
	}
	if in.IdleTimeout > 0 && !in.LastActivity.IsZero() && in.Now.Sub(in.LastActivity) >= in.IdleTimeout {
		return TickDecision{Logout: true}
	}
	if in.ExpiresAt.IsZero() {
		return TickDecision{}
	}

	var d TickDecision
	remaining := in.ExpiresAt.Sub(in.Now)
	if remaining <= in.WarningThreshold && !in.WarningShown {
		d.Warn = true
	}
	if remaining > 0 && remaining <= in.AutoRefreshThreshold {
		d.Refresh = true
	}
	return d
}

// ExtendNeedsRefresh reports whether an explicit extend should perform a
// real refresh rather than only touching last activity.
func ExtendNeedsRefresh(now, expiresAt time.Time, warningThreshold time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return expiresAt.Sub(now) <= warningThreshold
}
