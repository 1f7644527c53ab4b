package goSession

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginBlocked         = "login_blocked"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshFailure       = "refresh_failure"
	auditEventLogout               = "logout"
	auditEventIdleTimeout          = "idle_timeout"
	auditEventTimeoutWarning       = "timeout_warning"
	auditEventAccountStatusFailure = "account_status_failure"
	auditEventRemoteLogin          = "remote_login"
	auditEventRemoteLogout         = "remote_logout"
)

// sessionEndingEvents are never dropped by the audit dispatcher.
var sessionEndingEvents = []string{
	auditEventLoginBlocked,
	auditEventRefreshFailure,
	auditEventLogout,
	auditEventIdleTimeout,
	auditEventRemoteLogout,
}
