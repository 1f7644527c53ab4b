package flows

// Access levels as reported by the auth API.
const (
	LevelNone        = "NO_ACCESS"
	LevelProfileOnly = "PROFILE_ONLY"
	LevelLimited     = "LIMITED"
	LevelFull        = "FULL"
)

// Account statuses that influence access derivation.
const (
	StatusInactive  = "INACTIVE"
	StatusPending   = "PENDING"
	StatusRejected  = "REJECTED"
	StatusSuspended = "SUSPENDED"
)

// AccessFlags are the access hints carried by a login reply.
type AccessFlags struct {
	AccessDenied              bool
	FullAccess                bool
	LimitedAccess             bool
	ProfileAccess             bool
	RequiresProfileCompletion bool
	AccountStatus             string
}

// DeriveLoginAccess maps login flags onto an access level. Explicit flags
// win in the order denied, full, limited, profile; otherwise the reported
// account status decides. Without either the client grants nothing and
// waits for the server's account-status level.
func DeriveLoginAccess(f AccessFlags) string {
	switch {
	case f.AccessDenied:
		return LevelNone
	case f.FullAccess:
		return LevelFull
	case f.LimitedAccess:
		return LevelLimited
	case f.ProfileAccess || f.RequiresProfileCompletion:
		return LevelProfileOnly
	}
	if f.AccountStatus == StatusInactive {
		return LevelProfileOnly
	}
	return LevelNone
}

// HasAccessFlag reports whether the login reply named an access level
// itself. When it did not, the level must be fetched from the server.
func HasAccessFlag(f AccessFlags) bool {
	return f.AccessDenied || f.FullAccess || f.LimitedAccess || f.ProfileAccess || f.RequiresProfileCompletion
}

// ParseAccessLevel accepts a server access level string; anything unknown
// becomes NO_ACCESS.
func ParseAccessLevel(s string) string {
	switch s {
	case LevelFull, LevelLimited, LevelProfileOnly, LevelNone:
		return s
	}
	return LevelNone
}

// RedirectFor picks the post-login destination.
func RedirectFor(level, home, profileCompletion string) string {
	if level == LevelProfileOnly {
		return profileCompletion
	}
	return home
}
