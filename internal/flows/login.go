package flows

import "errors"

// LoginFailureKind classifies login outcomes for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureBlocked
	LoginFailureRejected
	LoginFailureTransport
	LoginFailureIncomplete
)

// LoginReply is the flow-local view of a login response.
type LoginReply struct {
	Message      string
	HasUser      bool
	AccessToken  string
	RefreshToken string
	Flags        AccessFlags
}

// LoginDecision is what the Manager applies after a login call.
type LoginDecision struct {
	Failure       LoginFailureKind
	Message       string
	AccessLevel   string
	AccountStatus string
	// NeedsStatus is set when the reply carried no access flag, so the
	// granted level is only known after an account-status fetch.
	NeedsStatus bool
}

// Generic messages shown when the server gave none.
const (
	MsgTransport        = "Unable to reach the authentication service. Please try again."
	MsgInvalidLogin     = "Invalid email or password"
	MsgAccessDenied     = "Access denied"
	MsgIncompleteLogin  = "Login response was incomplete"
	MsgLoginSuccess     = "Login successful"
	MsgRegisterFailed   = "Registration failed"
	MsgRegisterReceived = "Registration received"
)

// ClassifyLogin decides the login outcome. apiMessage reports whether err is
// a server-side rejection and, if so, its display message.
func ClassifyLogin(reply *LoginReply, err error, apiMessage func(error) (string, bool)) LoginDecision {
	if err != nil {
		if msg, ok := apiMessage(err); ok {
			return LoginDecision{Failure: LoginFailureRejected, Message: orDefault(msg, MsgInvalidLogin)}
		}
		return LoginDecision{Failure: LoginFailureTransport, Message: MsgTransport}
	}
	if reply == nil {
		return LoginDecision{Failure: LoginFailureIncomplete, Message: MsgIncompleteLogin}
	}

	if reply.Flags.AccessDenied {
		return LoginDecision{
			Failure:       LoginFailureBlocked,
			Message:       orDefault(reply.Message, MsgAccessDenied),
			AccessLevel:   LevelNone,
			AccountStatus: reply.Flags.AccountStatus,
		}
	}

	if !reply.HasUser || reply.AccessToken == "" {
		return LoginDecision{Failure: LoginFailureIncomplete, Message: MsgIncompleteLogin}
	}

	return LoginDecision{
		Failure:       LoginFailureNone,
		Message:       orDefault(reply.Message, MsgLoginSuccess),
		AccessLevel:   DeriveLoginAccess(reply.Flags),
		AccountStatus: reply.Flags.AccountStatus,
		NeedsStatus:   !HasAccessFlag(reply.Flags),
	}
}

// RefreshFailureKind classifies refresh outcomes. Every failure ends the
// session; the kind only drives metrics and audit.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureNoToken
	RefreshFailureRejected
	RefreshFailureTransport
	RefreshFailureIncomplete
	RefreshFailureStale
)

// ErrIncompleteReply is used when a reply lacks required fields.
var ErrIncompleteReply = errors.New("incomplete auth api reply")

// ClassifyRefresh decides a refresh outcome from the call result.
func ClassifyRefresh(accessToken, refreshToken string, err error, apiMessage func(error) (string, bool)) RefreshFailureKind {
	if err != nil {
		if _, ok := apiMessage(err); ok {
			return RefreshFailureRejected
		}
		return RefreshFailureTransport
	}
	if accessToken == "" || refreshToken == "" {
		return RefreshFailureIncomplete
	}
	return RefreshFailureNone
}

// String names the failure for audit metadata.
func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureNoToken:
		return "no_refresh_token"
	case RefreshFailureRejected:
		return "rejected"
	case RefreshFailureTransport:
		return "transport"
	case RefreshFailureIncomplete:
		return "incomplete"
	case RefreshFailureStale:
		return "stale"
	}
	return "unknown"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
