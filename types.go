package goSession

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
)

// AccountStatus is the server-authoritative lifecycle stage of an account.
// It is independent of whether the current access token is valid.
type AccountStatus string

const (
	AccountActive            AccountStatus = "ACTIVE"
	AccountInactive          AccountStatus = "INACTIVE"
	AccountPending           AccountStatus = "PENDING"
	AccountPendingValidation AccountStatus = "PENDING_VALIDATION"
	AccountRejected          AccountStatus = "REJECTED"
	AccountSuspended         AccountStatus = "SUSPENDED"
)

// Blocked reports whether the status denies every kind of access.
func (s AccountStatus) Blocked() bool {
	switch s {
	case AccountPending, AccountRejected, AccountSuspended:
		return true
	}
	return false
}

// ValidationStatus tracks the separate profile/identity verification step.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "PENDING"
	ValidationValidated ValidationStatus = "VALIDATED"
	ValidationRejected  ValidationStatus = "REJECTED"
)

// AccessLevel is the coarse gate controlling which parts of the application
// a session may reach. It is only ever taken from server responses.
type AccessLevel string

const (
	AccessNone        AccessLevel = "NO_ACCESS"
	AccessProfileOnly AccessLevel = "PROFILE_ONLY"
	AccessLimited     AccessLevel = "LIMITED"
	AccessFull        AccessLevel = "FULL"
)

// ParseAccessLevel maps a server string onto an AccessLevel. Unknown values
// map to AccessNone so a malformed response can never widen access.
func ParseAccessLevel(s string) AccessLevel {
	switch AccessLevel(s) {
	case AccessFull, AccessLimited, AccessProfileOnly, AccessNone:
		return AccessLevel(s)
	}
	return AccessNone
}

// Role is the role record attached to a user.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the identity record held by the session. It is replaced wholesale
// on every successful profile fetch or refresh.
type User struct {
	ID               string           `json:"id"`
	Name             string           `json:"name,omitempty"`
	Email            string           `json:"email,omitempty"`
	Role             Role             `json:"role"`
	Permissions      []string         `json:"permissions,omitempty"`
	UserType         string           `json:"userType,omitempty"`
	AccountStatus    AccountStatus    `json:"accountStatus,omitempty"`
	ValidationStatus ValidationStatus `json:"validationStatus,omitempty"`
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Permissions != nil {
		out.Permissions = append([]string(nil), u.Permissions...)
	}
	return &out
}

// Credentials is the input for [Manager.Login].
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterInput is the input for [Manager.Register].
type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// LoginResult describes the outcome of [Manager.Login].
type LoginResult struct {
	Success       bool
	Error         string
	Message       string
	RedirectTo    string
	AccessLevel   AccessLevel
	AccountStatus AccountStatus
}

// RegisterResult describes the outcome of [Manager.Register]. A successful
// registration never authenticates the caller.
type RegisterResult struct {
	Success       bool
	Error         string
	Message       string
	AccountStatus AccountStatus
	NextSteps     []string
}

// AccountStatusInfo is the payload of the account-status endpoint.
type AccountStatusInfo struct {
	AccountStatus    AccountStatus    `json:"accountStatus"`
	ValidationStatus ValidationStatus `json:"validationStatus"`
	AccessLevel      string           `json:"accessLevel"`
	Requirements     []string         `json:"requirements,omitempty"`
	HasBlueCheckmark bool             `json:"hasBlueCheckmark"`
}

// LoginResponse is the payload of the login endpoint.
type LoginResponse struct {
	AccessDenied              bool          `json:"accessDenied,omitempty"`
	Message                   string        `json:"message,omitempty"`
	AccountStatus             AccountStatus `json:"accountStatus,omitempty"`
	User                      *User         `json:"user,omitempty"`
	AccessToken               string        `json:"accessToken,omitempty"`
	RefreshToken              string        `json:"refreshToken,omitempty"`
	ExpiresIn                 int64         `json:"expiresIn,omitempty"`
	FullAccess                bool          `json:"fullAccess,omitempty"`
	LimitedAccess             bool          `json:"limitedAccess,omitempty"`
	ProfileAccess             bool          `json:"profileAccess,omitempty"`
	RequiresProfileCompletion bool          `json:"requiresProfileCompletion,omitempty"`
}

// RegisterRequest is sent to the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is the payload of the register endpoint.
type RegisterResponse struct {
	AccountStatus AccountStatus `json:"accountStatus"`
	Message       string        `json:"message,omitempty"`
	NextSteps     []string      `json:"nextSteps,omitempty"`
}

// RefreshResponse is the payload of the refresh endpoint.
type RefreshResponse struct {
	User         *User  `json:"user,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// AuthClient is the auth API consumed by the Manager. Implementations return
// an [*APIError] when the server answered with a rejection; any other error
// is treated as a transport failure.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, accessToken string) (*User, error)
	GetAccountStatus(ctx context.Context, accessToken string) (*AccountStatusInfo, error)
}

// Snapshot is a point-in-time copy of the session, safe to read without
// holding any lock.
type Snapshot struct {
	User                  *User
	IsAuthenticated       bool
	AccessToken           string
	HasRefreshToken       bool
	TokenExpiresAt        time.Time
	LastActivity          time.Time
	AccountStatus         AccountStatus
	ValidationStatus      ValidationStatus
	AccessLevel           AccessLevel
	Requirements          []string
	HasBlueCheckmark      bool
	SessionTimeoutWarning bool
	IsLoading             bool
	IsInitialized         bool
	Error                 string
	// BlockingError is non-empty when the session could not be settled,
	// for example unreadable storage. A failed login never sets it.
	BlockingError string
}

// AuditEvent is a structured audit record emitted by the manager.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the manager's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
