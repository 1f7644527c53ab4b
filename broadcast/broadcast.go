package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind distinguishes login from logout signals.
type Kind string

const (
	KindLogin  Kind = "login"
	KindLogout Kind = "logout"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("broadcast channel closed")

// Signal is a single cross-instance notification.
type Signal struct {
	Kind      Kind   `json:"kind"`
	Timestamp int64  `json:"ts"`
	Origin    string `json:"origin"`
}

// NewSignal stamps a signal with now.
func NewSignal(kind Kind, origin string, now time.Time) Signal {
	return Signal{Kind: kind, Timestamp: now.UnixMilli(), Origin: origin}
}

// Keys names the two signal slots.
type Keys struct {
	Login  string
	Logout string
}

// DefaultKeys returns the slot names used when none are configured.
func DefaultKeys() Keys {
	return Keys{Login: "auth-login-event", Logout: "auth-logout-event"}
}

func (k Keys) normalized() Keys {
	def := DefaultKeys()
	if k.Login == "" {
		k.Login = def.Login
	}
	if k.Logout == "" {
		k.Logout = def.Logout
	}
	return k
}

func (k Keys) forKind(kind Kind) (string, bool) {
	switch kind {
	case KindLogin:
		return k.Login, true
	case KindLogout:
		return k.Logout, true
	}
	return "", false
}

func (k Keys) kindFor(key string) (Kind, bool) {
	switch key {
	case k.Login:
		return KindLogin, true
	case k.Logout:
		return KindLogout, true
	}
	return "", false
}

// Channel publishes and delivers signals. The channel returned by Subscribe
// is closed when ctx ends or the Channel is closed.
type Channel interface {
	Publish(ctx context.Context, sig Signal) error
	Subscribe(ctx context.Context) (<-chan Signal, error)
	Close() error
}

func encodeSignal(sig Signal) ([]byte, error) {
	return json.Marshal(sig)
}

func decodeSignal(data []byte, want Kind) (Signal, bool) {
	var sig Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return Signal{}, false
	}
	// The slot decides the kind.
	sig.Kind = want
	return sig, true
}
