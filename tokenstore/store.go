package tokenstore

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnavailable wraps backend failures (network, disk, database).
	ErrUnavailable = errors.New("token store unavailable")
	// ErrCorrupt is returned when persisted data cannot be decoded.
	ErrCorrupt = errors.New("token store data corrupt")
)

// Tokens is the persisted pair. An empty field means the key is absent.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is held.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Keys names the two storage slots.
type Keys struct {
	Access  string
	Refresh string
}

// DefaultKeys returns the slot names used when none are configured.
func DefaultKeys() Keys {
	return Keys{Access: "accessToken", Refresh: "refreshToken"}
}

func (k Keys) normalized() Keys {
	def := DefaultKeys()
	if strings.TrimSpace(k.Access) == "" {
		k.Access = def.Access
	}
	if strings.TrimSpace(k.Refresh) == "" {
		k.Refresh = def.Refresh
	}
	return k
}

// Store is durable token storage. Save replaces both slots at once; an
// empty field removes that slot. Load on an empty store returns zero Tokens
// and a nil error. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}
