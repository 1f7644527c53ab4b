package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the verification algorithm.
type SigningMethod string

const (
	// MethodNone decodes claims without verifying the signature.
	MethodNone SigningMethod = ""
	// MethodEd25519 verifies EdDSA signatures with a public key.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 verifies HMAC-SHA256 signatures with a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry claim")

// Config configures an [Inspector].
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	PublicKey     []byte
	VerifyKeys    map[string][]byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AccessClaims are the claims an access token is expected to carry. Only
// the registered claims are required; the rest are informational.
type AccessClaims struct {
	UID      string `json:"uid,omitempty"`
	Role     string `json:"role,omitempty"`
	UserType string `json:"utype,omitempty"`
	jwt.RegisteredClaims
}

// Inspector decodes access tokens.
type Inspector struct {
	config Config
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodNone:
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires secret")
		}
	case MethodEd25519:
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Inspector{config: cfg}, nil
}

// Inspect decodes tokenStr. In MethodNone mode the signature is not checked
// and an expired token still decodes; callers compare the expiry themselves.
func (i *Inspector) Inspect(tokenStr string) (*AccessClaims, error) {
	if tokenStr == "" {
		return nil, jwt.ErrTokenMalformed
	}
	if i == nil || i.config.SigningMethod == MethodNone {
		claims := &AccessClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &AccessClaims{}, i.keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenStr.
func (i *Inspector) ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := i.Inspect(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

func (i *Inspector) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != i.method().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	if i.config.SigningMethod == MethodHS256 {
		return i.config.Secret, nil
	}
	if len(i.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		key, ok := i.config.VerifyKeys[kid]
		if !ok {
			if kid == "" && len(i.config.PublicKey) > 0 {
				return parseEdPublicKey(i.config.PublicKey)
			}
			return nil, errors.New("unknown kid")
		}
		return parseEdPublicKey(key)
	}
	return parseEdPublicKey(i.config.PublicKey)
}

func (i *Inspector) method() jwt.SigningMethod {
	if i.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
