package goSession

import (
	"errors"
	"log"
	"time"

	"github.com/MrEthical07/goSession/broadcast"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/google/uuid"
)

// Builder assembles a [Manager]. A Builder can be used for exactly one
// successful or failed Build.
type Builder struct {
	config Config

	client    AuthClient
	store     tokenstore.Store
	channel   broadcast.Channel
	mirror    *tokenstore.CookieMirror
	inspector *jwt.Inspector
	auditSink AuditSink
	logger    *log.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. It is validated by Build.
//
// WithConfig replaces the whole configuration; validation happens in Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithClient sets the auth API client. Required.
func (b *Builder) WithClient(client AuthClient) *Builder {
	b.client = client
	return b
}

// WithTokenStore sets durable token storage. Defaults to an in-memory store.
func (b *Builder) WithTokenStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

// WithBroadcaster sets the cross-instance signal channel. Without one, login
// and logout are not propagated.
func (b *Builder) WithBroadcaster(ch broadcast.Channel) *Builder {
	b.channel = ch
	return b
}

// WithCookieMirror sets the cookie mirror used when Storage.MirrorCookies is on.
func (b *Builder) WithCookieMirror(m *tokenstore.CookieMirror) *Builder {
	b.mirror = m
	return b
}

// WithTokenInspector sets the access-token claims reader. Defaults to an
// unverified inspector.
func (b *Builder) WithTokenInspector(in *jwt.Inspector) *Builder {
	b.inspector = in
	return b
}

// WithAuditSink sets where session audit events are delivered.
//
// Events reach the sink only when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to log.Default().
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters read by MetricsSnapshot.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram. It has no
// effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Manager. Call
// [Manager.Start] to run the timeout monitor and signal subscription.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if b.client == nil {
		return nil, errors.New("auth client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.MirrorCookies && b.mirror == nil {
		return nil, errors.New("Storage MirrorCookies requires a cookie mirror")
	}

	store := b.store
	if store == nil {
		store = tokenstore.NewMemoryStore()
	}

	inspector := b.inspector
	if inspector == nil {
		var err error
		inspector, err = jwt.NewInspector(jwt.Config{})
		if err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:     cfg,
		client:     b.client,
		store:      store,
		inspector:  inspector,
		logger:     logger,
		now:        now,
		instanceID: uuid.NewString(),
		initCh:     make(chan struct{}),
	}
	if cfg.Storage.MirrorCookies {
		m.mirror = b.mirror
	}
	if cfg.Broadcast.Enabled {
		m.channel = b.channel
	}
	m.limiter = rate.New(rate.Config{
		PerMinute: cfg.Security.LoginAttemptsPerMinute,
		Burst:     cfg.Security.LoginBurst,
	}, now)
	m.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Critical:   sessionEndingEvents,
	}, b.auditSink)
	m.metrics = NewMetrics(cfg.Metrics)

	return m, nil
}

// NewCookieMirror builds a cookie mirror for origin using the storage keys
// and cookie policy of cfg.
func NewCookieMirror(origin string, cfg Config) (*tokenstore.CookieMirror, error) {
	return tokenstore.NewCookieMirror(origin, tokenstore.CookieOptions{
		Keys:     TokenKeys(cfg),
		Secure:   cfg.Security.RequireSecureCookies,
		SameSite: cfg.Security.SameSitePolicy,
		Path:     cfg.Security.CookiePath,
	})
}

// TokenKeys returns the storage slot names configured in cfg, for building
// a tokenstore backend that matches the Manager.
func TokenKeys(cfg Config) tokenstore.Keys {
	return tokenstore.Keys{
		Access:  cfg.Storage.AccessTokenKey,
		Refresh: cfg.Storage.RefreshTokenKey,
	}
}

// SignalKeys returns the broadcast slot names configured in cfg.
func SignalKeys(cfg Config) broadcast.Keys {
	return broadcast.Keys{
		Login:  cfg.Broadcast.LoginSignalKey,
		Logout: cfg.Broadcast.LogoutSignalKey,
	}
}

func cloneConfig(cfg Config) Config {
	// Config holds only value fields.
	return cfg
}
