package goSession

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/broadcast"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/permission"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Manager owns one client session: its identity, token pair, access level
// and timeout state. All methods are safe for concurrent use.
type Manager struct {
	config     Config
	client     AuthClient
	store      tokenstore.Store
	mirror     *tokenstore.CookieMirror
	channel    broadcast.Channel
	inspector  *jwt.Inspector
	limiter    *rate.Limiter
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *log.Logger
	now        func() time.Time
	instanceID string

	// mu guards st and gen. Token store writes happen while it is held so
	// memory and storage never disagree to an observer.
	mu  sync.RWMutex
	st  sessionState
	gen uint64

	initCh   chan struct{}
	initOnce sync.Once

	refreshGroup singleflight.Group
	checkGroup   singleflight.Group

	// bg tracks fire-and-forget follow-ups.
	bg sync.WaitGroup

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	loops       sync.WaitGroup
	closed      bool
}

type sessionState struct {
	user             *User
	perms            permission.Set
	accessToken      string
	refreshToken     string
	expiresAt        time.Time
	lastActivity     time.Time
	accountStatus    AccountStatus
	validationStatus ValidationStatus
	accessLevel      AccessLevel
	requirements     []string
	hasBlueCheckmark bool
	warning          bool
	loading          int
	initialized      bool
	rehydrate        bool
	err              string
	// blockingErr is set only when the session could not be settled at
	// all. Guards show the retry panel for it; err is for display.
	blockingErr string
}

func (s *sessionState) authenticated() bool {
	return s.user != nil && s.accessToken != ""
}

func (s *sessionState) setUser(u *User) {
	s.user = u.clone()
	if s.user == nil {
		s.perms = permission.Set{}
		return
	}
	s.perms = permission.NewSet(s.user.Permissions)
}

// InstanceID identifies this Manager in broadcast signals and audit events.
func (m *Manager) InstanceID() string {
	if m == nil {
		return ""
	}
	return m.instanceID
}

// State returns a copy of the session.
func (m *Manager) State() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.st
	snap := Snapshot{
		User:                  s.user.clone(),
		IsAuthenticated:       s.authenticated(),
		AccessToken:           s.accessToken,
		HasRefreshToken:       s.refreshToken != "",
		TokenExpiresAt:        s.expiresAt,
		LastActivity:          s.lastActivity,
		AccountStatus:         s.accountStatus,
		ValidationStatus:      s.validationStatus,
		AccessLevel:           s.accessLevel,
		HasBlueCheckmark:      s.hasBlueCheckmark,
		SessionTimeoutWarning: s.warning,
		IsLoading:             s.loading > 0,
		IsInitialized:         s.initialized,
		Error:                 s.err,
		BlockingError:         s.blockingErr,
	}
	if s.requirements != nil {
		snap.Requirements = append([]string(nil), s.requirements...)
	}
	return snap
}

// ClearError drops the current display error and any blocking error.
func (m *Manager) ClearError() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.st.err = ""
	m.st.blockingErr = ""
	m.mu.Unlock()
}

// WaitInitialized blocks until the first check or login has settled the
// session, or ctx ends.
func (m *Manager) WaitInitialized(ctx context.Context) error {
	if m == nil {
		return ErrManagerNotReady
	}
	select {
	case <-m.initCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the timeout monitor and the broadcast subscription until ctx
// ends or Close is called. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	if m == nil {
		return ErrManagerNotReady
	}
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.closed {
		return ErrManagerNotReady
	}
	if m.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if m.channel != nil {
		signals, err := m.channel.Subscribe(runCtx)
		if err != nil {
			cancel()
			return err
		}
		m.loops.Add(1)
		go m.consumeSignals(runCtx, signals)
	}
	if m.config.Timeout.Enabled {
		m.loops.Add(1)
		go m.monitor(runCtx)
	}
	m.cancel = cancel
	return nil
}

// Close stops background loops, waits for pending follow-ups and drains the
// audit dispatcher. The broadcast channel and token store are not closed.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.lifecycleMu.Lock()
	if m.closed {
		m.lifecycleMu.Unlock()
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	m.lifecycleMu.Unlock()

	m.loops.Wait()
	m.bg.Wait()
	if m.audit != nil {
		m.audit.Close()
	}
}

// track registers one unit of background work. It refuses once Close has
// begun so that bg.Wait never races a new Add.
func (m *Manager) track() bool {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.closed {
		return false
	}
	m.bg.Add(1)
	return true
}

// goTracked runs fn in the background unless the Manager is closing.
func (m *Manager) goTracked(fn func()) {
	if !m.track() {
		return
	}
	go func() {
		defer m.bg.Done()
		fn()
	}()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process metrics.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

func (m *Manager) warn(format string, args ...any) {
	m.logger.Printf(format, args...)
}

func (m *Manager) emitAudit(ctx context.Context, eventType string, success bool, userID string, err error, metadata func() map[string]string) {
	if m.audit == nil {
		return
	}
	m.mu.RLock()
	gen, level := m.gen, m.st.accessLevel
	m.mu.RUnlock()
	event := AuditEvent{
		ID:          uuid.NewString(),
		Timestamp:   m.now(),
		EventType:   eventType,
		InstanceID:  m.instanceID,
		Generation:  gen,
		UserID:      userID,
		AccessLevel: string(level),
		Success:     success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	m.audit.Emit(ctx, event)
}

// requestContext detaches from the caller's cancellation so a coalesced
// operation is not aborted by whichever caller started it.
func (m *Manager) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), m.config.Requests.Timeout)
}

func (m *Manager) markInitializedLocked() {
	m.st.initialized = true
	m.initOnce.Do(func() { close(m.initCh) })
}

func (m *Manager) beginLoading() {
	m.mu.Lock()
	m.st.loading++
	m.mu.Unlock()
}

func (m *Manager) endLoading() {
	m.mu.Lock()
	if m.st.loading > 0 {
		m.st.loading--
	}
	m.mu.Unlock()
}

// persistLocked writes the pair to the store and the cookie mirror. Callers
// hold m.mu and update memory only when it succeeds.
func (m *Manager) persistLocked(ctx context.Context, tokens tokenstore.Tokens) error {
	sctx, cancel := m.requestContext(ctx)
	defer cancel()
	if err := m.store.Save(sctx, tokens); err != nil {
		return err
	}
	m.mirror.Mirror(tokens)
	return nil
}

// wipeLocked clears memory, storage and mirror together. A storage failure
// is logged; memory is cleared regardless.
func (m *Manager) wipeLocked(ctx context.Context) {
	sctx, cancel := m.requestContext(ctx)
	defer cancel()
	if err := m.store.Clear(sctx); err != nil {
		m.warn("goSession: token store clear failed: %v", err)
	}
	m.mirror.Clear()

	m.gen++
	m.st = sessionState{
		loading:     m.st.loading,
		initialized: m.st.initialized,
	}
}

func (m *Manager) publish(ctx context.Context, kind broadcast.Kind) {
	if m.channel == nil {
		return
	}
	pctx, cancel := m.requestContext(ctx)
	defer cancel()
	if err := m.channel.Publish(pctx, broadcast.NewSignal(kind, m.instanceID, m.now())); err != nil {
		m.warn("goSession: broadcast %s failed: %v", kind, err)
	}
}

func (m *Manager) userIDLocked() string {
	if m.st.user == nil {
		return ""
	}
	return m.st.user.ID
}
