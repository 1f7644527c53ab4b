package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
)

// Tick runs one pass of the session-timeout check: idle timeout logs out,
// nearing expiry raises the warning, and crossing the auto-refresh threshold
// before expiry refreshes. The monitor started by Start calls it every
// Timeout.CheckInterval.
func (m *Manager) Tick(ctx context.Context) {
	if m == nil || !m.config.Timeout.Enabled {
		return
	}

	m.mu.Lock()
	d := flows.EvaluateTick(flows.TickInput{
		Now:                  m.now(),
		Authenticated:        m.st.authenticated(),
		LastActivity:         m.st.lastActivity,
		ExpiresAt:            m.st.expiresAt,
		WarningShown:         m.st.warning,
		IdleTimeout:          m.config.Timeout.IdleTimeout,
		WarningThreshold:     m.config.Timeout.WarningThreshold,
		AutoRefreshThreshold: m.config.Timeout.AutoRefreshThreshold,
	})
	if d.Warn {
		m.st.warning = true
	}
	gen := m.gen
	userID := m.userIDLocked()
	m.mu.Unlock()

	if d.Logout {
		m.metricInc(MetricIdleTimeout)
		m.emitAudit(ctx, auditEventIdleTimeout, true, userID, nil, nil)
		m.logout(ctx, logoutOptions{reason: "idle_timeout", notifyServer: true, broadcast: true, onlyGen: &gen})
		return
	}
	if d.Warn {
		m.metricInc(MetricTimeoutWarning)
		m.emitAudit(ctx, auditEventTimeoutWarning, true, userID, nil, nil)
	}
	if d.Refresh {
		m.metricInc(MetricAutoRefresh)
		m.RefreshSession(ctx)
	}
}

// ExtendSession is the user saying "keep me signed in". Near expiry it
// performs a real refresh; otherwise it only records activity. Returns false
// when there is no session or the refresh failed.
func (m *Manager) ExtendSession(ctx context.Context) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	if !m.st.authenticated() {
		m.mu.Unlock()
		return false
	}
	now := m.now()
	if flows.ExtendNeedsRefresh(now, m.st.expiresAt, m.config.Timeout.WarningThreshold) {
		m.mu.Unlock()
		return m.RefreshSession(ctx)
	}
	m.st.lastActivity = now
	m.mu.Unlock()
	return true
}

// RecordActivity marks user interaction (focus, input) for idle tracking.
func (m *Manager) RecordActivity() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.st.authenticated() {
		m.st.lastActivity = m.now()
	}
	m.mu.Unlock()
}

func (m *Manager) monitor(ctx context.Context) {
	defer m.loops.Done()

	ticker := time.NewTicker(m.config.Timeout.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}
