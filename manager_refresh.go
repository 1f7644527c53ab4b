package goSession

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/tokenstore"
)

const refreshKey = "refresh"

// RefreshSession rotates the token pair. Concurrent callers share one
// underlying refresh call and receive the same result. Any failure ends the
// session. A result that arrives after the session was replaced or logged
// out is discarded.
//
// A caller whose ctx ends stops waiting and gets false; the shared refresh
// still completes for the others.
func (m *Manager) RefreshSession(ctx context.Context) bool {
	if m == nil {
		return false
	}
	if !m.track() {
		return false
	}
	leader := false
	ch := m.refreshGroup.DoChan(refreshKey, func() (interface{}, error) {
		leader = true
		return m.refreshOnce(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		m.bg.Done()
		if !leader {
			m.metricInc(MetricRefreshCoalesced)
		}
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		go func() {
			<-ch
			m.bg.Done()
		}()
		return false
	}
}

func (m *Manager) refreshOnce(ctx context.Context) bool {
	m.beginLoading()
	defer m.endLoading()

	m.mu.Lock()
	gen := m.gen
	refreshToken := m.storedRefreshTokenLocked(ctx)
	if refreshToken == "" {
		refreshToken = m.st.refreshToken
	}
	userID := m.userIDLocked()
	m.mu.Unlock()

	if refreshToken == "" {
		m.refreshFailed(ctx, gen, userID, flows.RefreshFailureNoToken, ErrNoRefreshToken)
		return false
	}

	started := time.Now()
	rctx, cancel := m.requestContext(ctx)
	resp, err := m.client.RefreshToken(rctx, refreshToken)
	cancel()
	if m.metrics != nil {
		m.metrics.Observe(MetricRefreshLatency, time.Since(started))
	}

	var access, refresh string
	if resp != nil {
		access, refresh = resp.AccessToken, resp.RefreshToken
	}
	if kind := flows.ClassifyRefresh(access, refresh, err, apiErrorMessage); kind != flows.RefreshFailureNone {
		if err == nil {
			err = flows.ErrIncompleteReply
		}
		m.refreshFailed(ctx, gen, userID, kind, fmt.Errorf("%w: %v", ErrRefreshRejected, err))
		return false
	}

	now := m.now()
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.metricInc(MetricRefreshStaleDiscarded)
		m.warn("goSession: %v", ErrStaleResult)
		return false
	}
	if err := m.persistLocked(ctx, tokenstore.Tokens{AccessToken: access, RefreshToken: refresh}); err != nil {
		m.mu.Unlock()
		m.warn("goSession: persist tokens after refresh failed: %v", err)
		m.refreshFailed(ctx, gen, userID, flows.RefreshFailureIncomplete, err)
		return false
	}
	m.st.accessToken = access
	m.st.refreshToken = refresh
	if resp.User != nil {
		m.st.setUser(resp.User)
	}
	m.st.expiresAt = flows.TokenExpiry(now, resp.ExpiresIn, access, m.inspector.ExpiresAt)
	m.st.warning = false
	m.st.lastActivity = now
	userID = m.userIDLocked()
	m.mu.Unlock()

	m.metricInc(MetricRefreshSuccess)
	m.emitAudit(ctx, auditEventRefreshSuccess, true, userID, nil, nil)

	m.goTracked(func() { m.UpdateAccountStatus(ctx) })
	return true
}

// refreshFailed ends the session unless it already moved on, in which case
// the failure belongs to a session that no longer exists.
func (m *Manager) refreshFailed(ctx context.Context, gen uint64, userID string, kind flows.RefreshFailureKind, err error) {
	m.metricInc(MetricRefreshFailure)
	m.emitAudit(ctx, auditEventRefreshFailure, false, userID, err, func() map[string]string {
		return map[string]string{"reason": kind.String()}
	})

	ended := m.logout(ctx, logoutOptions{
		reason:    "refresh_" + kind.String(),
		broadcast: true,
		onlyGen:   &gen,
	})
	if !ended {
		m.metricInc(MetricRefreshStaleDiscarded)
	}
}

func (m *Manager) storedRefreshTokenLocked(ctx context.Context) string {
	sctx, cancel := m.requestContext(ctx)
	defer cancel()
	tokens, err := m.store.Load(sctx)
	if err != nil {
		m.warn("goSession: token store load failed: %v", err)
		return ""
	}
	return tokens.RefreshToken
}
