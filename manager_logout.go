package goSession

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goSession/broadcast"
)

type logoutOptions struct {
	reason       string
	notifyServer bool
	broadcast    bool
	// onlyGen, when set, skips the logout if the session generation moved.
	onlyGen *uint64
}

// Logout ends the session. Memory, token store and cookie mirror are
// cleared together before the server is told; a server failure is logged
// and never blocks the local cleanup. Logging out twice is harmless.
func (m *Manager) Logout(ctx context.Context) {
	if m == nil {
		return
	}
	m.logout(ctx, logoutOptions{reason: "explicit", notifyServer: true, broadcast: true})
}

func (m *Manager) logout(ctx context.Context, opts logoutOptions) bool {
	m.mu.Lock()
	if opts.onlyGen != nil && *opts.onlyGen != m.gen {
		m.mu.Unlock()
		return false
	}
	refreshToken := m.st.refreshToken
	if refreshToken == "" && opts.notifyServer {
		refreshToken = m.storedRefreshTokenLocked(ctx)
	}
	userID := m.userIDLocked()
	wasAuthenticated := m.st.authenticated()
	m.wipeLocked(ctx)
	m.mu.Unlock()

	if opts.notifyServer && refreshToken != "" {
		rctx, cancel := m.requestContext(ctx)
		if err := m.client.Logout(rctx, refreshToken); err != nil {
			m.warn("goSession: server logout failed: %v", err)
		}
		cancel()
	}

	m.metricInc(MetricLogout)
	m.emitAudit(ctx, auditEventLogout, true, userID, nil, func() map[string]string {
		return map[string]string{
			"reason":            opts.reason,
			"was_authenticated": strconv.FormatBool(wasAuthenticated),
		}
	})
	if opts.broadcast {
		m.publish(ctx, broadcast.KindLogout)
	}
	return true
}
