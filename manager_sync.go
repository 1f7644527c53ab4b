package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/broadcast"
)

func (m *Manager) consumeSignals(ctx context.Context, signals <-chan broadcast.Signal) {
	defer m.loops.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			m.HandleSignal(ctx, sig)
		}
	}
}

// HandleSignal applies a signal from another instance. A logout clears the
// local session without notifying the server or re-broadcasting; a login
// forces a check that rehydrates from the shared store. Own signals are
// ignored.
func (m *Manager) HandleSignal(ctx context.Context, sig broadcast.Signal) {
	if m == nil || sig.Origin == m.instanceID {
		return
	}
	switch sig.Kind {
	case broadcast.KindLogout:
		m.metricInc(MetricCrossTabLogout)
		m.emitAudit(ctx, auditEventRemoteLogout, true, "", nil, func() map[string]string {
			return map[string]string{"origin": sig.Origin}
		})
		m.logout(ctx, logoutOptions{reason: "remote"})
	case broadcast.KindLogin:
		m.metricInc(MetricCrossTabLogin)
		m.emitAudit(ctx, auditEventRemoteLogin, true, "", nil, func() map[string]string {
			return map[string]string{"origin": sig.Origin}
		})
		m.markForRehydrate()
		m.CheckAuth(ctx)
	}
}
