package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/flows"
)

// UpdateAccountStatus re-reads account status, validation status, access
// level, requirements and badge from the server. Tokens and user are left
// alone. Failures are logged and yield nil; they never end the session.
func (m *Manager) UpdateAccountStatus(ctx context.Context) *AccountStatusInfo {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	access := m.st.accessToken
	gen := m.gen
	m.mu.RUnlock()
	if access == "" {
		return nil
	}

	info, err := m.fetchStatus(ctx, access)
	if err != nil {
		m.metricInc(MetricAccountStatusFailure)
		m.warn("goSession: account status fetch failed: %v", err)
		m.emitAudit(ctx, auditEventAccountStatusFailure, false, "", err, nil)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil
	}
	m.applyStatusLocked(info)

	out := *info
	out.Requirements = append([]string(nil), info.Requirements...)
	return &out
}

func (m *Manager) fetchStatus(ctx context.Context, accessToken string) (*AccountStatusInfo, error) {
	rctx, cancel := m.requestContext(ctx)
	defer cancel()
	info, err := m.client.GetAccountStatus(rctx, accessToken)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, flows.ErrIncompleteReply
	}
	return info, nil
}

func (m *Manager) applyStatusLocked(info *AccountStatusInfo) {
	m.st.accountStatus = info.AccountStatus
	m.st.validationStatus = info.ValidationStatus
	m.st.accessLevel = ParseAccessLevel(info.AccessLevel)
	m.st.requirements = append([]string(nil), info.Requirements...)
	m.st.hasBlueCheckmark = info.HasBlueCheckmark
}
