package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/internal/flows"
)

const checkKey = "check"

var errNoAccessToken = errors.New("no access token stored")

// CheckAuth settles the session from durable storage. Concurrent callers
// share one check. An initialized, authenticated session returns at once
// without network calls; otherwise stored tokens are loaded, the profile and
// account status are fetched in parallel, and a failed profile fetch falls
// back to one refresh. However it ends, the session is initialized after.
func (m *Manager) CheckAuth(ctx context.Context) {
	if m == nil {
		return
	}
	if !m.track() {
		return
	}
	leader := false
	ch := m.checkGroup.DoChan(checkKey, func() (interface{}, error) {
		leader = true
		m.checkOnce(context.WithoutCancel(ctx))
		return nil, nil
	})

	select {
	case <-ch:
		m.bg.Done()
		if !leader {
			m.metricInc(MetricCheckAuthCoalesced)
		}
	case <-ctx.Done():
		go func() {
			<-ch
			m.bg.Done()
		}()
	}
}

func (m *Manager) checkOnce(ctx context.Context) {
	m.mu.Lock()
	if m.st.initialized && m.st.authenticated() && !m.st.rehydrate {
		m.mu.Unlock()
		return
	}
	m.st.rehydrate = false
	m.st.loading++
	gen := m.gen
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.st.loading > 0 {
			m.st.loading--
		}
		m.markInitializedLocked()
		m.mu.Unlock()
	}()

	m.metricInc(MetricCheckAuthRun)

	sctx, cancel := m.requestContext(ctx)
	tokens, err := m.store.Load(sctx)
	cancel()
	if err != nil {
		m.warn("goSession: token store load failed: %v", err)
		m.mu.Lock()
		if m.gen == gen {
			m.st.err = msgStorageUnreadable
			m.st.blockingErr = msgStorageUnreadable
		}
		m.mu.Unlock()
		return
	}

	if tokens.Empty() {
		// Another instance may have cleared a shared store.
		m.mu.Lock()
		if m.gen == gen && (m.st.user != nil || m.st.accessToken != "" || m.st.refreshToken != "") {
			m.wipeLocked(ctx)
		}
		m.mu.Unlock()
		return
	}

	var (
		user   *User
		status *AccountStatusInfo
	)
	profileErr := errNoAccessToken
	if tokens.AccessToken != "" {
		res := flows.RunCheck(ctx, flows.CheckDeps{
			FetchProfile: func(c context.Context) error {
				u, err := m.fetchProfile(c, tokens.AccessToken)
				user = u
				return err
			},
			FetchStatus: func(c context.Context) error {
				info, err := m.fetchStatus(c, tokens.AccessToken)
				if err != nil {
					m.metricInc(MetricAccountStatusFailure)
					return err
				}
				status = info
				return nil
			},
			Warn: m.warn,
		})
		profileErr = res.ProfileErr
	}

	if profileErr == nil {
		now := m.now()
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen != gen {
			return
		}
		m.gen++
		m.st.setUser(user)
		m.st.accessToken = tokens.AccessToken
		m.st.refreshToken = tokens.RefreshToken
		m.st.expiresAt = flows.TokenExpiry(now, 0, tokens.AccessToken, m.inspector.ExpiresAt)
		m.st.lastActivity = now
		m.st.warning = false
		m.st.blockingErr = ""
		m.st.accountStatus = user.AccountStatus
		m.st.validationStatus = user.ValidationStatus
		if status != nil {
			m.applyStatusLocked(status)
		}
		m.mirror.Mirror(tokens)
		return
	}

	m.warn("goSession: profile fetch during check failed: %v", profileErr)
	if !m.RefreshSession(ctx) {
		return
	}

	m.mu.RLock()
	needProfile := m.st.user == nil
	access := m.st.accessToken
	gen = m.gen
	m.mu.RUnlock()
	if !needProfile {
		return
	}

	u, err := m.fetchProfile(ctx, access)
	if err != nil {
		m.warn("goSession: profile fetch after refresh failed: %v", err)
		m.logout(ctx, logoutOptions{reason: "profile_unavailable", notifyServer: true, broadcast: true, onlyGen: &gen})
		return
	}
	m.mu.Lock()
	if m.gen == gen && m.st.accessToken == access {
		m.st.setUser(u)
		if m.st.accountStatus == "" {
			m.st.accountStatus = u.AccountStatus
			m.st.validationStatus = u.ValidationStatus
		}
	}
	m.mu.Unlock()
}

// markForRehydrate makes the next check bypass the fast path.
func (m *Manager) markForRehydrate() {
	m.mu.Lock()
	m.st.rehydrate = true
	m.mu.Unlock()
}

func (m *Manager) fetchProfile(ctx context.Context, accessToken string) (*User, error) {
	rctx, cancel := m.requestContext(ctx)
	defer cancel()
	u, err := m.client.GetProfile(rctx, accessToken)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, flows.ErrIncompleteReply
	}
	return u, nil
}
