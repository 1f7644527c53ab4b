package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/broadcast"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/go-playground/validator/v10"
)

const (
	msgInvalidInput      = "Please enter a valid email and password"
	msgLoginRateLimited  = "Too many login attempts. Please wait a moment and try again."
	msgPersistFailed     = "Unable to save the session on this device"
	msgStorageUnreadable = "Unable to read the saved session"
)

var inputValidator = validator.New()

// Login authenticates with the auth API. Concurrent logins are independent
// and the last one to finish wins.
//
// On success the token pair is persisted, the access level is taken from the
// reply and a login signal is broadcast. A blocked account yields
// ErrAccessDenied with AccessLevel NO_ACCESS and stores no tokens. Any other
// failure only sets the display error.
func (m *Manager) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	if m == nil {
		return LoginResult{Error: flows.MsgTransport}, ErrManagerNotReady
	}
	m.ClearError()

	if verr := inputValidator.Struct(creds); verr != nil {
		err := fmt.Errorf("%w: %v", ErrInvalidInput, verr)
		return m.loginFailed(ctx, creds.Email, msgInvalidInput, err, "invalid_input"), err
	}
	if err := m.limiter.Allow(creds.Email); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			m.metricInc(MetricLoginRateLimited)
			m.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": creds.Email}
			})
			m.setError(msgLoginRateLimited)
			return LoginResult{Error: msgLoginRateLimited}, ErrLoginRateLimited
		}
		return LoginResult{Error: flows.MsgTransport}, err
	}

	m.beginLoading()
	defer m.endLoading()

	rctx, cancel := context.WithTimeout(ctx, m.config.Requests.Timeout)
	resp, callErr := m.client.Login(rctx, creds.Email, creds.Password)
	cancel()

	decision := flows.ClassifyLogin(loginReply(resp), callErr, apiErrorMessage)
	switch decision.Failure {
	case flows.LoginFailureBlocked:
		return m.loginBlocked(ctx, creds.Email, decision)
	case flows.LoginFailureRejected:
		return m.loginFailed(ctx, creds.Email, decision.Message, ErrInvalidCredentials, "rejected"), ErrInvalidCredentials
	case flows.LoginFailureTransport:
		err := fmt.Errorf("%w: %v", ErrTransport, callErr)
		return m.loginFailed(ctx, creds.Email, decision.Message, err, "transport"), err
	case flows.LoginFailureIncomplete:
		err := fmt.Errorf("%w: %v", ErrTransport, flows.ErrIncompleteReply)
		return m.loginFailed(ctx, creds.Email, decision.Message, err, "incomplete"), err
	}

	return m.loginInstall(ctx, creds.Email, resp, decision)
}

func (m *Manager) loginInstall(ctx context.Context, email string, resp *LoginResponse, decision flows.LoginDecision) (LoginResult, error) {
	now := m.now()
	level := ParseAccessLevel(decision.AccessLevel)
	status := AccountStatus(decision.AccountStatus)

	m.mu.Lock()
	if err := m.persistLocked(ctx, tokenstore.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		m.st.err = msgPersistFailed
		m.mu.Unlock()
		m.warn("goSession: persist tokens after login failed: %v", err)
		m.metricInc(MetricLoginFailure)
		return LoginResult{Error: msgPersistFailed}, fmt.Errorf("goSession: persist tokens: %w", err)
	}
	m.gen++
	m.st.setUser(resp.User)
	m.st.accessToken = resp.AccessToken
	m.st.refreshToken = resp.RefreshToken
	m.st.expiresAt = flows.TokenExpiry(now, resp.ExpiresIn, resp.AccessToken, m.inspector.ExpiresAt)
	m.st.lastActivity = now
	m.st.warning = false
	m.st.accountStatus = status
	m.st.validationStatus = resp.User.ValidationStatus
	m.st.accessLevel = level
	m.st.requirements = nil
	m.st.hasBlueCheckmark = false
	m.st.rehydrate = false
	m.st.err = ""
	m.st.blockingErr = ""
	m.markInitializedLocked()
	userID := m.userIDLocked()
	m.mu.Unlock()

	m.limiter.Reset(email)
	m.metricInc(MetricLoginSuccess)
	m.emitAudit(ctx, auditEventLoginSuccess, true, userID, nil, func() map[string]string {
		return map[string]string{"access_level": string(level)}
	})
	m.publish(ctx, broadcast.KindLogin)
	if decision.NeedsStatus {
		m.goTracked(func() { m.UpdateAccountStatus(context.WithoutCancel(ctx)) })
	}

	return LoginResult{
		Success:       true,
		Message:       decision.Message,
		RedirectTo:    flows.RedirectFor(string(level), m.config.Routes.Home, m.config.Routes.ProfileCompletion),
		AccessLevel:   level,
		AccountStatus: status,
	}, nil
}

func (m *Manager) loginBlocked(ctx context.Context, email string, decision flows.LoginDecision) (LoginResult, error) {
	status := AccountStatus(decision.AccountStatus)

	m.mu.Lock()
	wasAuthenticated := m.st.authenticated()
	m.wipeLocked(ctx)
	m.st.accountStatus = status
	m.st.accessLevel = AccessNone
	m.st.err = decision.Message
	m.markInitializedLocked()
	m.mu.Unlock()

	m.metricInc(MetricLoginBlocked)
	m.emitAudit(ctx, auditEventLoginBlocked, false, "", ErrAccessDenied, func() map[string]string {
		return map[string]string{
			"identifier":     email,
			"account_status": string(status),
		}
	})
	if wasAuthenticated {
		m.publish(ctx, broadcast.KindLogout)
	}
	return LoginResult{
		Error:         decision.Message,
		AccessLevel:   AccessNone,
		AccountStatus: status,
	}, ErrAccessDenied
}

func (m *Manager) loginFailed(ctx context.Context, email, message string, err error, reason string) LoginResult {
	m.setError(message)
	m.metricInc(MetricLoginFailure)
	m.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
		return map[string]string{
			"identifier": email,
			"reason":     reason,
		}
	})
	return LoginResult{Error: message}
}

func (m *Manager) setError(message string) {
	m.mu.Lock()
	m.st.err = message
	m.mu.Unlock()
}

func loginReply(resp *LoginResponse) *flows.LoginReply {
	if resp == nil {
		return nil
	}
	status := resp.AccountStatus
	if status == "" && resp.User != nil {
		status = resp.User.AccountStatus
	}
	return &flows.LoginReply{
		Message:      resp.Message,
		HasUser:      resp.User != nil,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Flags: flows.AccessFlags{
			AccessDenied:              resp.AccessDenied,
			FullAccess:                resp.FullAccess,
			LimitedAccess:             resp.LimitedAccess,
			ProfileAccess:             resp.ProfileAccess,
			RequiresProfileCompletion: resp.RequiresProfileCompletion,
			AccountStatus:             string(status),
		},
	}
}
