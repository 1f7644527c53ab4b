package goSession

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/internal/flows"
)

// Register submits a new account. It never authenticates the caller and
// never touches session state: accounts need approval and a separate login.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if m == nil {
		return RegisterResult{Error: flows.MsgTransport}, ErrManagerNotReady
	}
	if verr := inputValidator.Struct(in); verr != nil {
		m.metricInc(MetricRegisterFailure)
		return RegisterResult{Error: msgInvalidInput}, fmt.Errorf("%w: %v", ErrInvalidInput, verr)
	}

	rctx, cancel := context.WithTimeout(ctx, m.config.Requests.Timeout)
	resp, err := m.client.Register(rctx, RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	cancel()

	if err != nil {
		m.metricInc(MetricRegisterFailure)
		msg, rejected := apiErrorMessage(err)
		var outErr error
		if rejected {
			if msg == "" {
				msg = flows.MsgRegisterFailed
			}
			outErr = fmt.Errorf("%w: %s", ErrRegistrationFailed, msg)
		} else {
			msg = flows.MsgTransport
			outErr = fmt.Errorf("%w: %v", ErrTransport, err)
		}
		m.emitAudit(ctx, auditEventRegisterFailure, false, "", outErr, func() map[string]string {
			return map[string]string{"identifier": in.Email}
		})
		return RegisterResult{Error: msg}, outErr
	}
	if resp == nil {
		m.metricInc(MetricRegisterFailure)
		return RegisterResult{Error: flows.MsgRegisterFailed}, fmt.Errorf("%w: %v", ErrRegistrationFailed, flows.ErrIncompleteReply)
	}

	m.metricInc(MetricRegisterSuccess)
	m.emitAudit(ctx, auditEventRegisterSuccess, true, "", nil, func() map[string]string {
		return map[string]string{
			"identifier":     in.Email,
			"account_status": string(resp.AccountStatus),
		}
	})

	msg := resp.Message
	if msg == "" {
		msg = flows.MsgRegisterReceived
	}
	var next []string
	if resp.NextSteps != nil {
		next = append([]string(nil), resp.NextSteps...)
	}
	return RegisterResult{
		Success:       true,
		Message:       msg,
		AccountStatus: resp.AccountStatus,
		NextSteps:     next,
	}, nil
}
