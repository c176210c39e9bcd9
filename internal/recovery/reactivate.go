package recovery

import (
	"context"

	"eventara.org/internal/account"
	"eventara.org/internal/audit"
	"eventara.org/internal/mailer"
	"eventara.org/internal/otp"
)

// ReactivationService sends and redeems reactivation codes for inactive
// accounts. Unlike password reset it has preconditions: the account must be
// inactive and must not be suspended.
type ReactivationService struct {
	flow
}

func NewReactivationService(accounts *account.Service, cache *otp.Cache, limiter *otp.Limiter, mail mailer.Mailer) *ReactivationService {
	return &ReactivationService{flow: newFlow(accounts, cache, limiter, mail, otp.PurposeReactivate)}
}

// SendCode emails a reactivation code. Suspended accounts are refused before
// any budget is spent; so are accounts that are already active.
func (s *ReactivationService) SendCode(ctx context.Context, email string) (SendResult, error) {
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return SendResult{}, err
	}
	if a.Suspended {
		return SendResult{}, account.ErrSuspended
	}
	if a.Active {
		return SendResult{}, account.ErrAlreadyActive
	}
	return s.send(ctx, a)
}

// Verify redeems a code, re-activates the account and starts a session for
// it, since a user who just proved control of the email expects to land
// logged in.
func (s *ReactivationService) Verify(ctx context.Context, email, code string) (*account.Account, string, error) {
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if a.Suspended {
		return nil, "", account.ErrSuspended
	}

	if err := s.verify(ctx, a, code); err != nil {
		return nil, "", err
	}

	updated, err := s.accounts.Activate(ctx, a.ID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.accounts.StartSession(ctx, updated, false)
	if err != nil {
		return nil, "", err
	}
	if err := s.accounts.Store().Accounts(ctx).TouchLastLogin(ctx, updated.ID); err != nil {
		return nil, "", err
	}
	t := s.accounts.Now()
	updated.LastLogin = &t
	_ = audit.LogEvent(ctx, "account_reactivated", map[string]any{
		"account_id": updated.ID,
		"email":      updated.Email,
	})
	return updated, token, nil
}
