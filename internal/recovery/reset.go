package recovery

import (
	"context"

	"eventara.org/internal/account"
	"eventara.org/internal/audit"
	"eventara.org/internal/mailer"
	"eventara.org/internal/otp"
)

// PasswordResetService sends and redeems password reset codes. A reset is
// available to any existing email, including inactive accounts, and a
// completed reset always re-activates the account.
type PasswordResetService struct {
	flow
}

func NewPasswordResetService(accounts *account.Service, cache *otp.Cache, limiter *otp.Limiter, mail mailer.Mailer) *PasswordResetService {
	return &PasswordResetService{flow: newFlow(accounts, cache, limiter, mail, otp.PurposeReset)}
}

// SendCode emails a reset code to the address. An unknown email returns
// account.ErrNotFound; the HTTP layer folds that into the same generic
// response as success so the endpoint cannot be used to enumerate accounts.
func (s *PasswordResetService) SendCode(ctx context.Context, email string) (SendResult, error) {
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return SendResult{}, err
	}
	return s.send(ctx, a)
}

// Reset redeems a code and replaces the account password. Password length
// and confirmation are validated before the code is consumed, so a typo in
// the new password does not burn the code.
func (s *PasswordResetService) Reset(ctx context.Context, email, code, newPassword, confirm string) (*account.Account, error) {
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(newPassword) < account.MinPasswordLength {
		return nil, account.ErrWeakPassword
	}
	if newPassword != confirm {
		return nil, account.ErrPasswordMismatch
	}

	if err := s.verify(ctx, a, code); err != nil {
		return nil, err
	}

	updated, err := s.accounts.CompletePasswordReset(ctx, a.ID, newPassword)
	if err != nil {
		return nil, err
	}
	_ = audit.LogEvent(ctx, "password_reset_completed", map[string]any{
		"account_id": updated.ID,
		"email":      updated.Email,
	})
	return updated, nil
}
