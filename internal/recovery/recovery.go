// Package recovery implements the two email-code flows, password reset and
// account reactivation. Both run the same send/verify state machine over the
// otp cache and limiter; they differ only in preconditions and in the effect
// applied after a code matches.
package recovery

import (
	"context"
	"errors"
	"time"

	"eventara.org/internal/account"
	"eventara.org/internal/audit"
	"eventara.org/internal/mailer"
	"eventara.org/internal/otp"
)

var (
	// ErrInvalidCode covers a wrong code and, at the API edge, a missing one.
	// The two are indistinguishable on purpose.
	ErrInvalidCode = errors.New("recovery: invalid code")

	// ErrCodeExpired is returned when the supplied code matched but its
	// lifetime has passed. The stored record is consumed on this path.
	ErrCodeExpired = errors.New("recovery: code expired")
)

// SendResult reports a successful code send. The code itself is never
// returned; it travels only by email.
type SendResult struct {
	ExpiresAt time.Time
	Remaining int
}

// flow is the shared send/verify machinery, parameterized by purpose.
type flow struct {
	accounts *account.Service
	cache    *otp.Cache
	limiter  *otp.Limiter
	mail     mailer.Mailer
	purpose  otp.Purpose
}

func newFlow(accounts *account.Service, cache *otp.Cache, limiter *otp.Limiter, mail mailer.Mailer, purpose otp.Purpose) flow {
	if limiter == nil {
		limiter = otp.NewLimiter(cache, otp.MaxSendsPerDay)
	}
	return flow{accounts: accounts, cache: cache, limiter: limiter, mail: mail, purpose: purpose}
}

// send runs the common send path for an already-located account: rate limit,
// generate, store, count, deliver. The counter is bumped before the mailer is
// invoked so a failing relay still consumes budget.
func (f flow) send(ctx context.Context, a *account.Account) (SendResult, error) {
	now := f.accounts.Now()
	attemptKey := otp.NewAttemptKey(a.ID, f.purpose, now)
	if err := f.limiter.Check(ctx, attemptKey); err != nil {
		return SendResult{}, err
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return SendResult{}, err
	}
	expiresAt := now.Add(otp.CodeTTL)
	codeKey := otp.CodeKey{AccountID: a.ID, Purpose: f.purpose}
	if err := f.cache.SaveCode(ctx, codeKey, otp.Record{Code: code, ExpiresAt: expiresAt}); err != nil {
		return SendResult{}, err
	}

	remaining, err := f.limiter.Record(ctx, attemptKey)
	if err != nil {
		return SendResult{}, err
	}

	if err := f.mail.SendCode(ctx, a.Email, f.purpose, code, otp.CodeTTL); err != nil {
		_ = audit.LogEvent(ctx, "code_delivery_failed", map[string]any{
			"purpose":    string(f.purpose),
			"account_id": a.ID,
			"email":      a.Email,
		})
		return SendResult{}, err
	}

	_ = audit.LogEvent(ctx, "code_sent", map[string]any{
		"purpose":    string(f.purpose),
		"account_id": a.ID,
		"email":      a.Email,
		"remaining":  remaining,
	})
	return SendResult{ExpiresAt: expiresAt, Remaining: remaining}, nil
}

// verify checks the supplied code against the live record. On a match the
// record and the day's counter are cleared; the caller then applies the
// purpose-specific effect. Failed attempts log the attempted value for abuse
// monitoring, never the stored one.
func (f flow) verify(ctx context.Context, a *account.Account, supplied string) error {
	codeKey := otp.CodeKey{AccountID: a.ID, Purpose: f.purpose}
	rec, err := f.cache.GetCode(ctx, codeKey)
	if err != nil {
		if errors.Is(err, otp.ErrCodeNotFound) {
			return ErrInvalidCode
		}
		return err
	}

	if !rec.Matches(supplied) {
		_ = audit.LogEvent(ctx, "code_rejected", map[string]any{
			"purpose":        string(f.purpose),
			"account_id":     a.ID,
			"email":          a.Email,
			"attempted_code": otp.Normalize(supplied),
		})
		return ErrInvalidCode
	}

	if rec.Expired(f.accounts.Now()) {
		_ = f.cache.DeleteCode(ctx, codeKey)
		return ErrCodeExpired
	}

	if err := f.cache.DeleteCode(ctx, codeKey); err != nil {
		return err
	}
	attemptKey := otp.NewAttemptKey(a.ID, f.purpose, f.accounts.Now())
	if err := f.limiter.Reset(ctx, attemptKey); err != nil {
		return err
	}
	return nil
}

func (f flow) findByEmail(ctx context.Context, email string) (*account.Account, error) {
	return f.accounts.Store().Accounts(ctx).FindByEmail(ctx, email)
}
