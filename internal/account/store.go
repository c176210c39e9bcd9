package account

import "context"

// Store describes persistence operations required by the account subsystem.
type Store interface {
	Accounts(ctx context.Context) AccountStore
	Profiles(ctx context.Context) ProfileStore
	Sessions(ctx context.Context) SessionStore
}

// AccountStore manages account rows.
type AccountStore interface {
	Create(ctx context.Context, a *Account) error

	// CreateWithProfile inserts an account and its profile in a single
	// transaction, re-checking the email immediately before the insert.
	// When a concurrent caller won the race for the same email, the winner's
	// account is returned with created=false and nothing is written.
	CreateWithProfile(ctx context.Context, a *Account, p *Profile) (out *Account, created bool, err error)

	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// UpdatePassword replaces the stored hash and records whether the
	// password was chosen by the user.
	UpdatePassword(ctx context.Context, id, passwordHash string, setByUser bool) error

	SetActive(ctx context.Context, id string, active bool) error

	// SetSuspended toggles suspension. Suspending also forces active=false
	// in the same statement; unsuspending leaves the active flag untouched.
	SetSuspended(ctx context.Context, id string, suspended bool) error

	TouchLastLogin(ctx context.Context, id string) error

	// ListActive returns all non-suspended active accounts, oldest first.
	// Used by the inactivation sweep.
	ListActive(ctx context.Context) ([]*Account, error)
}

// ProfileStore manages profile rows.
type ProfileStore interface {
	Create(ctx context.Context, p *Profile) error
	FindByAccount(ctx context.Context, accountID string) (*Profile, error)
	AliasTaken(ctx context.Context, alias string) (bool, error)
}

// SessionStore manages persisted sessions.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForAccount(ctx context.Context, accountID string) error
}
