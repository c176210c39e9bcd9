package account

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and password mismatch;
	// callers must not reveal which factor failed.
	ErrInvalidCredentials = errors.New("account: invalid credentials")

	// ErrSuspended is terminal for self-service: only an administrator can
	// lift a suspension.
	ErrSuspended = errors.New("account: suspended")

	// ErrInactive means the credentials were accepted but login is blocked
	// until the account is reactivated.
	ErrInactive = errors.New("account: inactive")

	ErrNotFound           = errors.New("account: not found")
	ErrEmailTaken         = errors.New("account: email already registered")
	ErrAliasTaken         = errors.New("account: alias already taken")
	ErrWeakPassword       = errors.New("account: password too short")
	ErrPasswordMismatch   = errors.New("account: password confirmation mismatch")
	ErrPasswordAlreadySet = errors.New("account: password was already set by the user")
	ErrAlreadyActive      = errors.New("account: already active")
	ErrInvalidInput       = errors.New("account: invalid input")
	ErrInvalidSession     = errors.New("account: invalid session")

	// ErrDefaultRoleMissing indicates a broken deployment: provisioning must
	// abort rather than create a role-less account.
	ErrDefaultRoleMissing = errors.New("account: default role missing")
)
