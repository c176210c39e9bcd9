package account

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"eventara.org/internal/obs"
)

const (
	defaultSessionTTL          = 24 * time.Hour
	defaultRememberTTL         = 30 * 24 * time.Hour
	defaultInactivityThreshold = 90 * 24 * time.Hour

	maxAliasAttempts = 50
	minAliasLength   = 3
)

// Service provides the account lifecycle operations: login, registration,
// password management, OAuth linking, administrative state changes and the
// inactivation sweep.
type Service struct {
	store Store
	now   func() time.Time
	log   *log.Logger

	tokenSecret []byte
	issuer      string

	sessionTTL          time.Duration
	rememberTTL         time.Duration
	inactivityThreshold time.Duration
	defaultRole         string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithTokenSecret sets the HS256 secret used to sign session tokens.
func WithTokenSecret(secret string) ServiceOption {
	return func(s *Service) error {
		if strings.TrimSpace(secret) == "" {
			return errors.New("account: token secret is empty")
		}
		s.tokenSecret = []byte(secret)
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSessionTTL configures the plain session lifetime.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
		return nil
	}
}

// WithRememberTTL configures the remember-me session lifetime.
func WithRememberTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.rememberTTL = ttl
		}
		return nil
	}
}

// WithInactivityThreshold configures how long an account may go without a
// login before the sweep marks it inactive.
func WithInactivityThreshold(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d > 0 {
			s.inactivityThreshold = d
		}
		return nil
	}
}

// WithLogger overrides the logger used for non-fatal cleanup failures.
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.log = l
		}
		return nil
	}
}

// NewService constructs a Service. A token secret is required.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("account: store is required")
	}
	svc := &Service{
		store:               store,
		now:                 time.Now,
		log:                 obs.Logger(),
		issuer:              "eventara",
		sessionTTL:          defaultSessionTTL,
		rememberTTL:         defaultRememberTTL,
		inactivityThreshold: defaultInactivityThreshold,
		defaultRole:         RoleUser,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if len(svc.tokenSecret) == 0 {
		return nil, errors.New("account: token secret is required")
	}
	return svc, nil
}

// Now exposes the service clock so collaborating flows share one time source.
func (s *Service) Now() time.Time { return s.now() }

// Store exposes the underlying persistence layer to collaborating services.
func (s *Service) Store() Store { return s.store }

// InactivityThreshold reports how long an account may go without a login
// before the sweep marks it inactive.
func (s *Service) InactivityThreshold() time.Duration { return s.inactivityThreshold }

// Login checks credentials and the account state gate, establishes a session
// and stamps last_login. The email is matched exactly as stored.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (*Account, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	a, err := s.store.Accounts(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !a.HasUsablePassword() {
		// OAuth-provisioned placeholder: password login stays closed until
		// the user sets a real password.
		return nil, "", ErrInvalidCredentials
	}
	if err := VerifyPassword(a.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if a.Suspended {
		return nil, "", ErrSuspended
	}
	if !a.Active {
		return nil, "", fmt.Errorf("%w: %s", ErrInactive, a.Email)
	}

	token, err := s.StartSession(ctx, a, remember)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Accounts(ctx).TouchLastLogin(ctx, a.ID); err != nil {
		return nil, "", err
	}
	t := s.now()
	a.LastLogin = &t
	return a, token, nil
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
}

// Register creates an email-provider account and logs it in. Profile setup is
// a separate downstream step.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, string, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, "", ErrWeakPassword
	}
	if in.Password != in.PasswordConfirmation {
		return nil, "", ErrPasswordMismatch
	}

	if _, err := s.store.Accounts(ctx).FindByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	a := &Account{
		Email:             email,
		PasswordHash:      hash,
		Role:              s.defaultRole,
		Active:            true,
		AuthProvider:      ProviderEmail,
		PasswordSetByUser: true,
	}
	// The pre-check above is advisory; the unique constraint is the real
	// guarantee under concurrent registration.
	if err := s.store.Accounts(ctx).Create(ctx, a); err != nil {
		return nil, "", err
	}

	token, err := s.StartSession(ctx, a, false)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Accounts(ctx).TouchLastLogin(ctx, a.ID); err != nil {
		return nil, "", err
	}
	return a, token, nil
}

// ChangePassword replaces the hash after verifying the current password.
// The caller's identity comes from the session, never the request body.
func (s *Service) ChangePassword(ctx context.Context, accountID, current, next string) error {
	a, err := s.store.Accounts(ctx).Find(ctx, accountID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(a.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.Accounts(ctx).UpdatePassword(ctx, a.ID, hash, true)
}

// SetInitialPassword gives an OAuth-provisioned account its first real
// password. It refuses accounts whose password was already user-set.
func (s *Service) SetInitialPassword(ctx context.Context, accountID, next string) error {
	a, err := s.store.Accounts(ctx).Find(ctx, accountID)
	if err != nil {
		return err
	}
	if a.AuthProvider == "" || a.PasswordSetByUser {
		return ErrPasswordAlreadySet
	}
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.Accounts(ctx).UpdatePassword(ctx, a.ID, hash, true)
}

// CompletePasswordReset applies the reset effect after code verification:
// new hash, and the account is always re-activated.
func (s *Service) CompletePasswordReset(ctx context.Context, accountID, next string) (*Account, error) {
	if len(next) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return nil, err
	}
	accounts := s.store.Accounts(ctx)
	if err := accounts.UpdatePassword(ctx, accountID, hash, true); err != nil {
		return nil, err
	}
	if err := accounts.SetActive(ctx, accountID, true); err != nil {
		return nil, err
	}
	return accounts.Find(ctx, accountID)
}

// Activate flips an inactive account back to active.
func (s *Service) Activate(ctx context.Context, accountID string) (*Account, error) {
	accounts := s.store.Accounts(ctx)
	if err := accounts.SetActive(ctx, accountID, true); err != nil {
		return nil, err
	}
	return accounts.Find(ctx, accountID)
}

// LoginWithExternal reconciles a provider-verified identity with a local
// account, provisioning account and profile when absent, and establishes a
// session. OAuth login never re-checks a password and never auto-reactivates.
func (s *Service) LoginWithExternal(ctx context.Context, ext ExternalIdentity) (*Account, string, bool, error) {
	email := strings.TrimSpace(ext.Email)
	if email == "" {
		return nil, "", false, fmt.Errorf("%w: provider returned no email", ErrInvalidInput)
	}

	accounts := s.store.Accounts(ctx)
	a, err := accounts.FindByEmail(ctx, email)
	created := false
	switch {
	case err == nil:
		if a.Suspended {
			return nil, "", false, ErrSuspended
		}
		if !a.Active {
			return nil, "", false, fmt.Errorf("%w: %s", ErrInactive, a.Email)
		}
	case errors.Is(err, ErrNotFound):
		a, created, err = s.provisionExternal(ctx, ext)
		if err != nil {
			return nil, "", false, err
		}
		if !a.CanLogin() {
			// Lost the provisioning race to a row that cannot log in.
			if a.Suspended {
				return nil, "", false, ErrSuspended
			}
			return nil, "", false, fmt.Errorf("%w: %s", ErrInactive, a.Email)
		}
	default:
		return nil, "", false, err
	}

	token, err := s.StartSession(ctx, a, false)
	if err != nil {
		return nil, "", false, err
	}
	if err := accounts.TouchLastLogin(ctx, a.ID); err != nil {
		return nil, "", false, err
	}
	return a, token, created, nil
}

func (s *Service) provisionExternal(ctx context.Context, ext ExternalIdentity) (*Account, bool, error) {
	if s.defaultRole == "" {
		return nil, false, ErrDefaultRoleMissing
	}
	hash, err := HashPassword(placeholderPassword())
	if err != nil {
		return nil, false, err
	}
	verified := s.now().UTC()
	a := &Account{
		Email:             strings.TrimSpace(ext.Email),
		PasswordHash:      hash,
		Role:              s.defaultRole,
		Active:            true,
		AuthProvider:      ProviderGoogle,
		PasswordSetByUser: false,
		EmailVerifiedAt:   &verified,
	}

	base := deriveAliasBase(a.Email, s.now())
	profiles := s.store.Profiles(ctx)
	for i := 0; i < maxAliasAttempts; i++ {
		alias := base
		if i > 0 {
			alias = fmt.Sprintf("%s%d", base, i)
		}
		taken, err := profiles.AliasTaken(ctx, alias)
		if err != nil {
			return nil, false, err
		}
		if taken {
			continue
		}
		p := &Profile{
			Alias:       alias,
			FirstName:   ext.FirstName,
			LastName:    ext.LastName,
			AvatarURL:   ext.AvatarURL,
			Preferences: DefaultPreferences(),
		}
		out, created, err := s.store.Accounts(ctx).CreateWithProfile(ctx, a, p)
		if errors.Is(err, ErrAliasTaken) {
			// Alias raced with a concurrent signup; try the next suffix.
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return out, created, nil
	}
	return nil, false, fmt.Errorf("%w: could not find a free alias for %q", ErrAliasTaken, base)
}

// deriveAliasBase builds the alias candidate from the email local part:
// non-alphanumerics stripped, lower-cased, padded with a timestamp when too
// short to be meaningful.
func deriveAliasBase(email string, now time.Time) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	alias := b.String()
	if len(alias) < minAliasLength {
		alias = fmt.Sprintf("%suser%d", alias, now.Unix())
	}
	return alias
}

// Suspend blocks the account administratively and revokes its sessions.
// Session cleanup failures are logged but never roll back the state change.
func (s *Service) Suspend(ctx context.Context, accountID string) error {
	if err := s.store.Accounts(ctx).SetSuspended(ctx, accountID, true); err != nil {
		return err
	}
	s.revokeSessions(ctx, accountID)
	return nil
}

// Unsuspend lifts a suspension and restores the account to active, so the
// next login succeeds without a reactivation round-trip.
func (s *Service) Unsuspend(ctx context.Context, accountID string) error {
	return s.store.Accounts(ctx).SetSuspended(ctx, accountID, false)
}

// Deactivate marks the account inactive and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, accountID string) error {
	if err := s.store.Accounts(ctx).SetActive(ctx, accountID, false); err != nil {
		return err
	}
	s.revokeSessions(ctx, accountID)
	return nil
}

func (s *Service) revokeSessions(ctx context.Context, accountID string) {
	if err := s.store.Sessions(ctx).RevokeAllForAccount(ctx, accountID); err != nil {
		s.log.Printf(`{"level":"error","msg":"session revocation failed","account_id":%q,"error":%q}`,
			accountID, err.Error())
	}
}

// SweepReport summarizes one inactivation sweep run.
type SweepReport struct {
	Scanned     int
	Deactivated int
	Failures    map[string]error
}

// SweepInactive marks accounts inactive whose last login (or creation, if
// they never logged in) is older than the inactivity threshold. Idempotent:
// inactive accounts are not listed and therefore never touched. Per-account
// failures are collected; the sweep never aborts early. Plain inactivation
// does not revoke sessions; only future logins are blocked.
func (s *Service) SweepInactive(ctx context.Context) (SweepReport, error) {
	report := SweepReport{Failures: make(map[string]error)}
	active, err := s.store.Accounts(ctx).ListActive(ctx)
	if err != nil {
		return report, err
	}
	cutoff := s.now().Add(-s.inactivityThreshold)
	for _, a := range active {
		report.Scanned++
		if !a.LastSeen().Before(cutoff) {
			continue
		}
		if err := s.store.Accounts(ctx).SetActive(ctx, a.ID, false); err != nil {
			report.Failures[a.ID] = err
			continue
		}
		report.Deactivated++
	}
	return report, nil
}
