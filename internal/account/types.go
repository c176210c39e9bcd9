package account

import "time"

// Providers recorded on accounts. An account created through the normal
// registration form carries ProviderEmail; accounts auto-provisioned from a
// Google sign-in carry ProviderGoogle and a placeholder password hash.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// Roles assignable to accounts. The default role is seeded by migration and
// must exist before any account can be provisioned.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the authenticatable identity record.
//
// Suspension and activity are independent axes: Suspended is an
// administrative, user-irreversible block, while Active flips to false after
// prolonged inactivity and back to true through the reactivation flow.
type Account struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	Active            bool       `json:"active"`
	Suspended         bool       `json:"suspended"`
	AuthProvider      string     `json:"auth_provider,omitempty"`
	PasswordSetByUser bool       `json:"-"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	LastLogin         *time.Time `json:"last_login,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CanLogin reports whether the account passes the state gate. Credentials are
// checked separately; a false return with Suspended=false means the account
// must go through reactivation first.
func (a *Account) CanLogin() bool {
	return !a.Suspended && a.Active
}

// LastSeen returns the reference instant for the inactivity sweep: the last
// login, or the creation time for accounts that never logged in.
func (a *Account) LastSeen() time.Time {
	if a.LastLogin != nil {
		return *a.LastLogin
	}
	return a.CreatedAt
}

// HasUsablePassword reports whether password-based login is permitted.
// OAuth-provisioned accounts hold a random placeholder hash until the user
// explicitly sets a password.
func (a *Account) HasUsablePassword() bool {
	return a.PasswordHash != "" && a.PasswordSetByUser
}

// Summary is the client-facing shape of an account. Password material and
// internal flags never leave the service.
type Summary struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Active          bool       `json:"active"`
	AuthProvider    string     `json:"auth_provider,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLogin       *time.Time `json:"last_login,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Summarize converts an account to its client-facing shape.
func (a *Account) Summarize() Summary {
	return Summary{
		ID:              a.ID,
		Email:           a.Email,
		Role:            a.Role,
		Active:          a.Active,
		AuthProvider:    a.AuthProvider,
		EmailVerifiedAt: a.EmailVerifiedAt,
		LastLogin:       a.LastLogin,
		CreatedAt:       a.CreatedAt,
	}
}

// NotificationPreferences controls which email categories a profile receives.
type NotificationPreferences struct {
	EventUpdates           bool `json:"event_updates"`
	VolunteerOpportunities bool `json:"volunteer_opportunities"`
	Newsletter             bool `json:"newsletter"`
	AccountSecurity        bool `json:"account_security"`
	Marketing              bool `json:"marketing"`
}

// Preferences is the nested preferences document stored on a profile.
type Preferences struct {
	Darkmode           bool                    `json:"darkmode"`
	EmailNotifications NotificationPreferences `json:"email_notifications"`
}

// DefaultPreferences returns the preferences applied to auto-provisioned
// profiles: security notices on, marketing off.
func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: NotificationPreferences{
			EventUpdates:           true,
			VolunteerOpportunities: true,
			Newsletter:             false,
			AccountSecurity:        true,
			Marketing:              false,
		},
	}
}

// Profile is the user-facing display record, 1:1 with an account. A profile
// is not required for an account to authenticate.
type Profile struct {
	AccountID   string      `json:"account_id"`
	Alias       string      `json:"alias"`
	FirstName   string      `json:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	BannerURL   string      `json:"banner_url,omitempty"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Session is a persisted authenticated session. Tokens reference a session
// row so administrative suspension can revoke them server-side.
type Session struct {
	ID        string
	AccountID string
	TokenHash string
	Remember  bool
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// ExternalIdentity is the subset of an OAuth provider profile the linking
// flow consumes.
type ExternalIdentity struct {
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}
