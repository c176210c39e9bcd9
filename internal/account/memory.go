package account

import (
	"context"
	"sync"
	"time"

	"eventara.org/internal/ids"
)

var _ Store = (*InMemory)(nil)

// InMemory is a Store kept entirely in process memory. It backs handler and
// service tests and mirrors the concurrency semantics of the Postgres store:
// every method is atomic with respect to the shared mutex, including the
// check-then-create in CreateWithProfile.
type InMemory struct {
	mu       sync.Mutex
	now      func() time.Time
	accounts map[string]*Account // by id
	profiles map[string]*Profile // by account id
	sessions map[string]*Session // by id
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		now:      time.Now,
		accounts: make(map[string]*Account),
		profiles: make(map[string]*Profile),
		sessions: make(map[string]*Session),
	}
}

// SetClock overrides the timestamp source. Only intended for tests.
func (m *InMemory) SetClock(fn func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn != nil {
		m.now = fn
	}
}

func (m *InMemory) Accounts(context.Context) AccountStore { return (*memAccounts)(m) }
func (m *InMemory) Profiles(context.Context) ProfileStore { return (*memProfiles)(m) }
func (m *InMemory) Sessions(context.Context) SessionStore { return (*memSessions)(m) }

func (m *InMemory) findByEmailLocked(email string) *Account {
	for _, a := range m.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func copyAccount(a *Account) *Account {
	cp := *a
	return &cp
}

type memAccounts InMemory

func (m *memAccounts) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if (*InMemory)(m).findByEmailLocked(a.Email) != nil {
		return ErrEmailTaken
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := m.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.accounts[a.ID] = copyAccount(a)
	return nil
}

func (m *memAccounts) CreateWithProfile(_ context.Context, a *Account, p *Profile) (*Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := (*InMemory)(m).findByEmailLocked(a.Email); existing != nil {
		return copyAccount(existing), false, nil
	}
	for _, prof := range m.profiles {
		if prof.Alias == p.Alias {
			return nil, false, ErrAliasTaken
		}
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := m.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.accounts[a.ID] = copyAccount(a)

	cp := *p
	cp.AccountID = a.ID
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.profiles[a.ID] = &cp
	return copyAccount(a), true, nil
}

func (m *memAccounts) Find(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(a), nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := (*InMemory)(m).findByEmailLocked(email)
	if a == nil {
		return nil, ErrNotFound
	}
	return copyAccount(a), nil
}

func (m *memAccounts) UpdatePassword(_ context.Context, id, passwordHash string, setByUser bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.PasswordSetByUser = setByUser
	a.UpdatedAt = m.now()
	return nil
}

func (m *memAccounts) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = m.now()
	return nil
}

func (m *memAccounts) SetSuspended(_ context.Context, id string, suspended bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Suspended = suspended
	a.Active = !suspended
	a.UpdatedAt = m.now()
	return nil
}

func (m *memAccounts) TouchLastLogin(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	t := m.now()
	a.LastLogin = &t
	a.UpdatedAt = t
	return nil
}

func (m *memAccounts) ListActive(_ context.Context) ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*Account
	for _, a := range m.accounts {
		if a.Active && !a.Suspended {
			res = append(res, copyAccount(a))
		}
	}
	return res, nil
}

type memProfiles InMemory

func (m *memProfiles) Create(_ context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, prof := range m.profiles {
		if prof.Alias == p.Alias {
			return ErrAliasTaken
		}
	}
	now := m.now()
	cp := *p
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.profiles[p.AccountID] = &cp
	return nil
}

func (m *memProfiles) FindByAccount(_ context.Context, accountID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) AliasTaken(_ context.Context, alias string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Alias == alias {
			return true, nil
		}
	}
	return false, nil
}

type memSessions InMemory

func (m *memSessions) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = ids.New()
	}
	s.CreatedAt = m.now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) Find(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Revoked = true
	}
	return nil
}

func (m *memSessions) RevokeAllForAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.AccountID == accountID {
			s.Revoked = true
		}
	}
	return nil
}
