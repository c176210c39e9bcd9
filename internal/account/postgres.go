package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"eventara.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Accounts(context.Context) AccountStore { return &pgAccountStore{db: s.db} }
func (s *PGStore) Profiles(context.Context) ProfileStore { return &pgProfileStore{db: s.db} }
func (s *PGStore) Sessions(context.Context) SessionStore { return &pgSessionStore{db: s.db} }

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Account store -------------------------------------------------------------

type pgAccountStore struct{ db *sql.DB }

const accountColumns = `id, email, password_hash, role, active, suspended,
	auth_provider, password_set_by_user, email_verified_at, last_login,
	created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var (
		a        Account
		provider sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Active,
		&a.Suspended, &provider, &a.PasswordSetByUser, &a.EmailVerifiedAt,
		&a.LastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.AuthProvider = provider.String
	return &a, nil
}

func (s *pgAccountStore) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	// returning backfills the db-defaulted timestamps so callers can serve
	// the struct without a re-read.
	err := s.db.QueryRowContext(ctx,
		`insert into accounts(id, email, password_hash, role, active, suspended,
		   auth_provider, password_set_by_user, email_verified_at)
		 values($1,$2,$3,$4,$5,$6,nullif($7,''),$8,$9)
		 returning created_at, updated_at`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.Active, a.Suspended,
		a.AuthProvider, a.PasswordSetByUser, a.EmailVerifiedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *pgAccountStore) CreateWithProfile(ctx context.Context, a *Account, p *Profile) (*Account, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	// Re-check inside the transaction: a concurrent callback may have
	// provisioned this email since the caller's initial lookup.
	existing, err := scanAccount(tx.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email=$1`, a.Email))
	if err == nil {
		return existing, false, tx.Commit()
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err = tx.ExecContext(ctx,
		`insert into accounts(id, email, password_hash, role, active, suspended,
		   auth_provider, password_set_by_user, email_verified_at)
		 values($1,$2,$3,$4,$5,$6,nullif($7,''),$8,$9)`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.Active, a.Suspended,
		a.AuthProvider, a.PasswordSetByUser, a.EmailVerifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race after the re-check; surface the winner's row.
			winner, ferr := s.FindByEmail(ctx, a.Email)
			if ferr != nil {
				return nil, false, fmt.Errorf("reload after unique violation: %w", ferr)
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	p.AccountID = a.ID
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return nil, false, err
	}
	_, err = tx.ExecContext(ctx,
		`insert into profiles(account_id, alias, first_name, last_name,
		   avatar_url, banner_url, preferences)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		p.AccountID, p.Alias, p.FirstName, p.LastName, p.AvatarURL, p.BannerURL, prefs,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrAliasTaken
		}
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	out, err := s.Find(ctx, a.ID)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *pgAccountStore) Find(ctx context.Context, id string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id))
}

func (s *pgAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email=$1`, email))
}

func (s *pgAccountStore) UpdatePassword(ctx context.Context, id, passwordHash string, setByUser bool) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set password_hash=$2, password_set_by_user=$3, updated_at=now() where id=$1`,
		id, passwordHash, setByUser)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *pgAccountStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set active=$2, updated_at=now() where id=$1`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *pgAccountStore) SetSuspended(ctx context.Context, id string, suspended bool) error {
	// Suspension implies deactivation; lifting it restores the account so the
	// user can log in again without a reactivation round-trip.
	res, err := s.db.ExecContext(ctx,
		`update accounts set suspended=$2,
		   active = not $2,
		   updated_at=now()
		 where id=$1`, id, suspended)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *pgAccountStore) TouchLastLogin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set last_login=now(), updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *pgAccountStore) ListActive(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from accounts
		 where active and not suspended order by created_at asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Profile store --------------------------------------------------------------

type pgProfileStore struct{ db *sql.DB }

func (s *pgProfileStore) Create(ctx context.Context, p *Profile) error {
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into profiles(account_id, alias, first_name, last_name,
		   avatar_url, banner_url, preferences)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		p.AccountID, p.Alias, p.FirstName, p.LastName, p.AvatarURL, p.BannerURL, prefs,
	)
	if isUniqueViolation(err) {
		return ErrAliasTaken
	}
	return err
}

func (s *pgProfileStore) FindByAccount(ctx context.Context, accountID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`select account_id, alias, first_name, last_name, avatar_url,
		   banner_url, preferences, created_at, updated_at
		 from profiles where account_id=$1`, accountID)
	var (
		p     Profile
		prefs []byte
	)
	if err := row.Scan(&p.AccountID, &p.Alias, &p.FirstName, &p.LastName,
		&p.AvatarURL, &p.BannerURL, &prefs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(prefs, &p.Preferences)
	return &p, nil
}

func (s *pgProfileStore) AliasTaken(ctx context.Context, alias string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(1) from profiles where alias=$1`, alias).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Session store --------------------------------------------------------------

type pgSessionStore struct{ db *sql.DB }

func (s *pgSessionStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, account_id, token_hash, remember, expires_at)
		 values($1,$2,$3,$4,$5)`,
		sess.ID, sess.AccountID, sess.TokenHash, sess.Remember, sess.ExpiresAt,
	)
	return err
}

func (s *pgSessionStore) Find(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, account_id, token_hash, remember, expires_at, revoked, created_at
		 from sessions where id=$1`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.AccountID, &sess.TokenHash, &sess.Remember,
		&sess.ExpiresAt, &sess.Revoked, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *pgSessionStore) Revoke(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set revoked=true where id=$1`, id)
	return err
}

func (s *pgSessionStore) RevokeAllForAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set revoked=true where account_id=$1 and not revoked`, accountID)
	return err
}
