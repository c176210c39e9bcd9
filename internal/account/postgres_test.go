package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var accountRowColumns = []string{
	"id", "email", "password_hash", "role", "active", "suspended",
	"auth_provider", "password_set_by_user", "email_verified_at", "last_login",
	"created_at", "updated_at",
}

func accountRow(id, email string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(accountRowColumns).
		AddRow(id, email, "$2a$10$hash", RoleUser, true, false,
			"google", false, nil, nil, now, now)
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "accounts_email_key"}
}

func TestPGCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into accounts").
		WithArgs(sqlmock.AnyArg(), "alice@example.com", sqlmock.AnyArg(), RoleUser,
			true, false, "", true, nil).
		WillReturnError(uniqueViolation())

	store := NewPGStore(db)
	err = store.Accounts(context.Background()).Create(context.Background(), &Account{
		Email:             "alice@example.com",
		PasswordHash:      "$2a$10$hash",
		Role:              RoleUser,
		Active:            true,
		PasswordSetByUser: true,
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateBackfillsTimestamps(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("insert into accounts.*returning created_at, updated_at").
		WithArgs(sqlmock.AnyArg(), "alice@example.com", sqlmock.AnyArg(), RoleUser,
			true, false, "", true, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	store := NewPGStore(db)
	a := &Account{
		Email:             "alice@example.com",
		PasswordHash:      "$2a$10$hash",
		Role:              RoleUser,
		Active:            true,
		PasswordSetByUser: true,
	}
	if err := store.Accounts(context.Background()).Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not backfilled: created=%v updated=%v", a.CreatedAt, a.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, email, password_hash.*from accounts where email=").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns))

	store := NewPGStore(db)
	if _, err := store.Accounts(context.Background()).FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSetSuspended(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update accounts set suspended=").
		WithArgs("acct-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db)
	if err := store.Accounts(context.Background()).SetSuspended(context.Background(), "acct-1", true); err != nil {
		t.Fatalf("SetSuspended: %v", err)
	}

	// Zero rows touched means the account does not exist.
	mock.ExpectExec("update accounts set suspended=").
		WithArgs("acct-missing", false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Accounts(context.Background()).SetSuspended(context.Background(), "acct-missing", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGUpdatePasswordRequiresRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update accounts set password_hash=").
		WithArgs("acct-missing", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewPGStore(db)
	if err := store.Accounts(context.Background()).UpdatePassword(context.Background(), "acct-missing", "$2a$10$new", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateWithProfile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select id, email, password_hash.*from accounts where email=").
		WithArgs("jdoe@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns))
	mock.ExpectExec("insert into accounts").
		WithArgs("acct-1", "jdoe@example.com", sqlmock.AnyArg(), RoleUser,
			true, false, "google", false, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into profiles").
		WithArgs("acct-1", "jdoe", "Jane", "Doe", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("select id, email, password_hash.*from accounts where id=").
		WithArgs("acct-1").
		WillReturnRows(accountRow("acct-1", "jdoe@example.com"))

	store := NewPGStore(db)
	a := &Account{
		ID:           "acct-1",
		Email:        "jdoe@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         RoleUser,
		Active:       true,
		AuthProvider: ProviderGoogle,
	}
	p := &Profile{Alias: "jdoe", FirstName: "Jane", LastName: "Doe", Preferences: DefaultPreferences()}

	out, created, err := store.Accounts(context.Background()).CreateWithProfile(context.Background(), a, p)
	if err != nil {
		t.Fatalf("CreateWithProfile: %v", err)
	}
	if !created {
		t.Fatal("expected created=true")
	}
	if out.ID != "acct-1" || p.AccountID != "acct-1" {
		t.Fatalf("ids: account=%s profile=%s", out.ID, p.AccountID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateWithProfileRecheckFindsWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select id, email, password_hash.*from accounts where email=").
		WithArgs("jdoe@example.com").
		WillReturnRows(accountRow("acct-winner", "jdoe@example.com"))
	mock.ExpectCommit()

	store := NewPGStore(db)
	a := &Account{Email: "jdoe@example.com", Role: RoleUser, Active: true}
	p := &Profile{Alias: "jdoe", Preferences: DefaultPreferences()}

	out, created, err := store.Accounts(context.Background()).CreateWithProfile(context.Background(), a, p)
	if err != nil {
		t.Fatalf("CreateWithProfile: %v", err)
	}
	if created {
		t.Fatal("expected created=false when the email already exists")
	}
	if out.ID != "acct-winner" {
		t.Fatalf("out.ID = %s", out.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateWithProfileInsertRaceReloadsWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select id, email, password_hash.*from accounts where email=").
		WithArgs("jdoe@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns))
	mock.ExpectExec("insert into accounts").
		WillReturnError(uniqueViolation())
	mock.ExpectQuery("select id, email, password_hash.*from accounts where email=").
		WithArgs("jdoe@example.com").
		WillReturnRows(accountRow("acct-winner", "jdoe@example.com"))
	mock.ExpectRollback()

	store := NewPGStore(db)
	a := &Account{Email: "jdoe@example.com", Role: RoleUser, Active: true}
	p := &Profile{Alias: "jdoe", Preferences: DefaultPreferences()}

	out, created, err := store.Accounts(context.Background()).CreateWithProfile(context.Background(), a, p)
	if err != nil {
		t.Fatalf("CreateWithProfile: %v", err)
	}
	if created {
		t.Fatal("race loser must report created=false")
	}
	if out.ID != "acct-winner" {
		t.Fatalf("out.ID = %s", out.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateWithProfileAliasTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select id, email, password_hash.*from accounts where email=").
		WithArgs("jdoe@example.com").
		WillReturnRows(sqlmock.NewRows(accountRowColumns))
	mock.ExpectExec("insert into accounts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into profiles").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "profiles_alias_key"})
	mock.ExpectRollback()

	store := NewPGStore(db)
	a := &Account{Email: "jdoe@example.com", Role: RoleUser, Active: true}
	p := &Profile{Alias: "jdoe", Preferences: DefaultPreferences()}

	if _, _, err := store.Accounts(context.Background()).CreateWithProfile(context.Background(), a, p); !errors.Is(err, ErrAliasTaken) {
		t.Fatalf("got %v, want ErrAliasTaken", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGProfileFindByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	prefs := []byte(`{"darkmode":true,"email_notifications":{"account_security":true}}`)
	mock.ExpectQuery("select account_id, alias.*from profiles where account_id=").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"account_id", "alias", "first_name", "last_name", "avatar_url",
			"banner_url", "preferences", "created_at", "updated_at",
		}).AddRow("acct-1", "jdoe", "Jane", "Doe", "", "", prefs, now, now))

	store := NewPGStore(db)
	p, err := store.Profiles(context.Background()).FindByAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("FindByAccount: %v", err)
	}
	if p.Alias != "jdoe" || !p.Preferences.Darkmode {
		t.Fatalf("profile: %+v", p)
	}
	if !p.Preferences.EmailNotifications.AccountSecurity {
		t.Fatal("preferences document not decoded")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGAliasTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select count\(1\) from profiles where alias=`).
		WithArgs("jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`select count\(1\) from profiles where alias=`).
		WithArgs("free").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	store := NewPGStore(db)
	taken, err := store.Profiles(context.Background()).AliasTaken(context.Background(), "jdoe")
	if err != nil || !taken {
		t.Fatalf("taken=%v err=%v", taken, err)
	}
	taken, err = store.Profiles(context.Background()).AliasTaken(context.Background(), "free")
	if err != nil || taken {
		t.Fatalf("taken=%v err=%v", taken, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGSessionRevokeAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update sessions set revoked=true where account_id=").
		WithArgs("acct-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewPGStore(db)
	if err := store.Sessions(context.Background()).RevokeAllForAccount(context.Background(), "acct-1"); err != nil {
		t.Fatalf("RevokeAllForAccount: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
