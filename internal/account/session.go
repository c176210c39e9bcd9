package account

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"eventara.org/internal/ids"
)

// sessionClaims is the JWT payload carried by the session cookie. The sid
// claim references a persisted session row so administrative actions can
// revoke tokens server-side.
type sessionClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// StartSession persists a session for the account and returns the signed
// token. Remember-me sessions get the longer TTL.
func (s *Service) StartSession(ctx context.Context, a *Account, remember bool) (string, error) {
	if len(s.tokenSecret) == 0 {
		return "", errors.New("account: token secret is not configured")
	}
	now := s.now().UTC()
	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
	}

	sid := ids.New()
	claims := sessionClaims{
		SessionID: sid,
		Role:      a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	sess := &Session{
		ID:        sid,
		AccountID: a.ID,
		TokenHash: hashToken(token),
		Remember:  remember,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.Sessions(ctx).Create(ctx, sess); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return token, nil
}

// Authenticate resolves a session token to its account. It fails with
// ErrInvalidSession for any token that is malformed, expired, revoked, or
// belongs to an account that no longer passes the login gate.
func (s *Service) Authenticate(ctx context.Context, token string) (*Account, *Session, error) {
	claims, err := s.parseSessionToken(token)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}

	sess, err := s.store.Sessions(ctx).Find(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}
	if sess.Revoked || s.now().After(sess.ExpiresAt) {
		return nil, nil, ErrInvalidSession
	}
	if !secureCompareHash(sess.TokenHash, token) {
		return nil, nil, ErrInvalidSession
	}
	if sess.AccountID != claims.Subject {
		return nil, nil, ErrInvalidSession
	}

	a, err := s.store.Accounts(ctx).Find(ctx, sess.AccountID)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}
	if !a.CanLogin() {
		return nil, nil, ErrInvalidSession
	}
	return a, sess, nil
}

// EndSession revokes the session behind the token. Safe to call with a stale
// or malformed token: logout is idempotent.
func (s *Service) EndSession(ctx context.Context, token string) error {
	claims, err := s.parseSessionToken(token)
	if err != nil {
		return nil
	}
	return s.store.Sessions(ctx).Revoke(ctx, claims.SessionID)
}

func (s *Service) parseSessionToken(token string) (*sessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(s.tokenSecret) == 0 {
		return nil, ErrInvalidSession
	}
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSession
		}
		return s.tokenSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrInvalidSession
	}
	if claims.SessionID == "" || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func secureCompareHash(expectedHash, token string) bool {
	actual := hashToken(token)
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
