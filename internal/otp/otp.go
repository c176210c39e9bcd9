// Package otp implements the short-lived one-time codes backing the password
// reset and account reactivation flows: generation, Redis-backed storage and
// the per-account daily send limit.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Purpose distinguishes the two code flows. Codes and attempt counters are
// keyed per purpose, so a reset code can never redeem a reactivation.
type Purpose string

const (
	PurposeReset      Purpose = "reset"
	PurposeReactivate Purpose = "reactivate"
)

const (
	// CodeLength is the number of characters in a one-time code.
	CodeLength = 6

	// Alphabet deliberately excludes the visually ambiguous 0, O, 1 and I.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// CodeTTL is the fixed lifetime of a code from creation.
	CodeTTL = 30 * time.Minute

	// MaxSendsPerDay bounds code requests per account, purpose and calendar
	// day.
	MaxSendsPerDay = 5
)

var (
	ErrCodeNotFound = errors.New("otp: code not found")
	ErrRateLimited  = errors.New("otp: rate limited")
	ErrUnavailable  = errors.New("otp: cache unavailable")
)

// GenerateCode draws CodeLength characters uniformly from Alphabet using a
// cryptographically secure source. The code grants account control, so a
// predictable PRNG is never acceptable here.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("otp: generate code: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize prepares a user-supplied code for comparison: surrounding
// whitespace is stripped and the match is case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeKey addresses the single live code for an account and purpose.
type CodeKey struct {
	AccountID string
	Purpose   Purpose
}

func (k CodeKey) String() string {
	return "code:" + string(k.Purpose) + ":" + k.AccountID
}

// AttemptKey addresses the send counter for an account, purpose and calendar
// day. Embedding the day gives the counter its implicit midnight reset.
type AttemptKey struct {
	AccountID string
	Purpose   Purpose
	Day       string
}

// NewAttemptKey builds the attempt key for the UTC calendar day of t.
func NewAttemptKey(accountID string, purpose Purpose, t time.Time) AttemptKey {
	return AttemptKey{
		AccountID: accountID,
		Purpose:   purpose,
		Day:       t.UTC().Format("2006-01-02"),
	}
}

func (k AttemptKey) String() string {
	return "att:" + string(k.Purpose) + ":" + k.AccountID + ":" + k.Day
}

// Record is a stored one-time code with its expiry. Expiry is stored
// explicitly (not delegated to the cache TTL) so verification can compare
// against an injected clock.
type Record struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at the given instant.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Matches compares a user-supplied code against the stored one.
func (r Record) Matches(supplied string) bool {
	return Normalize(supplied) == r.Code
}
