package mailer

import (
	"context"
	"sync"
	"time"

	"eventara.org/internal/otp"
)

// SentMail is one delivery captured by the Fake.
type SentMail struct {
	To      string
	Purpose otp.Purpose
	Code    string
	TTL     time.Duration
}

// Fake records deliveries in memory. Tests use it to observe the code that
// would have gone out; an optional Err simulates transport failure.
type Fake struct {
	mu   sync.Mutex
	sent []SentMail

	// Err, when set, is returned by every SendCode call.
	Err error
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) SendCode(_ context.Context, to string, purpose otp.Purpose, code string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.sent = append(f.sent, SentMail{To: to, Purpose: purpose, Code: code, TTL: ttl})
	return nil
}

// Sent returns a copy of everything delivered so far.
func (f *Fake) Sent() []SentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMail, len(f.sent))
	copy(out, f.sent)
	return out
}

// Last returns the most recent delivery, or false when nothing was sent.
func (f *Fake) Last() (SentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return SentMail{}, false
	}
	return f.sent[len(f.sent)-1], true
}
