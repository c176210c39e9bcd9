// Package mailer delivers transactional email for the auth flows. The only
// messages the subsystem sends are one-time codes, so the interface is
// deliberately narrow.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"eventara.org/internal/otp"
)

// ErrDeliveryFailed wraps transport-level send errors. Callers report it to
// the user without leaking SMTP detail.
var ErrDeliveryFailed = errors.New("mailer: delivery failed")

// Mailer sends a one-time code to an address. Implementations must not log
// the code value.
type Mailer interface {
	SendCode(ctx context.Context, to string, purpose otp.Purpose, code string, ttl time.Duration) error
}

// SMTPConfig carries the dialer settings for the SMTP mailer.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTP delivers code emails over a plain SMTP relay.
type SMTP struct {
	cfg SMTPConfig
	log *log.Logger
}

// NewSMTP creates an SMTP mailer. It fails fast on incomplete config rather
// than discovering the gap on the first password reset.
func NewSMTP(cfg SMTPConfig, logger *log.Logger) (*SMTP, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("mailer: smtp host and from address are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SMTP{cfg: cfg, log: logger}, nil
}

func (s *SMTP) SendCode(ctx context.Context, to string, purpose otp.Purpose, code string, ttl time.Duration) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: empty recipient", ErrDeliveryFailed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectFor(purpose))
	m.SetBody("text/html", htmlBody(purpose, code, ttl))
	m.AddAlternative("text/plain", textBody(purpose, code, ttl))

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	s.log.Printf(`{"type":"mailer","event":"code_sent","purpose":%q,"to":%q}`, purpose, to)
	return nil
}

func subjectFor(purpose otp.Purpose) string {
	switch purpose {
	case otp.PurposeReactivate:
		return "Eventara account reactivation code"
	default:
		return "Eventara password reset code"
	}
}

func introFor(purpose otp.Purpose) string {
	switch purpose {
	case otp.PurposeReactivate:
		return "Use this code to reactivate your Eventara account:"
	default:
		return "Use this code to reset your Eventara password:"
	}
}

func htmlBody(purpose otp.Purpose, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Eventara</h2>
    <p>%s</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</div>
    <p>The code expires in %d minutes. If you did not request it, you can ignore this email.</p>
  </div>
</body>
</html>`, introFor(purpose), code, int(ttl.Minutes()))
}

func textBody(purpose otp.Purpose, code string, ttl time.Duration) string {
	return fmt.Sprintf("%s\n\n%s\n\nThe code expires in %d minutes. If you did not request it, you can ignore this email.\n",
		introFor(purpose), code, int(ttl.Minutes()))
}
