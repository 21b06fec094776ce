package mail

import (
	"context"
	"log"

	usecase "github.com/verra-health/identity-api/internal/usecase/auth"
)

// LogMailer writes codes to the process log instead of sending email.
// Only wired up when SMTP is not configured; codes in logs are readable
// by anyone with log access, so this is for local development only.
type LogMailer struct{}

// NewLogMailer constructs a logging mailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

var _ usecase.Mailer = (*LogMailer)(nil)

// SendOTP logs the code instead of delivering it.
func (m *LogMailer) SendOTP(ctx context.Context, email, fullName, code string) error {
	log.Printf("mail: verification code for %s: %s", email, code)
	return nil
}
