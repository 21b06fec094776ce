package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
)

// CodeLength is the number of decimal digits in a verification code.
const CodeLength = 6

// Engine generates, stores, and validates one-time verification codes.
type Engine struct {
	users   domain.UserRepository
	window  time.Duration
	nowFunc func() time.Time
}

// NewEngine constructs an engine issuing codes valid for the given window.
func NewEngine(users domain.UserRepository, window time.Duration) *Engine {
	return &Engine{
		users:   users,
		window:  window,
		nowFunc: time.Now,
	}
}

// Generate produces a uniformly random 6-digit code.
func Generate() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	n := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}

// Assign generates a fresh code and stamps it on the user without touching
// storage. Used when the user row itself is about to be inserted.
func (e *Engine) Assign(user *domain.User) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", err
	}
	expiry := e.nowFunc().UTC().Add(e.window)
	user.OTP = &code
	user.OTPExpiry = &expiry
	return code, nil
}

// Issue generates a fresh code, overwrites any pending one, and persists it.
// The updated code and expiry are reflected on the passed user.
func (e *Engine) Issue(ctx context.Context, user *domain.User) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", err
	}

	now := e.nowFunc().UTC()
	expiry := now.Add(e.window)
	if err := e.users.UpdateOTP(ctx, user.ID, code, expiry, now); err != nil {
		return "", err
	}

	user.OTP = &code
	user.OTPExpiry = &expiry
	user.UpdatedAt = now
	return code, nil
}

// Validate checks a submitted code against the user's pending one. Expired
// and mismatched codes are not consumed; consumption happens in the verify
// flow through a conditional store update.
func (e *Engine) Validate(user *domain.User, submitted string) error {
	if user.OTP == nil || user.OTPExpiry == nil {
		return domain.ErrOTPMissing
	}
	if e.nowFunc().UTC().After(*user.OTPExpiry) {
		return domain.ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*user.OTP), []byte(submitted)) != 1 {
		return domain.ErrOTPMismatch
	}
	return nil
}

// Window reports the configured code validity duration.
func (e *Engine) Window() time.Duration {
	return e.window
}
