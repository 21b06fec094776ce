package auth

import (
	"errors"
	"time"
)

var (
	// ErrValidation indicates malformed or missing request input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists signals a duplicate verified email registration.
	ErrEmailExists = errors.New("user with this email already exists")
	// ErrEmailNotVerified means the account exists but the email was never confirmed.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyVerified means the email was confirmed earlier.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrOTPMissing means no code is pending for the account.
	ErrOTPMissing = errors.New("no pending verification code")
	// ErrOTPExpired means the pending code is past its expiry.
	ErrOTPExpired = errors.New("verification code has expired")
	// ErrOTPMismatch means the submitted code does not match the pending one.
	ErrOTPMismatch = errors.New("invalid verification code")
	// ErrOTPDelivery indicates the code was stored but could not be emailed.
	ErrOTPDelivery = errors.New("failed to send verification email")

	// ErrTokenMissing means no token was supplied.
	ErrTokenMissing = errors.New("token is missing")
	// ErrTokenMalformed means a supplied token cannot be parsed or its signature fails.
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenExpired means the token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenKindMismatch means an access token was used where a refresh
	// token is required, or vice versa.
	ErrTokenKindMismatch = errors.New("invalid token type")
)

// User models the identity entity persisted in storage. An unverified user
// carries a pending OTP and its expiry; both are cleared on verification.
type User struct {
	ID               string
	Email            string
	FullName         string
	PasswordHash     string
	BloodGroup       string
	ExistingDiseases string
	IsVerified       bool
	OTP              *string
	OTPExpiry        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}
