package auth

import (
	"context"
	"time"
)

// TokenKind discriminates access tokens from refresh tokens.
type TokenKind string

const (
	// TokenKindAccess marks a short-lived token authorizing API calls.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh marks a long-lived token used only to mint new
	// access tokens.
	TokenKindRefresh TokenKind = "refresh"
)

// TokenManager abstracts issuance and verification of session tokens.
type TokenManager interface {
	IssueAccess(userID, email string) (string, error)
	IssueRefresh(userID, email string) (string, error)
	// Verify returns the embedded user id when the token is valid and of
	// the expected kind.
	Verify(token string, kind TokenKind) (string, error)
	AccessTTL() time.Duration
}

// Mailer delivers verification codes out-of-band.
type Mailer interface {
	SendOTP(ctx context.Context, email, fullName, code string) error
}
