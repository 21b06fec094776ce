package auth

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for identity users. The
// backing store must apply each update atomically per row so concurrent
// signup/resend/verify calls on the same email cannot interleave partial
// writes.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// UpdateOTP overwrites any pending code for the user.
	UpdateOTP(ctx context.Context, id, code string, expiry, updatedAt time.Time) error
	// ConsumeOTP marks the user verified and clears the pending code in one
	// conditional update. It reports false when no row matched, which means
	// the code was already consumed or replaced by a concurrent request.
	ConsumeOTP(ctx context.Context, id, code string, verifiedAt time.Time) (bool, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate, updatedAt time.Time) (*User, error)
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	FullName         *string
	BloodGroup       *string
	ExistingDiseases *string
}
