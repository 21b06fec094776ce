package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
)

// UserRepository is an in-memory implementation of the user repository.
// A single mutex stands in for the row-level atomicity the SQL store
// provides, which keeps the OTP consume path race-free here too.
type UserRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewUserRepository constructs an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

var _ domain.UserRepository = (*UserRepository)(nil)

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return domain.ErrEmailExists
	}
	stored := cloneUser(user)
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByEmail fetches a user by its normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(user), nil
}

// UpdateOTP overwrites the pending verification code for a user.
func (r *UserRepository) UpdateOTP(ctx context.Context, id, code string, expiry, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.OTP = &code
	user.OTPExpiry = &expiry
	user.UpdatedAt = updatedAt
	return nil
}

// ConsumeOTP marks the user verified and clears the code when the stored
// code still matches and the user is still unverified.
func (r *UserRepository) ConsumeOTP(ctx context.Context, id, code string, verifiedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	if user.IsVerified || user.OTP == nil || *user.OTP != code {
		return false, nil
	}
	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiry = nil
	user.UpdatedAt = verifiedAt
	return true, nil
}

// UpdateProfile applies the non-nil fields and returns the updated user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, updatedAt time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.BloodGroup != nil {
		user.BloodGroup = *update.BloodGroup
	}
	if update.ExistingDiseases != nil {
		user.ExistingDiseases = *update.ExistingDiseases
	}
	user.UpdatedAt = updatedAt
	return cloneUser(user), nil
}

func cloneUser(u *domain.User) *domain.User {
	copy := *u
	if u.OTP != nil {
		otp := *u.OTP
		copy.OTP = &otp
	}
	if u.OTPExpiry != nil {
		expiry := *u.OTPExpiry
		copy.OTPExpiry = &expiry
	}
	return &copy
}
