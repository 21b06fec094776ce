package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
)

// Service provides profile read and update use cases for authenticated
// users. Email and id are immutable; only the descriptive fields change.
type Service struct {
	users   domain.UserRepository
	nowFunc func() time.Time
}

// NewService constructs a profile service around the provided repository.
func NewService(users domain.UserRepository) *Service {
	return &Service{
		users:   users,
		nowFunc: time.Now,
	}
}

// UpdateInput defines the optional profile fields; nil leaves a field
// unchanged.
type UpdateInput struct {
	FullName         *string
	BloodGroup       *string
	ExistingDiseases *string
}

// Get retrieves the profile for a user id.
func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// Update applies the provided fields and bumps updated_at. An update with
// no fields set is rejected.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.User, error) {
	update := domain.ProfileUpdate{}

	if in.FullName != nil {
		trimmed := strings.TrimSpace(*in.FullName)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty", domain.ErrValidation)
		}
		update.FullName = &trimmed
	}
	if in.BloodGroup != nil {
		trimmed := strings.TrimSpace(*in.BloodGroup)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: blood group cannot be empty", domain.ErrValidation)
		}
		update.BloodGroup = &trimmed
	}
	if in.ExistingDiseases != nil {
		trimmed := strings.TrimSpace(*in.ExistingDiseases)
		update.ExistingDiseases = &trimmed
	}

	if update.FullName == nil && update.BloodGroup == nil && update.ExistingDiseases == nil {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrValidation)
	}

	user, err := s.users.UpdateProfile(ctx, id, update, s.nowFunc().UTC())
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	copy.OTP = nil
	copy.OTPExpiry = nil
	return &copy
}
