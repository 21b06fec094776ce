package profile

import (
	"context"
	"testing"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
	"github.com/verra-health/identity-api/internal/infrastructure/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, repo *memory.UserRepository) *domain.User {
	t.Helper()
	now := time.Now().UTC().Add(-time.Hour)
	user := &domain.User{
		ID:               "user-1",
		Email:            "jane@x.com",
		FullName:         "Jane",
		PasswordHash:     "hashed",
		BloodGroup:       "O+",
		ExistingDiseases: "",
		IsVerified:       true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestGet(t *testing.T) {
	t.Parallel()
	repo := memory.NewUserRepository()
	service := NewService(repo)
	seeded := seedUser(t, repo)

	user, err := service.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.FullName)
	assert.Empty(t, user.PasswordHash, "password hash must not leak")

	_, err = service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdateAppliesFieldsAndBumpsUpdatedAt(t *testing.T) {
	t.Parallel()
	repo := memory.NewUserRepository()
	service := NewService(repo)
	seeded := seedUser(t, repo)

	user, err := service.Update(context.Background(), seeded.ID, UpdateInput{
		FullName:         strPtr("  Jane Doe "),
		ExistingDiseases: strPtr("asthma"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.FullName)
	assert.Equal(t, "asthma", user.ExistingDiseases)
	assert.Equal(t, "O+", user.BloodGroup, "unspecified field must be unchanged")
	assert.True(t, user.UpdatedAt.After(seeded.UpdatedAt))
	assert.Equal(t, seeded.Email, user.Email)
}

func TestUpdatePartial(t *testing.T) {
	t.Parallel()
	repo := memory.NewUserRepository()
	service := NewService(repo)
	seeded := seedUser(t, repo)

	user, err := service.Update(context.Background(), seeded.ID, UpdateInput{
		BloodGroup: strPtr("AB-"),
	})
	require.NoError(t, err)
	assert.Equal(t, "AB-", user.BloodGroup)
	assert.Equal(t, "Jane", user.FullName)
}

func TestUpdateValidation(t *testing.T) {
	t.Parallel()
	repo := memory.NewUserRepository()
	service := NewService(repo)
	seeded := seedUser(t, repo)

	_, err := service.Update(context.Background(), seeded.ID, UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.Update(context.Background(), seeded.ID, UpdateInput{FullName: strPtr("  ")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.Update(context.Background(), seeded.ID, UpdateInput{BloodGroup: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateClearingDiseasesAllowed(t *testing.T) {
	t.Parallel()
	repo := memory.NewUserRepository()
	service := NewService(repo)
	seeded := seedUser(t, repo)

	_, err := service.Update(context.Background(), seeded.ID, UpdateInput{
		ExistingDiseases: strPtr("asthma"),
	})
	require.NoError(t, err)

	user, err := service.Update(context.Background(), seeded.ID, UpdateInput{
		ExistingDiseases: strPtr(""),
	})
	require.NoError(t, err)
	assert.Empty(t, user.ExistingDiseases)
}

func TestUpdateUnknownUser(t *testing.T) {
	t.Parallel()
	service := NewService(memory.NewUserRepository())

	_, err := service.Update(context.Background(), "missing", UpdateInput{FullName: strPtr("Jane")})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
