package memory

import (
	"context"
	"testing"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email string) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:        id,
		Email:     email,
		FullName:  "Jane",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndLookup(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("u1", "jane@x.com")))
	assert.ErrorIs(t, repo.Create(ctx, newUser("u2", "jane@x.com")), domain.ErrEmailExists)

	byEmail, err := repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	byID, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, byID.ID)

	_, err = repo.GetByEmail(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLookupsReturnCopies(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("u1", "jane@x.com")))

	first, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	first.FullName = "mutated"

	second, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", second.FullName)
}

func TestConsumeOTPIsConditional(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newUser("u1", "jane@x.com")))
	require.NoError(t, repo.UpdateOTP(ctx, "u1", "123456", now.Add(10*time.Minute), now))

	// Wrong code does not consume.
	ok, err := repo.ConsumeOTP(ctx, "u1", "000000", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ConsumeOTP(ctx, "u1", "123456", now)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.OTP)
	assert.Nil(t, user.OTPExpiry)

	// Already consumed: the same code is rejected.
	ok, err = repo.ConsumeOTP(ctx, "u1", "123456", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateOTPUnknownUser(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()

	err := repo.UpdateOTP(context.Background(), "ghost", "123456", time.Now(), time.Now())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
