package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
	"github.com/verra-health/identity-api/internal/infrastructure/memory"
	"github.com/verra-health/identity-api/internal/usecase/otp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenManager issues predictable tokens of the form "<kind>.<userID>".
type fakeTokenManager struct{}

func (f *fakeTokenManager) IssueAccess(userID, email string) (string, error) {
	return "access." + userID, nil
}

func (f *fakeTokenManager) IssueRefresh(userID, email string) (string, error) {
	return "refresh." + userID, nil
}

func (f *fakeTokenManager) Verify(token string, kind TokenKind) (string, error) {
	if token == "" {
		return "", domain.ErrTokenMissing
	}
	prefix, userID, ok := strings.Cut(token, ".")
	if !ok {
		return "", domain.ErrTokenMalformed
	}
	if prefix != string(kind) {
		return "", domain.ErrTokenKindMismatch
	}
	return userID, nil
}

func (f *fakeTokenManager) AccessTTL() time.Duration {
	return time.Hour
}

// recordingMailer captures sent codes and can be told to fail.
type recordingMailer struct {
	codes []string
	to    []string
	fail  bool
}

func (m *recordingMailer) SendOTP(ctx context.Context, email, fullName, code string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.codes = append(m.codes, code)
	m.to = append(m.to, email)
	return nil
}

func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.codes, "no code was mailed")
	return m.codes[len(m.codes)-1]
}

type fixture struct {
	repo    *memory.UserRepository
	engine  *otp.Engine
	mailer  *recordingMailer
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewUserRepository()
	engine := otp.NewEngine(repo, 10*time.Minute)
	mailer := &recordingMailer{}
	service := NewService(repo, engine, &fakeTokenManager{}, mailer)
	return &fixture{repo: repo, engine: engine, mailer: mailer, service: service}
}

func validSignup() SignupInput {
	return SignupInput{
		FullName:         "Jane",
		Email:            "jane@x.com",
		Password:         "secret1",
		BloodGroup:       "O+",
		ExistingDiseases: "",
	}
}

func TestSignupCreatesUnverifiedAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "jane@x.com", result.Email)

	user, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	require.NotNil(t, user.OTP)
	require.NotNil(t, user.OTPExpiry)
	assert.Len(t, *user.OTP, otp.CodeLength)
	assert.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), *user.OTPExpiry, 5*time.Second)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	assert.Equal(t, []string{*user.OTP}, f.mailer.codes)
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"missing full name", func(in *SignupInput) { in.FullName = " " }},
		{"missing email", func(in *SignupInput) { in.Email = "" }},
		{"malformed email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"short password", func(in *SignupInput) { in.Password = "abc" }},
		{"missing blood group", func(in *SignupInput) { in.BloodGroup = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validSignup()
			tc.mutate(&in)
			_, err := f.service.Signup(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSignupNormalizesEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	in := validSignup()
	in.Email = "  Jane@X.Com "
	result, err := f.service.Signup(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", result.Email)

	_, err = f.repo.GetByEmail(ctx, "jane@x.com")
	assert.NoError(t, err)
}

func TestSignupVerifiedDuplicate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	_, err = f.service.Signup(ctx, validSignup())
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestSignupUnverifiedDuplicateReissuesCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.True(t, first.Created)
	firstUser, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)

	second, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.False(t, second.Created, "re-signup must not create a duplicate")

	secondUser, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, firstUser.ID, secondUser.ID)
	assert.Len(t, f.mailer.codes, 2)
	assert.Equal(t, *secondUser.OTP, f.mailer.lastCode(t))
}

func TestSignupMailFailureKeepsStoredCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.mailer.fail = true
	_, err := f.service.Signup(ctx, validSignup())
	assert.ErrorIs(t, err, domain.ErrOTPDelivery)

	// The account and its code survive the delivery failure so a resend
	// can pick them up.
	user, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.NotNil(t, user.OTP)

	f.mailer.fail = false
	require.NoError(t, f.service.ResendOTP(ctx, "jane@x.com"))
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	assert.NoError(t, err)
}

func TestVerifyOTPSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)

	pair, user, err := f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)
	assert.Equal(t, "access."+user.ID, pair.AccessToken)
	assert.Equal(t, "refresh."+user.ID, pair.RefreshToken)
	assert.Equal(t, int64(3600), pair.ExpiresIn)
	assert.True(t, user.IsVerified)
	assert.Empty(t, user.PasswordHash)
	assert.Nil(t, user.OTP)

	stored, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.OTP)
	assert.Nil(t, stored.OTPExpiry)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)

	code := f.mailer.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", wrong)
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)

	// The stored code is untouched and still redeemable.
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", code)
	assert.NoError(t, err)
}

func TestVerifyOTPExpiredNotConsumed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	user, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)

	// Backdate the expiry to simulate the window elapsing.
	expired := time.Now().UTC().Add(-time.Minute)
	code := *user.OTP
	require.NoError(t, f.repo.UpdateOTP(ctx, user.ID, code, expired, time.Now().UTC()))

	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", code)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)

	stored, err := f.repo.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.OTP, "expired code must not be consumed")

	require.NoError(t, f.service.ResendOTP(ctx, "jane@x.com"))
	fresh := f.mailer.lastCode(t)
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", fresh)
	assert.NoError(t, err)
}

func TestVerifyOTPAlreadyVerified(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	code := f.mailer.lastCode(t)

	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", code)
	require.NoError(t, err)

	// A second submission of the consumed code is rejected.
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", code)
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestVerifyOTPUnknownEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, _, err := f.service.VerifyOTP(context.Background(), "ghost@x.com", "123456")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestResendOTP(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.service.ResendOTP(ctx, "ghost@x.com"), domain.ErrUserNotFound)

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	require.NoError(t, f.service.ResendOTP(ctx, "jane@x.com"))
	assert.Len(t, f.mailer.codes, 2)

	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)
	assert.ErrorIs(t, f.service.ResendOTP(ctx, "jane@x.com"), domain.ErrAlreadyVerified)
}

func TestLoginBeforeVerification(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, _, err = f.service.Login(ctx, domain.Credentials{Email: "jane@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, domain.ErrEmailNotVerified)
}

func TestLoginUniformErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	_, _, errUnknown := f.service.Login(ctx, domain.Credentials{Email: "ghost@x.com", Password: "secret1"})
	_, _, errWrongPass := f.service.Login(ctx, domain.Credentials{Email: "jane@x.com", Password: "wrong-password"})

	assert.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPass, domain.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	_, _, err = f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	pair, user, err := f.service.Login(ctx, domain.Credentials{Email: "jane@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "access."+user.ID, pair.AccessToken)
	assert.Equal(t, "refresh."+user.ID, pair.RefreshToken)
	assert.Empty(t, user.PasswordHash)
	assert.True(t, user.IsVerified)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	pair, user, err := f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	access, err := f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "access."+user.ID, access)

	_, err = f.service.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenKindMismatch)

	_, err = f.service.Refresh(ctx, "refresh.unknown-user")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Signup(ctx, validSignup())
	require.NoError(t, err)
	pair, verified, err := f.service.VerifyOTP(ctx, "jane@x.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	user, err := f.service.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, verified.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	_, err = f.service.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenKindMismatch)

	_, err = f.service.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrTokenMissing)
}
