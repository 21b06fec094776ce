package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
	"github.com/verra-health/identity-api/internal/usecase/otp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 6

// dummyHash is compared against when the email is unknown so login timing
// does not reveal whether an account exists.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("credential-placeholder"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// Service orchestrates the signup/verify/login lifecycle, coordinating the
// credential store, OTP engine, token manager, and mailer.
type Service struct {
	users   domain.UserRepository
	codes   *otp.Engine
	tokens  TokenManager
	mailer  Mailer
	nowFunc func() time.Time
}

// NewService constructs the auth service.
func NewService(users domain.UserRepository, codes *otp.Engine, tokens TokenManager, mailer Mailer) *Service {
	return &Service{
		users:   users,
		codes:   codes,
		tokens:  tokens,
		mailer:  mailer,
		nowFunc: time.Now,
	}
}

// SignupInput carries raw registration fields.
type SignupInput struct {
	FullName         string
	Email            string
	Password         string
	BloodGroup       string
	ExistingDiseases string
}

// SignupResult reports the outcome of a signup request. Created is false
// when an existing unverified account had its code reissued instead.
type SignupResult struct {
	Email   string
	Created bool
}

// TokenPair bundles a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Signup registers a new unverified account and emails it a verification
// code. Signing up again with an unverified email reissues the code on the
// existing account rather than creating a duplicate; a verified email is a
// conflict.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	bloodGroup := strings.TrimSpace(in.BloodGroup)
	diseases := strings.TrimSpace(in.ExistingDiseases)

	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", domain.ErrValidation)
	}
	if email == "" || !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: valid email address is required", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters long", domain.ErrValidation, minPasswordLength)
	}
	if bloodGroup == "" {
		return nil, fmt.Errorf("%w: blood group is required", domain.ErrValidation)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return nil, domain.ErrEmailExists
		}
		code, err := s.codes.Issue(ctx, existing)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendOTP(ctx, existing.Email, existing.FullName, code); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrOTPDelivery, err)
		}
		return &SignupResult{Email: email, Created: false}, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:               uuid.NewString(),
		Email:            email,
		FullName:         fullName,
		PasswordHash:     string(hashed),
		BloodGroup:       bloodGroup,
		ExistingDiseases: diseases,
		IsVerified:       false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	code, err := s.codes.Assign(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// The code is already durable at this point; a delivery failure leaves
	// it valid for a later resend instead of rolling the account back.
	if err := s.mailer.SendOTP(ctx, user.Email, user.FullName, code); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOTPDelivery, err)
	}

	return &SignupResult{Email: email, Created: true}, nil
}

// VerifyOTP consumes a pending code, marks the account verified, and issues
// its first session token pair.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*TokenPair, *domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, nil, fmt.Errorf("%w: email and otp are required", domain.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user.IsVerified {
		return nil, nil, domain.ErrAlreadyVerified
	}

	if err := s.codes.Validate(user, code); err != nil {
		return nil, nil, err
	}

	now := s.nowFunc().UTC()
	consumed, err := s.users.ConsumeOTP(ctx, user.ID, code, now)
	if err != nil {
		return nil, nil, err
	}
	if !consumed {
		// A concurrent verify or resend won the race.
		return nil, nil, domain.ErrOTPMissing
	}

	user.IsVerified = true
	user.OTP = nil
	user.OTPExpiry = nil
	user.UpdatedAt = now

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, sanitizeUser(user), nil
}

// ResendOTP reissues a verification code for an unverified account.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return domain.ErrAlreadyVerified
	}

	code, err := s.codes.Issue(ctx, user)
	if err != nil {
		return err
	}
	if err := s.mailer.SendOTP(ctx, user.Email, user.FullName, code); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOTPDelivery, err)
	}
	return nil
}

// Login validates credentials and returns a fresh token pair plus the user.
// Unknown emails and wrong passwords produce the same error so responses do
// not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*TokenPair, *domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	if email == "" || creds.Password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(creds.Password))
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, nil, domain.ErrEmailNotVerified
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, sanitizeUser(user), nil
}

// Refresh verifies a refresh token and mints a new access token for the
// same account. The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueAccess(user.ID, user.Email)
}

// Authenticate resolves a bearer access token into its user. Used by the
// route protection middleware.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	userID, err := s.tokens.Verify(accessToken, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

// AccessTokenTTL reports how long issued access tokens remain valid.
func (s *Service) AccessTokenTTL() time.Duration {
	return s.tokens.AccessTTL()
}

func (s *Service) issuePair(user *domain.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
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
