package token

import (
	"errors"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
	usecase "github.com/verra-health/identity-api/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates HS256-signed session tokens. Access and
// refresh tokens share a secret but carry distinct kinds and lifetimes.
type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewJWTManager constructs a manager with the provided secret and lifetimes.
func NewJWTManager(secret string, accessTTL, refreshTTL time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Kind   string `json:"type"`
	jwt.RegisteredClaims
}

// IssueAccess creates a short-lived token authorizing API calls.
func (m *JWTManager) IssueAccess(userID, email string) (string, error) {
	return m.issue(userID, email, usecase.TokenKindAccess, m.accessTTL)
}

// IssueRefresh creates a long-lived token used only to mint new access
// tokens.
func (m *JWTManager) IssueRefresh(userID, email string) (string, error) {
	return m.issue(userID, email, usecase.TokenKindRefresh, m.refreshTTL)
}

func (m *JWTManager) issue(userID, email string, kind usecase.TokenKind, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates the token, returning the embedded user id
// when it is valid and of the expected kind.
func (m *JWTManager) Verify(tokenString string, kind usecase.TokenKind) (string, error) {
	if tokenString == "" {
		return "", domain.ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", domain.ErrTokenMalformed
	}
	if claims.Kind != string(kind) {
		return "", domain.ErrTokenKindMismatch
	}
	return claims.UserID, nil
}

// AccessTTL reports the configured access token lifetime.
func (m *JWTManager) AccessTTL() time.Duration {
	return m.accessTTL
}
