package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
	authusecase "github.com/verra-health/identity-api/internal/usecase/auth"
	profileusecase "github.com/verra-health/identity-api/internal/usecase/profile"
)

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle("/api/auth/test", http.HandlerFunc(s.handleTest))
	s.router.Handle("/api/auth/signup", http.HandlerFunc(s.handleSignup))
	s.router.Handle("/api/auth/verify-otp", http.HandlerFunc(s.handleVerifyOTP))
	s.router.Handle("/api/auth/resend-otp", http.HandlerFunc(s.handleResendOTP))
	s.router.Handle("/api/auth/login", http.HandlerFunc(s.handleLogin))
	s.router.Handle("/api/auth/refresh", http.HandlerFunc(s.handleRefresh))

	authenticated := s.authMiddleware
	s.router.Handle("/api/auth/me", authenticated(http.HandlerFunc(s.handleMe)))
	s.router.Handle("/api/auth/user-details", authenticated(http.HandlerFunc(s.handleMe)))
	s.router.Handle("/api/auth/profile", authenticated(http.HandlerFunc(s.handleProfile)))
	s.router.Handle("/api/auth/edit-profile", authenticated(http.HandlerFunc(s.handleEditProfile)))
	s.router.Handle("/api/auth/logout", authenticated(http.HandlerFunc(s.handleLogout)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "API is working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		FullName         string `json:"fullName"`
		Email            string `json:"email"`
		Password         string `json:"password"`
		BloodGroup       string `json:"bloodGroup"`
		ExistingDiseases string `json:"existingDiseases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := s.authService.Signup(r.Context(), authusecase.SignupInput{
		FullName:         payload.FullName,
		Email:            payload.Email,
		Password:         payload.Password,
		BloodGroup:       payload.BloodGroup,
		ExistingDiseases: payload.ExistingDiseases,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrEmailExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrOTPDelivery):
			writeError(w, http.StatusInternalServerError, "failed to send OTP email, please try again")
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred during signup")
		}
		return
	}

	status := http.StatusOK
	message := "OTP sent to your email. Please verify to complete registration."
	if result.Created {
		status = http.StatusCreated
		message = "Account created! OTP sent to your email. Please verify to complete registration."
	}
	writeJSON(w, status, map[string]any{
		"message":               message,
		"email":                 result.Email,
		"requires_verification": true,
	})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	pair, user, err := s.authService.VerifyOTP(r.Context(), payload.Email, payload.OTP)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrAlreadyVerified):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrOTPMissing),
			errors.Is(err, domain.ErrOTPExpired),
			errors.Is(err, domain.ErrOTPMismatch):
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred during OTP verification")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Email verified successfully!",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    pair.ExpiresIn,
		"user":          newUserPayload(user),
	})
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := s.authService.ResendOTP(r.Context(), payload.Email); err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrAlreadyVerified):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrOTPDelivery):
			writeError(w, http.StatusInternalServerError, "failed to send OTP email, please try again")
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred while resending OTP")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "OTP sent successfully to your email",
		"email":   strings.TrimSpace(strings.ToLower(payload.Email)),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	pair, user, err := s.authService.Login(r.Context(), domain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, domain.ErrEmailNotVerified):
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error":                 "Email not verified. Please verify your email first.",
				"requires_verification": true,
				"email":                 strings.TrimSpace(strings.ToLower(payload.Email)),
			})
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred during login")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Login successful",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    pair.ExpiresIn,
		"user":          newUserPayload(user),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "refresh token is required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}
	if strings.TrimSpace(payload.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	accessToken, err := s.authService.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "refresh token has expired")
		case errors.Is(err, domain.ErrTokenMalformed),
			errors.Is(err, domain.ErrTokenMissing),
			errors.Is(err, domain.ErrTokenKindMismatch),
			errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred while refreshing token")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int64(s.authService.AccessTokenTTL().Seconds()),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserPayload(user)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := s.profileService.Get(r.Context(), user.ID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "failed to load profile")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"profile": newProfilePayload(profile),
		})
	case http.MethodPut:
		s.updateProfile(w, r, user.ID)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w, http.MethodPut)
		return
	}

	user, ok := currentUserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	s.updateProfile(w, r, user.ID)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var payload struct {
		FullName         *string `json:"fullName"`
		BloodGroup       *string `json:"bloodGroup"`
		ExistingDiseases *string `json:"existingDiseases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "no fields to update")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}

	profile, err := s.profileService.Update(r.Context(), userID, profileusecase.UpdateInput{
		FullName:         payload.FullName,
		BloodGroup:       payload.BloodGroup,
		ExistingDiseases: payload.ExistingDiseases,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred while updating profile")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated successfully",
		"profile": newProfilePayload(profile),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	// Tokens are stateless; the client discards them. The endpoint exists
	// so clients have a consistent place to end a session.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}
