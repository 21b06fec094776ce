package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// userPayload is the public view of an account returned on login and
// verification.
type userPayload struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	BloodGroup       string    `json:"blood_group"`
	ExistingDiseases string    `json:"existing_diseases"`
	IsVerified       bool      `json:"is_verified"`
	CreatedAt        time.Time `json:"created_at"`
}

// profilePayload is the full profile view for authenticated reads.
type profilePayload struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	BloodGroup       string    `json:"blood_group"`
	ExistingDiseases string    `json:"existing_diseases"`
	IsVerified       bool      `json:"is_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newUserPayload(u *domain.User) userPayload {
	return userPayload{
		ID:               u.ID,
		FullName:         u.FullName,
		Email:            u.Email,
		BloodGroup:       u.BloodGroup,
		ExistingDiseases: u.ExistingDiseases,
		IsVerified:       u.IsVerified,
		CreatedAt:        u.CreatedAt,
	}
}

func newProfilePayload(u *domain.User) profilePayload {
	return profilePayload{
		ID:               u.ID,
		FullName:         u.FullName,
		Email:            u.Email,
		BloodGroup:       u.BloodGroup,
		ExistingDiseases: u.ExistingDiseases,
		IsVerified:       u.IsVerified,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
