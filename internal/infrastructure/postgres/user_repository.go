package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/verra-health/identity-api/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository persists identity users in PostgreSQL. Single-statement
// updates rely on row-level atomicity to keep the OTP lifecycle race-free.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, full_name, password_hash, blood_group, existing_diseases, is_verified, otp, otp_expiry, created_at, updated_at`

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
INSERT INTO users (id, email, full_name, password_hash, blood_group, existing_diseases, is_verified, otp, otp_expiry, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.PasswordHash,
		user.BloodGroup,
		user.ExistingDiseases,
		user.IsVerified,
		user.OTP,
		user.OTPExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by its normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateOTP overwrites the pending verification code for a user.
func (r *UserRepository) UpdateOTP(ctx context.Context, id, code string, expiry, updatedAt time.Time) error {
	const query = `
UPDATE users
SET otp = $2, otp_expiry = $3, updated_at = $4
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, code, expiry, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeOTP marks the user verified and clears the code, but only when the
// stored code still matches and the user is still unverified. A zero row
// count means a concurrent verify or resend got there first.
func (r *UserRepository) ConsumeOTP(ctx context.Context, id, code string, verifiedAt time.Time) (bool, error) {
	const query = `
UPDATE users
SET is_verified = TRUE, otp = NULL, otp_expiry = NULL, updated_at = $3
WHERE id = $1 AND otp = $2 AND is_verified = FALSE
`
	ct, err := r.pool.Exec(ctx, query, id, code, verifiedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateProfile applies the non-nil fields and returns the updated row.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate, updatedAt time.Time) (*domain.User, error) {
	sets := []string{}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.FullName != nil {
		appendSet("full_name", *update.FullName)
	}
	if update.BloodGroup != nil {
		appendSet("blood_group", *update.BloodGroup)
	}
	if update.ExistingDiseases != nil {
		appendSet("existing_diseases", *update.ExistingDiseases)
	}
	appendSet("updated_at", updatedAt)

	query := `UPDATE users SET `
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += ` WHERE id = $1 RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query, args...)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.BloodGroup,
		&u.ExistingDiseases,
		&u.IsVerified,
		&u.OTP,
		&u.OTPExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
