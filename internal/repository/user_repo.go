package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when a user profile does not exist.
var ErrUserNotFound = errors.New("user_not_found")

// UserRepository defines methods for accessing user profile data.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
	IncrementUploads(ctx context.Context, userID string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `user_id, name, email, avatar_url, stripe_customer_id, total_uploads, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.UserID, &u.Name, &u.Email, &u.AvatarURL,
		&u.StripeCustomerID, &u.TotalUploads, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	const q = `
        INSERT INTO user_profiles (user_id, name, email, avatar_url, total_uploads, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET name = EXCLUDED.name,
            email = EXCLUDED.email,
            avatar_url = EXCLUDED.avatar_url,
            updated_at = NOW()
        RETURNING ` + userColumns
	created, err := scanUser(r.pool.QueryRow(ctx, q, user.UserID, user.Name, user.Email, user.AvatarURL))
	if err != nil {
		return nil, fmt.Errorf("create user profile %s: %w", user.UserID, err)
	}
	return created, nil
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM user_profiles WHERE user_id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, q, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fetch user %s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}
	return user, nil
}

func (r *userRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM user_profiles WHERE stripe_customer_id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, q, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fetch user by customer %s: %w", customerID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user by customer %s: %w", customerID, err)
	}
	return user, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `UPDATE user_profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, customerID); err != nil {
		return fmt.Errorf("update stripe customer for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) IncrementUploads(ctx context.Context, userID string) error {
	const q = `UPDATE user_profiles SET total_uploads = total_uploads + 1, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("increment uploads for user %s: %w", userID, err)
	}
	return nil
}
