package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
)

const (
	getUserSQL = `SELECT id, name, email, role FROM users WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`
)

// ErrUserNotFound is returned when no user has the requested id.
var ErrUserNotFound = errors.New("user not found")

// UserRepository stores storefront accounts.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Upsert inserts u or updates the existing row with the same id.
func (r *UserRepository) Upsert(ctx context.Context, u auth.User) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, u.Email, string(u.Role)); err != nil {
		return errors.Wrapf(err, "upsert user %q", u.ID)
	}
	return nil
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := r.pool.QueryRow(ctx, getUserSQL, id).Scan(&u.ID, &u.Name, &u.Email, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %q", id)
	}
	u.Role = auth.Role(role)
	return &u, nil
}
