package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the PostgreSQL implementation of the UserStore port.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo creates a new UserRepo backed by the given pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Add inserts a user and returns it with the database-assigned ID and timestamp.
func (r *UserRepo) Add(ctx context.Context, user model.User) (model.User, error) {
	const query = `INSERT INTO users (email) VALUES ($1) RETURNING id, created_at`

	if err := r.pool.QueryRow(ctx, query, user.Email).Scan(&user.ID, &user.CreatedAt); err != nil {
		if isCode(err, codeUniqueViolation) {
			return model.User{}, fmt.Errorf("add user %s: already exists", user.Email)
		}
		return model.User{}, fmt.Errorf("add user %s: %w", user.Email, mapError(err))
	}
	return user, nil
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", mapError(err))
	}
	return n, nil
}
