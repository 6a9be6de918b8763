package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Add inserts a user and returns it with the assigned ID.
func (r *UserRepo) Add(ctx context.Context, user model.User) (model.User, error) {
	const query = `INSERT INTO users (email, created_at) VALUES (?, ?)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query, user.Email, user.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.User{}, fmt.Errorf("add user %s: already exists", user.Email)
		}
		return model.User{}, fmt.Errorf("add user %s: %w", user.Email, mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("add user %s: last insert id: %w", user.Email, err)
	}
	user.ID = id

	return user, nil
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", mapError(err))
	}
	return n, nil
}
