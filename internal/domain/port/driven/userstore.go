package driven

import (
	"context"

	"github.com/ericfisherdev/infraconfig/internal/domain/model"
)

// UserStore exposes the small slice of the user table onboarding depends on.
type UserStore interface {
	Add(ctx context.Context, user model.User) (model.User, error)
	Count(ctx context.Context) (int, error)
}
