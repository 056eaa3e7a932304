package store

import (
	"context"

	"DMChat/module/user/model"
)

// Store persists users. Lookups that find nothing return errs.ErrUserNotFound.
type Store interface {
	// Create assigns the id; a taken email or username#discriminator yields errs.ErrRecordExist.
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByUsername returns the oldest user with that name.
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	TagExists(ctx context.Context, username, discriminator string) (bool, error)
	// UsernameTaken reports whether a user other than exceptID uses username.
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	Update(ctx context.Context, id string, up model.Update) (*model.User, error)
	ListExcept(ctx context.Context, id string) ([]*model.User, error)
}
