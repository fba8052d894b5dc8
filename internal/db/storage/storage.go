package storage

import (
	"context"

	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/user"
)

// Storage is the persistence contract shared by the postgres and in-memory
// backends. Uniqueness of users.email and (user, recipe) favorites is
// enforced inside the store, not by callers; violations surface as
// models.ErrConflict.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, bool, error)

	GetFavorites(ctx context.Context, userID string) ([]models.Favorite, error)

	CreateFavorite(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error)

	DeleteFavorite(ctx context.Context, userID, favoriteID string) error

	Ping(ctx context.Context) error

	Close() error
}
