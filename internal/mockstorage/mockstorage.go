// Package mockstorage provides a testify mock of the storage interface for
// driving handler tests through storage error paths.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/user"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *MockStorage) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *MockStorage) GetFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	args := m.Called(ctx, userID)
	favorites, _ := args.Get(0).([]models.Favorite)
	return favorites, args.Error(1)
}

func (m *MockStorage) CreateFavorite(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error) {
	args := m.Called(ctx, favorite)
	stored, _ := args.Get(0).(*models.Favorite)
	return stored, args.Error(1)
}

func (m *MockStorage) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	args := m.Called(ctx, userID, favoriteID)
	return args.Error(0)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}
