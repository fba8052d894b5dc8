// Package memorystorage provides the in-memory implementation of the storage
// interface. It backs tests and DSN-less runs and mirrors the postgres
// backend's semantics, including conflict reporting on duplicate emails and
// duplicate (user, recipe) favorites.
package memorystorage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/user"
)

type MemoryStorage struct {
	mu           sync.RWMutex
	users        map[string]*user.User
	usersByEmail map[string]string
	favorites    map[string]*models.Favorite
	userRecipes  map[string]map[int]bool
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		users:        map[string]*user.User{},
		usersByEmail: map[string]string{},
		favorites:    map[string]*models.Favorite{},
		userRecipes:  map[string]map[int]bool{},
	}, nil
}

func (theStorage *MemoryStorage) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if _, exists := theStorage.usersByEmail[usr.Email]; exists {
		return "", models.ErrConflict
	}

	usr.ID = uuid.New().String()
	usr.CreatedAt = time.Now()

	stored := *usr
	theStorage.users[usr.ID] = &stored
	theStorage.usersByEmail[usr.Email] = usr.ID

	return usr.ID, nil
}

func (theStorage *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	userID, found := theStorage.usersByEmail[email]
	if !found {
		return nil, false, nil
	}
	stored := *theStorage.users[userID]

	return &stored, true, nil
}

func (theStorage *MemoryStorage) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	usr, found := theStorage.users[userID]
	if !found {
		return nil, false, nil
	}
	stored := *usr

	return &stored, true, nil
}

func (theStorage *MemoryStorage) GetFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := []models.Favorite{}
	for _, favorite := range theStorage.favorites {
		if favorite.UserID == userID {
			result = append(result, *favorite)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (theStorage *MemoryStorage) CreateFavorite(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error) {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if theStorage.userRecipes[favorite.UserID][favorite.RecipeID] {
		return nil, models.ErrConflict
	}

	favorite.ID = uuid.New().String()
	favorite.CreatedAt = time.Now()

	stored := *favorite
	theStorage.favorites[favorite.ID] = &stored
	if theStorage.userRecipes[favorite.UserID] == nil {
		theStorage.userRecipes[favorite.UserID] = map[int]bool{}
	}
	theStorage.userRecipes[favorite.UserID][favorite.RecipeID] = true

	return favorite, nil
}

func (theStorage *MemoryStorage) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	favorite, found := theStorage.favorites[favoriteID]
	if !found || favorite.UserID != userID {
		return nil
	}

	delete(theStorage.favorites, favoriteID)
	delete(theStorage.userRecipes[userID], favorite.RecipeID)

	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}
