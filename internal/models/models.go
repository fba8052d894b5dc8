package models

import (
	"errors"
	"time"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PublicUser is the user view returned to clients. It never carries
// the password hash.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    PublicUser `json:"user"`
}

type SuggestRequest struct {
	Ingredients string `json:"ingredients"`
}

// RecipeSuggestion is the reduced shape relayed from the external search API.
type RecipeSuggestion struct {
	Title string `json:"title"`
	ID    int    `json:"id"`
	Image string `json:"image"`
}

type SuggestResponse struct {
	Recipes []RecipeSuggestion `json:"recipes"`
}

// RecipeRef identifies one selected recipe in grocery-list and
// detailed-recipe requests. Clients send either `id` or `recipeId`.
type RecipeRef struct {
	ID       int `json:"id"`
	RecipeID int `json:"recipeId"`
}

// ResolveID returns the external recipe identifier carried by the ref,
// preferring `id` over `recipeId`, or 0 when neither is set.
func (r RecipeRef) ResolveID() int {
	if r.ID != 0 {
		return r.ID
	}
	return r.RecipeID
}

type RecipeRefsRequest struct {
	Recipes []RecipeRef `json:"recipes"`
}

type GroceryListResponse struct {
	GroceryList []string `json:"groceryList"`
	Warnings    []string `json:"warnings,omitempty"`
}

// DetailedRecipe is the display-ready shape of POST /api/detailed-recipe.
type DetailedRecipe struct {
	Title        string   `json:"title"`
	Servings     string   `json:"servings"`
	PrepTime     string   `json:"prepTime"`
	Image        string   `json:"image,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Tips         []string `json:"tips"`
}

type DetailedRecipeResponse struct {
	DetailedRecipe DetailedRecipe `json:"detailedRecipe"`
}

// Favorite is a user-owned saved recipe record.
type Favorite struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Title        string    `json:"title" validate:"required"`
	RecipeID     int       `json:"recipeId" validate:"required"`
	Image        string    `json:"image"`
	Servings     string    `json:"servings"`
	PrepTime     string    `json:"prepTime"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Tips         []string  `json:"tips"`
	CreatedAt    time.Time `json:"createdAt"`
}

type FavoritesResponse struct {
	Favorites []Favorite `json:"favorites"`
}

type FavoriteResponse struct {
	Favorite Favorite `json:"favorite"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeMemory
)

// ErrConflict is returned by the storage layer when a unique constraint is
// violated: an already registered email or a duplicate (user, recipe) pair.
var ErrConflict = errors.New("record already exists")

// ErrInvalidCredentials covers both an unknown email and a wrong password,
// so login failures do not reveal whether the email is registered.
var ErrInvalidCredentials = errors.New("invalid email or password")

var ErrUserNotFound = errors.New("user not found")

// ErrNoRecipeSelected is returned when a detailed-recipe request carries no
// resolvable recipe identifier.
var ErrNoRecipeSelected = errors.New("no recipe selected")

// ErrQuotaExceeded maps the external API's HTTP 402 to a distinct error so
// handlers can surface the quota condition instead of a generic failure.
var ErrQuotaExceeded = errors.New("external recipe API quota exceeded")

// ErrExternalAPI wraps transport errors and non-2xx replies from the
// external recipe API.
var ErrExternalAPI = errors.New("external recipe API request failed")
