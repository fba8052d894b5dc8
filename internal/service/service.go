// Package service contains the application logic between the HTTP handlers
// and the storage/external-API layers: registration and login, the recipe
// suggestion relay, grocery-list aggregation, detailed-recipe assembly and
// the favorites operations.
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pantrychef/pantrychef/internal/logger"
	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/recipeapi"
	"github.com/pantrychef/pantrychef/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, bool, error)
}

type favoritesKeeper interface {
	GetFavorites(ctx context.Context, userID string) ([]models.Favorite, error)
	CreateFavorite(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error)
	DeleteFavorite(ctx context.Context, userID, favoriteID string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	favoritesKeeper
	pinger
}

type recipeFetcher interface {
	SearchByIngredients(ctx context.Context, ingredients string, limit int) ([]recipeapi.SearchResult, error)
	GetRecipeInformation(ctx context.Context, recipeID int) (*recipeapi.RecipeInformation, error)
}

// SuggestionLimit bounds how many candidates the relay requests upstream.
const SuggestionLimit = 5

// Sentinel list entries of the grocery-list contract. The endpoint always
// answers with a list of strings, even when there is nothing useful to say.
const (
	NoValidRecipeIDsMessage   = "No valid recipe IDs provided"
	NoIngredientsFoundMessage = "No ingredients found"
	GroceryListFailedMessage  = "Failed to generate grocery list"
)

// NoInstructionsMessage substitutes the step list when the external API
// provides neither structured steps nor a parseable instructions blob.
const NoInstructionsMessage = "No detailed instructions are available for this recipe."

// cookingTips is static advice appended to every detailed recipe. It is
// deliberately not derived from recipe content.
var cookingTips = []string{
	"Read through all the steps before you start cooking.",
	"Prep and measure your ingredients before turning on the stove.",
	"Taste as you go and adjust the seasoning at the end.",
	"Let the dish rest for a couple of minutes before serving.",
}

var stepNumberPattern = regexp.MustCompile(`\d+\.\s+`)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

type Service struct {
	db               storage
	recipes          recipeFetcher
	fetchConcurrency int
}

func New(db storage, recipes recipeFetcher, fetchConcurrency int) *Service {
	if fetchConcurrency < 1 {
		fetchConcurrency = 1
	}
	return &Service{
		db:               db,
		recipes:          recipes,
		fetchConcurrency: fetchConcurrency,
	}
}

// Register creates a new account with a bcrypt-hashed password and returns
// its public view. A taken email yields models.ErrConflict.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	usr := &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
	}
	userID, err := s.db.CreateUser(ctx, usr)
	if err != nil {
		return nil, err
	}

	return &models.PublicUser{ID: userID, Name: name, Email: email}, nil
}

// Login checks the credentials and returns the account's public view.
// An unknown email and a wrong password both yield models.ErrInvalidCredentials
// so the response never reveals whether the email is registered.
func (s *Service) Login(ctx context.Context, email, password string) (*models.PublicUser, error) {
	usr, found, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return &models.PublicUser{ID: usr.ID, Name: usr.Name, Email: usr.Email}, nil
}

// GetCurrentUser resolves an authenticated identity back to its stored user.
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	usr, found, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.ErrUserNotFound
	}

	return &models.PublicUser{ID: usr.ID, Name: usr.Name, Email: usr.Email}, nil
}

// SuggestRecipes relays the ingredient string to the external search API and
// reduces each hit to title, id and image.
func (s *Service) SuggestRecipes(ctx context.Context, ingredients string) ([]models.RecipeSuggestion, error) {
	results, err := s.recipes.SearchByIngredients(ctx, ingredients, SuggestionLimit)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.RecipeSuggestion, 0, len(results))
	for _, result := range results {
		suggestions = append(suggestions, models.RecipeSuggestion{
			Title: result.Title,
			ID:    result.ID,
			Image: result.Image,
		})
	}

	return suggestions, nil
}

// aggregatedIngredient is the request-scoped merge entry for one ingredient
// name. Repeat sightings add to Amount only; Unit and Original keep their
// first-seen values, and Original is what reaches the output.
type aggregatedIngredient struct {
	Amount   float64
	Unit     string
	Original string
}

// BuildGroceryList fetches the ingredient breakdown of every selected recipe
// and merges duplicates by exact ingredient name. Individual fetch failures
// degrade the result and are reported in the returned warnings instead of
// failing the whole aggregation.
func (s *Service) BuildGroceryList(ctx context.Context, refs []models.RecipeRef) ([]string, []string, error) {
	if len(refs) == 0 {
		return []string{}, nil, nil
	}

	recipeIDs := resolveRecipeIDs(refs)
	if len(recipeIDs) == 0 {
		return []string{NoValidRecipeIDsMessage}, nil, nil
	}

	recipesInfo := s.fetchRecipesInfo(ctx, recipeIDs)

	var warnings []string
	for i, information := range recipesInfo {
		if information == nil {
			warnings = append(warnings, fmt.Sprintf("recipe %d could not be fetched", recipeIDs[i]))
		}
	}

	merged, order := mergeIngredients(recipesInfo)
	if len(order) == 0 {
		return []string{NoIngredientsFoundMessage}, warnings, nil
	}

	groceryList := make([]string, 0, len(order))
	for _, name := range order {
		entry := merged[name]
		// The summed amount is tracked but the first-seen original string is
		// what gets displayed; see the aggregation tests.
		if entry.Original != "" {
			groceryList = append(groceryList, entry.Original)
			continue
		}
		groceryList = append(groceryList, name)
	}

	return groceryList, warnings, nil
}

// mergeIngredients folds the fetched breakdowns into one entry per exact
// ingredient name, in first-seen order over the input-ordered recipes.
// Names are not normalized, so "Onion" and "onions" stay separate entries.
func mergeIngredients(recipesInfo []*recipeapi.RecipeInformation) (map[string]*aggregatedIngredient, []string) {
	merged := map[string]*aggregatedIngredient{}
	var order []string
	for _, information := range recipesInfo {
		if information == nil {
			continue
		}
		for _, ingredient := range information.ExtendedIngredients {
			entry, seen := merged[ingredient.Name]
			if !seen {
				merged[ingredient.Name] = &aggregatedIngredient{
					Amount:   ingredient.Amount,
					Unit:     ingredient.Unit,
					Original: ingredient.Original,
				}
				order = append(order, ingredient.Name)
				continue
			}
			entry.Amount += ingredient.Amount
		}
	}

	return merged, order
}

// fetchRecipesInfo fetches every recipe concurrently through a bounded worker
// pool. The result slice is index-aligned with recipeIDs so the caller merges
// in input order regardless of completion order; a failed fetch leaves nil.
func (s *Service) fetchRecipesInfo(ctx context.Context, recipeIDs []int) []*recipeapi.RecipeInformation {
	recipesInfo := make([]*recipeapi.RecipeInformation, len(recipeIDs))

	sem := make(chan struct{}, s.fetchConcurrency)
	var wg sync.WaitGroup
	for i, recipeID := range recipeIDs {
		wg.Add(1)
		go func(i, recipeID int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			information, err := s.recipes.GetRecipeInformation(ctx, recipeID)
			if err != nil {
				logger.Log.Warnln("failed to fetch recipe for grocery list", "recipeID", recipeID, zap.Error(err))
				return
			}
			recipesInfo[i] = information
		}(i, recipeID)
	}
	wg.Wait()

	return recipesInfo
}

// GetDetailedRecipe assembles the display-ready recipe for the first
// resolvable selection. Structured steps are preferred; otherwise the
// instructions blob is stripped of HTML tags and split on numbered steps.
func (s *Service) GetDetailedRecipe(ctx context.Context, refs []models.RecipeRef) (*models.DetailedRecipe, error) {
	recipeIDs := resolveRecipeIDs(refs)
	if len(recipeIDs) == 0 {
		return nil, models.ErrNoRecipeSelected
	}

	information, err := s.recipes.GetRecipeInformation(ctx, recipeIDs[0])
	if err != nil {
		return nil, err
	}

	ingredients := make([]string, 0, len(information.ExtendedIngredients))
	for _, ingredient := range information.ExtendedIngredients {
		if ingredient.Original != "" {
			ingredients = append(ingredients, ingredient.Original)
			continue
		}
		ingredients = append(ingredients, ingredient.Name)
	}

	return &models.DetailedRecipe{
		Title:        information.Title,
		Servings:     formatServings(information.Servings),
		PrepTime:     formatPrepTime(information.ReadyInMinutes),
		Image:        information.Image,
		Ingredients:  ingredients,
		Instructions: extractInstructions(information),
		Tips:         append([]string{}, cookingTips...),
	}, nil
}

// ListFavorites returns the caller's favorites, newest first.
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	return s.db.GetFavorites(ctx, userID)
}

// SaveFavorite persists a favorite for the caller. Saving the same recipe
// twice yields models.ErrConflict; favorites are never updated in place.
func (s *Service) SaveFavorite(ctx context.Context, userID string, favorite *models.Favorite) (*models.Favorite, error) {
	favorite.UserID = userID
	return s.db.CreateFavorite(ctx, favorite)
}

// DeleteFavorite removes the caller's favorite. Removing a missing or
// non-owned ID succeeds silently.
func (s *Service) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	return s.db.DeleteFavorite(ctx, userID, favoriteID)
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func resolveRecipeIDs(refs []models.RecipeRef) []int {
	ids := []int{}
	for _, ref := range refs {
		if id := ref.ResolveID(); id != 0 {
			ids = append(ids, id)
		}
	}

	return funk.UniqInt(ids)
}

func extractInstructions(information *recipeapi.RecipeInformation) []string {
	var steps []string
	for _, analyzed := range information.AnalyzedInstructions {
		for _, step := range analyzed.Steps {
			trimmed := strings.TrimSpace(step.Step)
			if trimmed != "" {
				steps = append(steps, trimmed)
			}
		}
	}
	if len(steps) > 0 {
		return steps
	}

	steps = parseInstructionsBlob(information.Instructions)
	if len(steps) > 0 {
		return steps
	}

	return []string{NoInstructionsMessage}
}

func parseInstructionsBlob(blob string) []string {
	plain := htmlTagPattern.ReplaceAllString(blob, " ")
	fragments := stepNumberPattern.Split(plain, -1)

	steps := []string{}
	for _, fragment := range fragments {
		trimmed := strings.TrimSpace(fragment)
		if trimmed != "" {
			steps = append(steps, trimmed)
		}
	}

	return steps
}

func formatServings(servings int) string {
	if servings <= 0 {
		return "N/A"
	}

	return fmt.Sprintf("%d servings", servings)
}

func formatPrepTime(readyInMinutes int) string {
	if readyInMinutes <= 0 {
		return "N/A"
	}

	return fmt.Sprintf("%d minutes", readyInMinutes)
}
