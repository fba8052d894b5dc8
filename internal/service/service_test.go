package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrychef/pantrychef/internal/db/memorystorage"
	"github.com/pantrychef/pantrychef/internal/logger"
	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/recipeapi"
)

// fakeRecipeAPI serves canned recipe data and records which IDs were fetched.
type fakeRecipeAPI struct {
	mu            sync.Mutex
	searchResults []recipeapi.SearchResult
	searchErr     error
	information   map[int]*recipeapi.RecipeInformation
	fetchErrs     map[int]error
	fetched       []int
}

func (f *fakeRecipeAPI) SearchByIngredients(ctx context.Context, ingredients string, limit int) ([]recipeapi.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeRecipeAPI) GetRecipeInformation(ctx context.Context, recipeID int) (*recipeapi.RecipeInformation, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, recipeID)
	f.mu.Unlock()

	if err := f.fetchErrs[recipeID]; err != nil {
		return nil, err
	}
	information, found := f.information[recipeID]
	if !found {
		return nil, fmt.Errorf("%w: status 404: not found", models.ErrExternalAPI)
	}
	return information, nil
}

func newTestService(t *testing.T, recipes *fakeRecipeAPI) *Service {
	t.Helper()
	require.NoError(t, logger.Init("debug"))

	db, err := memorystorage.New()
	require.NoError(t, err)

	return New(db, recipes, 2)
}

func ingredient(name string, amount float64, unit, original string) recipeapi.Ingredient {
	return recipeapi.Ingredient{Name: name, Amount: amount, Unit: unit, Original: original}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})
	ctx := context.Background()

	registered, err := s.Register(ctx, "Anna", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.ID)
	assert.Equal(t, "a@x.com", registered.Email)

	loggedIn, err := s.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, loggedIn.ID)

	_, err = s.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// An unknown email fails with the same error as a wrong password.
	_, err = s.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})
	ctx := context.Background()

	_, err := s.Register(ctx, "Anna", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = s.Register(ctx, "Another Anna", "a@x.com", "secret2")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGetCurrentUserUnknownID(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})

	_, err := s.GetCurrentUser(context.Background(), "missing-id")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestSuggestRecipesReducesShape(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{
		searchResults: []recipeapi.SearchResult{
			{ID: 1, Title: "Tomato Soup", Image: "https://img/1.jpg"},
			{ID: 2, Title: "Onion Tart", Image: "https://img/2.jpg"},
		},
	})

	suggestions, err := s.SuggestRecipes(context.Background(), "tomato, onion")
	require.NoError(t, err)
	assert.Equal(t, []models.RecipeSuggestion{
		{Title: "Tomato Soup", ID: 1, Image: "https://img/1.jpg"},
		{Title: "Onion Tart", ID: 2, Image: "https://img/2.jpg"},
	}, suggestions)
}

func TestBuildGroceryListEmptySelection(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})

	groceryList, warnings, err := s.BuildGroceryList(context.Background(), []models.RecipeRef{})
	require.NoError(t, err)
	assert.Equal(t, []string{}, groceryList)
	assert.Empty(t, warnings)
}

func TestBuildGroceryListNoResolvableIDs(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})

	groceryList, _, err := s.BuildGroceryList(context.Background(), []models.RecipeRef{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, []string{NoValidRecipeIDsMessage}, groceryList)
}

func TestBuildGroceryListMergesDuplicateNames(t *testing.T) {
	recipes := &fakeRecipeAPI{
		information: map[int]*recipeapi.RecipeInformation{
			1: {
				ID: 1,
				ExtendedIngredients: []recipeapi.Ingredient{
					ingredient("onion", 1, "", "1 large onion"),
					ingredient("olive oil", 2, "tbsp", "2 tbsp olive oil"),
				},
			},
			2: {
				ID: 2,
				ExtendedIngredients: []recipeapi.Ingredient{
					ingredient("onion", 2, "", "2 small onions"),
				},
			},
		},
	}
	s := newTestService(t, recipes)

	groceryList, warnings, err := s.BuildGroceryList(
		context.Background(),
		[]models.RecipeRef{{ID: 1}, {RecipeID: 2}},
	)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	// The first-seen original string is displayed; the summed amount is
	// tracked but never re-rendered into the output.
	assert.Equal(t, []string{"1 large onion", "2 tbsp olive oil"}, groceryList)
}

func TestMergeIngredientsSumsAmounts(t *testing.T) {
	merged, order := mergeIngredients([]*recipeapi.RecipeInformation{
		{ExtendedIngredients: []recipeapi.Ingredient{ingredient("onion", 1, "", "1 large onion")}},
		{ExtendedIngredients: []recipeapi.Ingredient{ingredient("onion", 2, "", "2 small onions")}},
	})

	require.Equal(t, []string{"onion"}, order)
	assert.Equal(t, 3.0, merged["onion"].Amount)
	assert.Equal(t, "1 large onion", merged["onion"].Original)
}

func TestMergeIngredientsDoesNotNormalizeNames(t *testing.T) {
	_, order := mergeIngredients([]*recipeapi.RecipeInformation{
		{ExtendedIngredients: []recipeapi.Ingredient{
			ingredient("Onion", 1, "", "1 onion"),
			ingredient("onions", 2, "", "2 onions"),
		}},
	})

	assert.Equal(t, []string{"Onion", "onions"}, order)
}

func TestBuildGroceryListPartialFailure(t *testing.T) {
	recipes := &fakeRecipeAPI{
		information: map[int]*recipeapi.RecipeInformation{
			1: {
				ID: 1,
				ExtendedIngredients: []recipeapi.Ingredient{
					ingredient("garlic", 3, "cloves", "3 cloves of garlic"),
				},
			},
		},
		fetchErrs: map[int]error{
			2: fmt.Errorf("%w: status 500: boom", models.ErrExternalAPI),
		},
	}
	s := newTestService(t, recipes)

	groceryList, warnings, err := s.BuildGroceryList(
		context.Background(),
		[]models.RecipeRef{{ID: 1}, {ID: 2}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"3 cloves of garlic"}, groceryList)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "recipe 2")
}

func TestBuildGroceryListAllFetchesFail(t *testing.T) {
	recipes := &fakeRecipeAPI{
		fetchErrs: map[int]error{
			1: fmt.Errorf("%w: status 500: boom", models.ErrExternalAPI),
		},
	}
	s := newTestService(t, recipes)

	groceryList, warnings, err := s.BuildGroceryList(context.Background(), []models.RecipeRef{{ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{NoIngredientsFoundMessage}, groceryList)
	assert.Len(t, warnings, 1)
}

func TestGetDetailedRecipeNoSelection(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})

	_, err := s.GetDetailedRecipe(context.Background(), []models.RecipeRef{})
	assert.ErrorIs(t, err, models.ErrNoRecipeSelected)

	_, err = s.GetDetailedRecipe(context.Background(), []models.RecipeRef{{}})
	assert.ErrorIs(t, err, models.ErrNoRecipeSelected)
}

func TestGetDetailedRecipeUsesFirstSelectionOnly(t *testing.T) {
	recipes := &fakeRecipeAPI{
		information: map[int]*recipeapi.RecipeInformation{
			1: {
				ID:             1,
				Title:          "Garlic Pasta",
				Servings:       2,
				ReadyInMinutes: 25,
				ExtendedIngredients: []recipeapi.Ingredient{
					ingredient("garlic", 3, "cloves", "3 cloves of garlic"),
				},
				AnalyzedInstructions: []recipeapi.AnalyzedInstruction{
					{Steps: []recipeapi.InstructionStep{
						{Number: 1, Step: "Boil the pasta."},
						{Number: 2, Step: "Fry the garlic."},
					}},
				},
			},
		},
	}
	s := newTestService(t, recipes)

	detailed, err := s.GetDetailedRecipe(
		context.Background(),
		[]models.RecipeRef{{ID: 1}, {ID: 99}},
	)
	require.NoError(t, err)
	assert.Equal(t, "Garlic Pasta", detailed.Title)
	assert.Equal(t, "2 servings", detailed.Servings)
	assert.Equal(t, "25 minutes", detailed.PrepTime)
	assert.Equal(t, []string{"3 cloves of garlic"}, detailed.Ingredients)
	assert.Equal(t, []string{"Boil the pasta.", "Fry the garlic."}, detailed.Instructions)
	assert.Equal(t, cookingTips, detailed.Tips)
	assert.Equal(t, []int{1}, recipes.fetched)
}

func TestGetDetailedRecipeFallbackInstructionParsing(t *testing.T) {
	recipes := &fakeRecipeAPI{
		information: map[int]*recipeapi.RecipeInformation{
			1: {
				ID:           1,
				Title:        "Plain Recipe",
				Instructions: "<p>1. Chop. 2. Cook. 3. Serve.</p>",
			},
		},
	}
	s := newTestService(t, recipes)

	detailed, err := s.GetDetailedRecipe(context.Background(), []models.RecipeRef{{ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chop.", "Cook.", "Serve."}, detailed.Instructions)
}

func TestGetDetailedRecipeNoInstructionsAtAll(t *testing.T) {
	recipes := &fakeRecipeAPI{
		information: map[int]*recipeapi.RecipeInformation{
			1: {ID: 1, Title: "Mystery Dish"},
		},
	}
	s := newTestService(t, recipes)

	detailed, err := s.GetDetailedRecipe(context.Background(), []models.RecipeRef{{ID: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{NoInstructionsMessage}, detailed.Instructions)
}

func TestGetDetailedRecipeQuotaExceededPropagates(t *testing.T) {
	recipes := &fakeRecipeAPI{
		fetchErrs: map[int]error{1: models.ErrQuotaExceeded},
	}
	s := newTestService(t, recipes)

	_, err := s.GetDetailedRecipe(context.Background(), []models.RecipeRef{{ID: 1}})
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
}

func TestSaveFavoriteTwiceConflicts(t *testing.T) {
	s := newTestService(t, &fakeRecipeAPI{})
	ctx := context.Background()

	usr, err := s.Register(ctx, "Anna", "a@x.com", "secret1")
	require.NoError(t, err)

	saved, err := s.SaveFavorite(ctx, usr.ID, &models.Favorite{Title: "Soup", RecipeID: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = s.SaveFavorite(ctx, usr.ID, &models.Favorite{Title: "Soup", RecipeID: 7})
	assert.ErrorIs(t, err, models.ErrConflict)
}
