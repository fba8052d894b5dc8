// Package router wires the HTTP endpoints of the API: authentication,
// recipe suggestion, grocery-list aggregation, detailed recipes and
// favorites. Handlers decode and validate request bodies, call the service
// layer and translate its errors to HTTP statuses with JSON message bodies.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pantrychef/pantrychef/internal/auth"
	"github.com/pantrychef/pantrychef/internal/authenticator"
	"github.com/pantrychef/pantrychef/internal/gzippedhttp"
	"github.com/pantrychef/pantrychef/internal/logger"
	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/service"
)

type recipeService interface {
	Register(ctx context.Context, name, email, password string) (*models.PublicUser, error)
	Login(ctx context.Context, email, password string) (*models.PublicUser, error)
	GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
	SuggestRecipes(ctx context.Context, ingredients string) ([]models.RecipeSuggestion, error)
	BuildGroceryList(ctx context.Context, refs []models.RecipeRef) ([]string, []string, error)
	GetDetailedRecipe(ctx context.Context, refs []models.RecipeRef) (*models.DetailedRecipe, error)
	ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error)
	SaveFavorite(ctx context.Context, userID string, favorite *models.Favorite) (*models.Favorite, error)
	DeleteFavorite(ctx context.Context, userID, favoriteID string) error
	Ping(ctx context.Context) error
}

// Router holds the handler dependencies.
type Router struct {
	service  recipeService
	auth     authenticator.Authenticator
	validate *validator.Validate
}

// New assembles the chi mux with logging, gzip and CORS middleware and all
// API routes. Everything under /api except register and login requires a
// bearer token.
func New(
	recipesService recipeService,
	authHandler authenticator.Authenticator,
	corsAllowedOrigin string,
) *chi.Mux {
	theRouter := &Router{
		service:  recipesService,
		auth:     authHandler,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)
	router.Use(gzippedhttp.WithGzipResponseMiddleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsAllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Get(`/ping`, theRouter.GetPing)

	router.Route(`/api`, func(apiRouter chi.Router) {
		apiRouter.Post(`/auth/register`, theRouter.PostRegister)
		apiRouter.Post(`/auth/login`, theRouter.PostLogin)

		apiRouter.Group(func(protectedRouter chi.Router) {
			protectedRouter.Use(authHandler.AuthenticateUser)

			protectedRouter.Get(`/auth/me`, theRouter.GetMe)
			protectedRouter.Post(`/recipes/suggest`, theRouter.PostSuggestRecipes)
			protectedRouter.Post(`/grocery-list`, theRouter.PostGroceryList)
			protectedRouter.Post(`/detailed-recipe`, theRouter.PostDetailedRecipe)
			protectedRouter.Get(`/favorites`, theRouter.GetFavorites)
			protectedRouter.Post(`/favorites`, theRouter.PostFavorite)
			protectedRouter.Delete(`/favorites/{favoriteID}`, theRouter.DeleteFavorite)
		})
	})

	return router
}

// PostRegister handles POST /api/auth/register.
func (rt *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	registerRequest := &models.RegisterRequest{}
	if !rt.decodeAndValidate(response, request, registerRequest) {
		return
	}

	publicUser, err := rt.service.Register(
		request.Context(),
		registerRequest.Name,
		registerRequest.Email,
		registerRequest.Password,
	)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			writeMessage(response, http.StatusBadRequest, "Email is already registered")
			return
		}
		rt.writeInternalError(response, err)
		return
	}

	token, err := rt.auth.BuildToken(publicUser.ID, publicUser.Email)
	if err != nil {
		rt.writeInternalError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    *publicUser,
	})
}

// PostLogin handles POST /api/auth/login.
func (rt *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	loginRequest := &models.LoginRequest{}
	if !rt.decodeAndValidate(response, request, loginRequest) {
		return
	}

	publicUser, err := rt.service.Login(request.Context(), loginRequest.Email, loginRequest.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			writeMessage(response, http.StatusUnauthorized, models.ErrInvalidCredentials.Error())
			return
		}
		rt.writeInternalError(response, err)
		return
	}

	token, err := rt.auth.BuildToken(publicUser.ID, publicUser.Email)
	if err != nil {
		rt.writeInternalError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    *publicUser,
	})
}

// GetMe handles GET /api/auth/me.
func (rt *Router) GetMe(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	publicUser, err := rt.service.GetCurrentUser(request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeMessage(response, http.StatusNotFound, models.ErrUserNotFound.Error())
			return
		}
		rt.writeInternalError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, map[string]models.PublicUser{"user": *publicUser})
}

// PostSuggestRecipes handles POST /api/recipes/suggest.
func (rt *Router) PostSuggestRecipes(response http.ResponseWriter, request *http.Request) {
	suggestRequest := &models.SuggestRequest{}
	if !rt.decodeAndValidate(response, request, suggestRequest) {
		return
	}

	suggestions, err := rt.service.SuggestRecipes(request.Context(), suggestRequest.Ingredients)
	if err != nil {
		logger.Log.Debugln("Error calling the `rt.service.SuggestRecipes()`: ", zap.Error(err))
		writeMessage(response, http.StatusInternalServerError, "Failed to fetch recipes from the recipe API")
		return
	}

	writeJSON(response, http.StatusOK, models.SuggestResponse{Recipes: suggestions})
}

// PostGroceryList handles POST /api/grocery-list. The response body carries
// the groceryList list shape even on failure.
func (rt *Router) PostGroceryList(response http.ResponseWriter, request *http.Request) {
	refsRequest := &models.RecipeRefsRequest{}
	if !rt.decodeAndValidate(response, request, refsRequest) {
		return
	}

	groceryList, warnings, err := rt.service.BuildGroceryList(request.Context(), refsRequest.Recipes)
	if err != nil {
		logger.Log.Debugln("Error calling the `rt.service.BuildGroceryList()`: ", zap.Error(err))
		writeJSON(response, http.StatusInternalServerError, models.GroceryListResponse{
			GroceryList: []string{service.GroceryListFailedMessage},
		})
		return
	}

	writeJSON(response, http.StatusOK, models.GroceryListResponse{
		GroceryList: groceryList,
		Warnings:    warnings,
	})
}

// PostDetailedRecipe handles POST /api/detailed-recipe.
func (rt *Router) PostDetailedRecipe(response http.ResponseWriter, request *http.Request) {
	refsRequest := &models.RecipeRefsRequest{}
	if !rt.decodeAndValidate(response, request, refsRequest) {
		return
	}

	detailedRecipe, err := rt.service.GetDetailedRecipe(request.Context(), refsRequest.Recipes)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNoRecipeSelected):
			writeMessage(response, http.StatusBadRequest, models.ErrNoRecipeSelected.Error())
		case errors.Is(err, models.ErrQuotaExceeded):
			writeMessage(response, http.StatusPaymentRequired, models.ErrQuotaExceeded.Error())
		default:
			writeMessage(response, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(response, http.StatusOK, models.DetailedRecipeResponse{DetailedRecipe: *detailedRecipe})
}

// GetFavorites handles GET /api/favorites.
func (rt *Router) GetFavorites(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	favorites, err := rt.service.ListFavorites(request.Context(), userID)
	if err != nil {
		rt.writeInternalError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.FavoritesResponse{Favorites: favorites})
}

// PostFavorite handles POST /api/favorites. Saving the same recipe twice
// answers 409.
func (rt *Router) PostFavorite(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())

	favorite := &models.Favorite{}
	if !rt.decodeAndValidate(response, request, favorite) {
		return
	}

	saved, err := rt.service.SaveFavorite(request.Context(), userID, favorite)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			writeMessage(response, http.StatusConflict, "Recipe is already in favorites")
			return
		}
		rt.writeInternalError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.FavoriteResponse{Favorite: *saved})
}

// DeleteFavorite handles DELETE /api/favorites/{favoriteID}. Removing a
// missing or non-owned favorite still answers 200.
func (rt *Router) DeleteFavorite(response http.ResponseWriter, request *http.Request) {
	userID, _ := auth.UserIDFromContext(request.Context())
	favoriteID := chi.URLParam(request, "favoriteID")

	if err := rt.service.DeleteFavorite(request.Context(), userID, favoriteID); err != nil {
		rt.writeInternalError(response, err)
		return
	}

	writeMessage(response, http.StatusOK, "Favorite removed")
}

// GetPing handles GET /ping with a storage health check.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.service.Ping(request.Context()); err != nil {
		rt.writeInternalError(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (rt *Router) decodeAndValidate(
	response http.ResponseWriter,
	request *http.Request,
	target interface{},
) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		writeMessage(response, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := rt.validate.Struct(target); err != nil {
		writeMessage(response, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

func (rt *Router) writeInternalError(response http.ResponseWriter, err error) {
	logger.Log.Debugln("Unexpected handler error: ", zap.Error(err))
	writeMessage(response, http.StatusInternalServerError, "internal server error")
}

func writeJSON(response http.ResponseWriter, status int, body interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(body); err != nil {
		logger.Log.Debugln("Error encoding the response body: ", zap.Error(err))
	}
}

func writeMessage(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.MessageResponse{Message: message})
}
