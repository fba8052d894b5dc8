// Package recipeapi implements the client for the external recipe-search API.
// Every call carries the configured API key and a per-request timeout so a
// hung upstream can never hang a request indefinitely. The provider's
// quota-exceeded reply (HTTP 402) is surfaced as a distinct error.
package recipeapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pantrychef/pantrychef/internal/models"
)

// SearchResult is one hit of the ingredient search endpoint.
type SearchResult struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

// Ingredient is one entry of a recipe's ingredient breakdown.
type Ingredient struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Original string  `json:"original"`
}

// InstructionStep is one numbered step of an analyzed instruction set.
type InstructionStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

// AnalyzedInstruction is a structured instruction block; most recipes carry
// exactly one with all steps.
type AnalyzedInstruction struct {
	Name  string            `json:"name"`
	Steps []InstructionStep `json:"steps"`
}

// RecipeInformation is the full per-recipe payload.
type RecipeInformation struct {
	ID                   int                   `json:"id"`
	Title                string                `json:"title"`
	Servings             int                   `json:"servings"`
	ReadyInMinutes       int                   `json:"readyInMinutes"`
	Image                string                `json:"image"`
	ExtendedIngredients  []Ingredient          `json:"extendedIngredients"`
	Instructions         string                `json:"instructions"`
	AnalyzedInstructions []AnalyzedInstruction `json:"analyzedInstructions"`
}

// Client talks to the external recipe API.
type Client struct {
	client *resty.Client
	apiKey string
}

// New creates a Client for the given base URL and API key. The timeout
// bounds every individual request.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
		apiKey: apiKey,
	}
}

// SearchByIngredients asks the external API for up to `limit` recipes
// matching the comma-separated ingredient string. The string is passed
// through as the client sent it.
func (c *Client) SearchByIngredients(ctx context.Context, ingredients string, limit int) ([]SearchResult, error) {
	var results []SearchResult
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ingredients": ingredients,
			"number":      strconv.Itoa(limit),
			"apiKey":      c.apiKey,
		}).
		SetResult(&results).
		Get("/recipes/findByIngredients")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalAPI, err)
	}
	if err := checkStatus(response); err != nil {
		return nil, err
	}

	return results, nil
}

// GetRecipeInformation fetches one recipe's full data, including its
// ingredient breakdown and instructions.
func (c *Client) GetRecipeInformation(ctx context.Context, recipeID int) (*RecipeInformation, error) {
	information := &RecipeInformation{}
	response, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"includeNutrition": "false",
			"apiKey":           c.apiKey,
		}).
		SetResult(information).
		Get(fmt.Sprintf("/recipes/%d/information", recipeID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalAPI, err)
	}
	if err := checkStatus(response); err != nil {
		return nil, err
	}

	return information, nil
}

func checkStatus(response *resty.Response) error {
	if !response.IsError() {
		return nil
	}
	if response.StatusCode() == http.StatusPaymentRequired {
		return models.ErrQuotaExceeded
	}

	return fmt.Errorf("%w: status %d: %s", models.ErrExternalAPI, response.StatusCode(), response.String())
}
