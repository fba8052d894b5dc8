// Package config assembles the application configuration from defaults,
// command-line flags and environment variables (in that order of precedence)
// and validates the result.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr                 string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel                string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN             string        `env:"DATABASE_DSN"`
	DBConnectionTimeout     time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir           string        `env:"MIGRATIONS_DIR"`
	RecipeAPIBaseURL        string        `env:"RECIPE_API_BASE_URL" validate:"url"`
	RecipeAPIKey            string        `env:"RECIPE_API_KEY"`
	RecipeAPITimeout        time.Duration `env:"RECIPE_API_TIMEOUT"`
	GroceryFetchConcurrency int           `env:"GROCERY_FETCH_CONCURRENCY" validate:"gt=0"`
	TokenSigningSecretKey   string        `env:"TOKEN_SIGNING_SECRET_KEY" validate:"base64url"`
	TokenTTL                time.Duration `env:"TOKEN_TTL"`
	CORSAllowedOrigin       string        `env:"CORS_ALLOWED_ORIGIN"`
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func validate(cfg *Config) error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(cfg)
}

// InitOption configures the New constructor.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips flag.Parse, which tests need because the go
// test runner owns the command line.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds a validated Config. A missing .env file is logged and ignored.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := &Config{
		RunAddr:                 ":8080",
		LogLevel:                "info",
		DatabaseDSN:             "",
		DBConnectionTimeout:     10 * time.Second,
		MigrationsDir:           "cmd/pantrychef/migrations",
		RecipeAPIBaseURL:        "https://api.spoonacular.com",
		RecipeAPIKey:            "",
		RecipeAPITimeout:        10 * time.Second,
		GroceryFetchConcurrency: 4,
		TokenSigningSecretKey:   "c3VwZXJzZWNyZXRzaWduaW5na2V5",
		TokenTTL:                7 * 24 * time.Hour,
		CORSAllowedOrigin:       "http://localhost:3000",
	}
	if !options.disableFlagsParsing {
		flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flag.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "A string with the database connection details")
		flag.StringVar(&cfg.MigrationsDir, "m", cfg.MigrationsDir, "directory with goose migrations")
		flag.StringVar(&cfg.RecipeAPIBaseURL, "r", cfg.RecipeAPIBaseURL, "base URL of the external recipe API")
		flag.Parse()
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		cfg.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		cfg.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DatabaseDSN != "" {
		cfg.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		cfg.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.MigrationsDir != "" {
		cfg.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.RecipeAPIBaseURL != "" {
		cfg.RecipeAPIBaseURL = valuesFromEnv.RecipeAPIBaseURL
	}

	if valuesFromEnv.RecipeAPIKey != "" {
		cfg.RecipeAPIKey = valuesFromEnv.RecipeAPIKey
	}

	if valuesFromEnv.RecipeAPITimeout != 0 {
		cfg.RecipeAPITimeout = valuesFromEnv.RecipeAPITimeout
	}

	if valuesFromEnv.GroceryFetchConcurrency != 0 {
		cfg.GroceryFetchConcurrency = valuesFromEnv.GroceryFetchConcurrency
	}

	if valuesFromEnv.TokenSigningSecretKey != "" {
		cfg.TokenSigningSecretKey = valuesFromEnv.TokenSigningSecretKey
	}

	if valuesFromEnv.TokenTTL != 0 {
		cfg.TokenTTL = valuesFromEnv.TokenTTL
	}

	if valuesFromEnv.CORSAllowedOrigin != "" {
		cfg.CORSAllowedOrigin = valuesFromEnv.CORSAllowedOrigin
	}

	return cfg, validate(cfg)
}
