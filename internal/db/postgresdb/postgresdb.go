// Package postgresdb provides a PostgreSQL-based implementation of the storage
// interface for persisting users and their favorite recipes.
// Uniqueness invariants (registered email, one favorite per user and recipe)
// are enforced by unique indexes created in the goose migrations.
package postgresdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pantrychef/pantrychef/internal/models"
	"github.com/pantrychef/pantrychef/internal/user"
)

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the application storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.Up(result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

// CreateUser inserts a new user record and returns the generated ID.
// A duplicate email returns models.ErrConflict.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`,
		usr.Name,
		usr.Email,
		usr.PasswordHash,
	)
	err := row.Scan(&usr.ID, &usr.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return "", models.ErrConflict
		}
		return "", err
	}

	return usr.ID, nil
}

// GetUserByEmail fetches a user by email. The boolean reports presence.
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	return db.getUserByField(ctx, "email", email)
}

// GetUserByID fetches a user by their UUID. The boolean reports presence.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	if userID == "" {
		return nil, false, nil
	}
	return db.getUserByField(ctx, "id", userID)
}

func (db *PostgresDB) getUserByField(ctx context.Context, field, value string) (*user.User, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		fmt.Sprintf(`SELECT id, name, email, password_hash, created_at FROM users WHERE %s = $1`, field),
		value,
	)
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash, &usr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return usr, true, nil
}

// GetFavorites returns all favorites owned by the user, newest first.
func (db *PostgresDB) GetFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, user_id, title, recipe_id, image, servings, prep_time,
					ingredients, instructions, tips, created_at
				FROM favorites
				WHERE user_id = $1
				ORDER BY created_at DESC
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Favorite{}
	for rows.Next() {
		favorite, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *favorite)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// CreateFavorite persists a favorite and returns the stored record with the
// generated ID and timestamp. A duplicate (user, recipe) pair returns
// models.ErrConflict.
func (db *PostgresDB) CreateFavorite(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error) {
	ingredients, instructions, tips, err := marshalFavoriteLists(favorite)
	if err != nil {
		return nil, err
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			INSERT INTO favorites (user_id, title, recipe_id, image, servings, prep_time,
					ingredients, instructions, tips)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id, created_at
		`,
		favorite.UserID,
		favorite.Title,
		favorite.RecipeID,
		favorite.Image,
		favorite.Servings,
		favorite.PrepTime,
		ingredients,
		instructions,
		tips,
	)
	err = row.Scan(&favorite.ID, &favorite.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrConflict
		}
		return nil, err
	}

	return favorite, nil
}

// DeleteFavorite removes the favorite only when both the ID and the owning
// user match. Deleting a missing, malformed or non-owned ID is not an error.
func (db *PostgresDB) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	if _, err := uuid.Parse(favoriteID); err != nil {
		return nil
	}

	_, err := db.database.ExecContext(
		ctx,
		`DELETE FROM favorites WHERE id = $1 AND user_id = $2`,
		favoriteID,
		userID,
	)

	return err
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	err := db.database.Close()
	if err != nil {
		return err
	}

	return nil
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// The list fields are stored as jsonb so the stdlib driver can round-trip
// them without array support. The values are passed as strings because the
// driver would send []byte as bytea.
func marshalFavoriteLists(favorite *models.Favorite) (string, string, string, error) {
	ingredients, err := json.Marshal(emptyIfNil(favorite.Ingredients))
	if err != nil {
		return "", "", "", err
	}
	instructions, err := json.Marshal(emptyIfNil(favorite.Instructions))
	if err != nil {
		return "", "", "", err
	}
	tips, err := json.Marshal(emptyIfNil(favorite.Tips))
	if err != nil {
		return "", "", "", err
	}

	return string(ingredients), string(instructions), string(tips), nil
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func scanFavorite(rows *sql.Rows) (*models.Favorite, error) {
	favorite := &models.Favorite{}
	var ingredients, instructions, tips []byte
	err := rows.Scan(
		&favorite.ID,
		&favorite.UserID,
		&favorite.Title,
		&favorite.RecipeID,
		&favorite.Image,
		&favorite.Servings,
		&favorite.PrepTime,
		&ingredients,
		&instructions,
		&tips,
		&favorite.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(ingredients, &favorite.Ingredients); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(instructions, &favorite.Instructions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tips, &favorite.Tips); err != nil {
		return nil, err
	}

	return favorite, nil
}
