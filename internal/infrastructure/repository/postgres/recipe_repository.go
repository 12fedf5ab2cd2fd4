package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pantrypilot/recipe-agent/internal/core/domain"
)

type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RecipeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS recipes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	ingredients JSONB NOT NULL DEFAULT '[]'::jsonb,
	steps JSONB NOT NULL DEFAULT '[]'::jsonb,
	source TEXT NOT NULL,
	completeness_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	enrichment_status TEXT NOT NULL,
	enrichment_provider TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0,
	sync_pass_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recipes_enrichment_status ON recipes(enrichment_status);
CREATE INDEX IF NOT EXISTS idx_recipes_position ON recipes(position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertRecipes writes one sync pass atomically. An existing id keeps its
// created_at; everything else is replaced by the fresh parse.
func (r *RecipeRepository) UpsertRecipes(ctx context.Context, recipes []domain.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO recipes (
	id, title, body, ingredients, steps, source, completeness_score, enrichment_status, enrichment_provider, position, sync_pass_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	body = EXCLUDED.body,
	ingredients = EXCLUDED.ingredients,
	steps = EXCLUDED.steps,
	source = EXCLUDED.source,
	completeness_score = EXCLUDED.completeness_score,
	enrichment_status = EXCLUDED.enrichment_status,
	enrichment_provider = EXCLUDED.enrichment_provider,
	position = EXCLUDED.position,
	sync_pass_id = EXCLUDED.sync_pass_id,
	updated_at = EXCLUDED.updated_at
`
	for _, recipe := range recipes {
		ingredientsJSON, err := json.Marshal(emptyIfNil(recipe.Ingredients))
		if err != nil {
			return fmt.Errorf("marshal ingredients: %w", err)
		}
		stepsJSON, err := json.Marshal(emptyIfNil(recipe.Steps))
		if err != nil {
			return fmt.Errorf("marshal steps: %w", err)
		}

		_, err = tx.ExecContext(ctx, query,
			recipe.ID, recipe.Title, recipe.Body, ingredientsJSON, stepsJSON,
			string(recipe.Source), recipe.CompletenessScore, string(recipe.EnrichmentStatus),
			recipe.EnrichmentProvider, recipe.Position, recipe.SyncPassID,
			recipe.CreatedAt, recipe.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert recipe %s: %w", recipe.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

const recipeColumns = `id, title, body, ingredients, steps, source, completeness_score, enrichment_status, enrichment_provider, position, sync_pass_id, created_at, updated_at`

func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*domain.Recipe, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recipeColumns+`
FROM recipes
WHERE id = $1
`, id)

	recipe, err := scanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecipeNotFound, "postgres get", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return recipe, nil
}

func (r *RecipeRepository) ListAll(ctx context.Context) ([]domain.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recipeColumns+`
FROM recipes
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	recipes := []domain.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, *recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipes: %w", err)
	}
	return recipes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*domain.Recipe, error) {
	var recipe domain.Recipe
	var ingredientsRaw, stepsRaw []byte
	var source, status string

	err := row.Scan(
		&recipe.ID, &recipe.Title, &recipe.Body, &ingredientsRaw, &stepsRaw,
		&source, &recipe.CompletenessScore, &status, &recipe.EnrichmentProvider,
		&recipe.Position, &recipe.SyncPassID, &recipe.CreatedAt, &recipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan recipe: %w", err)
	}

	if err := json.Unmarshal(ingredientsRaw, &recipe.Ingredients); err != nil {
		return nil, fmt.Errorf("unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(stepsRaw, &recipe.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	recipe.Source = domain.RecipeOrigin(source)
	recipe.EnrichmentStatus = domain.EnrichmentStatus(status)
	return &recipe, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
